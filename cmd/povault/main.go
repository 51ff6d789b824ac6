package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/povault/povault/internal/app"
	"github.com/povault/povault/internal/auth"
	"github.com/povault/povault/internal/masterdata/costcodes"
	"github.com/povault/povault/internal/masterdata/orderbooks"
	"github.com/povault/povault/internal/masterdata/suppliers"
	"github.com/povault/povault/internal/masterdata/units"
	"github.com/povault/povault/internal/observability"
	"github.com/povault/povault/internal/platform/db"
	"github.com/povault/povault/internal/purchase"
	"github.com/povault/povault/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "povault_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(dbpool)
	importLedger := shared.NewImportLedger(dbpool)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	metrics := observability.NewMetrics()

	purchaseRepo := purchase.NewRepository(dbpool)
	purchaseService := purchase.NewService(purchaseRepo, purchase.NewColumnSet(cfg.OptionalColumns()...), auditLogger)
	purchaseService.SetMetrics(metrics)
	purchaseHandler := purchase.NewHandler(logger, purchaseService)
	purchaseAPIHandler := purchase.NewAPIHandler(logger, purchaseService, importLedger, cfg.APIKey)
	purchaseAPIHandler.SetMetrics(metrics)

	suppliersHandler := suppliers.NewHandler(logger, suppliers.NewService(suppliers.NewRepository(dbpool)), cfg.APIKey)
	unitsHandler := units.NewHandler(logger, units.NewRepository(dbpool))
	costCodesHandler := costcodes.NewHandler(logger, costcodes.NewRepository(dbpool))
	orderBooksHandler := orderbooks.NewHandler(logger, orderbooks.NewRepository(dbpool))

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		AuthHandler:        authHandler,
		PurchaseHandler:    purchaseHandler,
		PurchaseAPIHandler: purchaseAPIHandler,
		SuppliersHandler:   suppliersHandler,
		UnitsHandler:       unitsHandler,
		CostCodesHandler:   costCodesHandler,
		OrderBooksHandler:  orderBooksHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
