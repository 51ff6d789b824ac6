package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/povault/povault/internal/auth"
	"github.com/povault/povault/internal/masterdata/costcodes"
	"github.com/povault/povault/internal/masterdata/orderbooks"
	"github.com/povault/povault/internal/masterdata/suppliers"
	"github.com/povault/povault/internal/masterdata/units"
	"github.com/povault/povault/internal/observability"
	"github.com/povault/povault/internal/purchase"
	"github.com/povault/povault/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	AuthHandler        *auth.Handler
	PurchaseHandler    *purchase.Handler
	PurchaseAPIHandler *purchase.APIHandler
	SuppliersHandler   *suppliers.Handler
	UnitsHandler       *units.Handler
	CostCodesHandler   *costcodes.Handler
	OrderBooksHandler  *orderbooks.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.AuthHandler != nil {
		params.AuthHandler.MountRoutes(r)
	}

	// Key-authenticated ingestion endpoints; no session required.
	if params.PurchaseAPIHandler != nil {
		params.PurchaseAPIHandler.MountRoutes(r)
	}
	if params.SuppliersHandler != nil {
		params.SuppliersHandler.MountAPIRoutes(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireSession)
		if params.PurchaseHandler != nil {
			params.PurchaseHandler.MountRoutes(r)
		}
		if params.SuppliersHandler != nil {
			params.SuppliersHandler.MountRoutes(r)
		}
		if params.UnitsHandler != nil {
			params.UnitsHandler.MountRoutes(r)
		}
		if params.CostCodesHandler != nil {
			params.CostCodesHandler.MountRoutes(r)
		}
		if params.OrderBooksHandler != nil {
			params.OrderBooksHandler.MountRoutes(r)
		}
	})

	return r
}
