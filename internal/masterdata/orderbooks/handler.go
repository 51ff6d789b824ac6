package orderbooks

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/povault/povault/internal/masterdata/shared"
	"github.com/povault/povault/internal/platform/httpx"
)

type Handler struct {
	logger *slog.Logger
	repo   Repository
}

func NewHandler(logger *slog.Logger, repo Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/order-books", h.handleList)
	r.Get("/order-books/{code}", h.handleShow)
	r.Post("/order-books", h.handleCreate)
	r.Post("/order-books/{id}/active", h.handleSetActive)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	books, err := h.repo.List(r.Context(), r.URL.Query().Get("active") == "1")
	if err != nil {
		h.logger.Error("list order books", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"order_books": books})
}

func (h *Handler) handleShow(w http.ResponseWriter, r *http.Request) {
	book, err := h.repo.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Fail(w, http.StatusNotFound, "order book not found")
			return
		}
		h.logger.Error("get order book", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"order_book": book})
}

type createRequest struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		httpx.Fail(w, http.StatusBadRequest, "code is required")
		return
	}

	book, err := h.repo.Create(r.Context(), OrderBook{
		Code:        strings.TrimSpace(req.Code),
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		h.logger.Error("create order book", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"order_book": book})
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid order book id")
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}
	if err := h.repo.SetActive(r.Context(), id, req.Active); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Fail(w, http.StatusNotFound, "order book not found")
			return
		}
		h.logger.Error("set order book active", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}
