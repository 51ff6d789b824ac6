package suppliers

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/povault/povault/internal/masterdata/shared"
	"github.com/povault/povault/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	apiKey  string
}

func NewHandler(logger *slog.Logger, service *Service, apiKey string) *Handler {
	return &Handler{logger: logger, service: service, apiKey: apiKey}
}

// MountRoutes registers the session-gated read routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/suppliers", h.handleList)
	r.Get("/suppliers/{id}", h.handleShow)
}

// MountAPIRoutes registers the key-authenticated ingestion route.
func (h *Handler) MountAPIRoutes(r chi.Router) {
	r.Post("/api/suppliers", h.handleUpsert)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 20
	}

	filters := shared.ListFilters{
		Page:    page,
		Limit:   limit,
		Search:  r.URL.Query().Get("search"),
		SortBy:  r.URL.Query().Get("sort"),
		SortDir: r.URL.Query().Get("dir"),
	}

	items, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list suppliers", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"suppliers": items,
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

func (h *Handler) handleShow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	supplier, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Fail(w, http.StatusNotFound, "supplier not found")
			return
		}
		h.logger.Error("get supplier", slog.Any("error", err), slog.Int64("id", id))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"supplier": supplier})
}

type upsertRequest struct {
	APIKey  string `json:"api_key"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

func (h *Handler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}
	if h.apiKey == "" || subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(h.apiKey)) != 1 {
		httpx.Fail(w, http.StatusUnauthorized, "invalid api key")
		return
	}

	supplier, err := h.service.Upsert(r.Context(), Supplier{
		Code:    req.Code,
		Name:    req.Name,
		Address: req.Address,
		Email:   req.Email,
		Phone:   req.Phone,
	})
	if err != nil {
		if errors.Is(err, shared.ErrValidation) {
			httpx.Fail(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("upsert supplier", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"supplier": supplier,
	})
}
