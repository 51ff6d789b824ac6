package costcodes

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

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
	r.Get("/cost-codes", h.handleLookup)
	r.Get("/cost-codes/{code}", h.handleShow)
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	codes, err := h.repo.Lookup(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		h.logger.Error("lookup cost codes", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"cost_codes": codes})
}

func (h *Handler) handleShow(w http.ResponseWriter, r *http.Request) {
	code, err := h.repo.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Fail(w, http.StatusNotFound, "cost code not found")
			return
		}
		h.logger.Error("get cost code", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"cost_code": code})
}
