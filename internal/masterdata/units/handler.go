package units

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

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
	r.Get("/units", h.handleList)
}

// handleList feeds unit autocomplete in line editors.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	units, err := h.repo.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("list units", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"units": units})
}
