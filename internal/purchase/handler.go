package purchase

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/povault/povault/internal/platform/httpx"
	"github.com/povault/povault/internal/shared"
)

// Handler serves the session-gated purchase-order endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers purchase-order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/purchase-orders", h.handleList)
	r.Get("/purchase-orders/{id}", h.handleDetail)
	r.Get("/purchase-orders/{id}/summary", h.handleSummary)
	r.Get("/purchase-orders/{id}/versions", h.handleVersions)
	r.Post("/purchase-orders/update", h.handleHeaderUpdate)
	r.Post("/purchase-orders/lines/update", h.handleLinesUpdate)
}

type headerUpdateRequest struct {
	PurchaseOrderID int64   `json:"purchase_order_id" validate:"required,gt=0"`
	SupplierName    *string `json:"supplier_name"`
	SupplierCode    *string `json:"supplier_code"`
	OrderSheetNo    *string `json:"order_sheet_no"`
	Reference       *string `json:"reference"`
	OrderDate       *string `json:"order_date"`
	ExclusiveAmount *Amount `json:"exclusive_amount"`
	VatPercent      *Amount `json:"vat_percent"`
	VatAmount       *Amount `json:"vat_amount"`
	TotalAmount     *Amount `json:"total_amount"`
}

type headerUpdateResponse struct {
	Success       bool    `json:"success"`
	Message       string  `json:"message"`
	PurchaseOrder Version `json:"purchaseOrder"`
}

func (h *Handler) handleHeaderUpdate(w http.ResponseWriter, r *http.Request) {
	var req headerUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "purchase_order_id is required")
		return
	}

	version, err := h.service.UpdateHeader(r.Context(), UpdateHeaderInput{
		PurchaseOrderID: req.PurchaseOrderID,
		ActorID:         currentUser(r),
		Fields: HeaderUpdate{
			SupplierName:    req.SupplierName,
			SupplierCode:    req.SupplierCode,
			OrderSheetNo:    req.OrderSheetNo,
			Reference:       req.Reference,
			OrderDate:       req.OrderDate,
			ExclusiveAmount: amountPtr(req.ExclusiveAmount),
			VatPercent:      amountPtr(req.VatPercent),
			VatAmount:       amountPtr(req.VatAmount),
			TotalAmount:     amountPtr(req.TotalAmount),
		},
	})
	if err != nil {
		h.respondError(w, r, "update header", err)
		return
	}
	httpx.JSON(w, http.StatusOK, headerUpdateResponse{
		Success:       true,
		Message:       "purchase order updated",
		PurchaseOrder: version,
	})
}

type linesUpdateRequest struct {
	PurchaseOrderID     int64           `json:"purchase_order_id" validate:"required,gt=0"`
	VatPercent          Amount          `json:"vat_percent"`
	Lines               json.RawMessage `json:"lines" validate:"required"`
	UpdateCurrentHeader string          `json:"update_current_header"`
}

type linesUpdateResponse struct {
	Success         bool    `json:"success"`
	PurchaseOrderID int64   `json:"purchase_order_id"`
	TotalAmount     float64 `json:"total_amount"`
}

func (h *Handler) handleLinesUpdate(w http.ResponseWriter, r *http.Request) {
	var req linesUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "purchase_order_id and lines are required")
		return
	}

	result, err := h.service.ReplaceLines(r.Context(), ReplaceLinesInput{
		PurchaseOrderID:     req.PurchaseOrderID,
		VatPercent:          req.VatPercent.Float64(),
		Lines:               req.Lines,
		UpdateCurrentHeader: req.UpdateCurrentHeader == "1",
		ActorID:             currentUser(r),
	})
	if err != nil {
		h.respondError(w, r, "replace lines", err)
		return
	}
	httpx.JSON(w, http.StatusOK, linesUpdateResponse{
		Success:         true,
		PurchaseOrderID: result.VersionID,
		TotalAmount:     result.TotalAmount,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	supplierID, _ := strconv.ParseInt(r.URL.Query().Get("supplier_id"), 10, 64)
	filters := ListFilters{
		OrderBook:  r.URL.Query().Get("order_book"),
		SupplierID: supplierID,
		Search:     r.URL.Query().Get("search"),
		SortBy:     r.URL.Query().Get("sort"),
		SortDir:    r.URL.Query().Get("dir"),
	}

	items, total, err := h.service.List(r.Context(), limit, offset, filters)
	if err != nil {
		h.respondError(w, r, "list purchase orders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"purchase_orders": items,
		"total":           total,
		"limit":           limit,
		"offset":          offset,
	})
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid purchase order id")
		return
	}
	version, lines, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"purchase_order": version,
		"lines":          lines,
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid purchase order id")
		return
	}

	// Concurrent renders of the same version share one computation.
	value, err, _ := summaryGroupDo(r.Context(), chi.URLParam(r, "id"), func() (Summary, error) {
		return h.service.SummarizeVersion(r.Context(), id)
	})
	if err != nil {
		h.respondError(w, r, "summarize purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"count":         value.Count,
		"sum":           value.Sum,
		"sum_formatted": FormatAmount(value.Sum),
	})
}

func (h *Handler) handleVersions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid purchase order id")
		return
	}
	version, _, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get purchase order", err)
		return
	}
	versions, err := h.service.History(r.Context(), version.PONumber)
	if err != nil {
		h.respondError(w, r, "list versions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"po_number": version.PONumber,
		"versions":  versions,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Fail(w, http.StatusBadRequest, userMessage(err))
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, "purchase order not found")
	case errors.Is(err, ErrStaleVersion):
		httpx.Fail(w, http.StatusConflict, "purchase order has a newer version; reload before editing")
	default:
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}

// userMessage strips the sentinel prefix so clients see only the human part.
func userMessage(err error) string {
	msg := err.Error()
	const prefix = "purchase: invalid input: "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

func amountPtr(a *Amount) *float64 {
	if a == nil {
		return nil
	}
	v := a.Float64()
	return &v
}

func currentUser(r *http.Request) int64 {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0
	}
	id, _ := strconv.ParseInt(sess.User(), 10, 64)
	return id
}
