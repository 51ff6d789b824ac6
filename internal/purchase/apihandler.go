package purchase

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/povault/povault/internal/platform/httpx"
	"github.com/povault/povault/internal/shared"
)

// APIHandler serves the machine-to-machine ingestion endpoints. Callers
// authenticate per request with a shared key carried in the body, not with a
// session cookie.
type APIHandler struct {
	logger    *slog.Logger
	service   *Service
	ledger    *shared.ImportLedger
	apiKey    string
	metrics   MetricsPort
	validator *validator.Validate
}

// NewAPIHandler builds an APIHandler instance.
func NewAPIHandler(logger *slog.Logger, service *Service, ledger *shared.ImportLedger, apiKey string) *APIHandler {
	return &APIHandler{
		logger:    logger,
		service:   service,
		ledger:    ledger,
		apiKey:    apiKey,
		validator: validator.New(),
	}
}

// SetMetrics attaches domain-event counters. The handler works without them.
func (h *APIHandler) SetMetrics(m MetricsPort) {
	h.metrics = m
}

// MountRoutes registers the ingestion API routes.
func (h *APIHandler) MountRoutes(r chi.Router) {
	r.Post("/api/purchase-orders", h.handleCreate)
	r.Post("/api/purchase-orders/import", h.handleImport)
	r.Post("/api/purchase-orders/lines", h.handleBulkLines)
}

func (h *APIHandler) authorized(key string) bool {
	if h.apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(h.apiKey)) == 1
}

type apiLineInput struct {
	LineNo          int    `json:"line_no"`
	ItemCode        string `json:"item_code"`
	Description     string `json:"description"`
	Quantity        Amount `json:"quantity"`
	Unit            string `json:"unit"`
	UnitPrice       Amount `json:"unit_price"`
	DiscountPercent Amount `json:"discount_percent"`
	NetPrice        Amount `json:"net_price"`
	IsVatable       *bool  `json:"is_vatable"`
	LineDate        string `json:"line_date"`
	DepositAmount   Amount `json:"deposit_amount"`
	ExVatAmount     Amount `json:"ex_vat_amount"`
	LineVatAmount   Amount `json:"vat_amount"`
	LineTotalAmount Amount `json:"total_amount"`
}

func (in apiLineInput) toLine() Line {
	return Line{
		LineNo:          in.LineNo,
		ItemCode:        strings.TrimSpace(in.ItemCode),
		Description:     strings.TrimSpace(in.Description),
		Quantity:        in.Quantity.Float64(),
		Unit:            strings.TrimSpace(in.Unit),
		UnitPrice:       in.UnitPrice.Float64(),
		DiscountPercent: in.DiscountPercent.Float64(),
		NetPrice:        in.NetPrice.Float64(),
		IsVatable:       in.IsVatable,
		LineDate:        strings.TrimSpace(in.LineDate),
		DepositAmount:   in.DepositAmount.Float64(),
		ExVatAmount:     in.ExVatAmount.Float64(),
		LineVatAmount:   in.LineVatAmount.Float64(),
		LineTotalAmount: in.LineTotalAmount.Float64(),
	}
}

type apiCreateRequest struct {
	APIKey         string         `json:"api_key" validate:"required"`
	PONumber       string         `json:"po_number" validate:"required"`
	OrderBook      string         `json:"order_book"`
	OrderSheetNo   string         `json:"order_sheet_no"`
	SupplierID     int64          `json:"supplier_id"`
	SupplierCode   string         `json:"supplier_code"`
	SupplierName   string         `json:"supplier_name"`
	OrderDate      string         `json:"order_date"`
	CostCode       string         `json:"cost_code"`
	CostCodeDesc   string         `json:"cost_code_description"`
	Terms          string         `json:"terms"`
	Reference      string         `json:"reference"`
	OrderType      string         `json:"order_type"`
	Subtotal       Amount         `json:"subtotal"`
	VatPercent     Amount         `json:"vat_percent"`
	VatAmount      Amount         `json:"vat_amount"`
	MiscLabel      string         `json:"misc_label"`
	MiscAmount     Amount         `json:"misc_amount"`
	TotalAmount    Amount         `json:"total_amount"`
	CreatedBy      string         `json:"created_by"`
	SourceFilename string         `json:"source_filename"`
	Lines          []apiLineInput `json:"lines"`
}

func (req apiCreateRequest) toVersion() Version {
	return Version{
		PONumber:       strings.TrimSpace(req.PONumber),
		OrderBook:      strings.TrimSpace(req.OrderBook),
		OrderSheetNo:   strings.TrimSpace(req.OrderSheetNo),
		SupplierID:     req.SupplierID,
		SupplierCode:   strings.TrimSpace(req.SupplierCode),
		SupplierName:   strings.TrimSpace(req.SupplierName),
		OrderDate:      strings.TrimSpace(req.OrderDate),
		CostCode:       strings.TrimSpace(req.CostCode),
		CostCodeDesc:   strings.TrimSpace(req.CostCodeDesc),
		Terms:          strings.TrimSpace(req.Terms),
		Reference:      strings.TrimSpace(req.Reference),
		OrderType:      ParseOrderType(req.OrderType),
		Subtotal:       req.Subtotal.Float64(),
		VatPercent:     req.VatPercent.Float64(),
		VatAmount:      req.VatAmount.Float64(),
		MiscLabel:      strings.TrimSpace(req.MiscLabel),
		MiscAmount:     req.MiscAmount.Float64(),
		TotalAmount:    req.TotalAmount.Float64(),
		CreatedBy:      strings.TrimSpace(req.CreatedBy),
		SourceFilename: strings.TrimSpace(req.SourceFilename),
	}
}

func (h *APIHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req apiCreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}
	if !h.authorized(req.APIKey) {
		httpx.Fail(w, http.StatusUnauthorized, "invalid api key")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "po_number is required")
		return
	}

	lines := make([]Line, 0, len(req.Lines))
	for _, in := range req.Lines {
		lines = append(lines, in.toLine())
	}
	id, err := h.service.CreateVersion(r.Context(), CreateVersionInput{
		Version: req.toVersion(),
		Lines:   lines,
	})
	if err != nil {
		h.respondError(w, r, "create version", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success":           true,
		"purchase_order_id": id,
	})
}

type apiImportRequest struct {
	apiCreateRequest
	Filename string `json:"filename" validate:"required"`
}

// handleImport behaves like handleCreate but is guarded by a filename ledger
// so replays of the same source file are rejected instead of appending a
// duplicate version.
func (h *APIHandler) handleImport(w http.ResponseWriter, r *http.Request) {
	var req apiImportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}
	if !h.authorized(req.APIKey) {
		httpx.Fail(w, http.StatusUnauthorized, "invalid api key")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "po_number and filename are required")
		return
	}

	if err := h.ledger.Claim(r.Context(), req.Filename); err != nil {
		if errors.Is(err, shared.ErrDuplicateImport) {
			if h.metrics != nil {
				h.metrics.CountImportReject()
			}
			httpx.Fail(w, http.StatusConflict, "file already imported")
			return
		}
		h.respondError(w, r, "claim import", err)
		return
	}

	version := req.toVersion()
	version.SourceFilename = req.Filename
	lines := make([]Line, 0, len(req.Lines))
	for _, in := range req.Lines {
		lines = append(lines, in.toLine())
	}
	id, err := h.service.CreateVersion(r.Context(), CreateVersionInput{
		Version: version,
		Lines:   lines,
	})
	if err != nil {
		// The claim is rolled back so the file can be retried after the
		// underlying problem is fixed.
		if relErr := h.ledger.Release(r.Context(), req.Filename); relErr != nil {
			h.logger.Error("release import claim", slog.Any("error", relErr), slog.String("filename", req.Filename))
		}
		h.respondError(w, r, "import version", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success":           true,
		"purchase_order_id": id,
		"filename":          req.Filename,
	})
}

type apiBulkLinesRequest struct {
	APIKey          string         `json:"api_key" validate:"required"`
	PurchaseOrderID int64          `json:"purchase_order_id" validate:"required,gt=0"`
	Lines           []apiLineInput `json:"lines" validate:"required"`
}

func (h *APIHandler) handleBulkLines(w http.ResponseWriter, r *http.Request) {
	var req apiBulkLinesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}
	if !h.authorized(req.APIKey) {
		httpx.Fail(w, http.StatusUnauthorized, "invalid api key")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "purchase_order_id and lines are required")
		return
	}

	lines := make([]Line, 0, len(req.Lines))
	for _, in := range req.Lines {
		lines = append(lines, in.toLine())
	}
	count, err := h.service.BulkReplaceLines(r.Context(), req.PurchaseOrderID, lines)
	if err != nil {
		h.respondError(w, r, "bulk replace lines", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"purchase_order_id": req.PurchaseOrderID,
		"line_count":        count,
	})
}

func (h *APIHandler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Fail(w, http.StatusBadRequest, userMessage(err))
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, "purchase order not found")
	case errors.Is(err, ErrStaleVersion):
		httpx.Fail(w, http.StatusConflict, "purchase order has a newer version")
	default:
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
