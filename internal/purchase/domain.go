package purchase

import (
	"errors"
	"time"
)

// OrderType distinguishes the two line-item layouts a purchase order can
// carry. It is fixed for the life of a PO number.
type OrderType string

const (
	OrderTypeStandard      OrderType = "standard"
	OrderTypeTransactional OrderType = "transactional"
)

// ParseOrderType maps free-form input onto a known order type, falling back
// to standard. Version-creation paths must prefer the prior version's type
// over anything supplied by the client.
func ParseOrderType(raw string) OrderType {
	if raw == string(OrderTypeTransactional) {
		return OrderTypeTransactional
	}
	return OrderTypeStandard
}

// Version is one immutable snapshot of a purchase-order header. For a given
// PONumber the row with the maximum ID is the current version; earlier rows
// are history and must never be mutated.
type Version struct {
	ID              int64     `json:"id"`
	PONumber        string    `json:"po_number"`
	OrderBook       string    `json:"order_book"`
	OrderSheetNo    string    `json:"order_sheet_no"`
	SupplierID      int64     `json:"supplier_id"`
	SupplierCode    string    `json:"supplier_code"`
	SupplierName    string    `json:"supplier_name"`
	OrderDate       string    `json:"order_date"` // YYYY-MM-DD
	CostCode        string    `json:"cost_code"`
	CostCodeDesc    string    `json:"cost_code_description"`
	Terms           string    `json:"terms"`
	Reference       string    `json:"reference"`
	OrderType       OrderType `json:"order_type"`
	Subtotal        float64   `json:"subtotal"`
	VatPercent      float64   `json:"vat_percent"`
	VatAmount       float64   `json:"vat_amount"`
	MiscLabel       string    `json:"misc_label"`
	MiscAmount      float64   `json:"misc_amount"`
	TotalAmount     float64   `json:"total_amount"`
	CreatedBy       string    `json:"created_by"`
	SourceFilename  string    `json:"source_filename"`
	CreatedAt       time.Time `json:"created_at"`
}

// Totals carries the header-level aggregates produced by the reconciler.
type Totals struct {
	Subtotal    float64
	VatPercent  float64
	VatAmount   float64
	TotalAmount float64
}

// Fork clones the version into a new, not-yet-persisted row: every header
// field is carried forward, identity and timestamp are reset, and the
// financial fields are replaced with the supplied aggregates. The receiver is
// left untouched.
func (v Version) Fork(totals Totals, now time.Time) Version {
	next := v
	next.ID = 0
	next.Subtotal = totals.Subtotal
	next.VatPercent = totals.VatPercent
	next.VatAmount = totals.VatAmount
	next.TotalAmount = totals.TotalAmount
	next.CreatedAt = now
	return next
}

// Line is one line item scoped to exactly one version. Which field group is
// populated follows the owning version's order type.
type Line struct {
	ID              int64     `json:"id"`
	PurchaseOrderID int64     `json:"purchase_order_id"`
	PONumber        string    `json:"po_number"`
	SupplierCode    string    `json:"supplier_code"`
	SupplierName    string    `json:"supplier_name"`
	LineNo          int       `json:"line_no"`
	LineType        OrderType `json:"line_type"`
	// IsVatable nil means "infer from the header VAT percent". Reconciled
	// lines always carry an explicit flag; rows written by the plain import
	// collaborators may not.
	IsVatable *bool `json:"is_vatable"`

	// Standard layout.
	ItemCode        string  `json:"item_code,omitempty"`
	Description     string  `json:"description,omitempty"`
	Quantity        float64 `json:"quantity,omitempty"`
	Unit            string  `json:"unit,omitempty"`
	UnitPrice       float64 `json:"unit_price,omitempty"`
	DiscountPercent float64 `json:"discount_percent,omitempty"`
	NetPrice        float64 `json:"net_price,omitempty"`

	// Transactional layout.
	LineDate        string  `json:"line_date,omitempty"` // YYYY-MM-DD
	DepositAmount   float64 `json:"deposit_amount,omitempty"`
	ExVatAmount     float64 `json:"ex_vat_amount,omitempty"`
	LineVatAmount   float64 `json:"line_vat_amount,omitempty"`
	LineTotalAmount float64 `json:"line_total_amount,omitempty"`
}

var (
	// ErrNotFound indicates an unknown purchase order or version id.
	ErrNotFound = errors.New("purchase: not found")
	// ErrValidation indicates malformed or missing required input.
	ErrValidation = errors.New("purchase: invalid input")
	// ErrStaleVersion occurs when an edit targets a version that is no
	// longer the latest for its PO number.
	ErrStaleVersion = errors.New("purchase: not the latest version")
)
