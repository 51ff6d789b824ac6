package purchase

import (
	"fmt"
	"sort"
	"strings"
)

// Header columns every deployment carries.
var baseEditableColumns = []string{
	"supplier_name",
	"supplier_code",
	"order_sheet_no",
	"reference",
	"order_date",
	"vat_percent",
	"vat_amount",
	"total_amount",
}

// ColumnSet enumerates which header columns a deployment supports. Older
// installations carry optional legacy columns such as exclusive_amount; the
// set is resolved once at startup from configuration rather than by
// introspecting a live schema.
type ColumnSet struct {
	columns map[string]struct{}
}

// NewColumnSet builds the editable-column set from the base schema plus the
// configured optional columns.
func NewColumnSet(optional ...string) ColumnSet {
	columns := make(map[string]struct{}, len(baseEditableColumns)+len(optional))
	for _, c := range baseEditableColumns {
		columns[c] = struct{}{}
	}
	for _, c := range optional {
		c = strings.TrimSpace(c)
		if c != "" {
			columns[c] = struct{}{}
		}
	}
	return ColumnSet{columns: columns}
}

// Has reports whether the column exists on this deployment.
func (cs ColumnSet) Has(name string) bool {
	_, ok := cs.columns[name]
	return ok
}

// HeaderUpdate is a partial header edit; nil fields were not submitted.
// ExclusiveAmount targets the legacy exclusive_amount column and is silently
// dropped on deployments without it.
type HeaderUpdate struct {
	SupplierName    *string
	SupplierCode    *string
	OrderSheetNo    *string
	Reference       *string
	OrderDate       *string
	ExclusiveAmount *float64
	VatPercent      *float64
	VatAmount       *float64
	TotalAmount     *float64
}

// ProjectUpdate maps the partial update onto the columns this deployment
// actually has, producing SET fragments with 1-based placeholders and the
// matching parameter list. Submitted fields whose column is absent are
// dropped; if nothing survives the intersection the update is rejected.
func ProjectUpdate(cols ColumnSet, in HeaderUpdate) ([]string, []any, error) {
	candidates := map[string]any{}
	put := func(column string, v any) {
		candidates[column] = v
	}
	if in.SupplierName != nil {
		put("supplier_name", *in.SupplierName)
	}
	if in.SupplierCode != nil {
		put("supplier_code", *in.SupplierCode)
	}
	if in.OrderSheetNo != nil {
		put("order_sheet_no", *in.OrderSheetNo)
	}
	if in.Reference != nil {
		put("reference", *in.Reference)
	}
	if in.OrderDate != nil {
		put("order_date", *in.OrderDate)
	}
	if in.ExclusiveAmount != nil {
		put("exclusive_amount", *in.ExclusiveAmount)
	}
	if in.VatPercent != nil {
		put("vat_percent", *in.VatPercent)
	}
	if in.VatAmount != nil {
		put("vat_amount", *in.VatAmount)
	}
	if in.TotalAmount != nil {
		put("total_amount", *in.TotalAmount)
	}

	columns := make([]string, 0, len(candidates))
	for column := range candidates {
		if cols.Has(column) {
			columns = append(columns, column)
		}
	}
	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("%w: no editable columns", ErrValidation)
	}
	sort.Strings(columns)

	fragments := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for i, column := range columns {
		fragments = append(fragments, fmt.Sprintf("%s = $%d", column, i+1))
		args = append(args, candidates[column])
	}
	return fragments, args, nil
}
