package purchase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// StandardLineInput is one submitted line in the item/quantity/discount
// layout. Client-supplied line numbers are informational only.
type StandardLineInput struct {
	LineNo          int     `json:"line_no"`
	ItemCode        string  `json:"item_code"`
	Description     string  `json:"description"`
	Quantity        Amount  `json:"quantity"`
	Unit            string  `json:"unit"`
	UnitPrice       Amount  `json:"unit_price"`
	DiscountPercent Amount  `json:"discount_percent"`
	NetPrice        *Amount `json:"net_price"`
	IsVatable       *bool   `json:"is_vatable"`
}

// TransactionalLineInput is one submitted line in the deposit/VAT-breakdown
// layout.
type TransactionalLineInput struct {
	LineNo          int     `json:"line_no"`
	LineDate        string  `json:"line_date"`
	Description     string  `json:"description"`
	DepositAmount   Amount  `json:"deposit_amount"`
	ExVatAmount     Amount  `json:"ex_vat_amount"`
	LineVatAmount   Amount  `json:"line_vat_amount"`
	LineTotalAmount *Amount `json:"line_total_amount"`
	IsVatable       *bool   `json:"is_vatable"`
}

// LineInput is the tagged union of the two layouts. Exactly one arm is set;
// which arm is decided by the owning version's order type at decode time, not
// by the payload itself.
type LineInput struct {
	Standard      *StandardLineInput
	Transactional *TransactionalLineInput
}

// DecodeLineInputs parses a submitted line array for the given order type.
// The payload may arrive either as a JSON array or as a JSON string that
// itself encodes an array (legacy clients double-encode the field).
func DecodeLineInputs(raw json.RawMessage, orderType OrderType) ([]LineInput, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("%w: lines payload is not valid JSON", ErrValidation)
		}
		raw = json.RawMessage(inner)
	}

	switch orderType {
	case OrderTypeTransactional:
		var lines []TransactionalLineInput
		if err := json.Unmarshal(raw, &lines); err != nil {
			return nil, fmt.Errorf("%w: lines payload is not a valid line array", ErrValidation)
		}
		out := make([]LineInput, len(lines))
		for i := range lines {
			out[i] = LineInput{Transactional: &lines[i]}
		}
		return out, nil
	default:
		var lines []StandardLineInput
		if err := json.Unmarshal(raw, &lines); err != nil {
			return nil, fmt.Errorf("%w: lines payload is not a valid line array", ErrValidation)
		}
		out := make([]LineInput, len(lines))
		for i := range lines {
			out[i] = LineInput{Standard: &lines[i]}
		}
		return out, nil
	}
}

// ReconcileResult carries the validated, renumbered lines together with the
// header-level aggregates derived from them.
type ReconcileResult struct {
	Lines       []Line
	Subtotal    float64
	VatAmount   float64
	TotalAmount float64
}

// Totals repackages the aggregates for the version writer.
func (r ReconcileResult) Totals(vatPercent float64) Totals {
	return Totals{
		Subtotal:    r.Subtotal,
		VatPercent:  vatPercent,
		VatAmount:   r.VatAmount,
		TotalAmount: r.TotalAmount,
	}
}

// Reconcile validates a candidate line set, renumbers the survivors densely
// from 1 in submission order, resolves per-line VAT-ability, computes derived
// per-line amounts and the header aggregates.
//
// Entirely blank rows are intentionally-skipped filler, not errors. A
// non-blank line missing its identity field fails the whole set. Aggregation
// differs by layout: standard totals are recomputed as subtotal plus VAT,
// transactional totals are the sum of the stored per-line totals. The
// asymmetry is observed behaviour relied on downstream; do not unify it here.
func Reconcile(inputs []LineInput, orderType OrderType, headerVatPercent float64) (ReconcileResult, error) {
	var (
		result   ReconcileResult
		subtotal decimal.Decimal
		vat      decimal.Decimal
		total    decimal.Decimal
	)
	vatRate := decimal.NewFromFloat(headerVatPercent).Div(decimal.NewFromInt(100))

	for _, input := range inputs {
		switch {
		case orderType == OrderTypeTransactional && input.Transactional != nil:
			in := input.Transactional
			if transactionalBlank(in) {
				continue
			}
			if strings.TrimSpace(in.Description) == "" {
				return ReconcileResult{}, fmt.Errorf("%w: line missing required identity field", ErrValidation)
			}
			lineDate, err := NormalizeDate(in.LineDate)
			if err != nil {
				return ReconcileResult{}, fmt.Errorf("%w: line date must be YYYY-MM-DD", ErrValidation)
			}

			lineTotal := decimal.NewFromFloat(in.ExVatAmount.Float64()).
				Add(decimal.NewFromFloat(in.LineVatAmount.Float64()))
			if in.LineTotalAmount != nil {
				lineTotal = decimal.NewFromFloat(in.LineTotalAmount.Float64())
			}

			vatable := true
			if in.IsVatable != nil {
				vatable = *in.IsVatable
			}

			lineTotalF, _ := lineTotal.Float64()
			result.Lines = append(result.Lines, Line{
				LineNo:          len(result.Lines) + 1,
				LineType:        OrderTypeTransactional,
				IsVatable:       &vatable,
				LineDate:        lineDate,
				Description:     strings.TrimSpace(in.Description),
				DepositAmount:   in.DepositAmount.Float64(),
				ExVatAmount:     in.ExVatAmount.Float64(),
				LineVatAmount:   in.LineVatAmount.Float64(),
				LineTotalAmount: lineTotalF,
			})

			subtotal = subtotal.Add(decimal.NewFromFloat(in.ExVatAmount.Float64()))
			vat = vat.Add(decimal.NewFromFloat(in.LineVatAmount.Float64()))
			total = total.Add(lineTotal)

		case orderType != OrderTypeTransactional && input.Standard != nil:
			in := input.Standard
			if standardBlank(in) {
				continue
			}
			if strings.TrimSpace(in.ItemCode) == "" && strings.TrimSpace(in.Description) == "" {
				return ReconcileResult{}, fmt.Errorf("%w: line missing required identity field", ErrValidation)
			}
			if in.Quantity.Float64() < 0 {
				return ReconcileResult{}, fmt.Errorf("%w: quantity must not be negative", ErrValidation)
			}
			if in.DiscountPercent.Float64() < 0 {
				return ReconcileResult{}, fmt.Errorf("%w: discount percent must not be negative", ErrValidation)
			}

			// Unit price may be negative to support credit lines.
			net := decimal.NewFromFloat(in.Quantity.Float64()).
				Mul(decimal.NewFromFloat(in.UnitPrice.Float64())).
				Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(in.DiscountPercent.Float64()).Div(decimal.NewFromInt(100))))
			if in.NetPrice != nil {
				net = decimal.NewFromFloat(in.NetPrice.Float64())
			}

			vatable := headerVatPercent > 0
			if in.IsVatable != nil {
				vatable = *in.IsVatable
			}

			netF, _ := net.Float64()
			result.Lines = append(result.Lines, Line{
				LineNo:          len(result.Lines) + 1,
				LineType:        OrderTypeStandard,
				IsVatable:       &vatable,
				ItemCode:        strings.TrimSpace(in.ItemCode),
				Description:     strings.TrimSpace(in.Description),
				Quantity:        in.Quantity.Float64(),
				Unit:            strings.TrimSpace(in.Unit),
				UnitPrice:       in.UnitPrice.Float64(),
				DiscountPercent: in.DiscountPercent.Float64(),
				NetPrice:        netF,
			})

			subtotal = subtotal.Add(net)
			if vatable {
				vat = vat.Add(net.Mul(vatRate))
			}

		default:
			return ReconcileResult{}, fmt.Errorf("%w: line layout does not match order type %s", ErrValidation, orderType)
		}
	}

	if len(result.Lines) == 0 {
		return ReconcileResult{}, fmt.Errorf("%w: no valid lines", ErrValidation)
	}

	if orderType == OrderTypeTransactional {
		result.Subtotal = round2(subtotal)
		result.VatAmount = round2(vat)
		result.TotalAmount = round2(total)
	} else {
		result.Subtotal = round2(subtotal)
		result.VatAmount = round2(vat)
		result.TotalAmount = round2(subtotal.Add(vat))
	}
	return result, nil
}

func standardBlank(in *StandardLineInput) bool {
	return strings.TrimSpace(in.ItemCode) == "" &&
		strings.TrimSpace(in.Description) == "" &&
		in.Quantity == 0 &&
		in.UnitPrice == 0 &&
		(in.NetPrice == nil || *in.NetPrice == 0)
}

func transactionalBlank(in *TransactionalLineInput) bool {
	return strings.TrimSpace(in.Description) == "" &&
		in.DepositAmount == 0 &&
		in.ExVatAmount == 0 &&
		in.LineVatAmount == 0 &&
		(in.LineTotalAmount == nil || *in.LineTotalAmount == 0)
}

func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
