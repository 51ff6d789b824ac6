package purchase

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func amt(v float64) *Amount {
	a := Amount(v)
	return &a
}

func boolPtr(v bool) *bool {
	return &v
}

func standardInput(lines ...StandardLineInput) []LineInput {
	out := make([]LineInput, len(lines))
	for i := range lines {
		out[i] = LineInput{Standard: &lines[i]}
	}
	return out
}

func transactionalInput(lines ...TransactionalLineInput) []LineInput {
	out := make([]LineInput, len(lines))
	for i := range lines {
		out[i] = LineInput{Transactional: &lines[i]}
	}
	return out
}

func TestReconcileStandardDerivesNetAndTotals(t *testing.T) {
	inputs := standardInput(StandardLineInput{
		ItemCode:        "BRK-001",
		Description:     "Facing bricks",
		Quantity:        2,
		Unit:            "pallet",
		UnitPrice:       100,
		DiscountPercent: 10,
	})

	result, err := Reconcile(inputs, OrderTypeStandard, 15)
	require.NoError(t, err)
	require.Len(t, result.Lines, 1)
	require.Equal(t, 180.0, result.Lines[0].NetPrice)
	require.Equal(t, 180.0, result.Subtotal)
	require.Equal(t, 27.0, result.VatAmount)
	require.Equal(t, 207.0, result.TotalAmount)
}

func TestReconcileStandardClientNetPriceWins(t *testing.T) {
	inputs := standardInput(StandardLineInput{
		Description: "Misc materials",
		Quantity:    3,
		UnitPrice:   50,
		NetPrice:    amt(140),
	})

	result, err := Reconcile(inputs, OrderTypeStandard, 0)
	require.NoError(t, err)
	require.Equal(t, 140.0, result.Lines[0].NetPrice)
	require.Equal(t, 140.0, result.Subtotal)
	require.Equal(t, 0.0, result.VatAmount)
	require.Equal(t, 140.0, result.TotalAmount)
}

func TestReconcileStandardVatableDefaulting(t *testing.T) {
	// Header VAT of zero infers non-vatable; an explicit flag overrides.
	inputs := standardInput(
		StandardLineInput{Description: "inferred", Quantity: 1, UnitPrice: 100},
		StandardLineInput{Description: "explicit", Quantity: 1, UnitPrice: 100, IsVatable: boolPtr(true)},
	)

	result, err := Reconcile(inputs, OrderTypeStandard, 0)
	require.NoError(t, err)
	require.False(t, *result.Lines[0].IsVatable)
	require.True(t, *result.Lines[1].IsVatable)
	// VAT rate is still zero, so the explicit flag changes persistence only.
	require.Equal(t, 0.0, result.VatAmount)

	result, err = Reconcile(standardInput(
		StandardLineInput{Description: "vatable", Quantity: 1, UnitPrice: 100},
		StandardLineInput{Description: "exempt", Quantity: 1, UnitPrice: 100, IsVatable: boolPtr(false)},
	), OrderTypeStandard, 20)
	require.NoError(t, err)
	require.Equal(t, 200.0, result.Subtotal)
	require.Equal(t, 20.0, result.VatAmount)
	require.Equal(t, 220.0, result.TotalAmount)
}

func TestReconcileStandardBlankRowsSkipped(t *testing.T) {
	inputs := standardInput(
		StandardLineInput{Description: "first", Quantity: 1, UnitPrice: 10},
		StandardLineInput{},
		StandardLineInput{Unit: "ea"},
		StandardLineInput{Description: "second", Quantity: 2, UnitPrice: 5},
	)

	result, err := Reconcile(inputs, OrderTypeStandard, 0)
	require.NoError(t, err)
	require.Len(t, result.Lines, 2)
	require.Equal(t, 1, result.Lines[0].LineNo)
	require.Equal(t, 2, result.Lines[1].LineNo)
	require.Equal(t, "second", result.Lines[1].Description)
}

func TestReconcileStandardIdentityRequired(t *testing.T) {
	inputs := standardInput(StandardLineInput{Quantity: 1, UnitPrice: 10})
	_, err := Reconcile(inputs, OrderTypeStandard, 0)
	require.ErrorIs(t, err, ErrValidation)
}

func TestReconcileStandardNegativeQuantityRejected(t *testing.T) {
	_, err := Reconcile(standardInput(
		StandardLineInput{Description: "bad", Quantity: -1, UnitPrice: 10},
	), OrderTypeStandard, 0)
	require.ErrorIs(t, err, ErrValidation)

	_, err = Reconcile(standardInput(
		StandardLineInput{Description: "bad", Quantity: 1, UnitPrice: 10, DiscountPercent: -5},
	), OrderTypeStandard, 0)
	require.ErrorIs(t, err, ErrValidation)
}

func TestReconcileStandardNegativeUnitPriceAllowed(t *testing.T) {
	result, err := Reconcile(standardInput(
		StandardLineInput{Description: "supply", Quantity: 1, UnitPrice: 100},
		StandardLineInput{Description: "credit note", Quantity: 1, UnitPrice: -40},
	), OrderTypeStandard, 0)
	require.NoError(t, err)
	require.Equal(t, 60.0, result.Subtotal)
	require.Equal(t, 60.0, result.TotalAmount)
}

func TestReconcileTransactionalSumsStoredTotals(t *testing.T) {
	inputs := transactionalInput(
		TransactionalLineInput{
			LineDate:      "2026/01/10",
			Description:   "Deposit invoice",
			ExVatAmount:   50,
			LineVatAmount: 7.5,
		},
		TransactionalLineInput{
			LineDate:      "2026-02-10",
			Description:   "Progress invoice",
			ExVatAmount:   20,
			LineVatAmount: 3,
		},
	)

	result, err := Reconcile(inputs, OrderTypeTransactional, 15)
	require.NoError(t, err)
	require.Len(t, result.Lines, 2)
	require.Equal(t, "2026-01-10", result.Lines[0].LineDate)
	require.Equal(t, 57.5, result.Lines[0].LineTotalAmount)
	require.Equal(t, 23.0, result.Lines[1].LineTotalAmount)
	require.Equal(t, 70.0, result.Subtotal)
	require.Equal(t, 10.5, result.VatAmount)
	require.Equal(t, 80.5, result.TotalAmount)
}

func TestReconcileTransactionalClientTotalWins(t *testing.T) {
	// A stored per-line total that disagrees with ex-VAT plus VAT is kept as
	// given; the header total follows the stored values.
	result, err := Reconcile(transactionalInput(
		TransactionalLineInput{
			Description:     "Adjusted invoice",
			ExVatAmount:     100,
			LineVatAmount:   15,
			LineTotalAmount: amt(110),
		},
	), OrderTypeTransactional, 15)
	require.NoError(t, err)
	require.Equal(t, 110.0, result.Lines[0].LineTotalAmount)
	require.Equal(t, 100.0, result.Subtotal)
	require.Equal(t, 15.0, result.VatAmount)
	require.Equal(t, 110.0, result.TotalAmount)
}

func TestReconcileTransactionalDefaultsVatable(t *testing.T) {
	result, err := Reconcile(transactionalInput(
		TransactionalLineInput{Description: "invoice", ExVatAmount: 10},
		TransactionalLineInput{Description: "exempt", ExVatAmount: 10, IsVatable: boolPtr(false)},
	), OrderTypeTransactional, 0)
	require.NoError(t, err)
	require.True(t, *result.Lines[0].IsVatable)
	require.False(t, *result.Lines[1].IsVatable)
}

func TestReconcileTransactionalIdentityRequired(t *testing.T) {
	_, err := Reconcile(transactionalInput(
		TransactionalLineInput{ExVatAmount: 10},
	), OrderTypeTransactional, 0)
	require.ErrorIs(t, err, ErrValidation)
}

func TestReconcileAllBlankRejected(t *testing.T) {
	_, err := Reconcile(standardInput(StandardLineInput{}, StandardLineInput{}), OrderTypeStandard, 15)
	require.ErrorIs(t, err, ErrValidation)

	_, err = Reconcile(nil, OrderTypeStandard, 15)
	require.ErrorIs(t, err, ErrValidation)
}

func TestReconcileNonFiniteInputsTreatedAsZero(t *testing.T) {
	raw := json.RawMessage(`[{"description":"bricks","quantity":"NaN","unit_price":100},{"description":"sand","quantity":2,"unit_price":"Infinity"}]`)
	inputs, err := DecodeLineInputs(raw, OrderTypeStandard)
	require.NoError(t, err)
	require.Equal(t, 0.0, inputs[0].Standard.Quantity.Float64())
	require.Equal(t, 0.0, inputs[1].Standard.UnitPrice.Float64())

	result, err := Reconcile(inputs, OrderTypeStandard, NormalizeNumber("Inf"))
	require.NoError(t, err)
	require.Len(t, result.Lines, 2)
	require.Equal(t, 0.0, result.Subtotal)
	require.Equal(t, 0.0, result.VatAmount)
	require.Equal(t, 0.0, result.TotalAmount)
}

func TestDecodeLineInputsArray(t *testing.T) {
	raw := json.RawMessage(`[{"description":"a","quantity":"1,000","unit_price":2}]`)
	inputs, err := DecodeLineInputs(raw, OrderTypeStandard)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	require.NotNil(t, inputs[0].Standard)
	require.Equal(t, 1000.0, inputs[0].Standard.Quantity.Float64())
}

func TestDecodeLineInputsDoubleEncoded(t *testing.T) {
	inner := `[{"description":"a","ex_vat_amount":50,"line_vat_amount":7.5}]`
	raw, err := json.Marshal(inner)
	require.NoError(t, err)

	inputs, err := DecodeLineInputs(raw, OrderTypeTransactional)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	require.NotNil(t, inputs[0].Transactional)
	require.Equal(t, 50.0, inputs[0].Transactional.ExVatAmount.Float64())
}

func TestDecodeLineInputsMalformed(t *testing.T) {
	_, err := DecodeLineInputs(json.RawMessage(`{"not":"an array"}`), OrderTypeStandard)
	require.ErrorIs(t, err, ErrValidation)

	_, err = DecodeLineInputs(json.RawMessage(`"{broken"`), OrderTypeTransactional)
	require.ErrorIs(t, err, ErrValidation)
}
