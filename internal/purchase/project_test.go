package purchase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestProjectUpdateBaseColumns(t *testing.T) {
	cols := NewColumnSet()
	fragments, args, err := ProjectUpdate(cols, HeaderUpdate{
		SupplierName: strPtr("Acme Builders"),
		Reference:    strPtr("REF-9"),
		TotalAmount:  floatPtr(1207.5),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"reference = $1", "supplier_name = $2", "total_amount = $3"}, fragments)
	require.Equal(t, []any{"REF-9", "Acme Builders", 1207.5}, args)
}

func TestProjectUpdateDropsAbsentColumns(t *testing.T) {
	cols := NewColumnSet()
	fragments, args, err := ProjectUpdate(cols, HeaderUpdate{
		Reference:       strPtr("REF-9"),
		ExclusiveAmount: floatPtr(100),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"reference = $1"}, fragments)
	require.Equal(t, []any{"REF-9"}, args)
}

func TestProjectUpdateOptionalColumnEnabled(t *testing.T) {
	cols := NewColumnSet("exclusive_amount")
	fragments, _, err := ProjectUpdate(cols, HeaderUpdate{
		ExclusiveAmount: floatPtr(100),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"exclusive_amount = $1"}, fragments)
}

func TestProjectUpdateNothingSurvives(t *testing.T) {
	cols := NewColumnSet()

	_, _, err := ProjectUpdate(cols, HeaderUpdate{})
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = ProjectUpdate(cols, HeaderUpdate{ExclusiveAmount: floatPtr(100)})
	require.ErrorIs(t, err, ErrValidation)
}
