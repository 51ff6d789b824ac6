package purchase

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeNumber(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want float64
	}{
		{"plain", "1234.5", 1234.5},
		{"grouped", "1,234.50", 1234.5},
		{"grouped millions", "12,345,678.90", 12345678.9},
		{"embedded spaces", " 1 234.5 ", 1234.5},
		{"negative", "-250.75", -250.75},
		{"empty", "", 0},
		{"whitespace only", "   ", 0},
		{"garbage", "abc", 0},
		{"partial garbage", "12x", 0},
		{"nan", "NaN", 0},
		{"inf", "Inf", 0},
		{"negative infinity", "-Infinity", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, NormalizeNumber(tc.raw))
		})
	}
}

func TestAmountUnmarshal(t *testing.T) {
	var payload struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
		C Amount `json:"c"`
		D Amount `json:"d"`
		E Amount `json:"e"`
	}
	body := `{"a": 12.5, "b": "1,234.50", "c": null, "d": "", "e": "nonsense"}`
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	require.Equal(t, 12.5, payload.A.Float64())
	require.Equal(t, 1234.5, payload.B.Float64())
	require.Equal(t, 0.0, payload.C.Float64())
	require.Equal(t, 0.0, payload.D.Float64())
	require.Equal(t, 0.0, payload.E.Float64())
}

func TestNormalizeDate(t *testing.T) {
	got, err := NormalizeDate("2026/03/15")
	require.NoError(t, err)
	require.Equal(t, "2026-03-15", got)

	got, err = NormalizeDate("2026-03-15")
	require.NoError(t, err)
	require.Equal(t, "2026-03-15", got)

	got, err = NormalizeDate("  ")
	require.NoError(t, err)
	require.Equal(t, "", got)

	_, err = NormalizeDate("15/03/2026")
	require.ErrorIs(t, err, ErrValidation)

	_, err = NormalizeDate("2026-13-40")
	require.ErrorIs(t, err, ErrValidation)
}
