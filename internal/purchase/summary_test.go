package purchase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummarizeStandard(t *testing.T) {
	lines := []Line{
		{NetPrice: 100},
		{NetPrice: 50, IsVatable: boolPtr(false)},
	}
	got := Summarize(lines, OrderTypeStandard, 15)
	require.Equal(t, 2, got.Count)
	// 100 + 15 VAT + 50 exempt.
	require.Equal(t, 165.0, got.Sum)
}

func TestSummarizeStandardZeroHeaderVat(t *testing.T) {
	lines := []Line{{NetPrice: 100}, {NetPrice: 25}}
	got := Summarize(lines, OrderTypeStandard, 0)
	require.Equal(t, 125.0, got.Sum)
}

func TestSummarizeRoundsPerLine(t *testing.T) {
	// Each contribution rounds to cents before accumulation, so three lines
	// of 33.333 sum to 99.99 rather than 100.00.
	lines := []Line{{NetPrice: 33.333}, {NetPrice: 33.333}, {NetPrice: 33.333}}
	got := Summarize(lines, OrderTypeStandard, 0)
	require.Equal(t, 99.99, got.Sum)
}

func TestSummarizeTransactional(t *testing.T) {
	lines := []Line{
		{LineTotalAmount: 57.5},
		{LineTotalAmount: 23},
	}
	got := Summarize(lines, OrderTypeTransactional, 15)
	require.Equal(t, 2, got.Count)
	require.Equal(t, 80.5, got.Sum)
}

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil, OrderTypeStandard, 15)
	require.Equal(t, 0, got.Count)
	require.Equal(t, 0.0, got.Sum)
}
