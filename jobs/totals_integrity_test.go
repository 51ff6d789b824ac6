package jobs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/povault/povault/internal/purchase"
)

// Sub-cent net prices make the per-line-rounded derivation drift from the
// aggregate-rounded stored total by more than a flat cent; the tolerance has
// to grow with the line count so those rows are not flagged.
func TestDriftToleranceCoversPerLineRounding(t *testing.T) {
	var inputs []purchase.LineInput
	for i := 0; i < 40; i++ {
		inputs = append(inputs, purchase.LineInput{Standard: &purchase.StandardLineInput{
			Description: "fastener",
			Quantity:    3,
			UnitPrice:   0.333,
		}})
	}

	result, err := purchase.Reconcile(inputs, purchase.OrderTypeStandard, 0)
	require.NoError(t, err)
	stored := result.Totals(0).TotalAmount

	summary := purchase.Summarize(result.Lines, purchase.OrderTypeStandard, 0)
	delta := math.Abs(summary.Sum - stored)

	require.Greater(t, delta, 0.01)
	require.LessOrEqual(t, delta, driftTolerance(len(result.Lines)))
}

func TestDriftToleranceMatchedTotalsPass(t *testing.T) {
	inputs := []purchase.LineInput{{Standard: &purchase.StandardLineInput{
		Description: "bricks",
		Quantity:    2,
		UnitPrice:   100,
	}}}

	result, err := purchase.Reconcile(inputs, purchase.OrderTypeStandard, 15)
	require.NoError(t, err)
	stored := result.Totals(15).TotalAmount

	summary := purchase.Summarize(result.Lines, purchase.OrderTypeStandard, 15)
	require.LessOrEqual(t, math.Abs(summary.Sum-stored), driftTolerance(len(result.Lines)))
}
