package purchase

import (
	"github.com/shopspring/decimal"
)

// Summary is a display-oriented rollup of one version's line set.
type Summary struct {
	Count int     `json:"count"`
	Sum   float64 `json:"sum"`
}

// Summarize recomputes a line set's monetary sum for read views without
// touching the write path. Every line contribution is rounded to two decimal
// places before it is accumulated, matching how amounts are rendered, and the
// final sum is rounded again. VAT-ability defaults follow the same rule the
// reconciler applies, so a displayed total always matches what a subsequent
// save would persist: lines without an explicit flag infer it from the header
// VAT percent (standard) or default to VAT-able (transactional).
func Summarize(lines []Line, orderType OrderType, headerVatPercent float64) Summary {
	vatRate := decimal.NewFromFloat(headerVatPercent).Div(decimal.NewFromInt(100))
	sum := decimal.Zero

	for _, line := range lines {
		if orderType == OrderTypeTransactional {
			sum = sum.Add(decimal.NewFromFloat(line.LineTotalAmount).Round(2))
			continue
		}
		net := decimal.NewFromFloat(line.NetPrice)
		contribution := net.Round(2)
		if lineVatable(line, orderType, headerVatPercent) {
			contribution = contribution.Add(net.Mul(vatRate).Round(2))
		}
		sum = sum.Add(contribution)
	}

	return Summary{Count: len(lines), Sum: round2(sum)}
}

func lineVatable(line Line, orderType OrderType, headerVatPercent float64) bool {
	if line.IsVatable != nil {
		return *line.IsVatable
	}
	if orderType == OrderTypeTransactional {
		return true
	}
	return headerVatPercent > 0
}
