package purchase

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders a monetary value with thousand separators and two
// decimal places, e.g. 1,234,567.80.
func FormatAmount(v float64) string {
	return amountPrinter.Sprintf("%.2f", v)
}
