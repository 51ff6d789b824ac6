package purchase

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// NormalizeNumber converts an arbitrary user-submitted numeric string into a
// float. Grouping commas and embedded whitespace are stripped; empty or
// unparseable input yields 0 rather than an error so that inconsistent client
// formatting can never corrupt a total.
func NormalizeNumber(raw string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if cleaned == "" {
		return 0
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	// ParseFloat accepts "NaN" and "Inf" spellings; they are not amounts.
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

// Amount is a float64 that tolerates the numeric formats clients actually
// send: JSON numbers, grouped strings ("1,234.50"), empty strings, and null.
type Amount float64

// UnmarshalJSON never fails on bad numerics; anything unparseable decodes to
// zero, matching NormalizeNumber.
func (a *Amount) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*a = 0
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = 0
			return nil
		}
		*a = Amount(NormalizeNumber(s))
		return nil
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		*a = 0
		return nil
	}
	*a = Amount(value)
	return nil
}

// Float64 returns the underlying value.
func (a Amount) Float64() float64 {
	return float64(a)
}

// NormalizeDate accepts YYYY-MM-DD or YYYY/MM/DD and returns the canonical
// YYYY-MM-DD form. Empty input stays empty.
func NormalizeDate(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	canonical := strings.ReplaceAll(trimmed, "/", "-")
	if _, err := time.Parse("2006-01-02", canonical); err != nil {
		return "", ErrValidation
	}
	return canonical, nil
}
