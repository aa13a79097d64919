package alphavantage

import (
	"strconv"
	"strings"
)

// The provider frequently delivers numeric fields as formatted strings
// ("1,234.56", "0.4000%", "$12.00") or leaves them empty. These helpers
// are total: any value that does not parse becomes zero, which is the
// documented fallback for malformed provider fields.

// ParseDecimal strips currency, percent, and thousands formatting and
// parses the remainder as a float. Returns 0 on failure.
func ParseDecimal(s string) float64 {
	clean := strings.NewReplacer("%", "", ",", "", "$", "").Replace(s)
	clean = strings.TrimSpace(clean)
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseInteger strips thousands separators and whitespace and parses the
// remainder as an integer. Returns 0 on failure.
func ParseInteger(s string) int {
	clean := strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	v, err := strconv.Atoi(clean)
	if err != nil {
		return 0
	}
	return v
}

// ParsePercent strips a percent sign and parses the remainder as a
// float. Returns 0 on failure.
func ParsePercent(s string) float64 {
	clean := strings.ReplaceAll(s, "%", "")
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0
	}
	return v
}
