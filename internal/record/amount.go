package record

import (
	"strconv"
	"strings"
)

// ParseAmount parses a currency string from a parsed receipt. Dollar
// signs and thousands separators are stripped before parsing.
func ParseAmount(s string) (float64, bool) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// SelectAmount picks the record amount from receipt summary fields.
// The primary total wins when it parses; otherwise the largest
// parseable candidate total is used. This maximum-of-candidates
// fallback mirrors how upstream receipt parsing behaves; nothing
// smarter is attempted. With no parseable value at all the amount is
// zero.
func SelectAmount(primary string, candidates []string) float64 {
	if value, ok := ParseAmount(primary); ok {
		return value
	}
	selected := 0.0
	for _, candidate := range candidates {
		if value, ok := ParseAmount(candidate); ok && value > selected {
			selected = value
		}
	}
	return selected
}
