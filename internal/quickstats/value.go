package quickstats

import (
	"strconv"
	"strings"
)

// ParseValue parses a QuickStats Value cell. Thousands separators are removed. Suppression
// codes such as (D), (Z), (NA) and (X), empty cells and anything else non-numeric read as absent.
func ParseValue(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || strings.HasPrefix(s, "(") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
