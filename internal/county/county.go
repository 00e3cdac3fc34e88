// Package county normalizes county names to the canonical upper-case form used as the panel key.
package county

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var upper = cases.Upper(language.AmericanEnglish)

// aliases maps historical or source-specific spellings to the canonical name.
// Keys are already upper-cased and apostrophe-stripped.
var aliases = map[string]string{
	"OBRIEN": "O BRIEN",
}

// aggregates are pseudo-counties QuickStats uses to publish suppressed remainders.
var aggregates = map[string]bool{
	"OTHER COUNTIES":            true,
	"OTHER (COMBINED) COUNTIES": true,
}

// Normalize returns the canonical form of a county name: upper-case, single-spaced,
// apostrophes replaced by a space, and known aliases resolved.
func Normalize(name string) string {
	s := upper.String(strings.TrimSpace(name))
	s = strings.NewReplacer("'", " ", "’", " ", "`", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	if canon, ok := aliases[s]; ok {
		return canon
	}
	return s
}

// IsAggregate reports whether name is a multi-county remainder row rather than a county.
func IsAggregate(name string) bool {
	return aggregates[Normalize(name)]
}
