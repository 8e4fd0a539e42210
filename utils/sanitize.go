package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.StrictPolicy()

// SanitizeNotes strips all markup from free-text ledger notes and reasons
// before they are persisted.
func SanitizeNotes(s string) string {
	return strings.TrimSpace(sanitizer.Sanitize(s))
}
