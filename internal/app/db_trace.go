package app

import (
	"strings"
	"unicode/utf8"
)

// maxTracedQueryLength caps the db.statement attribute; arisan queries are
// short, so only hand-written batch statements ever hit it.
const maxTracedQueryLength = 512

// formatDBQueryForTrace collapses whitespace so multi-line SQL reads as one
// line in span attributes, cutting long statements on a rune boundary.
func formatDBQueryForTrace(query string) string {
	oneLine := strings.Join(strings.Fields(query), " ")
	if len(oneLine) <= maxTracedQueryLength {
		return oneLine
	}

	cut := maxTracedQueryLength
	for cut > 0 && !utf8.RuneStart(oneLine[cut]) {
		cut--
	}
	return oneLine[:cut] + "..."
}
