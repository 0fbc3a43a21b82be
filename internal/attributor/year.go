package attributor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lexlens/citelink/internal/model"
)

const (
	minYear = 1600
	maxYear = 2100

	// yearForward bounds the post-citation search window.
	yearForward = 80
)

// parenYearRe prefers the conventional "(2011)" or "(Wash. 2011)" form.
var parenYearRe = regexp.MustCompile(`\(([A-Za-z.,' ]*)(\d{4})\)`)

// bareYearRe is the fallback for years outside parentheses.
var bareYearRe = regexp.MustCompile(`\b(\d{4})\b`)

// extractYear searches the immediate post-citation context for a decision
// year, preferring a parenthesized 4-digit year; failing that, it looks
// backward near the attributed case name. Returns N/A when no year in the
// plausible range is found.
func extractYear(text string, span model.CitationSpan, backward string) string {
	end := span.End
	if end > len(text) {
		end = len(text)
	}
	limit := end + yearForward
	if limit > len(text) {
		limit = len(text)
	}
	after := text[end:limit]

	if m := parenYearRe.FindStringSubmatch(after); m != nil {
		if y, ok := plausibleYear(m[2]); ok {
			return y
		}
	}
	for _, m := range bareYearRe.FindAllStringSubmatch(after, -1) {
		if y, ok := plausibleYear(m[1]); ok {
			return y
		}
	}

	// The grouped parallel form often keeps the year after a sibling
	// citation; fall back to the backward window near the case name.
	if m := parenYearRe.FindStringSubmatch(backward); m != nil {
		if y, ok := plausibleYear(m[2]); ok {
			return y
		}
	}

	return model.NotAvailable
}

func plausibleYear(s string) (string, bool) {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || y < minYear || y > maxYear {
		return "", false
	}
	return s, true
}
