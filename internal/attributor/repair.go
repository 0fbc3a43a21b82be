package attributor

import (
	"regexp"
	"strings"

	"github.com/lexlens/citelink/internal/contextwin"
	"github.com/lexlens/citelink/internal/model"
)

var bareCorpLeadRe = regexp.MustCompile(`^(?:Inc\.|LLC|L\.L\.C\.|Corp\.|Co\.|Ltd\.|LLP)\s`)

// looksTruncated flags names that a narrow window clipped: a plaintiff that
// is nothing but a corporate suffix ("Inc. v. Robins"), a defendant under 5
// characters, or a tail that ends in a 1–3 character non-suffix word.
func looksTruncated(name string) bool {
	if bareCorpLeadRe.MatchString(name) {
		return true
	}
	if _, def, ok := splitParties(name); ok && len(def) > 0 && len(def) < 5 {
		return true
	}
	words := strings.Fields(name)
	if len(words) == 0 {
		return false
	}
	last := strings.TrimRight(words[len(words)-1], ".")
	if len(last) >= 1 && len(last) <= 3 && !isCorpWord(words[len(words)-1]) && strings.ToLower(last) != "co" {
		// Trailing initials like "v." or clipped surnames.
		return !strings.EqualFold(last, "llc") && !strings.EqualFold(last, "llp")
	}
	return false
}

func isCorpWord(w string) bool {
	switch strings.TrimRight(w, ",") {
	case "Inc.", "LLC", "L.L.C.", "Corp.", "Co.", "Ltd.", "LLP", "L.P.", "P.S.", "P.C.", "N.A.":
		return true
	}
	return false
}

// repairTruncation re-searches a wider backward window for a longer name
// that ends with the truncated candidate and prefers the longer form.
// "Inc. v. Robins" near "Spokeo, Inc. v. Robins, 578 U.S. 330" recovers the
// full name.
func repairTruncation(text string, all []model.CitationSpan, span model.CitationSpan, name string) string {
	if !looksTruncated(name) {
		return name
	}

	// The repair window must genuinely widen: a false sentence or header
	// boundary is often what clipped the name in the first place, so only
	// the prior citation span bounds the re-search.
	wide := contextwin.Raw(text, all, span, contextwin.WideLookback)
	suffix := strings.ToLower(name)

	best := name
	for _, re := range []*regexp.Regexp{inReRe, vsRe} {
		for _, cand := range re.FindAllString(wide, -1) {
			cleaned := cleanCandidate(cand)
			if len(cleaned) <= len(best) {
				continue
			}
			if strings.HasSuffix(strings.ToLower(cleaned), suffix) ||
				strings.Contains(strings.ToLower(cleaned), suffix) {
				best = cleaned
			}
		}
	}
	return best
}
