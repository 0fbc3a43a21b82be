package attributor

import (
	"strings"
	"unicode"

	"github.com/lexlens/citelink/internal/normalize"
)

const (
	minNameLen = 5
	maxNameLen = 150

	// captionOverlap is the token-overlap similarity at or above which a
	// candidate is treated as the document's own caption.
	captionOverlap = 0.8
)

// forbiddenVocab marks candidates that are statutory references, procedural
// prose, or document structure rather than case names.
var forbiddenVocab = []string{
	"court of appeals",
	"supreme court",
	"u.s.c.",
	"penal code",
	"rev. code",
	"pursuant to",
	"you are hereby",
	"certificate of service",
	"table of contents",
	"table of authorities",
}

// validName rejects candidates that are not plausible case names. The rules
// mirror what actually shows up in PDF-extracted briefs: headers, statute
// cites, and stray prose.
func validName(name string) bool {
	if len(name) < minNameLen || len(name) > maxNameLen {
		return false
	}
	if !hasCaseSignal(name) {
		return false
	}

	lower := strings.ToLower(name)
	for _, bad := range forbiddenVocab {
		if strings.Contains(lower, bad) {
			return false
		}
	}

	// Mostly-uppercase long strings are document headers unless the whole
	// thing is itself an ALL-CAPS case-name pattern.
	if len(name) > 10 && upperFraction(name) > 0.7 && !allCapsVsRe.MatchString(name) {
		return false
	}

	return true
}

func upperFraction(s string) float64 {
	letters, uppers := 0, 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			uppers++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(uppers) / float64(letters)
}

// matchesCaption reports whether a candidate is contaminated by the
// document's own primary caption: it contains the caption outright, shares
// both distinctive party tokens with it, or exceeds the token-overlap
// threshold.
func matchesCaption(candidate, caption string) bool {
	if caption == "" {
		return false
	}
	candFold := normalize.Fold(candidate)
	capFold := normalize.Fold(caption)
	if candFold == capFold || strings.Contains(candFold, capFold) {
		return true
	}

	if p, d, ok := splitParties(caption); ok {
		cp, cd := distinctiveToken(p), distinctiveToken(d)
		if cp != "" && cd != "" &&
			strings.Contains(candFold, cp) && strings.Contains(candFold, cd) {
			return true
		}
	}

	return normalize.TokenOverlap(candidate, caption) >= captionOverlap
}

// splitParties splits an adversarial case name on its "v." separator.
func splitParties(name string) (plaintiff, defendant string, ok bool) {
	lower := strings.ToLower(name)
	for _, sep := range []string{" v. ", " vs. ", " v "} {
		if idx := strings.Index(lower, sep); idx > 0 {
			return strings.TrimSpace(name[:idx]), strings.TrimSpace(name[idx+len(sep):]), true
		}
	}
	return "", "", false
}

// genericTokens never count as distinctive for contamination matching.
var genericTokens = map[string]bool{
	"state": true, "united": true, "states": true, "people": true,
	"city": true, "county": true, "inc": true, "llc": true, "corp": true,
	"co": true, "company": true, "the": true, "of": true,
}

// distinctiveToken returns the longest non-generic token of a party name,
// folded for comparison.
func distinctiveToken(partyName string) string {
	best := ""
	for _, t := range normalize.Tokens(partyName) {
		if genericTokens[t] {
			continue
		}
		if len(t) > len(best) {
			best = t
		}
	}
	return best
}
