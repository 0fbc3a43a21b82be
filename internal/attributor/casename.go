// Package attributor associates citation spans with the case name and
// decision year that appear near them in the source text. An ordered cascade
// of strategies runs over the backward-isolated context; the first strategy
// whose candidate survives cleanup, validity, and contamination checks wins.
package attributor

import (
	"regexp"
	"strings"
)

// Building blocks for case-name patterns. Party names tolerate the
// abbreviation-heavy forms that appear in briefs ("Glob. Client Sols., LLC",
// "Dep't of Ecology").
const (
	nameWord  = `[A-Z][A-Za-z0-9&'.\-]*`
	lowerWord = `(?:of|the|and|for|de|la|van|von|ex rel\.)`
	corpTail  = `(?:Inc\.|LLC|L\.L\.C\.|Corp\.|Co\.|Ltd\.|L\.P\.|LLP|P\.S\.|P\.C\.|N\.A\.)`
)

var (
	party = nameWord + `(?:\s(?:` + lowerWord + `\s)*` + nameWord + `)*(?:,?\s` + corpTail + `)*`

	// inReLead covers the single-party case forms.
	inReLead = `(?:In re the Marriage of|In re Estate of|In re|Matter of|In the Matter of|Ex parte|Estate of|Petition of)`

	// vsRe matches the adversarial form "X v. Y".
	vsRe = regexp.MustCompile(party + `\sv\.?s?\.?\s` + party)

	// inReRe matches the non-adversarial forms.
	inReRe = regexp.MustCompile(inReLead + `\s` + party)

	// govRe matches government-party prefixes explicitly, which keeps
	// "State v. Smith" from being swallowed into a longer preceding phrase.
	govRe = regexp.MustCompile(`(?:United States|State|People|Commonwealth|Gov't)\sv\.?\s` + party)

	// allCapsVsRe matches ALL-CAPS captions ("STATE V. SMITH").
	allCapsVsRe = regexp.MustCompile(`[A-Z][A-Z0-9&'.\- ]{1,60}\sV\.?S?\.?\s[A-Z][A-Z0-9&'.\- ]{1,60}`)

	// Right-anchored variants for the comma-anchored strategy: the name must
	// end exactly at the comma.
	vsRightRe   = regexp.MustCompile(party + `\sv\.?s?\.?\s` + party + `$`)
	inReRightRe = regexp.MustCompile(inReLead + `\s` + party + `$`)
)

// windowPatterns is the ordered table for the position-window strategy.
// Earlier entries are more structurally specific; confidence decreases with
// index.
var windowPatterns = []*regexp.Regexp{
	inReRe,
	govRe,
	vsRe,
	allCapsVsRe,
}

// lastMatch returns the final (closest-to-citation) match of re in s.
func lastMatch(re *regexp.Regexp, s string) (string, bool) {
	locs := re.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return "", false
	}
	last := locs[len(locs)-1]
	return s[last[0]:last[1]], true
}

// lastVs returns the last complete "X v. Y" substring of s, used to
// re-anchor after contamination stripping.
func lastVs(s string) (string, bool) {
	return lastMatch(vsRe, s)
}

// hasCaseSignal reports whether s carries a recognized case-type marker.
func hasCaseSignal(s string) bool {
	lower := strings.ToLower(s)
	for _, sig := range []string{" v. ", " v ", " vs. ", "in re", "ex parte", "matter of", "estate of", "petition of"} {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
