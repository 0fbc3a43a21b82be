package attributor

import (
	"regexp"
	"strings"

	"github.com/lexlens/citelink/internal/normalize"
)

// trailingCiteRe strips citation fragments accidentally captured at the tail
// of a name (", 148 Wn.2d 224, 239").
var trailingCiteRe = regexp.MustCompile(`,?\s*\d{1,4}\s+[A-Z][A-Za-z0-9. ]{0,20}\s\d{1,5}[\d, ]*$`)

// leadingFragmentRe strips a leading lowercase sentence fragment that crept
// in ahead of the actual name.
var leadingFragmentRe = regexp.MustCompile(`^[a-z][a-z'\- ]*\s+`)

// descriptivePhrases are procedural boilerplate that frequently precedes a
// case name in opinions. When one appears ahead of a "v." pattern, the name
// is re-anchored on the last complete "X v. Y" found after it.
var descriptivePhrases = []string{
	"de novo",
	"questions of law",
	"question of law",
	"this court reviews",
	"we review",
	"abuse of discretion",
	"standard of review",
}

// trailingPunct trims stray separators from candidate boundaries.
const trailingPunct = " \t,;:.([-"

// cleanCandidate normalizes and decontaminates a raw case-name candidate.
// Returns the cleaned name, or "" when nothing usable remains.
func cleanCandidate(raw string) string {
	name := normalize.Flatten(raw)
	name = strings.Trim(name, " ,;:([")

	// Trailing citation fragments.
	name = trailingCiteRe.ReplaceAllString(name, "")
	name = strings.TrimRight(name, trailingPunct)

	// Descriptive phrases ahead of a "v." form: re-anchor on the last
	// complete adversarial name after the contamination.
	lower := strings.ToLower(name)
	for _, phrase := range descriptivePhrases {
		idx := strings.Index(lower, phrase)
		if idx < 0 {
			continue
		}
		rest := name[idx+len(phrase):]
		if anchored, ok := lastVs(rest); ok {
			name = anchored
			lower = strings.ToLower(name)
			continue
		}
		// Phrase present but no adversarial form after it: cut the phrase
		// and whatever precedes it.
		name = strings.TrimLeft(rest, trailingPunct)
		lower = strings.ToLower(name)
	}

	// Leading lowercase fragments ("held that Smith v. Jones" → keep from
	// the first capitalized token).
	name = leadingFragmentRe.ReplaceAllString(name, "")
	name = strings.Trim(name, " ,;:([")

	return name
}
