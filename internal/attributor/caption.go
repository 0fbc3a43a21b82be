package attributor

import (
	"regexp"

	"github.com/lexlens/citelink/internal/contextwin"
	"github.com/lexlens/citelink/internal/normalize"
)

// captionScan is how much of the document head is searched for the
// document's own caption.
const captionScan = 2000

// roleWords appear between caption parties in brief headers
// ("GOPHER MEDIA LLC, Appellant, v. MELONE, Respondent").
var roleRe = regexp.MustCompile(`,?\s*(?:Appellants?|Respondents?|Petitioners?|Plaintiffs?|Defendants?|Appellees?|Intervenors?)(?:/[A-Za-z-]+)?,?`)

// DetectPrimaryCaseName finds the document's own caption in the opening of
// the text. The result feeds the contamination filter; it is computed once
// per document and must not be mutated afterward.
func DetectPrimaryCaseName(text string) string {
	head := text
	if len(head) > captionScan {
		head = head[:captionScan]
	}

	// Party role designations sit between caption parties in brief headers;
	// strip them so "X, Appellant, v. Y, Respondent" reads "X v. Y".
	hasRoles := roleRe.MatchString(head)
	head = roleRe.ReplaceAllString(head, "")

	// The caption is whichever case-name form appears first in the head;
	// a cited case later in the opening paragraphs must not win over it.
	// A caption also needs caption signals: party role designations or the
	// ALL-CAPS caption form. A document that simply opens with a cited case
	// has no caption of its own, and that case's genuine name must not be
	// mistaken for one.
	best, bestPos := "", -1
	for _, re := range []*regexp.Regexp{inReRe, vsRe, allCapsVsRe} {
		if !hasRoles && re != allCapsVsRe {
			continue
		}
		loc := re.FindStringIndex(head)
		if loc == nil || (bestPos >= 0 && loc[0] >= bestPos) {
			continue
		}
		name := cleanCandidate(head[loc[0]:loc[1]])
		if len(name) >= minNameLen && hasCaseSignal(name) {
			best, bestPos = name, loc[0]
		}
	}
	return best
}

// HeadForFallback returns the header-filtered document opening used by the
// last-resort cascade stage.
func HeadForFallback(text string) string {
	head := text
	if len(head) > captionScan {
		head = head[:captionScan]
	}
	return normalize.Flatten(contextwin.StripHeaders(head))
}
