// Package contextwin computes the backward-only text window used to
// attribute a case name to a citation. The window never extends past the
// citation's start offset and never crosses a neighboring citation or a
// document-structural boundary, which is what stops a different citation's
// case name from bleeding into this one's attribution.
package contextwin

import (
	"regexp"
	"strings"

	"github.com/lexlens/citelink/internal/model"
)

// Default lookback widths. Narrow windows serve the early cascade stages;
// the wide window is reserved for repair and fallback passes.
const (
	CommaLookback  = 300
	WindowLookback = 600
	WideLookback   = 1000
)

// headerRe matches document-header lines that must never contribute to a
// case name: court banners, filing stamps, docket numbers.
var headerRe = regexp.MustCompile(`(?:SUPREME COURT|COURT OF APPEALS|UNITED STATES DISTRICT COURT|IN THE COURT|FILED[:\s]|No\.\s+\d[\d-]*|Case\s+No\.|Docket\s+No\.)`)

// sentenceRe finds a sentence-end candidate: terminal punctuation followed
// by a capital letter. Candidates ending known abbreviations ("v.", "Inc.",
// "U.S.") are not boundaries; see lastSentenceBreak.
var sentenceRe = regexp.MustCompile(`[.!?]\s+[A-Z]`)

// nonTerminalAbbrev lists period-bearing tokens that never end a sentence in
// legal prose. Keys are lowercased with the final period stripped.
var nonTerminalAbbrev = map[string]bool{
	"v": true, "vs": true, "inc": true, "corp": true, "ltd": true,
	"co": true, "cos": true, "bros": true, "ass'n": true, "dep't": true,
	"dept": true, "no": true, "nos": true, "mr": true, "mrs": true,
	"ms": true, "dr": true, "jr": true, "sr": true, "st": true,
	"u.s": true, "wn": true, "wash": true, "cal": true, "fla": true,
	"ariz": true, "colo": true, "nev": true, "tex": true, "app": true,
	"supp": true, "fed": true, "rptr": true, "ct": true, "cnty": true,
	"e.g": true, "i.e": true, "cf": true, "al": true, "etc": true,
}

// signalRe strips introductory citation signals from the start of a window.
// These precede a case name but are not part of it.
var signalRe = regexp.MustCompile(`^(?i:see,?\s+e\.g\.,?|see\s+also|but\s+see|see|quoting|citing|accord,?|cf\.|compare|e\.g\.,?)\s+`)

// allCapsShortRe matches short ALL-CAPS header lines ("ORDER", "OPINION").
var allCapsShortRe = regexp.MustCompile(`\b[A-Z][A-Z .]{3,30}[A-Z]\b`)

// Isolate returns the backward context for target: the substring of text
// ending exactly at target.Start, shrunk so it does not cross the nearest
// prior citation span, a sentence boundary, an enclosing parenthetical, or
// a recognized header line. Forward context is never used.
func Isolate(text string, all []model.CitationSpan, target model.CitationSpan, maxLookback int) string {
	window := Raw(text, all, target, maxLookback)
	if window == "" {
		return ""
	}

	// (b) Advance past the last real sentence boundary, keeping the capital
	// that starts the new sentence.
	if idx := lastSentenceBreak(window); idx >= 0 {
		window = window[idx:]
	}

	// (c) If the target sits inside a parenthetical opened within the
	// window, do not reach outside it for a name.
	if idx := unclosedParen(window); idx >= 0 {
		window = window[idx+1:]
	}

	// (d) Cut at the last header-line marker.
	if locs := headerRe.FindAllStringIndex(window, -1); len(locs) > 0 {
		last := locs[len(locs)-1]
		window = window[last[1]:]
	}

	window = strings.TrimLeft(window, " ,;:)]")
	for {
		trimmed := signalRe.ReplaceAllString(window, "")
		if trimmed == window {
			break
		}
		window = trimmed
	}

	return window
}

// Raw returns the backward context bounded only by the nearest prior
// citation span and maxLookback. No structural boundaries apply; truncation
// repair uses it to look past a boundary that clipped a name.
func Raw(text string, all []model.CitationSpan, target model.CitationSpan, maxLookback int) string {
	end := target.Start
	if end > len(text) {
		end = len(text)
	}
	if end <= 0 {
		return ""
	}

	start := end - maxLookback
	if start < 0 {
		start = 0
	}

	// Never cross the end of the nearest prior span. Spans covering the
	// target (parallel groups) are not boundaries for their own members.
	for _, s := range all {
		if s.End <= target.Start && s.End > start && !covers(s, target) {
			start = s.End
		}
	}

	return text[start:end]
}

// lastSentenceBreak returns the index of the capital opening the last
// sentence of s, or -1 when s is a single sentence. Periods ending an
// abbreviation or a single-letter initial do not count.
func lastSentenceBreak(s string) int {
	locs := sentenceRe.FindAllStringIndex(s, -1)
	for i := len(locs) - 1; i >= 0; i-- {
		loc := locs[i]
		if s[loc[0]] == '.' && abbrevBefore(s, loc[0]) {
			continue
		}
		return loc[1] - 1
	}
	return -1
}

// abbrevBefore reports whether the token ending at the period at dot is an
// abbreviation rather than a sentence-final word.
func abbrevBefore(s string, dot int) bool {
	j := dot
	for j > 0 {
		c := s[j-1]
		if c == ' ' || c == '(' || c == '"' || c == '\'' && j > 1 && s[j-2] == ' ' {
			break
		}
		j--
	}
	raw := strings.TrimRight(s[j:dot], ".")
	if raw == "" {
		return false
	}
	if len(raw) == 1 {
		// Single-letter initial ("J. Smith").
		return true
	}
	// Short capitalized period tokens ("Glob.", "Sols.", "Mut.", "Ins.")
	// are abbreviations in legal prose, not sentence-final words. A fixed
	// allowlist cannot keep up with party-name abbreviation.
	if raw[0] >= 'A' && raw[0] <= 'Z' && len(raw) <= 4 {
		return true
	}
	return nonTerminalAbbrev[strings.ToLower(raw)]
}

// covers reports whether outer's range contains inner's.
func covers(outer, inner model.CitationSpan) bool {
	return outer.Start <= inner.Start && outer.End >= inner.End
}

// unclosedParen returns the index of the last "(" in s that has no matching
// ")", or -1.
func unclosedParen(s string) int {
	depth := 0
	open := -1
	for i, r := range s {
		switch r {
		case '(':
			depth++
			open = i
		case ')':
			if depth > 0 {
				depth--
			}
			if depth == 0 {
				open = -1
			}
		}
	}
	if depth > 0 {
		return open
	}
	return -1
}

// StripHeaders removes header-looking lines from the head of a document,
// used by the fallback strategy that scans the document opening. Short
// ALL-CAPS runs and court banners are replaced with spaces so offsets keep
// their rough positions.
func StripHeaders(head string) string {
	head = headerRe.ReplaceAllStringFunc(head, blank)
	head = allCapsShortRe.ReplaceAllStringFunc(head, func(m string) string {
		// ALL-CAPS case names ("STATE V. SMITH") survive.
		if strings.Contains(m, " V. ") || strings.Contains(m, " VS. ") {
			return m
		}
		return blank(m)
	})
	return head
}

func blank(m string) string {
	return strings.Repeat(" ", len(m))
}
