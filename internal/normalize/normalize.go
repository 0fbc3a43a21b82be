// Package normalize prepares raw document text for span location and case
// name extraction. Reporter abbreviations are frequently split across PDF
// line breaks ("148 Wn.2d\n224"), so both span-location strategies run on
// whitespace-collapsed text; the offset map preserves a route back to the
// original coordinates.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// quirks maps PDF-extraction Unicode artifacts to plain ASCII. PDF text
// layers routinely garble apostrophes in names like "Dep't".
var quirks = map[rune]string{
	'‘': "'",  // left single quote
	'’': "'",  // right single quote
	'‚': "'",  // single low quote
	'“': `"`,  // left double quote
	'”': `"`,  // right double quote
	'′': "'",  // prime
	'´': "'",  // acute accent
	'`': "'",  // grave accent
	'–': "-",  // en dash
	'—': "-",  // em dash
	' ': " ",  // no-break space
	'�': "'",  // replacement char: almost always a mangled apostrophe
	'­': "",   // soft hyphen
	'…': "...",
}

// Text holds normalized document text plus the mapping from each normalized
// index back to the original input index.
type Text struct {
	Value     string
	OffsetMap []int
}

// Document collapses all whitespace runs (including embedded line breaks) to
// single spaces and maps Unicode artifacts to ASCII, recording original
// offsets per output byte.
func Document(raw string) Text {
	var b strings.Builder
	b.Grow(len(raw))
	offsets := make([]int, 0, len(raw))

	inSpace := false
	pending := -1 // original offset of the space run start
	for i, r := range raw {
		if unicode.IsSpace(r) || r == ' ' {
			if !inSpace {
				inSpace = true
				pending = i
			}
			continue
		}

		if inSpace {
			// Leading whitespace is dropped entirely.
			if b.Len() > 0 {
				b.WriteByte(' ')
				offsets = append(offsets, pending)
			}
			inSpace = false
		}

		repl, ok := quirks[r]
		if !ok {
			repl = string(r)
		}
		for range len(repl) {
			offsets = append(offsets, i)
		}
		b.WriteString(repl)
	}

	return Text{Value: b.String(), OffsetMap: offsets}
}

// Flatten collapses whitespace in a short string without offset tracking.
// Used for cleaning extracted case names rather than whole documents.
func Flatten(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		if repl, ok := quirks[r]; ok {
			b.WriteString(repl)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// stripMarks removes combining marks left behind by decomposed accents.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases, strips diacritics, and collapses whitespace. This is the
// comparison form used for dedup keys and token-overlap similarity; it is
// never used for display.
func Fold(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(Flatten(out))
}

// Tokens splits a folded string into comparison tokens, dropping
// single-character fragments and bare punctuation.
func Tokens(s string) []string {
	fields := strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}

// TokenOverlap returns the fraction of the smaller token set shared with the
// larger one, in [0,1]. Used for caption contamination checks and for
// comparing extracted names against canonical ones.
func TokenOverlap(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	if len(tb) < len(ta) {
		ta, tb = tb, ta
	}
	set := make(map[string]struct{}, len(tb))
	for _, t := range tb {
		set[t] = struct{}{}
	}
	shared := 0
	for _, t := range ta {
		if _, ok := set[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(ta))
}
