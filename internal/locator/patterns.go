// Package locator finds citation spans in normalized document text. Two
// strategies run independently: a curated library of reporter patterns, and
// an external citation-tokenizer service. The union of both feeds every
// downstream stage.
package locator

import (
	_ "embed"
	"regexp"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed reporters.yaml
var reportersYAML []byte

type familySpec struct {
	Name          string   `yaml:"name"`
	Confidence    float64  `yaml:"confidence"`
	Abbreviations []string `yaml:"abbreviations"`
}

type vendorSpec struct {
	Name       string  `yaml:"name"`
	Confidence float64 `yaml:"confidence"`
	Pattern    string  `yaml:"pattern"`
}

type patternFile struct {
	Families []familySpec `yaml:"families"`
	Vendor   []vendorSpec `yaml:"vendor"`
}

// Pattern is one compiled reporter-family matcher. Patterns are tried in
// priority order; earlier patterns claim text ranges that later patterns
// may not re-match.
type Pattern struct {
	Name       string
	Confidence float64
	Re         *regexp.Regexp
}

// PatternSet is the immutable citation pattern configuration. Construct it
// once (DefaultPatterns) and pass it explicitly; there is no hidden global
// pattern state, so one set is safe across concurrent documents.
type PatternSet struct {
	// Parallel matches comma-joined runs of citations and runs before
	// everything else so the grouped form wins the overlap contest.
	Parallel Pattern

	// Ordered single-citation patterns, highest priority first.
	Single []Pattern

	// anyReporter recognizes a reporter abbreviation anywhere; used by the
	// false-positive adjacency guard.
	anyReporter *regexp.Regexp

	// pacific matches the P./P.2d/P.3d family for the small-volume guard.
	pacific *regexp.Regexp

	// memberRe splits a parallel group into its member citations.
	memberRe *regexp.Regexp
}

// escapeAbbr turns a human-readable reporter abbreviation into a regexp
// fragment tolerant of the spacing variants PDF extraction produces.
func escapeAbbr(abbr string) string {
	parts := strings.Fields(abbr)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return strings.Join(parts, `\s*`)
}

func compile(file patternFile) (*PatternSet, error) {
	var all []string
	set := &PatternSet{}

	for _, fam := range file.Families {
		if len(fam.Abbreviations) == 0 {
			return nil, eris.Errorf("locator: family %q has no abbreviations", fam.Name)
		}
		alts := make([]string, len(fam.Abbreviations))
		for i, a := range fam.Abbreviations {
			alts[i] = escapeAbbr(a)
		}
		all = append(all, alts...)

		expr := `\b(\d{1,4})\s+(` + strings.Join(alts, "|") + `)\s+(\d{1,5})\b`
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, eris.Wrapf(err, "locator: compile family %q", fam.Name)
		}
		set.Single = append(set.Single, Pattern{Name: fam.Name, Confidence: fam.Confidence, Re: re})
	}

	for _, v := range file.Vendor {
		re, err := regexp.Compile(v.Pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "locator: compile vendor %q", v.Name)
		}
		set.Single = append(set.Single, Pattern{Name: v.Name, Confidence: v.Confidence, Re: re})
	}

	reporterAlt := strings.Join(all, "|")
	set.anyReporter = regexp.MustCompile(`(?:` + reporterAlt + `)`)
	set.pacific = regexp.MustCompile(`^P\.(?:2d|3d)?$`)

	// A parallel run is a full citation, optional pinpoint pages, then one
	// or more further full citations, all comma-joined:
	// "171 Wn.2d 486, 493, 256 P.3d 321".
	core := `\d{1,4}\s+(?:` + reporterAlt + `)\s+\d{1,5}`
	set.Parallel = Pattern{
		Name:       "parallel-group",
		Confidence: 0.95,
		Re:         regexp.MustCompile(`\b` + core + `(?:,\s*\d{1,5})*(?:,\s*` + core + `(?:,\s*\d{1,5})*)+\b`),
	}
	set.memberRe = regexp.MustCompile(`\b(\d{1,4})\s+(` + reporterAlt + `)\s+(\d{1,5})\b`)

	return set, nil
}

var defaultSet = sync.OnceValues(func() (*PatternSet, error) {
	var file patternFile
	if err := yaml.Unmarshal(reportersYAML, &file); err != nil {
		return nil, eris.Wrap(err, "locator: parse embedded reporter table")
	}
	return compile(file)
})

// DefaultPatterns returns the process-wide immutable pattern set built from
// the embedded reporter table.
func DefaultPatterns() (*PatternSet, error) {
	return defaultSet()
}

// MustDefaultPatterns is DefaultPatterns for callers that treat a broken
// embedded table as a programming error.
func MustDefaultPatterns() *PatternSet {
	ps, err := DefaultPatterns()
	if err != nil {
		panic(err)
	}
	return ps
}
