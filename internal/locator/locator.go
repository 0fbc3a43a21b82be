package locator

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/lexlens/citelink/internal/model"
)

// Token is one span returned by the external tokenizer capability.
type Token struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Type  string `json:"type"`
}

// Tokenizer is the external citation-tokenizing capability. Implementations
// return spans with structured metadata; short-form references are filtered
// out here, not by the service.
type Tokenizer interface {
	Tokenize(ctx context.Context, text string) ([]Token, error)
}

// Locator produces citation spans from whitespace-normalized text using the
// pattern library plus an optional external tokenizer.
type Locator struct {
	patterns  *PatternSet
	tokenizer Tokenizer // nil disables the tokenizer strategy
}

// New creates a Locator. tok may be nil; span location then runs
// pattern-only.
func New(ps *PatternSet, tok Tokenizer) *Locator {
	return &Locator{patterns: ps, tokenizer: tok}
}

// shortForms are reference types that cannot stand alone and are dropped
// from tokenizer output.
var shortForms = map[string]bool{
	"id":    true,
	"supra": true,
	"ibid":  true,
	"short": true,
}

type claimed struct{ start, end int }

func overlapsClaimed(ranges []claimed, start, end int) bool {
	for _, r := range ranges {
		if start < r.end && r.start < end {
			return true
		}
	}
	return false
}

// Locate runs both strategies over text (which must already be
// whitespace-normalized) and returns the merged span list in text order.
// Tokenizer failure degrades to pattern-only location; it is never fatal.
func (l *Locator) Locate(ctx context.Context, text string) []model.CitationSpan {
	spans := l.locatePatterns(text)

	if l.tokenizer != nil {
		tokens, err := l.tokenizer.Tokenize(ctx, text)
		if err != nil {
			zap.L().Warn("locator: tokenizer unavailable, using pattern library only", zap.Error(err))
		} else {
			spans = append(spans, l.fromTokens(text, tokens)...)
		}
	}

	spans = dropInvalid(text, spans)
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})
	return spans
}

// locatePatterns applies the ordered pattern table. The parallel-group
// pattern claims text first; each claimed range is excluded from all
// lower-priority patterns.
func (l *Locator) locatePatterns(text string) []model.CitationSpan {
	var spans []model.CitationSpan
	var taken []claimed

	for _, loc := range l.patterns.Parallel.Re.FindAllStringIndex(text, -1) {
		group := model.CitationSpan{
			Text:            text[loc[0]:loc[1]],
			Start:           loc[0],
			End:             loc[1],
			SourceMethod:    model.SourcePatternLibrary,
			Confidence:      l.patterns.Parallel.Confidence,
			IsParallelGroup: true,
		}
		spans = append(spans, group)
		taken = append(taken, claimed{loc[0], loc[1]})

		// Derive the member citations so clustering sees the individual
		// spans, not just the grouped run.
		for _, m := range l.patterns.memberRe.FindAllStringIndex(group.Text, -1) {
			member := model.CitationSpan{
				Text:         group.Text[m[0]:m[1]],
				Start:        loc[0] + m[0],
				End:          loc[0] + m[1],
				SourceMethod: model.SourceBlockDerived,
				Confidence:   l.patterns.Parallel.Confidence,
			}
			if l.suspectVolume(text, member) {
				continue
			}
			spans = append(spans, member)
		}
	}

	for _, pat := range l.patterns.Single {
		for _, loc := range pat.Re.FindAllStringIndex(text, -1) {
			if overlapsClaimed(taken, loc[0], loc[1]) {
				continue
			}
			span := model.CitationSpan{
				Text:         text[loc[0]:loc[1]],
				Start:        loc[0],
				End:          loc[1],
				SourceMethod: model.SourcePatternLibrary,
				Confidence:   pat.Confidence,
			}
			if l.suspectVolume(text, span) {
				continue
			}
			taken = append(taken, claimed{loc[0], loc[1]})
			spans = append(spans, span)
		}
	}

	return spans
}

var volReporterRe = regexp.MustCompile(`^(\d{1,4})\s+(.+?)\s+\d{1,5}$`)

// suspectVolume applies the false-positive guard: a volume below 10 directly
// preceding a Pacific-reporter abbreviation frequently originates from a
// pinpoint page reference ("at 8"), not a real volume. Such a span is kept
// only when a recognized reporter abbreviation appears within 100 characters
// backward, which is what a genuine parallel citation looks like.
func (l *Locator) suspectVolume(text string, span model.CitationSpan) bool {
	m := volReporterRe.FindStringSubmatch(span.Text)
	if m == nil {
		return false
	}
	vol, err := strconv.Atoi(m[1])
	if err != nil || vol >= 10 {
		return false
	}
	if !l.patterns.pacific.MatchString(strings.ReplaceAll(m[2], " ", "")) {
		return false
	}

	lookback := span.Start - 100
	if lookback < 0 {
		lookback = 0
	}
	return !l.patterns.anyReporter.MatchString(text[lookback:span.Start])
}

// fromTokens converts tokenizer output into spans, dropping short forms and
// anything whose offsets disagree with the text.
func (l *Locator) fromTokens(text string, tokens []Token) []model.CitationSpan {
	var spans []model.CitationSpan
	for _, t := range tokens {
		if shortForms[strings.ToLower(strings.TrimSuffix(strings.TrimSpace(t.Type), "."))] {
			continue
		}
		span := model.CitationSpan{
			Text:         strings.TrimSpace(t.Text),
			Start:        t.Start,
			End:          t.End,
			SourceMethod: model.SourceTokenizer,
			Confidence:   0.85,
		}
		if l.suspectVolume(text, span) {
			continue
		}
		spans = append(spans, span)
	}
	return spans
}

// dropInvalid discards malformed spans: offsets out of range or text that
// does not reconstruct from the document. Such spans must never reach
// clustering.
func dropInvalid(text string, spans []model.CitationSpan) []model.CitationSpan {
	out := spans[:0]
	for _, s := range spans {
		if !s.Valid() || s.End > len(text) {
			zap.L().Warn("locator: dropping malformed span",
				zap.String("text", s.Text), zap.Int("start", s.Start), zap.Int("end", s.End))
			continue
		}
		if strings.TrimSpace(text[s.Start:s.End]) != s.Text {
			zap.L().Warn("locator: dropping span with offset mismatch",
				zap.String("claimed", s.Text), zap.String("actual", text[s.Start:s.End]))
			continue
		}
		out = append(out, s)
	}
	return out
}
