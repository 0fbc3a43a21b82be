package attributor

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/lexlens/citelink/internal/contextwin"
	"github.com/lexlens/citelink/internal/model"
)

// commaAnchorGap is how close a comma must sit before a citation for the
// comma-anchored strategy to apply.
const commaAnchorGap = 10

// commaContextLookback is the backward search budget for the comma strategy.
const commaContextLookback = 400

// Suggester proposes a case name for a citation from its isolated context.
// Implemented by the optional LLM assist; nil disables the stage.
type Suggester interface {
	SuggestName(ctx context.Context, contextText, citation string) (string, error)
}

// Attributor runs the extraction cascade. It holds no per-document state;
// everything document-specific arrives in the Request, so one Attributor is
// safe across concurrent documents.
type Attributor struct {
	suggest Suggester
}

// New creates an Attributor. suggest may be nil.
func New(suggest Suggester) *Attributor {
	return &Attributor{suggest: suggest}
}

// Request carries one citation's attribution inputs. Doc is read-only.
type Request struct {
	Doc  model.Document
	Span model.CitationSpan
	All  []model.CitationSpan
}

type candidate struct {
	name       string
	method     model.AttributionMethod
	confidence float64

	// adjacent marks candidates matched directly against the citation,
	// nothing but separators between name and span. For those the caption
	// filter does not apply: a document that opens with its own citation
	// legitimately attributes it to the caption name.
	adjacent bool
}

// Attribute associates the citation with the nearest plausible case name and
// year. It never panics outward: any unexpected failure inside a single
// citation's attribution degrades to the N/A sentinel so other citations are
// unaffected.
func (a *Attributor) Attribute(ctx context.Context, req Request) (att model.Attribution) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("attributor: recovered from panic",
				zap.String("citation", req.Span.Text), zap.Any("panic", r))
			att = model.EmptyAttribution()
		}
	}()

	att = model.EmptyAttribution()

	strategies := []func(Request) (candidate, bool){
		a.commaAnchored,
		a.positionWindow,
		a.contextPattern,
		a.fallback,
	}

	for _, strat := range strategies {
		cand, ok := strat(req)
		if !ok {
			continue
		}
		name, accepted := a.finish(req, cand.name, cand.adjacent)
		if !accepted {
			continue
		}
		att.CaseName = name
		att.Method = cand.method
		att.Confidence = cand.confidence
		break
	}

	if !att.Found() && a.suggest != nil {
		a.assisted(ctx, req, &att)
	}

	backward := contextwin.Isolate(req.Doc.Text, req.All, req.Span, contextwin.WindowLookback)
	att.Year = extractYear(req.Doc.Text, req.Span, backward)
	return att
}

// finish applies the post-processing every successful strategy goes through:
// cleanup, truncation repair, validity, and caption contamination. The
// caption filter is skipped for adjacent candidates: when the citation's
// nearest context genuinely is the document's own opening citation, the
// caption name is the right answer.
func (a *Attributor) finish(req Request, raw string, adjacent bool) (string, bool) {
	name := cleanCandidate(raw)
	if name == "" {
		return "", false
	}
	name = repairTruncation(req.Doc.Text, req.All, req.Span, name)
	if !validName(name) {
		return "", false
	}
	if !adjacent && matchesCaption(name, req.Doc.PrimaryCaseName) {
		zap.L().Debug("attributor: rejected self-caption candidate",
			zap.String("citation", req.Span.Text), zap.String("candidate", name))
		return "", false
	}
	return name, true
}

// commaAnchored handles the dominant "Case Name, Citation" form: a comma
// within a few characters before the span anchors the end of the name.
func (a *Attributor) commaAnchored(req Request) (candidate, bool) {
	text, span := req.Doc.Text, req.Span
	gapStart := span.Start - commaAnchorGap
	if gapStart < 0 {
		gapStart = 0
	}
	if !strings.Contains(text[gapStart:span.Start], ",") {
		return candidate{}, false
	}

	window := contextwin.Isolate(text, req.All, span, commaContextLookback)
	idx := strings.LastIndex(window, ",")
	if idx <= 0 {
		return candidate{}, false
	}
	pre := strings.TrimRight(window[:idx], " ")

	for _, re := range []*regexp.Regexp{inReRightRe, vsRightRe} {
		if m := re.FindString(pre); m != "" {
			return candidate{name: m, method: model.MethodCommaAnchored, confidence: 0.9, adjacent: true}, true
		}
	}
	return candidate{}, false
}

// positionWindow applies the ordered case-name pattern table to the isolated
// backward context, taking the last (closest) match. Confidence decreases
// with pattern priority.
func (a *Attributor) positionWindow(req Request) (candidate, bool) {
	window := contextwin.Isolate(req.Doc.Text, req.All, req.Span, contextwin.WindowLookback)
	if window == "" {
		return candidate{}, false
	}
	for i, re := range windowPatterns {
		if m, ok := lastMatch(re, window); ok {
			idx := strings.LastIndex(window, m)
			tail := strings.Trim(window[idx+len(m):], " ,;:(")
			return candidate{
				name:       m,
				method:     model.MethodPositionWindow,
				confidence: 0.8 - 0.05*float64(i),
				adjacent:   tail == "",
			}, true
		}
	}
	return candidate{}, false
}

// looseVsRe tolerates sentence-embedded names ("As stated in X v. Y, ...")
// with lowercase interior words the strict party pattern rejects.
var looseVsRe = regexp.MustCompile(`[A-Z][\w'.\-]+(?:\s[\w'.\-&,]+){0,6}\s+v\.?s?\.?\s+[A-Z][\w'.\-]+(?:\s[\w'.\-&]+){0,5}`)

// contextPattern re-runs the search with a wider window and more permissive
// patterns, for citations that do not follow a clean comma-delimited name.
func (a *Attributor) contextPattern(req Request) (candidate, bool) {
	window := contextwin.Isolate(req.Doc.Text, req.All, req.Span, contextwin.WideLookback)
	if window == "" {
		return candidate{}, false
	}
	for _, re := range []*regexp.Regexp{inReRe, vsRe, looseVsRe} {
		if m, ok := lastMatch(re, window); ok {
			return candidate{name: m, method: model.MethodContextPattern, confidence: 0.65}, true
		}
	}
	return candidate{}, false
}

// fallback scans the header-filtered document opening, bounded to text that
// precedes the citation so no forward bleed is possible.
func (a *Attributor) fallback(req Request) (candidate, bool) {
	head := HeadForFallback(req.Doc.Text[:req.Span.Start])
	if head == "" {
		return candidate{}, false
	}
	for _, re := range []*regexp.Regexp{vsRe, inReRe} {
		if m := re.FindString(head); m != "" {
			return candidate{name: m, method: model.MethodFallback, confidence: 0.5}, true
		}
	}
	return candidate{}, false
}

// assisted asks the optional Suggester for a name when the regex cascade
// came up empty. Its answer still passes every validity and contamination
// gate; a suggester can never bypass the checks.
func (a *Attributor) assisted(ctx context.Context, req Request, att *model.Attribution) {
	window := contextwin.Isolate(req.Doc.Text, req.All, req.Span, contextwin.WideLookback)
	if window == "" {
		return
	}
	name, err := a.suggest.SuggestName(ctx, window, req.Span.Text)
	if err != nil {
		zap.L().Warn("attributor: assist failed", zap.String("citation", req.Span.Text), zap.Error(err))
		return
	}
	cleaned, ok := a.finish(req, name, false)
	if !ok {
		return
	}
	// Cross-check: the suggestion must actually occur in the backward
	// context, token for token, or it is treated as a hallucination.
	if !strings.Contains(strings.ToLower(window), strings.ToLower(cleaned)) {
		zap.L().Debug("attributor: assist suggestion not grounded in context",
			zap.String("suggestion", cleaned))
		return
	}
	att.CaseName = cleaned
	att.Method = model.MethodAssisted
	att.Confidence = 0.55
}
