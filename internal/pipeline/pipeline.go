// Package pipeline orchestrates citation extraction for one document:
// span location, per-citation attribution, dedup/clustering, verification,
// and cluster finalization, in that order. Clustering needs the full span
// list and verification must precede finalization so canonical propagation
// uses post-verification values.
package pipeline

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lexlens/citelink/internal/attributor"
	"github.com/lexlens/citelink/internal/cluster"
	"github.com/lexlens/citelink/internal/config"
	"github.com/lexlens/citelink/internal/locator"
	"github.com/lexlens/citelink/internal/model"
	"github.com/lexlens/citelink/internal/normalize"
	"github.com/lexlens/citelink/internal/store"
	"github.com/lexlens/citelink/internal/verify"
	"github.com/lexlens/citelink/pkg/citetoken"
)

// Pipeline wires the extraction stages together.
type Pipeline struct {
	cfg        *config.Config
	locator    *locator.Locator
	attributor *attributor.Attributor
	reconciler *verify.Reconciler // nil disables verification
	store      store.Store        // nil disables persistence
}

// New assembles a Pipeline from its stages. reconciler and st may be nil.
func New(cfg *config.Config, loc *locator.Locator, attr *attributor.Attributor, reconciler *verify.Reconciler, st store.Store) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		locator:    loc,
		attributor: attr,
		reconciler: reconciler,
		store:      st,
	}
}

// TokenizerAdapter exposes a citetoken.Client as the locator's Tokenizer.
type TokenizerAdapter struct {
	Client citetoken.Client
}

// Tokenize implements locator.Tokenizer.
func (t TokenizerAdapter) Tokenize(ctx context.Context, text string) ([]locator.Token, error) {
	spans, err := t.Client.Tokenize(ctx, text)
	if err != nil {
		return nil, err
	}
	out := make([]locator.Token, len(spans))
	for i, s := range spans {
		out[i] = locator.Token{Text: s.Text, Start: s.Start, End: s.End, Type: s.Type}
	}
	return out, nil
}

// Process runs the full pipeline over one document's raw text. The returned
// result always carries a complete citation and cluster list: verification
// failure or cancellation degrades citations to verified=false, never to a
// missing result.
func (p *Pipeline) Process(ctx context.Context, raw string) (*model.ExtractionResult, error) {
	if raw == "" {
		return nil, eris.New("pipeline: empty document text")
	}
	start := time.Now()
	log := zap.L()

	norm := normalize.Document(raw)
	doc := model.Document{
		Text:            norm.Value,
		OffsetMap:       norm.OffsetMap,
		PrimaryCaseName: attributor.DetectPrimaryCaseName(norm.Value),
	}
	if doc.PrimaryCaseName != "" {
		log.Debug("pipeline: detected document caption", zap.String("caption", doc.PrimaryCaseName))
	}

	spans := p.locator.Locate(ctx, doc.Text)
	log.Info("pipeline: located spans", zap.Int("count", len(spans)))

	citations := p.attributeAll(ctx, doc, spans)

	citations = cluster.Dedupe(citations)
	clusters := cluster.Group(doc.Text, citations)

	if p.reconciler != nil {
		p.reconciler.Verify(ctx, citations)
	} else {
		for i := range citations {
			citations[i].Canonical.Verified = model.VerifiedFalse
		}
	}

	cluster.Finalize(citations, clusters)

	verified := 0
	for _, c := range citations {
		if c.Canonical.Usable() {
			verified++
		}
	}

	result := &model.ExtractionResult{
		RunID:           uuid.NewString(),
		Citations:       citations,
		Clusters:        clusters,
		PrimaryCaseName: doc.PrimaryCaseName,
		VerifiedCount:   verified,
		ProcessedAt:     time.Now().UTC(),
		Duration:        time.Since(start).Milliseconds(),
	}

	if p.store != nil {
		// Persistence is an enrichment; a dying context must not lose the
		// already-computed result.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := p.store.SaveRun(saveCtx, result); err != nil {
			log.Warn("pipeline: failed to persist run", zap.Error(err))
		}
	}

	log.Info("pipeline: document processed",
		zap.Int("citations", len(citations)),
		zap.Int("clusters", len(clusters)),
		zap.Int("verified", verified),
		zap.Int64("duration_ms", result.Duration),
	)
	return result, nil
}

// attributeAll fans attribution out across citations. Each citation is
// independent given the full span list, so the only bound is CPU.
func (p *Pipeline) attributeAll(ctx context.Context, doc model.Document, spans []model.CitationSpan) []model.Citation {
	workers := p.cfg.Pipeline.AttributionWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	citations := make([]model.Citation, len(spans))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, span := range spans {
		g.Go(func() error {
			att := p.attributor.Attribute(gctx, attributor.Request{
				Doc:  doc,
				Span: span,
				All:  spans,
			})
			citations[i] = model.Citation{Span: span, Attribution: att}
			return nil
		})
	}
	_ = g.Wait()
	return citations
}
