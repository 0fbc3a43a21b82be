// Package verify reconciles locally extracted citation data with the
// external case-law lookup service. Canonical data from the service always
// outranks local heuristics for display; the extracted values are retained
// untouched for audit.
package verify

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lexlens/citelink/internal/cluster"
	"github.com/lexlens/citelink/internal/model"
	"github.com/lexlens/citelink/internal/normalize"
	"github.com/lexlens/citelink/internal/resilience"
	"github.com/lexlens/citelink/internal/store"
	"github.com/lexlens/citelink/pkg/caselookup"
)

// discrepancyThreshold: below this token overlap between extracted and
// canonical names, a discrepancy is logged. Canonical still wins.
const discrepancyThreshold = 0.5

// Reconciler verifies citations in batches against the lookup service.
type Reconciler struct {
	client   caselookup.Client
	cache    store.Store // nil disables caching
	inflight int
	policy   resilience.Policy
	breaker  *resilience.Breaker
}

// Option configures the Reconciler.
type Option func(*Reconciler)

// WithCache supplies a canonical-record cache.
func WithCache(s store.Store) Option {
	return func(r *Reconciler) { r.cache = s }
}

// WithInflight bounds concurrent batches.
func WithInflight(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.inflight = n
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(r *Reconciler) { r.breaker = b }
}

// New creates a Reconciler.
func New(client caselookup.Client, opts ...Option) *Reconciler {
	r := &Reconciler{
		client:   client,
		inflight: 3,
		policy:   resilience.Policy{Attempts: 3, Base: 500 * time.Millisecond, Service: "caselookup"},
		breaker:  resilience.NewBreaker("caselookup", 5, 30*time.Second),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Verify annotates citations in place with canonical records. A failed or
// timed-out batch never aborts the pipeline: its citations stay
// verified=false and every other batch proceeds. Already-confirmed records
// are never overwritten by a worse result, so re-running verification is
// safe.
func (r *Reconciler) Verify(ctx context.Context, citations []model.Citation) {
	// Default every record so the output schema is stable even when the
	// service is down.
	for i := range citations {
		if citations[i].Canonical.Verified == "" {
			citations[i].Canonical.Verified = model.VerifiedFalse
		}
	}
	if r.client == nil || len(citations) == 0 {
		return
	}

	pending := r.fromCache(ctx, citations)
	if len(pending) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.inflight)

	for start := 0; start < len(pending); start += caselookup.MaxBatchSize {
		end := min(start+caselookup.MaxBatchSize, len(pending))
		batch := pending[start:end]
		g.Go(func() error {
			r.verifyBatch(gctx, citations, batch)
			return nil // batch failures are absorbed, never propagated
		})
	}
	_ = g.Wait()
}

// fromCache resolves citations with cached confirmed records and returns
// the indexes that still need a service lookup.
func (r *Reconciler) fromCache(ctx context.Context, citations []model.Citation) []int {
	var pending []int
	for i := range citations {
		if citations[i].Canonical.Confirmed() {
			continue
		}
		if r.cache != nil {
			rec, err := r.cache.GetCanonical(ctx, cluster.Key(citations[i].Span.Text))
			if err != nil {
				zap.L().Warn("verify: cache read failed", zap.Error(err))
			} else if rec != nil && rec.Confirmed() {
				citations[i].Canonical = *rec
				continue
			}
		}
		pending = append(pending, i)
	}
	return pending
}

// verifyBatch looks up one batch and applies results. idx maps batch
// positions back into the citations slice; the service response is
// order-preserving.
func (r *Reconciler) verifyBatch(ctx context.Context, citations []model.Citation, idx []int) {
	req := caselookup.LookupRequest{
		Citations: make([]string, len(idx)),
		HintNames: make([]string, len(idx)),
		HintDates: make([]string, len(idx)),
	}
	for i, ci := range idx {
		req.Citations[i] = citations[ci].Span.Text
		req.HintNames[i] = citations[ci].Attribution.CaseName
		req.HintDates[i] = citations[ci].Attribution.Year
	}

	if err := r.breaker.Allow(); err != nil {
		zap.L().Warn("verify: lookup circuit open, batch skipped",
			zap.Int("batch_size", len(idx)))
		return
	}
	resp, err := resilience.Call(ctx, r.policy, func(ctx context.Context) (*caselookup.LookupResponse, error) {
		return r.client.Lookup(ctx, req)
	})
	r.breaker.Record(err)
	if err != nil {
		zap.L().Warn("verify: batch failed, citations remain unverified",
			zap.Int("batch_size", len(idx)), zap.Error(err))
		return
	}

	for i, res := range resp.Results {
		r.apply(ctx, &citations[idx[i]], res)
	}
}

// apply merges one lookup result into a citation under the precedence and
// idempotence rules.
func (r *Reconciler) apply(ctx context.Context, c *model.Citation, res caselookup.Result) {
	if !res.Verified || res.CanonicalName == "" {
		// Not found or errored: leave canonical fields unset. Never
		// downgrade an existing confirmed record.
		if !c.Canonical.Confirmed() {
			c.Canonical.Verified = model.VerifiedFalse
		}
		if res.Error != "" {
			zap.L().Debug("verify: lookup miss",
				zap.String("citation", c.Span.Text), zap.String("error", res.Error))
		}
		return
	}

	if c.Attribution.Found() {
		if sim := normalize.TokenOverlap(c.Attribution.CaseName, res.CanonicalName); sim < discrepancyThreshold {
			zap.L().Info("verify: canonical name disagrees with extraction",
				zap.String("citation", c.Span.Text),
				zap.String("extracted", c.Attribution.CaseName),
				zap.String("canonical", res.CanonicalName),
				zap.Float64("similarity", sim),
			)
		}
	}

	c.Canonical = model.CanonicalRecord{
		Name:     res.CanonicalName,
		Date:     res.CanonicalDate,
		URL:      res.CanonicalURL,
		Verified: model.VerifiedTrue,
		Source:   res.Source,
	}

	if r.cache != nil {
		if err := r.cache.PutCanonical(ctx, cluster.Key(c.Span.Text), c.Canonical, store.DefaultCanonicalTTL); err != nil {
			zap.L().Warn("verify: cache write failed", zap.Error(err))
		}
	}
}
