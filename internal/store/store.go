// Package store persists extraction runs and caches confirmed canonical
// records so repeated verification of the same citation never hits the
// lookup service twice.
package store

import (
	"context"
	"time"

	"github.com/lexlens/citelink/internal/model"
)

// DefaultCanonicalTTL is how long a cached canonical record stays fresh.
// Case-law metadata is effectively immutable, so the TTL is generous.
const DefaultCanonicalTTL = 90 * 24 * time.Hour

// Store is the persistence interface for the extraction pipeline. Both
// backends (SQLite, Postgres) implement it; callers never know which.
type Store interface {
	// Canonical cache. GetCanonical returns nil (no error) on a miss.
	GetCanonical(ctx context.Context, citationKey string) (*model.CanonicalRecord, error)
	PutCanonical(ctx context.Context, citationKey string, rec model.CanonicalRecord, ttl time.Duration) error

	// Runs
	SaveRun(ctx context.Context, result *model.ExtractionResult) error
	GetRun(ctx context.Context, runID string) (*model.ExtractionResult, error)
	ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
