package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/lexlens/citelink/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore backed by a new connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS canonical_cache (
	citation_key TEXT PRIMARY KEY,
	record       JSONB NOT NULL,
	cached_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS extraction_runs (
	id             TEXT PRIMARY KEY,
	result         JSONB NOT NULL,
	citation_count INT NOT NULL,
	cluster_count  INT NOT NULL,
	verified_count INT NOT NULL,
	processed_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_canonical_cache_expires ON canonical_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_extraction_runs_processed ON extraction_runs(processed_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetCanonical(ctx context.Context, citationKey string) (*model.CanonicalRecord, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM canonical_cache WHERE citation_key = $1 AND expires_at > now()`,
		citationKey,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get canonical")
	}

	var rec model.CanonicalRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, eris.Wrap(err, "postgres: decode canonical record")
	}
	return &rec, nil
}

func (s *PostgresStore) PutCanonical(ctx context.Context, citationKey string, rec model.CanonicalRecord, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: encode canonical record")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO canonical_cache (citation_key, record, cached_at, expires_at)
		 VALUES ($1, $2, now(), $3)
		 ON CONFLICT (citation_key) DO UPDATE SET record = EXCLUDED.record,
			cached_at = now(), expires_at = EXCLUDED.expires_at`,
		citationKey, raw, time.Now().UTC().Add(ttl),
	)
	return eris.Wrap(err, "postgres: put canonical")
}

func (s *PostgresStore) SaveRun(ctx context.Context, result *model.ExtractionResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: encode run")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO extraction_runs (id, result, citation_count, cluster_count, verified_count, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET result = EXCLUDED.result,
			citation_count = EXCLUDED.citation_count,
			cluster_count = EXCLUDED.cluster_count,
			verified_count = EXCLUDED.verified_count,
			processed_at = EXCLUDED.processed_at`,
		result.RunID, raw, len(result.Citations), len(result.Clusters),
		result.VerifiedCount, result.ProcessedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: save run")
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.ExtractionResult, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT result FROM extraction_runs WHERE id = $1`, runID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: run %s not found", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get run")
	}

	var result model.ExtractionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, eris.Wrap(err, "postgres: decode run")
	}
	return &result, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, citation_count, cluster_count, verified_count, processed_at
		 FROM extraction_runs ORDER BY processed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		var s model.RunSummary
		if err := rows.Scan(&s.RunID, &s.CitationCount, &s.ClusterCount, &s.VerifiedCount, &s.ProcessedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run summary")
		}
		out = append(out, s)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate runs")
}
