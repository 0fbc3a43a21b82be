package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/lexlens/citelink/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS canonical_cache (
	citation_key TEXT PRIMARY KEY,
	record       TEXT NOT NULL,
	cached_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS extraction_runs (
	id             TEXT PRIMARY KEY,
	result         TEXT NOT NULL,
	citation_count INTEGER NOT NULL,
	cluster_count  INTEGER NOT NULL,
	verified_count INTEGER NOT NULL,
	processed_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_canonical_cache_expires ON canonical_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_extraction_runs_processed ON extraction_runs(processed_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetCanonical(ctx context.Context, citationKey string) (*model.CanonicalRecord, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM canonical_cache WHERE citation_key = ? AND expires_at > datetime('now')`,
		citationKey,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get canonical")
	}

	var rec model.CanonicalRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode canonical record")
	}
	return &rec, nil
}

func (s *SQLiteStore) PutCanonical(ctx context.Context, citationKey string, rec model.CanonicalRecord, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode canonical record")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO canonical_cache (citation_key, record, cached_at, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(citation_key) DO UPDATE SET record = excluded.record,
			cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		citationKey, string(raw), time.Now().UTC(), time.Now().UTC().Add(ttl),
	)
	return eris.Wrap(err, "sqlite: put canonical")
}

func (s *SQLiteStore) SaveRun(ctx context.Context, result *model.ExtractionResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode run")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO extraction_runs (id, result, citation_count, cluster_count, verified_count, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET result = excluded.result,
			citation_count = excluded.citation_count,
			cluster_count = excluded.cluster_count,
			verified_count = excluded.verified_count,
			processed_at = excluded.processed_at`,
		result.RunID, string(raw), len(result.Citations), len(result.Clusters),
		result.VerifiedCount, result.ProcessedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: save run")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.ExtractionResult, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM extraction_runs WHERE id = ?`, runID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("sqlite: run %s not found", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get run")
	}

	var result model.ExtractionResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode run")
	}
	return &result, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, citation_count, cluster_count, verified_count, processed_at
		 FROM extraction_runs ORDER BY processed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		var s model.RunSummary
		if err := rows.Scan(&s.RunID, &s.CitationCount, &s.ClusterCount, &s.VerifiedCount, &s.ProcessedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run summary")
		}
		out = append(out, s)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}
