package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexlens/citelink/internal/model"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresMigrate(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS canonical_cache").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetCanonical(t *testing.T) {
	st, mock := newMockPostgres(t)

	rec := model.CanonicalRecord{
		Name:     "State v. Smith",
		Verified: model.VerifiedTrue,
		Source:   "courtlistener",
	}
	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT record FROM canonical_cache").
		WithArgs("148 Wn.2d 224").
		WillReturnRows(pgxmock.NewRows([]string{"record"}).AddRow(raw))

	got, err := st.GetCanonical(context.Background(), "148 Wn.2d 224")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, *got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetCanonicalMiss(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT record FROM canonical_cache").
		WithArgs("999 Wn.2d 1").
		WillReturnRows(pgxmock.NewRows([]string{"record"}))

	got, err := st.GetCanonical(context.Background(), "999 Wn.2d 1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPutCanonical(t *testing.T) {
	st, mock := newMockPostgres(t)

	rec := model.CanonicalRecord{Name: "Carlson v. Glanz", Verified: model.VerifiedTrue}
	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO canonical_cache").
		WithArgs("142 Wash.2d 315", raw, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.PutCanonical(context.Background(), "142 Wash.2d 315", rec, time.Hour))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveRun(t *testing.T) {
	st, mock := newMockPostgres(t)

	result := &model.ExtractionResult{
		RunID: "run-abc",
		Citations: []model.Citation{
			{Span: model.CitationSpan{Text: "148 Wn.2d 224"}},
		},
		Clusters:      []model.Cluster{{ID: "cluster-001"}},
		VerifiedCount: 1,
		ProcessedAt:   time.Now().UTC(),
	}
	raw, err := json.Marshal(result)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO extraction_runs").
		WithArgs("run-abc", raw, 1, 1, 1, result.ProcessedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.SaveRun(context.Background(), result))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRunNotFound(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT result FROM extraction_runs").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"result"}))

	_, err := st.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListRuns(t *testing.T) {
	st, mock := newMockPostgres(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, citation_count, cluster_count, verified_count, processed_at").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "citation_count", "cluster_count", "verified_count", "processed_at"},
		).
			AddRow("run-new", 3, 2, 1, now).
			AddRow("run-old", 1, 1, 0, now.Add(-time.Hour)))

	runs, err := st.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].RunID)
	assert.Equal(t, 3, runs[0].CitationCount)
	assert.Equal(t, 0, runs[1].VerifiedCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
