package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexlens/citelink/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "citelink.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLiteCanonicalRoundtrip(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	rec := model.CanonicalRecord{
		Name:     "State v. Smith",
		Date:     "2002-12-26",
		URL:      "https://example.com/opinions/148-wn2d-224",
		Verified: model.VerifiedTrue,
		Source:   "courtlistener",
	}
	require.NoError(t, st.PutCanonical(ctx, "148 Wn.2d 224", rec, time.Hour))

	got, err := st.GetCanonical(ctx, "148 Wn.2d 224")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, *got)
}

func TestSQLiteCanonicalMiss(t *testing.T) {
	st := newTestSQLite(t)

	got, err := st.GetCanonical(context.Background(), "999 Wn.2d 1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteCanonicalExpired(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	rec := model.CanonicalRecord{Name: "Carlson v. Glanz", Verified: model.VerifiedTrue}
	require.NoError(t, st.PutCanonical(ctx, "142 Wash.2d 315", rec, -time.Minute))

	got, err := st.GetCanonical(ctx, "142 Wash.2d 315")
	require.NoError(t, err)
	assert.Nil(t, got, "expired entries should behave as misses")
}

func TestSQLiteCanonicalUpsert(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, st.PutCanonical(ctx, "148 Wn.2d 224",
		model.CanonicalRecord{Verified: model.VerifiedFalse}, time.Hour))
	require.NoError(t, st.PutCanonical(ctx, "148 Wn.2d 224",
		model.CanonicalRecord{Name: "State v. Smith", Verified: model.VerifiedTrue}, time.Hour))

	got, err := st.GetCanonical(ctx, "148 Wn.2d 224")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.VerifiedTrue, got.Verified)
	assert.Equal(t, "State v. Smith", got.Name)
}

func TestSQLiteRunRoundtrip(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	result := &model.ExtractionResult{
		RunID: "run-abc",
		Citations: []model.Citation{
			{Span: model.CitationSpan{Text: "148 Wn.2d 224"}},
			{Span: model.CitationSpan{Text: "59 P.3d 611"}},
		},
		Clusters:      []model.Cluster{{ID: "cluster-001"}},
		VerifiedCount: 1,
		ProcessedAt:   time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, st.SaveRun(ctx, result))

	got, err := st.GetRun(ctx, "run-abc")
	require.NoError(t, err)
	assert.Equal(t, "run-abc", got.RunID)
	assert.Len(t, got.Citations, 2)
	assert.Len(t, got.Clusters, 1)
	assert.Equal(t, 1, got.VerifiedCount)
}

func TestSQLiteGetRunNotFound(t *testing.T) {
	st := newTestSQLite(t)

	_, err := st.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteListRuns(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"run-old", "run-mid", "run-new"} {
		require.NoError(t, st.SaveRun(ctx, &model.ExtractionResult{
			RunID:       id,
			Citations:   make([]model.Citation, i+1),
			ProcessedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := st.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].RunID, "newest first")
	assert.Equal(t, "run-mid", runs[1].RunID)
	assert.Equal(t, 3, runs[0].CitationCount)

	all, err := st.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3, "non-positive limit falls back to default")
}
