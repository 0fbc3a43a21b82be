package resilience

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreaker(threshold int, resetAfter time.Duration) (*Breaker, *time.Time) {
	b := NewBreaker("test", threshold, resetAfter)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, _ := testBreaker(3, time.Minute)
	boom := eris.New("boom")

	for range 2 {
		b.Record(boom)
		assert.NoError(t, b.Allow())
	}
	b.Record(boom)

	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _ := testBreaker(3, time.Minute)
	boom := eris.New("boom")

	b.Record(boom)
	b.Record(boom)
	b.Record(nil)
	b.Record(boom)
	b.Record(boom)

	assert.NoError(t, b.Allow())
}

func TestBreakerHalfOpensAfterReset(t *testing.T) {
	b, now := testBreaker(1, time.Minute)
	b.Record(eris.New("boom"))
	require.ErrorIs(t, b.Allow(), ErrCircuitOpen)

	*now = now.Add(time.Minute)
	assert.NoError(t, b.Allow())
}

func TestBreakerHalfOpenSuccessCloses(t *testing.T) {
	b, now := testBreaker(1, time.Minute)
	b.Record(eris.New("boom"))

	*now = now.Add(time.Minute)
	require.NoError(t, b.Allow())
	b.Record(nil)

	assert.NoError(t, b.Allow())
	assert.NoError(t, b.Allow())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b, now := testBreaker(1, time.Minute)
	b.Record(eris.New("boom"))

	*now = now.Add(time.Minute)
	require.NoError(t, b.Allow())
	b.Record(eris.New("still down"))

	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)

	// The reset clock restarted at the half-open failure.
	*now = now.Add(30 * time.Second)
	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)
	*now = now.Add(30 * time.Second)
	assert.NoError(t, b.Allow())
}

func TestNewBreakerDefaults(t *testing.T) {
	b := NewBreaker("test", 0, 0)
	assert.Equal(t, 5, b.threshold)
	assert.Equal(t, 30*time.Second, b.resetAfter)
}
