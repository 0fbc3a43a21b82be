package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned by Allow while the breaker is rejecting calls.
var ErrCircuitOpen = eris.New("resilience: circuit open")

// Breaker is a circuit breaker for one external service. Retry absorbs
// individual transient failures; the breaker stops hammering a service that
// is down outright. After threshold consecutive failures calls are rejected
// until resetAfter has elapsed, then a single probe is admitted and its
// outcome closes or reopens the circuit.
type Breaker struct {
	service    string
	threshold  int
	resetAfter time.Duration

	mu       sync.Mutex
	failures int
	openedAt time.Time
	open     bool
	probing  bool

	now func() time.Time
}

// NewBreaker creates a Breaker. Non-positive threshold and resetAfter fall
// back to 5 failures and 30s.
func NewBreaker(service string, threshold int, resetAfter time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if resetAfter <= 0 {
		resetAfter = 30 * time.Second
	}
	return &Breaker{
		service:    service,
		threshold:  threshold,
		resetAfter: resetAfter,
		now:        time.Now,
	}
}

// Allow reports whether a call may proceed. While open, one probe is
// admitted once resetAfter has elapsed since the last failure.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return nil
	}
	if b.now().Sub(b.openedAt) >= b.resetAfter {
		b.probing = true
		return nil
	}
	return ErrCircuitOpen
}

// Record feeds a call's outcome back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.open {
			zap.L().Info("circuit closed", zap.String("service", b.service))
		}
		b.open = false
		b.probing = false
		b.failures = 0
		return
	}

	b.failures++
	b.openedAt = b.now()

	if b.probing {
		// Failed probe: stay open, restart the reset clock.
		b.probing = false
		return
	}
	if !b.open && b.failures >= b.threshold {
		b.open = true
		zap.L().Warn("circuit opened",
			zap.String("service", b.service), zap.Int("failures", b.failures))
	}
}
