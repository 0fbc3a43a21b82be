package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// Transient marks an error as safe to retry (rate limiting, 5xx, network
// flakes). Wrap service errors with Mark when the status code says so.
type Transient struct {
	Err    error
	Status int
}

func (t *Transient) Error() string { return t.Err.Error() }
func (t *Transient) Unwrap() error { return t.Err }

// Mark wraps err as transient when status is a retryable HTTP code,
// otherwise returns err unchanged.
func Mark(err error, status int) error {
	if err == nil {
		return nil
	}
	switch status {
	case 408, 429, 500, 502, 503, 504:
		return &Transient{Err: err, Status: status}
	}
	return err
}

// IsTransient reports whether err (or anything in its chain) is retryable:
// an explicit Transient marker, a network timeout, or a connection-level
// failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var t *Transient
	if errors.As(err, &t) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// Wrapped client errors lose their types; fall back to message
	// heuristics.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"status 429",
		"status 500",
		"status 502",
		"status 503",
		"status 504",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
