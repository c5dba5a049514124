// Package limiter throttles login attempts per (username, client IP).
package limiter

import (
	"context"
	"time"
)

// Limiter tracks failed logins and enforces temporary lockouts. The
// returned duration, when nonzero, is how long the caller should wait
// before the next attempt is accepted.
type Limiter interface {
	// Allow reports whether a login attempt may proceed right now.
	Allow(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error)
	// Success clears the failure count after a correct password.
	Success(ctx context.Context, username string, ipHash []byte) error
	// Failure counts a wrong password and reports whether the counter
	// just crossed the lockout threshold.
	Failure(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error)
}
