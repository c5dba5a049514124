// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the caller is not the owner/recipient of the entity.
	ErrForbidden = errors.New("forbidden")

	// ErrNotSwappable indicates an event is not in the swappable state required for locking.
	ErrNotSwappable = errors.New("not swappable")

	// ErrLocked indicates an event is swap-pending and refuses mutation or deletion.
	ErrLocked = errors.New("event locked by pending swap")

	// ErrInvalidTransition indicates an illegal event status transition.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAlreadyResolved indicates a swap request is no longer pending.
	ErrAlreadyResolved = errors.New("request already resolved")

	// ErrSelfSwap indicates both events of a proposal share the same owner.
	ErrSelfSwap = errors.New("cannot swap own events")

	// ErrTransientConflict indicates a lost concurrent race; safe to retry a bounded number of times.
	ErrTransientConflict = errors.New("transient conflict")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")
)
