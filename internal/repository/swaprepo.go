package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"calswap/internal/model"
)

// SwapRepository drives the swap request lifecycle. The multi-row
// critical sections (pair lock on propose, owner exchange or release on
// respond) each run as a single storage transaction: partial application
// is never observable and a failed attempt leaves no residue.
type SwapRepository interface {
	// CreateWithLock validates both referenced events inside one
	// transaction, inserts the pending request and moves both events to
	// swap_pending. The recipient is derived from the recipient event's
	// current owner and written back into req. Typed failures:
	// ErrNotFound, ErrForbidden, ErrSelfSwap, ErrNotSwappable,
	// ErrTransientConflict.
	CreateWithLock(ctx context.Context, req *model.SwapRequest) error

	// GetByID loads a single request.
	GetByID(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error)

	// Resolve finalizes a pending request in one transaction: on accept
	// the two events exchange owners and both become busy; on reject both
	// return to swappable. The request row is locked first, so a request
	// resolves exactly once. Typed failures: ErrNotFound, ErrForbidden,
	// ErrAlreadyResolved, ErrTransientConflict.
	Resolve(ctx context.Context, requestID, responderID uuid.UUID, accept bool, now time.Time) (*model.SwapRequest, error)

	// ListIncoming returns requests addressed to the user, newest first.
	ListIncoming(ctx context.Context, userID uuid.UUID) ([]model.SwapRequest, error)

	// ListOutgoing returns requests created by the user, newest first.
	ListOutgoing(ctx context.Context, userID uuid.UUID) ([]model.SwapRequest, error)

	// ReleaseOrphanedLocks repairs events stuck in swap_pending without a
	// live pending request (crash mid-transaction, operator intervention)
	// by releasing them back to swappable. Returns the repaired ids.
	ReleaseOrphanedLocks(ctx context.Context) ([]uuid.UUID, error)
}
