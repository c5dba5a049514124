package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"calswap/internal/errs"
	"calswap/internal/model"
)

// SwapRepo implements SwapRepository using PostgreSQL.
type SwapRepo struct{ db *DB }

// NewSwapRepo constructs a swap request repository.
func NewSwapRepo(db *DB) *SwapRepo { return &SwapRepo{db: db} }

const swapCols = `id, requester_id, requester_event_id, recipient_id, recipient_event_id, status, created_at, resolved_at`

func scanSwap(row pgx.Row) (*model.SwapRequest, error) {
	var (
		s      model.SwapRequest
		status string
	)
	err := row.Scan(&s.ID, &s.RequesterID, &s.RequesterEventID, &s.RecipientID, &s.RecipientEventID, &status, &s.CreatedAt, &s.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	s.Status = model.SwapStatus(status)
	return &s, nil
}

// CreateWithLock inserts a pending request and locks both events as one
// transaction. A proposal that loses the race for either event row fails
// with a typed error and leaves no request and no partial lock behind.
func (r *SwapRepo) CreateWithLock(ctx context.Context, req *model.SwapRequest) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = wrapTransient(e)
		}
	}()

	mine, theirs, err := lockPairForUpdate(ctx, tx, req.RequesterEventID, req.RecipientEventID)
	if err != nil {
		return err
	}
	if mine.OwnerID != req.RequesterID {
		return errs.ErrForbidden
	}
	if theirs.OwnerID == req.RequesterID {
		return errs.ErrSelfSwap
	}
	if mine.Status != model.StatusSwappable || theirs.Status != model.StatusSwappable {
		return errs.ErrNotSwappable
	}

	// Recipient is whoever owns the counterpart event right now.
	req.RecipientID = theirs.OwnerID
	req.Status = model.SwapPending

	const ins = `
INSERT INTO swap_requests (id, requester_id, requester_event_id, recipient_id, recipient_event_id, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err = tx.Exec(ctx, ins,
		req.ID, req.RequesterID, req.RequesterEventID, req.RecipientID, req.RecipientEventID,
		string(req.Status), req.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			// Partial unique index on pending requests; the row lock should
			// have prevented this, so treat it as a lost race.
			return errs.ErrNotSwappable
		}
		return wrapTransient(err)
	}

	if err = setStatusLocked(ctx, tx, mine.ID, model.StatusSwapPending); err != nil {
		return wrapTransient(err)
	}
	if err = setStatusLocked(ctx, tx, theirs.ID, model.StatusSwapPending); err != nil {
		return wrapTransient(err)
	}
	return nil
}

// GetByID selects a single swap request.
func (r *SwapRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error) {
	const q = `SELECT ` + swapCols + ` FROM swap_requests WHERE id=$1`
	return scanSwap(r.db.Pool.QueryRow(ctx, q, id))
}

// Resolve finalizes a pending request exactly once. The request row lock
// serializes concurrent responses; the event rows are locked afterwards in
// ascending id order, same as during proposal.
func (r *SwapRepo) Resolve(
	ctx context.Context, requestID, responderID uuid.UUID, accept bool, now time.Time,
) (req *model.SwapRequest, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = wrapTransient(e)
			req = nil
		}
	}()

	const sel = `SELECT ` + swapCols + ` FROM swap_requests WHERE id=$1 FOR UPDATE`
	req, err = scanSwap(tx.QueryRow(ctx, sel, requestID))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
		return nil, wrapTransient(err)
	}
	if req.RecipientID != responderID {
		return nil, errs.ErrForbidden
	}
	if req.Status != model.SwapPending {
		return nil, errs.ErrAlreadyResolved
	}

	reqEv, recEv, err := lockPairForUpdate(ctx, tx, req.RequesterEventID, req.RecipientEventID)
	if err != nil {
		return nil, err
	}
	// A pending request implies both events are swap_pending. Anything else
	// means the rows were mutated outside the engine.
	if reqEv.Status != model.StatusSwapPending || recEv.Status != model.StatusSwapPending {
		return nil, fmt.Errorf("%w: events of a pending request must be swap_pending", errs.ErrInvalidTransition)
	}

	if accept {
		if err = exchangeOwnerLocked(ctx, tx, reqEv.ID, recEv.OwnerID); err != nil {
			return nil, wrapTransient(err)
		}
		if err = exchangeOwnerLocked(ctx, tx, recEv.ID, reqEv.OwnerID); err != nil {
			return nil, wrapTransient(err)
		}
		req.Status = model.SwapAccepted
	} else {
		if err = setStatusLocked(ctx, tx, reqEv.ID, model.StatusSwappable); err != nil {
			return nil, wrapTransient(err)
		}
		if err = setStatusLocked(ctx, tx, recEv.ID, model.StatusSwappable); err != nil {
			return nil, wrapTransient(err)
		}
		req.Status = model.SwapRejected
	}

	const upd = `UPDATE swap_requests SET status=$2, resolved_at=$3 WHERE id=$1`
	if _, err = tx.Exec(ctx, upd, req.ID, string(req.Status), now); err != nil {
		return nil, wrapTransient(err)
	}
	req.ResolvedAt = &now
	return req, nil
}

// ListIncoming returns requests addressed to the user, newest first.
func (r *SwapRepo) ListIncoming(ctx context.Context, userID uuid.UUID) ([]model.SwapRequest, error) {
	const q = `SELECT ` + swapCols + ` FROM swap_requests WHERE recipient_id=$1 ORDER BY created_at DESC`
	return r.list(ctx, q, userID)
}

// ListOutgoing returns requests created by the user, newest first.
func (r *SwapRepo) ListOutgoing(ctx context.Context, userID uuid.UUID) ([]model.SwapRequest, error) {
	const q = `SELECT ` + swapCols + ` FROM swap_requests WHERE requester_id=$1 ORDER BY created_at DESC`
	return r.list(ctx, q, userID)
}

func (r *SwapRepo) list(ctx context.Context, q string, userID uuid.UUID) ([]model.SwapRequest, error) {
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SwapRequest
	for rows.Next() {
		var (
			s      model.SwapRequest
			status string
		)
		if err = rows.Scan(&s.ID, &s.RequesterID, &s.RequesterEventID, &s.RecipientID, &s.RecipientEventID, &status, &s.CreatedAt, &s.ResolvedAt); err != nil {
			return nil, err
		}
		s.Status = model.SwapStatus(status)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReleaseOrphanedLocks releases events stuck in swap_pending with no live
// pending request referencing them. A single statement keeps the repair
// atomic per event.
func (r *SwapRepo) ReleaseOrphanedLocks(ctx context.Context) ([]uuid.UUID, error) {
	const q = `
UPDATE events SET status='swappable', ver=ver+1, updated_at=now()
WHERE status='swap_pending'
  AND NOT EXISTS (
    SELECT 1 FROM swap_requests r
    WHERE r.status='pending'
      AND (r.requester_event_id = events.id OR r.recipient_event_id = events.id)
  )
RETURNING id`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
