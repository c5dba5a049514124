package postgres

import (
	"bytes"
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"calswap/internal/errs"
	"calswap/internal/model"
)

// Pair transitions for the swap engine. Every function here runs inside a
// caller-owned transaction, so the check-then-set sequence over two event
// rows is all-or-nothing: either both rows move or the transaction rolls
// back with nothing applied.

// lockEventForUpdate takes a row lock on one event without waiting. A row
// already locked by a concurrent transaction yields ErrTransientConflict
// instead of blocking.
func lockEventForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Event, error) {
	const q = `SELECT ` + eventCols + ` FROM events WHERE id=$1 FOR UPDATE NOWAIT`
	ev, err := scanEvent(tx.QueryRow(ctx, q, id))
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return nil, wrapTransient(err)
	}
	return ev, err
}

// lockPairForUpdate locks two event rows in ascending id order. The stable
// order keeps concurrent proposals over the same pair from deadlocking.
// Results are returned in argument order.
func lockPairForUpdate(ctx context.Context, tx pgx.Tx, idA, idB uuid.UUID) (*model.Event, *model.Event, error) {
	first, second := idA, idB
	if bytes.Compare(second.Bytes(), first.Bytes()) < 0 {
		first, second = second, first
	}

	e1, err := lockEventForUpdate(ctx, tx, first)
	if err != nil {
		return nil, nil, err
	}
	e2, err := lockEventForUpdate(ctx, tx, second)
	if err != nil {
		return nil, nil, err
	}

	if first == idA {
		return e1, e2, nil
	}
	return e2, e1, nil
}

// setStatusLocked rewrites the status of an already-locked event row.
func setStatusLocked(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.EventStatus) error {
	const q = `UPDATE events SET status=$2, ver=ver+1, updated_at=now() WHERE id=$1`
	_, err := tx.Exec(ctx, q, id, string(status))
	return err
}

// exchangeOwnerLocked hands an already-locked event row to a new owner and
// returns it to busy.
func exchangeOwnerLocked(ctx context.Context, tx pgx.Tx, id, newOwner uuid.UUID) error {
	const q = `UPDATE events SET owner_id=$2, status='busy', ver=ver+1, updated_at=now() WHERE id=$1`
	_, err := tx.Exec(ctx, q, id, newOwner)
	return err
}
