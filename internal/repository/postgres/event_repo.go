package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"calswap/internal/errs"
	"calswap/internal/model"
)

// EventRepo implements EventRepository using PostgreSQL.
type EventRepo struct{ db *DB }

// NewEventRepo constructs an event repository.
func NewEventRepo(db *DB) *EventRepo { return &EventRepo{db: db} }

const eventCols = `id, owner_id, title, starts_at, ends_at, status, ver, created_at, updated_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var (
		e      model.Event
		status string
	)
	err := row.Scan(&e.ID, &e.OwnerID, &e.Title, &e.StartsAt, &e.EndsAt, &status, &e.Ver, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	e.Status = model.EventStatus(status)
	return &e, nil
}

// Create inserts a new event row with status busy. The entity's timestamps
// are stored as-is so the row matches what the caller already holds.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const q = `
INSERT INTO events (id, owner_id, title, starts_at, ends_at, status, ver, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8)`
	_, err := r.db.Pool.Exec(ctx, q, e.ID, e.OwnerID, e.Title, e.StartsAt, e.EndsAt, string(e.Status), e.CreatedAt, e.UpdatedAt)
	return err
}

// GetByID selects a single event.
func (r *EventRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	const q = `SELECT ` + eventCols + ` FROM events WHERE id=$1`
	return scanEvent(r.db.Pool.QueryRow(ctx, q, id))
}

// ListByOwner returns all events of a user ordered by start time.
func (r *EventRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Event, error) {
	const q = `SELECT ` + eventCols + ` FROM events WHERE owner_id=$1 ORDER BY starts_at ASC`
	rows, err := r.db.Pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var (
			e      model.Event
			status string
		)
		if err = rows.Scan(&e.ID, &e.OwnerID, &e.Title, &e.StartsAt, &e.EndsAt, &status, &e.Ver, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Status = model.EventStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateDetails rewrites title and time bounds unless the event is locked.
func (r *EventRepo) UpdateDetails(
	ctx context.Context, eventID, ownerID uuid.UUID, title string, startsAt, endsAt time.Time,
) (ev *model.Event, err error) {
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
			err = e
		}
	}()

	if err = r.guardUnlocked(ctx, tx, eventID, ownerID); err != nil {
		return nil, err
	}
	const upd = `
UPDATE events SET title=$3, starts_at=$4, ends_at=$5, ver=ver+1, updated_at=now()
WHERE id=$1 AND owner_id=$2
RETURNING ` + eventCols
	ev, err = scanEvent(tx.QueryRow(ctx, upd, eventID, ownerID, title, startsAt, endsAt))
	return ev, err
}

// Delete removes an event unless it is locked by a pending swap.
func (r *EventRepo) Delete(ctx context.Context, eventID, ownerID uuid.UUID) (err error) {
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
			err = e
		}
	}()

	if err = r.guardUnlocked(ctx, tx, eventID, ownerID); err != nil {
		return err
	}
	const del = `DELETE FROM events WHERE id=$1 AND owner_id=$2`
	_, err = tx.Exec(ctx, del, eventID, ownerID)
	return err
}

// SetStatus transitions between busy and swappable under a row lock.
func (r *EventRepo) SetStatus(
	ctx context.Context, eventID, ownerID uuid.UUID, desired model.EventStatus,
) (ev *model.Event, err error) {
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
			err = e
		}
	}()

	if err = r.guardUnlocked(ctx, tx, eventID, ownerID); err != nil {
		return nil, err
	}
	const upd = `
UPDATE events SET status=$3, ver=ver+1, updated_at=now()
WHERE id=$1 AND owner_id=$2
RETURNING ` + eventCols
	ev, err = scanEvent(tx.QueryRow(ctx, upd, eventID, ownerID, string(desired)))
	return ev, err
}

// guardUnlocked locks the owner's event row and rejects mutation while
// the event is swap-pending.
func (r *EventRepo) guardUnlocked(ctx context.Context, tx pgx.Tx, eventID, ownerID uuid.UUID) error {
	const sel = `SELECT status FROM events WHERE id=$1 AND owner_id=$2 FOR UPDATE`
	var status string
	if err := tx.QueryRow(ctx, sel, eventID, ownerID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return wrapTransient(err)
	}
	if model.EventStatus(status) == model.StatusSwapPending {
		return errs.ErrLocked
	}
	return nil
}
