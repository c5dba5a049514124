package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"calswap/internal/model"
)

// EventRepository provides access to calendar events and their
// exchangeability status. Status is mutated only through SetStatus and
// the pair transitions owned by SwapRepository; no other writer touches it.
type EventRepository interface {
	// Create inserts a new event with status busy.
	Create(ctx context.Context, e *model.Event) error

	// GetByID loads a single event.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error)

	// ListByOwner returns all events of a user ordered by start time.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Event, error)

	// UpdateDetails rewrites title and time bounds. Fails with ErrLocked
	// while the event is swap-pending and ErrNotFound when no event with
	// that id belongs to ownerID.
	UpdateDetails(ctx context.Context, eventID, ownerID uuid.UUID, title string, startsAt, endsAt time.Time) (*model.Event, error)

	// Delete removes an event. Fails with ErrLocked while swap-pending:
	// a locked event backs a live pending request and must stay referable.
	Delete(ctx context.Context, eventID, ownerID uuid.UUID) error

	// SetStatus transitions between busy and swappable. Fails with
	// ErrLocked when the current status is swap_pending.
	SetStatus(ctx context.Context, eventID, ownerID uuid.UUID, desired model.EventStatus) (*model.Event, error)
}
