package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"calswap/internal/clock"
	"calswap/internal/errs"
	"calswap/internal/model"
	"calswap/internal/repository"
)

// EventService gates every owner-driven event mutation, including the
// busy/swappable side of the exchangeability state machine. The
// swap_pending state is entered and left only through SwapService.
type EventService interface {
	// Create adds a new event owned by ownerID, status busy.
	Create(ctx context.Context, ownerID uuid.UUID, title string, startsAt, endsAt time.Time) (*model.Event, error)
	// Get returns a single event.
	Get(ctx context.Context, id uuid.UUID) (*model.Event, error)
	// List returns all events of the owner ordered by start time.
	List(ctx context.Context, ownerID uuid.UUID) ([]model.Event, error)
	// UpdateDetails rewrites title and time bounds; refused while locked.
	UpdateDetails(ctx context.Context, eventID, ownerID uuid.UUID, title string, startsAt, endsAt time.Time) (*model.Event, error)
	// Delete removes an event; refused while locked.
	Delete(ctx context.Context, eventID, ownerID uuid.UUID) error
	// SetExchangeable transitions between busy and swappable; refused
	// while locked, and swap_pending can never be requested directly.
	SetExchangeable(ctx context.Context, eventID, ownerID uuid.UUID, desired model.EventStatus) (*model.Event, error)
}

type EventServiceImpl struct {
	repo repository.EventRepository
	clk  clock.Clock
}

// NewEventService constructs EventService.
func NewEventService(repo repository.EventRepository, clk clock.Clock) *EventServiceImpl {
	return &EventServiceImpl{repo: repo, clk: clk}
}

// Create validates input and inserts the event with status busy.
func (s *EventServiceImpl) Create(
	ctx context.Context, ownerID uuid.UUID, title string, startsAt, endsAt time.Time,
) (*model.Event, error) {
	if ownerID == uuid.Nil {
		return nil, errors.New("validation: empty ownerID")
	}
	if err := validateDetails(title, startsAt, endsAt); err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := s.clk.Now()
	e := &model.Event{
		ID:        id,
		OwnerID:   ownerID,
		Title:     title,
		StartsAt:  startsAt.UTC(),
		EndsAt:    endsAt.UTC(),
		Status:    model.StatusBusy,
		Ver:       1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Get fetches a single event by id.
func (s *EventServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	if id == uuid.Nil {
		return nil, errors.New("validation: empty id")
	}
	return s.repo.GetByID(ctx, id)
}

// List returns all events of the owner.
func (s *EventServiceImpl) List(ctx context.Context, ownerID uuid.UUID) ([]model.Event, error) {
	if ownerID == uuid.Nil {
		return nil, errors.New("validation: empty ownerID")
	}
	return s.repo.ListByOwner(ctx, ownerID)
}

// UpdateDetails rewrites title/time bounds. The repository refuses the
// write while the event is swap-pending.
func (s *EventServiceImpl) UpdateDetails(
	ctx context.Context, eventID, ownerID uuid.UUID, title string, startsAt, endsAt time.Time,
) (*model.Event, error) {
	if eventID == uuid.Nil || ownerID == uuid.Nil {
		return nil, errors.New("validation: empty eventID/ownerID")
	}
	if err := validateDetails(title, startsAt, endsAt); err != nil {
		return nil, err
	}
	return s.repo.UpdateDetails(ctx, eventID, ownerID, title, startsAt.UTC(), endsAt.UTC())
}

// Delete removes the event unless it backs a pending swap.
func (s *EventServiceImpl) Delete(ctx context.Context, eventID, ownerID uuid.UUID) error {
	if eventID == uuid.Nil || ownerID == uuid.Nil {
		return errors.New("validation: empty eventID/ownerID")
	}
	return s.repo.Delete(ctx, eventID, ownerID)
}

// SetExchangeable flips the event between busy and swappable.
func (s *EventServiceImpl) SetExchangeable(
	ctx context.Context, eventID, ownerID uuid.UUID, desired model.EventStatus,
) (*model.Event, error) {
	if eventID == uuid.Nil || ownerID == uuid.Nil {
		return nil, errors.New("validation: empty eventID/ownerID")
	}
	if desired != model.StatusBusy && desired != model.StatusSwappable {
		return nil, fmt.Errorf("%w: cannot request %q", errs.ErrInvalidTransition, desired)
	}
	return s.repo.SetStatus(ctx, eventID, ownerID, desired)
}

func validateDetails(title string, startsAt, endsAt time.Time) error {
	if title == "" {
		return errors.New("validation: empty title")
	}
	if startsAt.IsZero() || endsAt.IsZero() {
		return errors.New("validation: empty start/end")
	}
	if !endsAt.After(startsAt) {
		return errors.New("validation: end must be after start")
	}
	return nil
}
