// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// EventStatus is the exchangeability state of a calendar event.
type EventStatus string

const (
	// StatusBusy is the default state; the event is not offered for exchange.
	StatusBusy EventStatus = "busy"
	// StatusSwappable marks the event as offered for exchange.
	StatusSwappable EventStatus = "swappable"
	// StatusSwapPending locks the event while a pending swap request references it.
	StatusSwapPending EventStatus = "swap_pending"
)

// SwapStatus is the lifecycle state of a swap request.
type SwapStatus string

const (
	SwapPending  SwapStatus = "pending"
	SwapAccepted SwapStatus = "accepted"
	SwapRejected SwapStatus = "rejected"
)

// Terminal reports whether the request can no longer transition.
func (s SwapStatus) Terminal() bool {
	return s == SwapAccepted || s == SwapRejected
}

// Event is a single calendar entry with exchangeability state.
type Event struct {
	ID        uuid.UUID // PK
	OwnerID   uuid.UUID // FK -> users.id; exchanged on an accepted swap
	Title     string
	StartsAt  time.Time // timezone-normalized (UTC)
	EndsAt    time.Time // always after StartsAt
	Status    EventStatus
	Ver       int64 // monotonically increasing version, bumped on every write
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SwapRequest is a negotiation between two events owned by different users.
// Requests are never deleted; resolved ones stay as an audit record.
type SwapRequest struct {
	ID               uuid.UUID
	RequesterID      uuid.UUID // owner of RequesterEventID at creation time
	RequesterEventID uuid.UUID
	RecipientID      uuid.UUID // owner of RecipientEventID at creation time
	RecipientEventID uuid.UUID
	Status           SwapStatus
	CreatedAt        time.Time
	ResolvedAt       *time.Time // set on the single transition out of pending
}

// User represents an account stored on the server.
type User struct {
	ID        uuid.UUID // PK
	Username  string    // unique
	PwdHash   []byte    // Argon2id(password, SaltAuth)
	SaltAuth  []byte    // per-user auth salt
	CreatedAt time.Time
}
