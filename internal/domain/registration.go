package domain

import (
	"context"
	"time"
)

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s RegistrationStatus) Valid() bool {
	return s == RegistrationConfirmed || s == RegistrationCancelled
}

// MaxCommentLength bounds the free-text comment attached to a registration.
const MaxCommentLength = 500

// Registration is a user's registration for an event. There is at most one per (UserID, EventID).
// swagger:model Registration
type Registration struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	EventID   string             `json:"event_id"`
	Status    RegistrationStatus `json:"status"`
	Comment   string             `json:"comment"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// NewRegistration creates a Registration. ID and CreatedAt may be replaced by the ledger on upsert.
func NewRegistration(userID, eventID string, status RegistrationStatus, comment string, now time.Time) *Registration {
	return &Registration{
		UserID:    userID,
		EventID:   eventID,
		Status:    status,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Active reports whether the registration counts toward event capacity.
func (r *Registration) Active() bool {
	return r.Status == RegistrationConfirmed
}

// RegistrationLedger is the durable per-(user, event) registration record.
//
// Upsert writes reg.Status for the (UserID, EventID) pair. It only applies a status
// change: writing the status the row already holds (confirmed over confirmed, or
// cancelled over cancelled) returns ErrRegistrationConflict. Writing confirmed over a
// cancelled row re-activates it, keeping its ID and CreatedAt. On success reg.ID and
// reg.CreatedAt reflect the stored row.
type RegistrationLedger interface {
	Find(ctx context.Context, userID, eventID string) (*Registration, error)
	GetByID(ctx context.Context, id string) (*Registration, error)
	Upsert(ctx context.Context, reg *Registration) error
	ListByUserID(ctx context.Context, userID string) ([]*Registration, error)
}

// Transactor runs fn so that every ledger and capacity call made with the ctx it
// receives commits or rolls back together.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// RegistrationWithEvent bundles a registration with its related event.
type RegistrationWithEvent struct {
	Registration *Registration `json:"registration"`
	Event        *Event        `json:"event"`
}

// RegistrationService is the capacity-constrained registration core.
type RegistrationService interface {
	// Register admits the user to the event or fails with ErrNotFound, ErrDuplicateRegistration,
	// ErrCapacityExceeded, ErrInvalidInput or ErrTransientStorage.
	Register(ctx context.Context, userID, eventID, comment string) (*Registration, error)
	// Cancel cancels a registration owned by userID and frees its spot.
	Cancel(ctx context.Context, userID, registrationID string) error
	ListMyRegistrations(ctx context.Context, userID string) ([]*RegistrationWithEvent, error)
}
