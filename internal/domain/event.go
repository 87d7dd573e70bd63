package domain

import (
	"context"
	"time"
)

// Event is a capacity-limited school event.
// Capacity 0 means unlimited. ConfirmedCount is owned by the CapacityStore.
// swagger:model Event
type Event struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	Location       string    `json:"location"`
	StartsAt       time.Time `json:"starts_at"`
	Capacity       int       `json:"capacity"`
	ConfirmedCount int       `json:"confirmed_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewEvent returns a new Event with the given fields. ID is typically set by the repository on create.
func NewEvent(title, location string, startsAt time.Time, capacity int, createdAt time.Time) *Event {
	return &Event{
		Title:     title,
		Location:  location,
		StartsAt:  startsAt,
		Capacity:  capacity,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// Unlimited reports whether the event accepts any number of registrations.
func (e *Event) Unlimited() bool {
	return e.Capacity == 0
}

// SpotsLeft returns the number of free spots. Unlimited events report 0.
func (e *Event) SpotsLeft() int {
	if e.Unlimited() || e.ConfirmedCount >= e.Capacity {
		return 0
	}
	return e.Capacity - e.ConfirmedCount
}

// EventDirectory is the read-only view of event metadata the registration core depends on.
type EventDirectory interface {
	GetByID(ctx context.Context, id string) (*Event, error)
}

// EventRepository defines event storage. Event editing lives outside this service;
// Create exists for seeding and tests.
type EventRepository interface {
	EventDirectory
	Create(ctx context.Context, event *Event) error
}

// CapacityStore owns the authoritative confirmed count per event.
//
// TryReserve increments the count only if the event is below capacity (or unlimited)
// in one atomic step and returns ErrCapacityExceeded otherwise, leaving state untouched.
// Release decrements the count by one, floored at zero. Both return ErrNotFound for
// unknown events.
type CapacityStore interface {
	TryReserve(ctx context.Context, eventID string) error
	Release(ctx context.Context, eventID string) error
}
