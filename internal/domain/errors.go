package domain

import "errors"

// Sentinel errors shared across services, repositories and controllers.
var (
	// ErrNotFound is returned when an event or registration does not exist, or
	// when a registration exists but belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when a request fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateRegistration is returned when the user already holds a confirmed registration for the event.
	ErrDuplicateRegistration = errors.New("already registered for this event")
	// ErrCapacityExceeded is returned when the event has no free spots at evaluation time.
	ErrCapacityExceeded = errors.New("event is full")
	// ErrRegistrationConflict is returned by the ledger when a confirmed row already exists for the (user, event) pair.
	ErrRegistrationConflict = errors.New("registration conflict")
	// ErrTransientStorage wraps retryable storage faults (connection loss, lock timeouts, busy database).
	ErrTransientStorage = errors.New("transient storage failure")
)
