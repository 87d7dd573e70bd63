package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"schoolevents/internal/domain"
)

// RegistrationDeps are the collaborators of the registration service.
type RegistrationDeps struct {
	Events        domain.EventDirectory
	Users         domain.UserDirectory
	Capacity      domain.CapacityStore
	Ledger        domain.RegistrationLedger
	Transactor    domain.Transactor
	Notifications domain.NotificationQueue
}

type registrationService struct {
	logger        *slog.Logger
	events        domain.EventDirectory
	users         domain.UserDirectory
	capacity      domain.CapacityStore
	ledger        domain.RegistrationLedger
	tx            domain.Transactor
	notifications domain.NotificationQueue
	now           func() time.Time
}

// NewRegistrationService creates the registration coordinator.
func NewRegistrationService(logger *slog.Logger, deps RegistrationDeps) domain.RegistrationService {
	return &registrationService{
		logger:        logger,
		events:        deps.Events,
		users:         deps.Users,
		capacity:      deps.Capacity,
		ledger:        deps.Ledger,
		tx:            deps.Transactor,
		notifications: deps.Notifications,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *registrationService) Register(ctx context.Context, userID, eventID, comment string) (*domain.Registration, error) {
	userID = strings.TrimSpace(userID)
	eventID = strings.TrimSpace(eventID)
	comment = strings.TrimSpace(comment)
	if userID == "" || eventID == "" {
		return nil, fmt.Errorf("%w: user id and event id are required", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(comment) > domain.MaxCommentLength {
		return nil, fmt.Errorf("%w: comment must be at most %d characters", domain.ErrInvalidInput, domain.MaxCommentLength)
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, transient("get event", err)
	}

	// Duplicate detection happens before touching the capacity store.
	if existing, err := s.ledger.Find(ctx, userID, eventID); err == nil {
		if existing.Active() {
			return nil, domain.ErrDuplicateRegistration
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, transient("find registration", err)
	}

	// The reservation and the ledger row commit together or not at all. A failed
	// or abandoned write rolls the reservation back with it.
	reg := domain.NewRegistration(userID, eventID, domain.RegistrationConfirmed, comment, s.now())
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.capacity.TryReserve(ctx, eventID); err != nil {
			return err
		}
		return s.ledger.Upsert(ctx, reg)
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCapacityExceeded):
			return nil, domain.ErrCapacityExceeded
		case errors.Is(err, domain.ErrRegistrationConflict):
			// Lost a race with a concurrent registration for the same pair.
			return nil, domain.ErrDuplicateRegistration
		case errors.Is(err, domain.ErrNotFound):
			return nil, domain.ErrNotFound
		}
		return nil, transient("admit registration", err)
	}

	s.logger.InfoContext(ctx, "registration confirmed",
		"registration_id", reg.ID, "event_id", eventID, "user_id", userID)
	s.enqueueConfirmation(ctx, reg, event)
	return reg, nil
}

// enqueueConfirmation snapshots what delivery needs. Failures here are logged and
// never affect the registration outcome.
func (s *registrationService) enqueueConfirmation(ctx context.Context, reg *domain.Registration, event *domain.Event) {
	if s.notifications == nil {
		return
	}
	user, err := s.users.GetByID(ctx, reg.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping confirmation notification: user lookup failed",
			"registration_id", reg.ID, "user_id", reg.UserID, "err", err)
		return
	}
	s.notifications.Enqueue(domain.NotificationIntent{
		Kind:           domain.NotificationRegistrationConfirmed,
		UserID:         reg.UserID,
		EventID:        reg.EventID,
		RegistrationID: reg.ID,
		Email:          user.Email,
		Name:           user.Name,
		EventTitle:     event.Title,
		EventLocation:  event.Location,
		EventStartsAt:  event.StartsAt,
		CreatedAt:      s.now(),
	})
}

func (s *registrationService) Cancel(ctx context.Context, userID, registrationID string) error {
	userID = strings.TrimSpace(userID)
	registrationID = strings.TrimSpace(registrationID)
	if userID == "" || registrationID == "" {
		return fmt.Errorf("%w: user id and registration id are required", domain.ErrInvalidInput)
	}

	reg, err := s.ledger.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return transient("get registration", err)
	}
	// Someone else's registration is reported exactly like a missing one.
	if reg.UserID != userID || !reg.Active() {
		return domain.ErrNotFound
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		reg.Status = domain.RegistrationCancelled
		reg.UpdatedAt = s.now()
		if err := s.ledger.Upsert(ctx, reg); err != nil {
			return err
		}
		return s.capacity.Release(ctx, reg.EventID)
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRegistrationConflict), errors.Is(err, domain.ErrNotFound):
			// Cancelled concurrently, or the event is gone.
			return domain.ErrNotFound
		}
		return transient("cancel registration", err)
	}

	s.logger.InfoContext(ctx, "registration cancelled",
		"registration_id", reg.ID, "event_id", reg.EventID, "user_id", userID)
	return nil
}

func (s *registrationService) ListMyRegistrations(ctx context.Context, userID string) ([]*domain.RegistrationWithEvent, error) {
	regs, err := s.ledger.ListByUserID(ctx, userID)
	if err != nil {
		return nil, transient("list registrations", err)
	}

	// Cancelled rows stay in the ledger but are not listed.
	eventsByID := make(map[string]*domain.Event)
	result := make([]*domain.RegistrationWithEvent, 0, len(regs))
	for _, reg := range regs {
		if !reg.Active() {
			continue
		}
		ev, ok := eventsByID[reg.EventID]
		if !ok {
			ev, err = s.events.GetByID(ctx, reg.EventID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				return nil, transient("get event for registration", err)
			}
			eventsByID[reg.EventID] = ev
		}
		result = append(result, &domain.RegistrationWithEvent{
			Registration: reg,
			Event:        ev,
		})
	}
	return result, nil
}

func transient(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrTransientStorage, op, err)
}
