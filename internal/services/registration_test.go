package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolevents/internal/domain"
	"schoolevents/internal/repository/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingQueue struct {
	mu      sync.Mutex
	intents []domain.NotificationIntent
	reject  bool
}

func (q *recordingQueue) Enqueue(intent domain.NotificationIntent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.reject {
		return false
	}
	q.intents = append(q.intents, intent)
	return true
}

func (q *recordingQueue) all() []domain.NotificationIntent {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.NotificationIntent(nil), q.intents...)
}

// faultyLedger wraps a ledger and fails Upsert with upsertErr when set.
type faultyLedger struct {
	domain.RegistrationLedger
	upsertErr error
	findErr   error
}

func (l *faultyLedger) Upsert(ctx context.Context, reg *domain.Registration) error {
	if l.upsertErr != nil {
		return l.upsertErr
	}
	return l.RegistrationLedger.Upsert(ctx, reg)
}

func (l *faultyLedger) Find(ctx context.Context, userID, eventID string) (*domain.Registration, error) {
	if l.findErr != nil {
		return nil, l.findErr
	}
	return l.RegistrationLedger.Find(ctx, userID, eventID)
}

type failingEvents struct{ err error }

func (f failingEvents) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	return nil, f.err
}

type fixture struct {
	store  *memory.Store
	queue  *recordingQueue
	ledger *faultyLedger
	deps   RegistrationDeps
	svc    *registrationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	queue := &recordingQueue{}
	ledger := &faultyLedger{RegistrationLedger: store.Ledger()}
	deps := RegistrationDeps{
		Events:        store.Events(),
		Users:         store.Users(),
		Capacity:      store.Capacity(),
		Ledger:        ledger,
		Transactor:    store.Transactor(),
		Notifications: queue,
	}
	svc := NewRegistrationService(discardLogger(), deps).(*registrationService)
	return &fixture{store: store, queue: queue, ledger: ledger, deps: deps, svc: svc}
}

func (f *fixture) event(t *testing.T, capacity int) *domain.Event {
	t.Helper()
	ev := domain.NewEvent("Science Fair", "Main Hall", time.Date(2026, 11, 20, 9, 30, 0, 0, time.UTC), capacity, time.Now().UTC())
	require.NoError(t, f.store.Events().Create(context.Background(), ev))
	return ev
}

func (f *fixture) confirmedCount(t *testing.T, eventID string) int {
	t.Helper()
	ev, err := f.store.Events().GetByID(context.Background(), eventID)
	require.NoError(t, err)
	return ev.ConfirmedCount
}

func (f *fixture) user(id string) {
	f.store.Users().Put(&domain.User{ID: id, Email: id + "@school.test", Name: strings.ToUpper(id)})
}

func TestRegistrationService_Register(t *testing.T) {
	tests := []struct {
		name      string
		capacity  int
		setup     func(t *testing.T, f *fixture, eventID string)
		eventID   func(eventID string) string
		userID    string
		comment   string
		wantErr   error
		wantCount int
	}{
		{
			name:      "admits into free spot",
			capacity:  2,
			userID:    "u1",
			comment:   "  vegetarian lunch  ",
			wantCount: 1,
		},
		{
			name:      "unlimited event admits",
			capacity:  0,
			userID:    "u1",
			wantCount: 1,
		},
		{
			name:      "unknown event",
			capacity:  2,
			eventID:   func(string) string { return "missing" },
			userID:    "u1",
			wantErr:   domain.ErrNotFound,
			wantCount: 0,
		},
		{
			name:     "duplicate confirmed registration",
			capacity: 5,
			setup: func(t *testing.T, f *fixture, eventID string) {
				_, err := f.svc.Register(context.Background(), "u1", eventID, "")
				require.NoError(t, err)
			},
			userID:    "u1",
			wantErr:   domain.ErrDuplicateRegistration,
			wantCount: 1,
		},
		{
			name:     "full event",
			capacity: 1,
			setup: func(t *testing.T, f *fixture, eventID string) {
				_, err := f.svc.Register(context.Background(), "u2", eventID, "")
				require.NoError(t, err)
			},
			userID:    "u1",
			wantErr:   domain.ErrCapacityExceeded,
			wantCount: 1,
		},
		{
			name:     "empty user id",
			capacity: 1,
			userID:   "  ",
			wantErr:  domain.ErrInvalidInput,
		},
		{
			name:     "comment too long",
			capacity: 1,
			userID:   "u1",
			comment:  strings.Repeat("x", domain.MaxCommentLength+1),
			wantErr:  domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ev := f.event(t, tt.capacity)
			f.user("u1")
			f.user("u2")
			if tt.setup != nil {
				tt.setup(t, f, ev.ID)
			}
			eventID := ev.ID
			if tt.eventID != nil {
				eventID = tt.eventID(ev.ID)
			}

			reg, err := f.svc.Register(context.Background(), tt.userID, eventID, tt.comment)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, reg)
			} else {
				require.NoError(t, err)
				require.NotEmpty(t, reg.ID)
				assert.Equal(t, domain.RegistrationConfirmed, reg.Status)
				assert.Equal(t, strings.TrimSpace(tt.comment), reg.Comment)
			}
			assert.Equal(t, tt.wantCount, f.confirmedCount(t, ev.ID))
		})
	}
}

func TestRegistrationService_Register_EnqueuesConfirmation(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 3)
	f.user("u1")

	reg, err := f.svc.Register(context.Background(), "u1", ev.ID, "")
	require.NoError(t, err)

	intents := f.queue.all()
	require.Len(t, intents, 1)
	got := intents[0]
	assert.Equal(t, domain.NotificationRegistrationConfirmed, got.Kind)
	assert.Equal(t, reg.ID, got.RegistrationID)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "u1@school.test", got.Email)
	assert.Equal(t, "U1", got.Name)
	assert.Equal(t, "Science Fair", got.EventTitle)
	assert.Equal(t, "Main Hall", got.EventLocation)
	assert.True(t, ev.StartsAt.Equal(got.EventStartsAt))
}

func TestRegistrationService_Register_NotificationNeverAffectsOutcome(t *testing.T) {
	t.Run("queue rejects", func(t *testing.T) {
		f := newFixture(t)
		ev := f.event(t, 1)
		f.user("u1")
		f.queue.reject = true

		_, err := f.svc.Register(context.Background(), "u1", ev.ID, "")
		require.NoError(t, err)
		assert.Equal(t, 1, f.confirmedCount(t, ev.ID))
	})

	t.Run("unknown user skips notification", func(t *testing.T) {
		f := newFixture(t)
		ev := f.event(t, 1)

		_, err := f.svc.Register(context.Background(), "ghost", ev.ID, "")
		require.NoError(t, err)
		assert.Empty(t, f.queue.all())
	})

	t.Run("no queue configured", func(t *testing.T) {
		f := newFixture(t)
		ev := f.event(t, 1)
		f.deps.Notifications = nil
		svc := NewRegistrationService(discardLogger(), f.deps)

		_, err := svc.Register(context.Background(), "u1", ev.ID, "")
		require.NoError(t, err)
	})
}

func TestRegistrationService_Register_FailedLedgerWriteRollsBackReservation(t *testing.T) {
	tests := []struct {
		name      string
		upsertErr error
		wantErr   error
	}{
		{name: "storage fault", upsertErr: errors.New("connection reset"), wantErr: domain.ErrTransientStorage},
		{name: "lost duplicate race", upsertErr: domain.ErrRegistrationConflict, wantErr: domain.ErrDuplicateRegistration},
		{name: "event removed", upsertErr: domain.ErrNotFound, wantErr: domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ev := f.event(t, 1)
			f.user("u1")
			f.ledger.upsertErr = tt.upsertErr

			_, err := f.svc.Register(context.Background(), "u1", ev.ID, "")
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, f.confirmedCount(t, ev.ID), "reservation must be rolled back")
			assert.Empty(t, f.queue.all())

			// The freed spot is usable again.
			f.ledger.upsertErr = nil
			_, err = f.svc.Register(context.Background(), "u1", ev.ID, "")
			require.NoError(t, err)
			assert.Equal(t, 1, f.confirmedCount(t, ev.ID))
		})
	}
}

func TestRegistrationService_Register_RollsBackAfterCallerCancelled(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 1)
	f.ledger.upsertErr = context.Canceled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.Register(ctx, "u1", ev.ID, "")
	require.ErrorIs(t, err, domain.ErrTransientStorage)
	assert.Equal(t, 0, f.confirmedCount(t, ev.ID))
}

func TestRegistrationService_Register_StorageFaultsAreTransient(t *testing.T) {
	t.Run("event lookup", func(t *testing.T) {
		f := newFixture(t)
		f.deps.Events = failingEvents{err: errors.New("dial tcp: timeout")}
		svc := NewRegistrationService(discardLogger(), f.deps)

		_, err := svc.Register(context.Background(), "u1", "e1", "")
		require.ErrorIs(t, err, domain.ErrTransientStorage)
	})

	t.Run("ledger lookup", func(t *testing.T) {
		f := newFixture(t)
		ev := f.event(t, 1)
		f.ledger.findErr = errors.New("database is locked")

		_, err := f.svc.Register(context.Background(), "u1", ev.ID, "")
		require.ErrorIs(t, err, domain.ErrTransientStorage)
		assert.Equal(t, 0, f.confirmedCount(t, ev.ID))
	})
}

func TestRegistrationService_Register_ConcurrentAdmissionNeverOverbooks(t *testing.T) {
	const capacity = 10
	f := newFixture(t)
	ev := f.event(t, capacity)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		full     int
	)
	start := make(chan struct{})
	for i := 0; i < 2*capacity; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := f.svc.Register(context.Background(), fmt.Sprintf("u%d", i), ev.ID, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, domain.ErrCapacityExceeded):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, capacity, admitted)
	assert.Equal(t, capacity, full)
	assert.Equal(t, capacity, f.confirmedCount(t, ev.ID))
}

func TestRegistrationService_Register_ConcurrentDuplicateAdmitsOnce(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 10)

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Register(context.Background(), "u1", ev.ID, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, domain.ErrDuplicateRegistration)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, f.confirmedCount(t, ev.ID))
}

func TestRegistrationService_Cancel(t *testing.T) {
	t.Run("frees the spot for someone else", func(t *testing.T) {
		f := newFixture(t)
		ev := f.event(t, 1)
		reg, err := f.svc.Register(context.Background(), "u1", ev.ID, "")
		require.NoError(t, err)

		_, err = f.svc.Register(context.Background(), "u2", ev.ID, "")
		require.ErrorIs(t, err, domain.ErrCapacityExceeded)

		require.NoError(t, f.svc.Cancel(context.Background(), "u1", reg.ID))
		assert.Equal(t, 0, f.confirmedCount(t, ev.ID))

		stored, err := f.store.Ledger().GetByID(context.Background(), reg.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RegistrationCancelled, stored.Status)

		_, err = f.svc.Register(context.Background(), "u2", ev.ID, "")
		require.NoError(t, err)
	})

	t.Run("another user's registration looks missing", func(t *testing.T) {
		f := newFixture(t)
		ev := f.event(t, 2)
		reg, err := f.svc.Register(context.Background(), "u1", ev.ID, "")
		require.NoError(t, err)

		err = f.svc.Cancel(context.Background(), "u2", reg.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, 1, f.confirmedCount(t, ev.ID))
	})

	t.Run("already cancelled", func(t *testing.T) {
		f := newFixture(t)
		ev := f.event(t, 2)
		reg, err := f.svc.Register(context.Background(), "u1", ev.ID, "")
		require.NoError(t, err)
		require.NoError(t, f.svc.Cancel(context.Background(), "u1", reg.ID))

		err = f.svc.Cancel(context.Background(), "u1", reg.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, 0, f.confirmedCount(t, ev.ID))
	})

	t.Run("unknown registration", func(t *testing.T) {
		f := newFixture(t)
		require.ErrorIs(t, f.svc.Cancel(context.Background(), "u1", "nope"), domain.ErrNotFound)
	})

	t.Run("missing ids", func(t *testing.T) {
		f := newFixture(t)
		require.ErrorIs(t, f.svc.Cancel(context.Background(), "", "r1"), domain.ErrInvalidInput)
		require.ErrorIs(t, f.svc.Cancel(context.Background(), "u1", " "), domain.ErrInvalidInput)
	})

	t.Run("ledger fault is transient and keeps the spot", func(t *testing.T) {
		f := newFixture(t)
		ev := f.event(t, 2)
		reg, err := f.svc.Register(context.Background(), "u1", ev.ID, "")
		require.NoError(t, err)
		f.ledger.upsertErr = errors.New("broken pipe")

		err = f.svc.Cancel(context.Background(), "u1", reg.ID)
		require.ErrorIs(t, err, domain.ErrTransientStorage)
		assert.Equal(t, 1, f.confirmedCount(t, ev.ID))
	})
}

func TestRegistrationService_Cancel_ConcurrentReleasesOnce(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 5)
	reg, err := f.svc.Register(context.Background(), "u1", ev.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Register(context.Background(), "u2", ev.ID, "")
	require.NoError(t, err)

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.svc.Cancel(context.Background(), "u1", reg.ID)
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, f.confirmedCount(t, ev.ID))
}

func TestRegistrationService_ReRegisterAfterCancel(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 1)
	first, err := f.svc.Register(context.Background(), "u1", ev.ID, "first")
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(context.Background(), "u1", first.ID))

	second, err := f.svc.Register(context.Background(), "u1", ev.ID, "second")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "one row per user and event")
	assert.Equal(t, "second", second.Comment)
	assert.Equal(t, 1, f.confirmedCount(t, ev.ID))

	stored, err := f.store.Ledger().Find(context.Background(), "u1", ev.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationConfirmed, stored.Status)
}

func TestRegistrationService_ListMyRegistrations(t *testing.T) {
	f := newFixture(t)
	clock := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	older := f.event(t, 5)
	newer := f.event(t, 5)
	other := f.event(t, 5)

	r1, err := f.svc.Register(context.Background(), "u1", older.ID, "")
	require.NoError(t, err)
	r2, err := f.svc.Register(context.Background(), "u1", newer.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Register(context.Background(), "u2", other.ID, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(context.Background(), "u1", r1.ID))

	third := f.event(t, 5)
	r3, err := f.svc.Register(context.Background(), "u1", third.ID, "")
	require.NoError(t, err)

	got, err := f.svc.ListMyRegistrations(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2, "cancelled registrations are not listed")
	assert.Equal(t, r3.ID, got[0].Registration.ID)
	assert.Equal(t, third.ID, got[0].Event.ID)
	assert.Equal(t, r2.ID, got[1].Registration.ID)
	assert.Equal(t, newer.ID, got[1].Event.ID)
	for _, item := range got {
		assert.NotEqual(t, r1.ID, item.Registration.ID)
		assert.Equal(t, domain.RegistrationConfirmed, item.Registration.Status)
	}

	empty, err := f.svc.ListMyRegistrations(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestRegistrationService_ListMyRegistrations_EventLookupFaultIsTransient(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 5)
	_, err := f.svc.Register(context.Background(), "u1", ev.ID, "")
	require.NoError(t, err)

	f.deps.Events = failingEvents{err: errors.New("connection refused")}
	svc := NewRegistrationService(discardLogger(), f.deps)

	_, err = svc.ListMyRegistrations(context.Background(), "u1")
	require.ErrorIs(t, err, domain.ErrTransientStorage)
}
