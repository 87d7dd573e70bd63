// Package memory is a process-local storage backend. State does not survive restarts;
// it backs STORAGE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"schoolevents/internal/domain"
)

type pairKey struct {
	userID  string
	eventID string
}

// eventSlot guards one event's occupancy. Its mutex is the per-event critical section.
type eventSlot struct {
	mu    sync.Mutex
	event domain.Event
}

// Store holds events, users and registrations. Use the accessor methods to obtain the
// domain ports backed by it.
type Store struct {
	mu     sync.RWMutex
	events map[string]*eventSlot
	users  map[string]*domain.User

	regMu  sync.Mutex
	regs   map[string]*domain.Registration
	byPair map[pairKey]string
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		events: make(map[string]*eventSlot),
		users:  make(map[string]*domain.User),
		regs:   make(map[string]*domain.Registration),
		byPair: make(map[pairKey]string),
	}
}

func (s *Store) Events() domain.EventRepository { return eventRepository{s} }
func (s *Store) Capacity() domain.CapacityStore { return capacityStore{s} }
func (s *Store) Ledger() domain.RegistrationLedger { return registrationLedger{s} }
func (s *Store) Users() *UserDirectory { return &UserDirectory{s} }
func (s *Store) Transactor() domain.Transactor { return transactor{} }

func (s *Store) slot(eventID string) (*eventSlot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.events[eventID]
	return sl, ok
}

type eventRepository struct{ s *Store }

func (r eventRepository) Create(ctx context.Context, event *domain.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
		event.UpdatedAt = event.CreatedAt
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.events[event.ID] = &eventSlot{event: *event}
	return nil
}

func (r eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	sl, ok := r.s.slot(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	sl.mu.Lock()
	ev := sl.event
	sl.mu.Unlock()
	return &ev, nil
}

type capacityStore struct{ s *Store }

func (c capacityStore) TryReserve(ctx context.Context, eventID string) error {
	sl, ok := c.s.slot(eventID)
	if !ok {
		return domain.ErrNotFound
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if !sl.event.Unlimited() && sl.event.ConfirmedCount >= sl.event.Capacity {
		return domain.ErrCapacityExceeded
	}
	sl.event.ConfirmedCount++
	record(ctx, func() {
		sl.mu.Lock()
		defer sl.mu.Unlock()
		if sl.event.ConfirmedCount > 0 {
			sl.event.ConfirmedCount--
		}
	})
	return nil
}

func (c capacityStore) Release(ctx context.Context, eventID string) error {
	sl, ok := c.s.slot(eventID)
	if !ok {
		return domain.ErrNotFound
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.event.ConfirmedCount > 0 {
		sl.event.ConfirmedCount--
		record(ctx, func() {
			sl.mu.Lock()
			defer sl.mu.Unlock()
			sl.event.ConfirmedCount++
		})
	}
	return nil
}

type registrationLedger struct{ s *Store }

func (l registrationLedger) Find(ctx context.Context, userID, eventID string) (*domain.Registration, error) {
	l.s.regMu.Lock()
	defer l.s.regMu.Unlock()
	id, ok := l.s.byPair[pairKey{userID, eventID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	reg := *l.s.regs[id]
	return &reg, nil
}

func (l registrationLedger) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	l.s.regMu.Lock()
	defer l.s.regMu.Unlock()
	reg, ok := l.s.regs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *reg
	return &cp, nil
}

func (l registrationLedger) Upsert(ctx context.Context, reg *domain.Registration) error {
	if !reg.Status.Valid() {
		return domain.ErrInvalidInput
	}
	l.s.regMu.Lock()
	defer l.s.regMu.Unlock()
	key := pairKey{reg.UserID, reg.EventID}
	if id, ok := l.s.byPair[key]; ok {
		existing := l.s.regs[id]
		if existing.Status == reg.Status {
			return domain.ErrRegistrationConflict
		}
		prev := *existing
		record(ctx, func() {
			l.s.regMu.Lock()
			defer l.s.regMu.Unlock()
			*existing = prev
		})
		existing.Status = reg.Status
		existing.Comment = reg.Comment
		existing.UpdatedAt = reg.UpdatedAt
		reg.ID = existing.ID
		reg.CreatedAt = existing.CreatedAt
		return nil
	}
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	stored := *reg
	l.s.regs[stored.ID] = &stored
	l.s.byPair[key] = stored.ID
	record(ctx, func() {
		l.s.regMu.Lock()
		defer l.s.regMu.Unlock()
		delete(l.s.regs, stored.ID)
		if l.s.byPair[key] == stored.ID {
			delete(l.s.byPair, key)
		}
	})
	return nil
}

func (l registrationLedger) ListByUserID(ctx context.Context, userID string) ([]*domain.Registration, error) {
	l.s.regMu.Lock()
	defer l.s.regMu.Unlock()
	regs := []*domain.Registration{}
	for _, reg := range l.s.regs {
		if reg.UserID == userID {
			cp := *reg
			regs = append(regs, &cp)
		}
	}
	sortNewestFirst(regs)
	return regs, nil
}

// UserDirectory is the in-memory domain.UserRepository. Put seeds users.
type UserDirectory struct{ s *Store }

func (u *UserDirectory) Upsert(ctx context.Context, user *domain.User) error {
	u.Put(user)
	return nil
}

func (u *UserDirectory) Put(user *domain.User) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	cp := *user
	u.s.users[user.ID] = &cp
}

func (u *UserDirectory) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

type journalKey struct{}

// journal collects undo steps for the writes made inside one transaction.
type journal struct {
	mu   sync.Mutex
	undo []func()
}

// record registers undo with the transaction bound to ctx, if any.
func record(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.mu.Lock()
		j.undo = append(j.undo, undo)
		j.mu.Unlock()
	}
}

func (j *journal) rollback() {
	j.mu.Lock()
	steps := j.undo
	j.undo = nil
	j.mu.Unlock()
	for i := len(steps) - 1; i >= 0; i-- {
		steps[i]()
	}
}

// transactor undoes every write made through the callback context when fn fails.
// Writes are visible to other callers before fn returns; there is no isolation.
type transactor struct{}

func (transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}
	j := &journal{}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		j.rollback()
		return err
	}
	return nil
}

func sortNewestFirst(regs []*domain.Registration) {
	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].CreatedAt.Equal(regs[j].CreatedAt) {
			return regs[i].ID > regs[j].ID
		}
		return regs[i].CreatedAt.After(regs[j].CreatedAt)
	})
}
