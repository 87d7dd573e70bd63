package postgres

import (
	"context"
	"database/sql"
	"errors"

	"schoolevents/internal/domain"
)

type capacityStore struct {
	DB *sql.DB
}

// NewCapacityStore returns a CapacityStore backed by events.confirmed_count.
//
// TryReserve is a single conditional UPDATE. PostgreSQL takes the row lock, and a
// concurrent writer re-evaluates the WHERE clause against the committed row, so two
// callers can never both pass the capacity check on the same last spot.
func NewCapacityStore(db *sql.DB) domain.CapacityStore {
	return &capacityStore{DB: db}
}

func (s *capacityStore) TryReserve(ctx context.Context, eventID string) error {
	query := `
		UPDATE events
		SET confirmed_count = confirmed_count + 1, updated_at = NOW()
		WHERE id = $1 AND (capacity = 0 OR confirmed_count < capacity)
		RETURNING confirmed_count
	`
	q := conn(ctx, s.DB)
	var count int
	err := q.QueryRowContext(ctx, query, eventID).Scan(&count)
	if err == nil {
		return nil
	}
	if isInvalidID(err) {
		return domain.ErrNotFound
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	// No row updated: either the event is full or it does not exist.
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrCapacityExceeded
}

func (s *capacityStore) Release(ctx context.Context, eventID string) error {
	query := `
		UPDATE events
		SET confirmed_count = GREATEST(confirmed_count - 1, 0), updated_at = NOW()
		WHERE id = $1
	`
	result, err := conn(ctx, s.DB).ExecContext(ctx, query, eventID)
	if err != nil {
		if isInvalidID(err) {
			return domain.ErrNotFound
		}
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
