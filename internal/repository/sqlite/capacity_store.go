package sqlite

import (
	"context"
	"database/sql"
	"time"

	"schoolevents/internal/domain"
)

type capacityStore struct {
	DB *sql.DB
}

func NewCapacityStore(db *sql.DB) domain.CapacityStore {
	return &capacityStore{DB: db}
}

func (s *capacityStore) TryReserve(ctx context.Context, eventID string) error {
	q := conn(ctx, s.DB)
	result, err := q.ExecContext(ctx, `
		UPDATE events
		SET confirmed_count = confirmed_count + 1, updated_at = ?
		WHERE id = ? AND (capacity = 0 OR confirmed_count < capacity)
	`, time.Now().UTC(), eventID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}

	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = ?)`, eventID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrCapacityExceeded
}

func (s *capacityStore) Release(ctx context.Context, eventID string) error {
	result, err := conn(ctx, s.DB).ExecContext(ctx, `
		UPDATE events
		SET confirmed_count = MAX(confirmed_count - 1, 0), updated_at = ?
		WHERE id = ?
	`, time.Now().UTC(), eventID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
