package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"schoolevents/internal/domain"
)

const registrationColumns = `id, user_id, event_id, status, comment, created_at, updated_at`

type registrationLedger struct {
	DB *sql.DB
}

func NewRegistrationLedger(db *sql.DB) domain.RegistrationLedger {
	return &registrationLedger{DB: db}
}

func (r *registrationLedger) Upsert(ctx context.Context, reg *domain.Registration) error {
	if !reg.Status.Valid() {
		return domain.ErrInvalidInput
	}
	query := `
		INSERT INTO registrations (id, user_id, event_id, status, comment, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, event_id) DO UPDATE
		SET status = excluded.status, comment = excluded.comment, updated_at = excluded.updated_at
		WHERE registrations.status <> excluded.status
		RETURNING id
	`
	// Both statements run in one transaction, joining the caller's when bound.
	return NewTransactor(r.DB).WithinTransaction(ctx, func(ctx context.Context) error {
		q := conn(ctx, r.DB)
		err := q.QueryRowContext(ctx, query,
			uuid.NewString(), reg.UserID, reg.EventID, string(reg.Status), reg.Comment, reg.CreatedAt.UTC(), reg.UpdatedAt.UTC(),
		).Scan(&reg.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrRegistrationConflict
			}
			return err
		}
		// RETURNING columns carry no declared type, so created_at is read back with a plain SELECT.
		return q.QueryRowContext(ctx, `SELECT created_at FROM registrations WHERE id = ?`, reg.ID).Scan(&reg.CreatedAt)
	})
}

func (r *registrationLedger) Find(ctx context.Context, userID, eventID string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE user_id = ? AND event_id = ?`
	return scanRegistration(conn(ctx, r.DB).QueryRowContext(ctx, query, userID, eventID))
}

func (r *registrationLedger) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = ?`
	return scanRegistration(conn(ctx, r.DB).QueryRowContext(ctx, query, id))
}

func (r *registrationLedger) ListByUserID(ctx context.Context, userID string) ([]*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := []*domain.Registration{}
	for rows.Next() {
		reg := &domain.Registration{}
		var status string
		if err := rows.Scan(&reg.ID, &reg.UserID, &reg.EventID, &status, &reg.Comment, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return nil, err
		}
		reg.Status = domain.RegistrationStatus(status)
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func scanRegistration(row *sql.Row) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var status string
	if err := row.Scan(&reg.ID, &reg.UserID, &reg.EventID, &status, &reg.Comment, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	reg.Status = domain.RegistrationStatus(status)
	return reg, nil
}
