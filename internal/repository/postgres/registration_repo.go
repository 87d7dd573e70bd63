package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"schoolevents/internal/domain"
)

const registrationColumns = `id, user_id, event_id, status, comment, created_at, updated_at`

type registrationLedger struct {
	DB *sql.DB
}

func NewRegistrationLedger(db *sql.DB) domain.RegistrationLedger {
	return &registrationLedger{
		DB: db,
	}
}

// Upsert relies on the (user_id, event_id) unique constraint. The DO UPDATE branch only
// fires when the status actually changes, so a second confirmed write (or a second
// cancellation) for the same pair returns no row and maps to ErrRegistrationConflict.
func (r *registrationLedger) Upsert(ctx context.Context, reg *domain.Registration) error {
	if !reg.Status.Valid() {
		return domain.ErrInvalidInput
	}
	query := `
		INSERT INTO registrations (user_id, event_id, status, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, event_id) DO UPDATE
		SET status = EXCLUDED.status, comment = EXCLUDED.comment, updated_at = EXCLUDED.updated_at
		WHERE registrations.status <> EXCLUDED.status
		RETURNING id, created_at
	`
	err := conn(ctx, r.DB).QueryRowContext(ctx, query,
		reg.UserID, reg.EventID, string(reg.Status), reg.Comment, reg.CreatedAt, reg.UpdatedAt,
	).Scan(&reg.ID, &reg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrRegistrationConflict
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505":
				return domain.ErrRegistrationConflict
			case "23503", "22P02":
				return domain.ErrNotFound
			}
		}
		return err
	}
	return nil
}

func (r *registrationLedger) Find(ctx context.Context, userID, eventID string) (*domain.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE user_id = $1 AND event_id = $2
	`
	return scanRegistration(conn(ctx, r.DB).QueryRowContext(ctx, query, userID, eventID))
}

func (r *registrationLedger) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE id = $1
	`
	return scanRegistration(conn(ctx, r.DB).QueryRowContext(ctx, query, id))
}

func (r *registrationLedger) ListByUserID(ctx context.Context, userID string) ([]*domain.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return regs, nil
}

func scanRegistration(row *sql.Row) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var status string
	err := row.Scan(&reg.ID, &reg.UserID, &reg.EventID, &status, &reg.Comment, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	reg.Status = domain.RegistrationStatus(status)
	return reg, nil
}
