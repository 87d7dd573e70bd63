package postgres

import (
	"context"
	"database/sql"
	"errors"

	"schoolevents/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, description, category, location, starts_at, capacity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	return conn(ctx, r.DB).QueryRowContext(ctx, query,
		e.Title, e.Description, e.Category, e.Location, e.StartsAt, e.Capacity, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT id, title, description, category, location, starts_at, capacity, confirmed_count, created_at, updated_at
		FROM events
		WHERE id = $1
	`
	e := &domain.Event{}
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Title, &e.Description, &e.Category, &e.Location, &e.StartsAt,
		&e.Capacity, &e.ConfirmedCount, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}
