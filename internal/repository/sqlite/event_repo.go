package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"schoolevents/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{DB: db}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	query := `
		INSERT INTO events (id, title, description, category, location, starts_at, capacity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := conn(ctx, r.DB).ExecContext(ctx, query,
		e.ID, e.Title, e.Description, e.Category, e.Location, e.StartsAt.UTC(), e.Capacity, e.CreatedAt.UTC(), e.UpdatedAt.UTC(),
	)
	return err
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT id, title, description, category, location, starts_at, capacity, confirmed_count, created_at, updated_at
		FROM events
		WHERE id = ?
	`
	e := &domain.Event{}
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Title, &e.Description, &e.Category, &e.Location, &e.StartsAt,
		&e.Capacity, &e.ConfirmedCount, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}
