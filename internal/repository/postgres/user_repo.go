package postgres

import (
	"context"
	"database/sql"
	"errors"

	"schoolevents/internal/domain"
)

type userDirectory struct {
	DB *sql.DB
}

func NewUserDirectory(db *sql.DB) domain.UserRepository {
	return &userDirectory{DB: db}
}

func (r *userDirectory) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, email, name
		FROM users
		WHERE id = $1
	`
	u := &domain.User{}
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *userDirectory) Upsert(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name
	`
	_, err := conn(ctx, r.DB).ExecContext(ctx, query, u.ID, u.Email, u.Name)
	return err
}
