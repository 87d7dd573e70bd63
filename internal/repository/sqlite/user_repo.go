package sqlite

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
	u := &domain.User{}
	err := conn(ctx, r.DB).QueryRowContext(ctx, `SELECT id, email, name FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *userDirectory) Upsert(ctx context.Context, u *domain.User) error {
	_, err := conn(ctx, r.DB).ExecContext(ctx,
		`INSERT INTO users (id, email, name) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET email = excluded.email, name = excluded.name`,
		u.ID, u.Email, u.Name)
	return err
}
