package domain

import "context"

// User is the registered participant as seen by this service. Accounts are managed elsewhere.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UserDirectory resolves contact details for notifications.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*User, error)
}

// UserRepository adds writes for seeding the local copy of the account directory.
type UserRepository interface {
	UserDirectory
	Upsert(ctx context.Context, user *User) error
}

// TokenVerifier verifies a token and returns the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}
