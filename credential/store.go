package credential

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrConflict is returned by Register when the e-mail is already taken.
	ErrConflict = errors.New("user already exists")
	// ErrUnauthorized is returned by Authenticate for an unknown e-mail or a
	// wrong password. Both causes return this same value.
	ErrUnauthorized = errors.New("invalid credentials")
	// ErrNotFound is returned by lookups for a missing user.
	ErrNotFound = errors.New("user not found")
)

// User is the public view of an account.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// Store creates, authenticates and resolves users.
type Store interface {
	Register(ctx context.Context, email, password string) (User, error)
	Authenticate(ctx context.Context, email, password string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
}
