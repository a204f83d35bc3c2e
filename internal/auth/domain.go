package auth

import (
	"context"
	"time"
)

// User represents an authenticated user account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the result of a successful sign-in.
type Identity struct {
	User        User
	AccessToken string
}

// IdentityProvider authenticates credentials and looks users up.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
	GetUser(ctx context.Context, userID string) (*User, error)
}
