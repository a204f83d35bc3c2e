package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/duriyam/operate/internal/shared"
)

// PGRepository implements IdentityProvider using PostgreSQL credentials.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id::text, email, password_hash, is_active, created_at`

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
}

// GetUser fetches a user by id.
func (r *PGRepository) GetUser(ctx context.Context, userID string) (*User, error) {
	return r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE id::text = $1`, userID)
}

// SignIn checks the bcrypt hash. Postgres sessions carry no bearer token.
func (r *PGRepository) SignIn(ctx context.Context, email, password string) (Identity, error) {
	user, err := r.FindByEmail(ctx, email)
	if err != nil {
		return Identity{}, lookupError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Identity{}, shared.ErrInvalidCredentials
	}
	return Identity{User: *user}, nil
}

// lookupError maps a failed user lookup during sign-in. Only a missing user
// reads as bad credentials; anything else is a backend failure.
func lookupError(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.ErrInvalidCredentials
	}
	return fmt.Errorf("%w: find user: %v", shared.ErrUpstream, err)
}

func (r *PGRepository) scanOne(ctx context.Context, query string, arg string) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

var _ IdentityProvider = (*PGRepository)(nil)
