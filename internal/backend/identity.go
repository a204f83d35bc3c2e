package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/duriyam/operate/internal/auth"
	"github.com/duriyam/operate/internal/shared"
)

var _ auth.IdentityProvider = (*Client)(nil)

type remoteUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	BannedAt  *string   `json:"banned_until"`
}

func (u remoteUser) toUser() auth.User {
	return auth.User{ID: u.ID, Email: u.Email, IsActive: u.BannedAt == nil, CreatedAt: u.CreatedAt}
}

type tokenResponse struct {
	AccessToken string     `json:"access_token"`
	User        remoteUser `json:"user"`
}

// SignIn exchanges email and password for an access token.
func (c *Client) SignIn(ctx context.Context, email, password string) (auth.Identity, error) {
	var resp tokenResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", body, &resp, nil); err != nil {
		var be *Error
		if errors.As(err, &be) && be.Status < http.StatusInternalServerError {
			return auth.Identity{}, fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
		}
		return auth.Identity{}, err
	}
	return auth.Identity{User: resp.User.toUser(), AccessToken: resp.AccessToken}, nil
}

// GetUser returns the user behind the session token. The id must match.
func (c *Client) GetUser(ctx context.Context, userID string) (*auth.User, error) {
	if shared.AccessTokenFromContext(ctx) == "" {
		return nil, shared.ErrUnauthenticated
	}
	var u remoteUser
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, &u, nil); err != nil {
		return nil, err
	}
	if u.ID != userID {
		return nil, shared.ErrUnauthenticated
	}
	user := u.toUser()
	return &user, nil
}
