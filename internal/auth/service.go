package auth

import (
	"context"
	"errors"

	"github.com/duriyam/operate/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	provider IdentityProvider
}

// NewService constructs a new Service.
func NewService(provider IdentityProvider) *Service {
	return &Service{provider: provider}
}

// SignIn validates credentials and binds the identity to the session.
func (s *Service) SignIn(ctx context.Context, sess *shared.Session, email, password string) (*User, error) {
	if sess == nil {
		return nil, errors.New("session missing")
	}
	identity, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) || errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !identity.User.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	sess.SetUser(identity.User.ID)
	if identity.AccessToken != "" {
		sess.Set(shared.AccessTokenSessionKey, identity.AccessToken)
	}
	return &identity.User, nil
}

// CurrentUser returns the user bound to the request session.
func (s *Service) CurrentUser(ctx context.Context) (*User, error) {
	userID, ok := shared.UserIDFromContext(ctx)
	if !ok {
		return nil, shared.ErrUnauthenticated
	}
	user, err := s.provider.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}
