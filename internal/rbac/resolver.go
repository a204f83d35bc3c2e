package rbac

import (
	"context"
	"log/slog"
)

// Check outcomes reported to a CheckObserver.
const (
	OutcomeGranted = "granted"
	OutcomeDenied  = "denied"
	OutcomeError   = "error"
)

// CheckObserver receives one call per role or permission lookup.
type CheckObserver interface {
	ObserveCheck(kind, outcome string)
}

// RoleReader is the subset of the backend the resolver needs.
type RoleReader interface {
	ResolveRoles(ctx context.Context, userID string) ([]Role, error)
	GetUserRole(ctx context.Context, userID string) (Role, error)
	HasRole(ctx context.Context, userID string, role Role) (bool, error)
}

// Resolver answers which roles a user holds. Lookup failures never surface to
// callers: they resolve to StandardUser or false and are logged.
type Resolver struct {
	reader   RoleReader
	logger   *slog.Logger
	observer CheckObserver
}

// NewResolver constructs a Resolver.
func NewResolver(reader RoleReader, logger *slog.Logger, observer CheckObserver) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{reader: reader, logger: logger, observer: observer}
}

// Roles returns the explicit role set of the user, empty on error.
func (r *Resolver) Roles(ctx context.Context, userID string) RoleSet {
	if userID == "" {
		return RoleSet{}
	}
	roles, err := r.reader.ResolveRoles(ctx, userID)
	if err != nil {
		r.logger.Error("rbac resolve roles", slog.String("user_id", userID), slog.Any("error", err))
		r.observe("roles", OutcomeError)
		return RoleSet{}
	}
	set := NewRoleSet(roles...)
	if len(set) == 0 {
		r.observe("roles", OutcomeDenied)
	} else {
		r.observe("roles", OutcomeGranted)
	}
	return set
}

// GetUserRole returns the backend's primary role for the user (alphabetically
// first), or StandardUser when the user has none or the lookup fails. Gating
// decisions use Roles instead.
func (r *Resolver) GetUserRole(ctx context.Context, userID string) Role {
	if userID == "" {
		return StandardUser
	}
	role, err := r.reader.GetUserRole(ctx, userID)
	if err != nil {
		r.logger.Error("rbac get user role", slog.String("user_id", userID), slog.Any("error", err))
		r.observe("primary_role", OutcomeError)
		return StandardUser
	}
	if role == StandardUser {
		r.observe("primary_role", OutcomeDenied)
	} else {
		r.observe("primary_role", OutcomeGranted)
	}
	return role
}

// HasRole reports whether the user explicitly holds role. Errors resolve to false.
func (r *Resolver) HasRole(ctx context.Context, userID string, role Role) bool {
	if userID == "" {
		return false
	}
	ok, err := r.reader.HasRole(ctx, userID, role)
	if err != nil {
		r.logger.Error("rbac has role", slog.String("user_id", userID), slog.String("role", role.String()), slog.Any("error", err))
		r.observe("role", OutcomeError)
		return false
	}
	if ok {
		r.observe("role", OutcomeGranted)
	} else {
		r.observe("role", OutcomeDenied)
	}
	return ok
}

// IsAdmin reports whether the user holds the admin role.
func (r *Resolver) IsAdmin(ctx context.Context, userID string) bool {
	return r.HasRole(ctx, userID, Admin)
}

// IsCreator reports whether the user holds the creator role.
func (r *Resolver) IsCreator(ctx context.Context, userID string) bool {
	return r.HasRole(ctx, userID, Creator)
}

// IsVerifier reports whether the user holds the verifier role.
func (r *Resolver) IsVerifier(ctx context.Context, userID string) bool {
	return r.HasRole(ctx, userID, Verifier)
}

func (r *Resolver) observe(kind, outcome string) {
	if r.observer != nil {
		r.observer.ObserveCheck(kind, outcome)
	}
}
