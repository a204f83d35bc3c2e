package viewgate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/duriyam/operate/internal/platform/httpx"
	"github.com/duriyam/operate/internal/rbac"
	"github.com/duriyam/operate/internal/shared"
)

// AdminChecker answers the coarse admin question.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) bool
}

// PermissionChecker answers fine-grained permission questions.
type PermissionChecker interface {
	HasPermission(ctx context.Context, userID, permission string, resource *string) bool
}

// Loader gathers the gate state for a user.
type Loader struct {
	roles AdminChecker
	perms PermissionChecker
}

// NewLoader constructs a Loader.
func NewLoader(roles AdminChecker, perms PermissionChecker) *Loader {
	return &Loader{roles: roles, perms: perms}
}

// Load fetches both signals concurrently. The returned state is never loading.
func (l *Loader) Load(ctx context.Context, userID string) State {
	var s State
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.IsAdmin = l.roles.IsAdmin(gctx, userID)
		return nil
	})
	g.Go(func() error {
		s.CanViewInventory = l.perms.HasPermission(gctx, userID, rbac.PermViewInventory, rbac.Resource(rbac.ResourceInventory))
		return nil
	})
	_ = g.Wait()
	return s
}

// Handler serves navigation decisions.
type Handler struct {
	logger *slog.Logger
	loader *Loader
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, loader *Loader) *Handler {
	return &Handler{logger: logger, loader: loader}
}

// MountRoutes registers navigation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.navigation)
}

type navigationResponse struct {
	State    State    `json:"state"`
	Decision Decision `json:"decision"`
}

func (h *Handler) navigation(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	view := r.URL.Query().Get("view")
	if view == "" {
		view = DefaultView
	}
	gate := NewGate(view)
	state := h.loader.Load(r.Context(), userID)
	decision := gate.Apply(state)
	if decision.Redirect != "" {
		h.logger.Debug("view redirected", slog.String("user_id", userID), slog.String("view", view), slog.String("redirect", decision.Redirect))
	}
	httpx.JSON(w, http.StatusOK, navigationResponse{State: state, Decision: decision})
}
