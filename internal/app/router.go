package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/duriyam/operate/internal/admin"
	"github.com/duriyam/operate/internal/auth"
	"github.com/duriyam/operate/internal/branches"
	"github.com/duriyam/operate/internal/observability"
	"github.com/duriyam/operate/internal/platform/httpx"
	"github.com/duriyam/operate/internal/rbac"
	"github.com/duriyam/operate/internal/shared"
	"github.com/duriyam/operate/internal/viewgate"
	"github.com/duriyam/operate/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware

	AuthHandler        *auth.Handler
	AdminHandler       *admin.Handler
	NavigationHandler  *viewgate.Handler
	BranchesHandler    *branches.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with the full middleware stack.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", healthz)
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}

		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/api", func(r chi.Router) {
			if params.AdminHandler != nil {
				r.Route("/admin", params.AdminHandler.MountRoutes)
			}
			if params.NavigationHandler != nil {
				r.Route("/navigation", params.NavigationHandler.MountRoutes)
			}
			if params.BranchesHandler != nil {
				r.Route("/branches", params.BranchesHandler.MountRoutes)
			}
			if params.PermissionsHandler != nil {
				r.Route("/permissions/catalog", params.PermissionsHandler.MountRoutes)
			}
			if params.JobHandler != nil {
				r.Route("/jobs", func(r chi.Router) {
					r.Use(params.RBACMiddleware.RequireRole(rbac.Admin))
					params.JobHandler.MountRoutes(r)
				})
			}
		})
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			httpx.RespondError(w, shared.ErrNotFound)
		})
	})

	return r
}

// NewPlaceholderRouter serves the configuration error on every route except
// /healthz. No backend call is attempted.
func NewPlaceholderRouter(logger *slog.Logger, cause error) http.Handler {
	if cause == nil {
		cause = shared.ErrConfiguration
	}
	r := chi.NewRouter()
	r.Use(Recoverer(logger))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "unconfigured"})
	})
	unconfigured := func(w http.ResponseWriter, r *http.Request) {
		httpx.ProblemWith(w, http.StatusServiceUnavailable, "Configuration Error",
			shared.UserSafeMessage(shared.ErrConfiguration),
			map[string]any{"cause": cause.Error()})
	}
	r.NotFound(unconfigured)
	r.MethodNotAllowed(unconfigured)
	return r
}

func healthz(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
