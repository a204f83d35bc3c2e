package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/duriyam/operate/internal/platform/httpx"
	"github.com/duriyam/operate/internal/rbac"
	"github.com/duriyam/operate/internal/shared"
)

// RoleLister resolves the roles shown alongside the current user.
type RoleLister interface {
	Roles(ctx context.Context, userID string) rbac.RoleSet
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	roles          RoleLister
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, roles RoleLister, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		roles:          roles,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/csrf", h.csrfToken)
	r.Get("/me", h.me)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type meResponse struct {
	User      *User       `json:"user"`
	Roles     []rbac.Role `json:"roles"`
	IsAdmin   bool        `json:"is_admin"`
	CSRFToken string      `json:"csrf_token,omitempty"`
}

func (h *Handler) csrfToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrfManager.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
	if err != nil {
		h.logger.Error("csrf token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.CurrentUser(r.Context())
	if err != nil {
		if !errors.Is(err, shared.ErrUnauthenticated) {
			h.logger.Error("current user", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.userResponse(r, user))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.RespondError(w, errors.New("session missing"))
		return
	}
	user, err := h.service.SignIn(r.Context(), sess, req.Email, req.Password)
	if err != nil {
		h.logger.Warn("sign in failed", slog.String("email", req.Email), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.sessionManager.Renew(sess)
	token, err := h.csrfManager.Rotate(r.Context(), sess)
	if err != nil {
		h.logger.Error("rotate csrf token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("signed in", slog.String("user_id", user.ID))
	resp := h.userResponse(r, user)
	resp.CSRFToken = token
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) userResponse(r *http.Request, user *User) meResponse {
	resp := meResponse{User: user, Roles: []rbac.Role{}}
	if h.roles != nil {
		set := h.roles.Roles(r.Context(), user.ID)
		resp.Roles = set.Sorted()
		resp.IsAdmin = set.Has(rbac.Admin)
	}
	return resp
}
