package admin

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

// Handler exposes the admin panel over JSON.
type Handler struct {
	logger    *slog.Logger
	workflow  *Workflow
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, workflow *Workflow, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, workflow: workflow, rbac: mw, validator: validator.New()}
}

// MountRoutes registers admin routes. Every route requires the admin role.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(rbac.Admin))
		r.Get("/users", h.panel)
		r.Post("/roles", h.assignRole)
		r.Delete("/roles", h.removeRole)
	})
}

type roleRequest struct {
	UserID        string `json:"user_id" validate:"required"`
	Role          string `json:"role" validate:"required,oneof=admin creator verifier user"`
	Confirmations int    `json:"confirmations" validate:"gte=0,lte=2"`
}

// countedConfirmer accepts as many prompts as the operator confirmed in the
// request and records the first one left unanswered.
type countedConfirmer struct {
	given   int
	asked   int
	pending *Prompt
}

func (c *countedConfirmer) Confirm(ctx context.Context, p Prompt) (bool, error) {
	c.asked++
	if c.asked <= c.given {
		return true, nil
	}
	c.pending = &p
	return false, nil
}

func (h *Handler) panel(w http.ResponseWriter, r *http.Request) {
	panel, err := h.workflow.Panel(r.Context())
	if err != nil {
		h.logger.Error("admin panel", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, panel)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.workflow.AssignRole)
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.workflow.RemoveRole)
}

type mutation func(ctx context.Context, actorID, userID string, role rbac.Role, confirm Confirmer) (Panel, error)

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, fn mutation) {
	actorID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}

	confirm := &countedConfirmer{given: req.Confirmations}
	panel, err := fn(r.Context(), actorID, req.UserID, role, confirm)
	if err != nil {
		var cancelled *CancelledError
		if errors.As(err, &cancelled) {
			httpx.ProblemWith(w, http.StatusConflict, "Confirmation Required", cancelled.Prompt.Message, map[string]any{
				"prompt": cancelled.Prompt,
			})
			return
		}
		h.logger.Error("admin role mutation", slog.String("user_id", req.UserID), slog.String("role", req.Role), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, panel)
}
