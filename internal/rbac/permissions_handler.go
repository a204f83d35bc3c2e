package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/duriyam/operate/internal/platform/httpx"
)

// RolePermissionSource lists what the backend has stored for a role.
type RolePermissionSource interface {
	GetRolePermissions(ctx context.Context, role Role) ([]RemoteEntry, error)
}

// PermissionsHandler serves the permission catalog.
type PermissionsHandler struct {
	logger  *slog.Logger
	catalog *Catalog
	remote  RolePermissionSource
	rbac    Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance. remote may be nil.
func NewPermissionsHandler(logger *slog.Logger, catalog *Catalog, remote RolePermissionSource, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, catalog: catalog, remote: remote, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(Admin))
		r.Get("/", h.listCatalog)
		r.Get("/{role}", h.listRole)
	})
}

type catalogResponse struct {
	Actions []Action `json:"actions"`
	Modules []Module `json:"modules"`
	Keys    []string `json:"keys"`
}

type roleResponse struct {
	Role    Role          `json:"role"`
	Label   string        `json:"label"`
	Entries []Entry       `json:"entries"`
	Remote  []RemoteEntry `json:"remote,omitempty"`
}

func (h *PermissionsHandler) listCatalog(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, catalogResponse{
		Actions: Actions(),
		Modules: h.catalog.Modules(),
		Keys:    h.catalog.Keys(),
	})
}

func (h *PermissionsHandler) listRole(w http.ResponseWriter, r *http.Request) {
	role, err := ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	resp := roleResponse{Role: role, Label: role.Label(), Entries: h.catalog.ListEntries(role)}
	if resp.Entries == nil {
		resp.Entries = []Entry{}
	}
	if h.remote != nil {
		remote, err := h.remote.GetRolePermissions(r.Context(), role)
		if err != nil {
			h.logger.Warn("remote role permissions", slog.String("role", role.String()), slog.Any("error", err))
		} else {
			resp.Remote = remote
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}
