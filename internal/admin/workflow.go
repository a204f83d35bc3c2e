// Package admin implements role administration: assigning and removing roles
// with confirmation friction proportional to the privilege being granted.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/duriyam/operate/internal/rbac"
)

// AdminWarning is shown on every confirmation step that grants admin.
const AdminWarning = "Admins can assign and remove every role, including admin. Only grant it to people who run the whole organisation."

// ErrCancelled is returned when the operator declines a confirmation step.
var ErrCancelled = errors.New("admin: cancelled by operator")

// Operation names the mutation being confirmed.
type Operation string

const (
	OperationAssign Operation = "assign"
	OperationRemove Operation = "remove"
)

// ConfirmationPolicy maps each role to the number of confirmations its
// assignment requires.
type ConfirmationPolicy map[rbac.Role]int

// DefaultPolicy requires two confirmations for admin and one for the rest.
var DefaultPolicy = ConfirmationPolicy{
	rbac.Admin:        2,
	rbac.Creator:      1,
	rbac.Verifier:     1,
	rbac.StandardUser: 1,
}

// Required returns the confirmations needed to assign role; never less than one.
func (p ConfirmationPolicy) Required(role rbac.Role) int {
	if n, ok := p[role]; ok && n > 0 {
		return n
	}
	return 1
}

// Prompt is one confirmation question put to the operator.
type Prompt struct {
	Operation  Operation `json:"operation"`
	UserID     string    `json:"user_id"`
	Role       rbac.Role `json:"role"`
	Step       int       `json:"step"`
	Of         int       `json:"of"`
	AdminCount int       `json:"admin_count"`
	Warning    string    `json:"warning,omitempty"`
	Message    string    `json:"message"`
}

// Confirmer asks the operator to confirm a step.
type Confirmer interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, p Prompt) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmerFunc) Confirm(ctx context.Context, p Prompt) (bool, error) {
	return f(ctx, p)
}

// CancelledError carries the prompt the operator declined.
type CancelledError struct {
	Prompt Prompt
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("%s (step %d of %d)", ErrCancelled, e.Prompt.Step, e.Prompt.Of)
}

// Is reports ErrCancelled.
func (e *CancelledError) Is(target error) bool {
	return target == ErrCancelled
}

// RoleStore is the slice of the backend the workflow mutates and lists.
type RoleStore interface {
	GetAllRoles(ctx context.Context) ([]rbac.RemoteEntry, error)
	GetAllUsersWithRoles(ctx context.Context) ([]rbac.AssignmentRow, error)
	AssignRole(ctx context.Context, userID string, role rbac.Role, assignedBy string) (rbac.AssignmentRow, error)
	RemoveRole(ctx context.Context, userID string, role rbac.Role) error
}

// Invalidator drops cached permission answers.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// RoleChange describes a completed mutation.
type RoleChange struct {
	Operation Operation `json:"operation"`
	ActorID   string    `json:"actor_id"`
	UserID    string    `json:"user_id"`
	Role      rbac.Role `json:"role"`
	At        time.Time `json:"at"`
}

// Notifier is told about completed mutations.
type Notifier interface {
	RoleChanged(ctx context.Context, change RoleChange) error
}

// RoleOption is one role control in a user's row.
type RoleOption struct {
	Role          rbac.Role `json:"role"`
	Label         string    `json:"label"`
	Held          bool      `json:"held"`
	Disabled      bool      `json:"disabled"`
	Confirmations int       `json:"confirmations"`
}

// UserRow is one user in the admin panel.
type UserRow struct {
	rbac.UserRoleSet
	Options []RoleOption `json:"options"`
}

// RefreshWarning is reported when a mutation succeeded but the panel could not
// be reloaded afterwards.
const RefreshWarning = "The role change was saved, but the user list could not be refreshed. Reload to see it."

// Panel is the admin panel view-model. After a mutation Applied names the
// change; Warning is set when Users is stale because the refresh failed.
type Panel struct {
	Users      []UserRow     `json:"users"`
	AdminCount int           `json:"admin_count"`
	Catalog    []rbac.Module `json:"catalog"`
	Drift      rbac.Drift    `json:"drift"`
	Applied    *RoleChange   `json:"applied,omitempty"`
	Warning    string        `json:"warning,omitempty"`
}

// Workflow coordinates role mutations for admins.
type Workflow struct {
	store       RoleStore
	catalog     *rbac.Catalog
	policy      ConfirmationPolicy
	invalidator Invalidator
	notifier    Notifier
	logger      *slog.Logger
	now         func() time.Time
}

// Options tunes optional collaborators of a Workflow.
type Options struct {
	Policy      ConfirmationPolicy
	Invalidator Invalidator
	Notifier    Notifier
	Logger      *slog.Logger
}

// NewWorkflow constructs a Workflow.
func NewWorkflow(store RoleStore, catalog *rbac.Catalog, opts Options) *Workflow {
	if opts.Policy == nil {
		opts.Policy = DefaultPolicy
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if catalog == nil {
		catalog = rbac.DefaultCatalog
	}
	return &Workflow{
		store:       store,
		catalog:     catalog,
		policy:      opts.Policy,
		invalidator: opts.Invalidator,
		notifier:    opts.Notifier,
		logger:      opts.Logger,
		now:         time.Now,
	}
}

// Policy returns the confirmation policy in force.
func (w *Workflow) Policy() ConfirmationPolicy {
	return w.policy
}

// Panel fetches users, their roles and the stored catalog.
func (w *Workflow) Panel(ctx context.Context) (Panel, error) {
	var (
		rows   []rbac.AssignmentRow
		remote []rbac.RemoteEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = w.store.GetAllUsersWithRoles(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		remote, err = w.store.GetAllRoles(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Panel{}, fmt.Errorf("admin: load panel: %w", err)
	}

	sets := rbac.GroupAssignments(rows)
	panel := Panel{
		Users:      make([]UserRow, 0, len(sets)),
		AdminCount: rbac.CountHolders(sets, rbac.Admin),
		Catalog:    w.catalog.Modules(),
		Drift:      rbac.CompareRemote(w.catalog, remote),
	}
	for _, set := range sets {
		panel.Users = append(panel.Users, UserRow{UserRoleSet: set, Options: w.options(set)})
	}
	return panel, nil
}

// AssignRole asks for the confirmations the policy requires, then upserts the
// assignment and returns the refreshed panel. Once the remote call succeeds
// no error is returned; a failed refresh is reported through Panel.Warning.
func (w *Workflow) AssignRole(ctx context.Context, actorID, userID string, role rbac.Role, confirm Confirmer) (Panel, error) {
	if userID == "" {
		return Panel{}, errors.New("admin: user id required")
	}
	current, err := w.Panel(ctx)
	if err != nil {
		return Panel{}, err
	}
	if err := w.confirm(ctx, confirm, OperationAssign, userID, role, w.policy.Required(role), current.AdminCount); err != nil {
		return Panel{}, err
	}
	if _, err := w.store.AssignRole(ctx, userID, role, actorID); err != nil {
		w.logger.Error("admin assign role", slog.String("user_id", userID), slog.String("role", role.String()), slog.Any("error", err))
		return Panel{}, fmt.Errorf("admin: assign %s: %w", role, err)
	}
	return w.afterMutation(ctx, RoleChange{Operation: OperationAssign, ActorID: actorID, UserID: userID, Role: role})
}

// RemoveRole asks for one confirmation, then deletes the assignment and
// returns the refreshed panel.
func (w *Workflow) RemoveRole(ctx context.Context, actorID, userID string, role rbac.Role, confirm Confirmer) (Panel, error) {
	if userID == "" {
		return Panel{}, errors.New("admin: user id required")
	}
	current, err := w.Panel(ctx)
	if err != nil {
		return Panel{}, err
	}
	if err := w.confirm(ctx, confirm, OperationRemove, userID, role, 1, current.AdminCount); err != nil {
		return Panel{}, err
	}
	if err := w.store.RemoveRole(ctx, userID, role); err != nil {
		w.logger.Error("admin remove role", slog.String("user_id", userID), slog.String("role", role.String()), slog.Any("error", err))
		return Panel{}, fmt.Errorf("admin: remove %s: %w", role, err)
	}
	return w.afterMutation(ctx, RoleChange{Operation: OperationRemove, ActorID: actorID, UserID: userID, Role: role})
}

func (w *Workflow) confirm(ctx context.Context, confirm Confirmer, op Operation, userID string, role rbac.Role, required, adminCount int) error {
	if confirm == nil {
		return errors.New("admin: confirmer required")
	}
	for step := 1; step <= required; step++ {
		p := Prompt{
			Operation:  op,
			UserID:     userID,
			Role:       role,
			Step:       step,
			Of:         required,
			AdminCount: adminCount,
			Message:    promptMessage(op, role, step, required, adminCount),
		}
		if role == rbac.Admin {
			p.Warning = AdminWarning
		}
		ok, err := confirm.Confirm(ctx, p)
		if err != nil {
			return fmt.Errorf("admin: confirm: %w", err)
		}
		if !ok {
			return &CancelledError{Prompt: p}
		}
	}
	return nil
}

func (w *Workflow) afterMutation(ctx context.Context, change RoleChange) (Panel, error) {
	change.At = w.now().UTC()
	if w.invalidator != nil {
		if err := w.invalidator.Invalidate(ctx); err != nil {
			w.logger.Warn("admin invalidate permission cache", slog.Any("error", err))
		}
	}
	if w.notifier != nil {
		if err := w.notifier.RoleChanged(ctx, change); err != nil {
			w.logger.Warn("admin notify role change", slog.String("operation", string(change.Operation)), slog.Any("error", err))
		}
	}
	w.logger.Info("admin role changed",
		slog.String("operation", string(change.Operation)),
		slog.String("actor_id", change.ActorID),
		slog.String("user_id", change.UserID),
		slog.String("role", change.Role.String()))

	panel, err := w.Panel(ctx)
	if err != nil {
		w.logger.Warn("admin refresh after role change", slog.Any("error", err))
		return Panel{Applied: &change, Warning: RefreshWarning}, nil
	}
	panel.Applied = &change
	return panel, nil
}

func (w *Workflow) options(set rbac.UserRoleSet) []RoleOption {
	held := rbac.NewRoleSet(set.Roles...)
	out := make([]RoleOption, 0, 3)
	for _, role := range []rbac.Role{rbac.Admin, rbac.Creator, rbac.Verifier} {
		out = append(out, RoleOption{
			Role:          role,
			Label:         role.Label(),
			Held:          held.Has(role),
			Disabled:      held.Has(role),
			Confirmations: w.policy.Required(role),
		})
	}
	return out
}

func promptMessage(op Operation, role rbac.Role, step, of, adminCount int) string {
	verb := "Assign"
	if op == OperationRemove {
		verb = "Remove"
	}
	if of > 1 {
		return fmt.Sprintf("%s the %s role? (confirmation %d of %d, %d admins today)", verb, role.Label(), step, of, adminCount)
	}
	return fmt.Sprintf("%s the %s role?", verb, role.Label())
}
