package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/duriyam/operate/internal/admin"
	jobmetrics "github.com/duriyam/operate/internal/jobs"
	"github.com/duriyam/operate/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRoleChanged records a completed role assignment or removal.
	TaskRoleChanged = "rbac:role_changed"
)

// NewRoleChangedTask constructs an Asynq task for a role change.
func NewRoleChangedTask(change admin.RoleChange) (*asynq.Task, error) {
	data, err := json.Marshal(change)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRoleChanged, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// RoleChangeAuditJob writes an audit row for each role change.
type RoleChangeAuditJob struct {
	Recorder AuditRecorder
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewRoleChangeAuditJob initialises the audit handler.
func NewRoleChangeAuditJob(recorder AuditRecorder, logger *slog.Logger, metrics *jobmetrics.Metrics) *RoleChangeAuditJob {
	return &RoleChangeAuditJob{Recorder: recorder, Logger: logger, Metrics: metrics}
}

// AuditEntry converts a role change into an audit row.
func AuditEntry(change admin.RoleChange) shared.AuditLog {
	action := "role_assigned"
	if change.Operation == admin.OperationRemove {
		action = "role_removed"
	}
	return shared.AuditLog{
		ActorID:  change.ActorID,
		Action:   action,
		Entity:   "user_roles",
		EntityID: change.UserID,
		Meta:     map[string]any{"role": change.Role.String()},
		At:       change.At,
	}
}

// Handle processes TaskRoleChanged tasks.
func (j *RoleChangeAuditJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Recorder == nil {
		return errors.New("role change audit: handler not configured")
	}
	var change admin.RoleChange
	if err := json.Unmarshal(t.Payload(), &change); err != nil {
		return asynq.SkipRetry
	}
	entry := AuditEntry(change)
	if err := entry.Validate(); err != nil {
		j.logger().Warn("role change audit: invalid payload", slog.Any("error", err))
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskRoleChanged)
	defer func() {
		err = tracker.End(err)
	}()

	if err = j.Recorder.Record(ctx, entry); err != nil {
		j.logger().Error("role change audit", slog.String("user_id", change.UserID), slog.Any("error", err))
		return err
	}
	j.logger().Info("role change audited",
		slog.String("action", entry.Action),
		slog.String("actor_id", change.ActorID),
		slog.String("user_id", change.UserID),
		slog.String("role", change.Role.String()))
	return nil
}

func (j *RoleChangeAuditJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
