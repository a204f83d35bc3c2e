package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/duriyam/operate/internal/jobs"
	"github.com/duriyam/operate/internal/rbac"
)

// TaskCatalogDrift compares the local permission catalog with the backend.
const TaskCatalogDrift = "rbac:catalog_drift"

// NewCatalogDriftTask builds the periodic drift check task.
func NewCatalogDriftTask() *asynq.Task {
	return asynq.NewTask(TaskCatalogDrift, nil, asynq.Queue(QueueDefault))
}

// RoleTable lists the backend's role-permission rows.
type RoleTable interface {
	GetAllRoles(ctx context.Context) ([]rbac.RemoteEntry, error)
}

// CatalogDriftJob logs mismatches between the catalog grants and the backend.
type CatalogDriftJob struct {
	Source  RoleTable
	Catalog *rbac.Catalog
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle runs one comparison.
func (j *CatalogDriftJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Source == nil || j.Catalog == nil {
		return errors.New("catalog drift: handler not configured")
	}
	tracker := j.Metrics.Track(TaskCatalogDrift)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	remote, err := j.Source.GetAllRoles(ctx)
	if err != nil {
		logger.Error("catalog drift: fetch remote roles", slog.Any("error", err))
		return err
	}
	drift := rbac.CompareRemote(j.Catalog, remote)
	if drift.Empty() {
		logger.Info("catalog drift: in sync", slog.Int("entries", len(remote)))
		return nil
	}
	logger.Warn("catalog drift detected",
		slog.Any("missing_remote", drift.MissingRemote),
		slog.Any("unknown_remote", drift.UnknownRemote))
	return nil
}
