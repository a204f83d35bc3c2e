package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/duriyam/operate/internal/admin"
	jobmetrics "github.com/duriyam/operate/internal/jobs"
	"github.com/duriyam/operate/internal/rbac"
	"github.com/duriyam/operate/internal/shared"
)

type recordingAudit struct {
	entries []shared.AuditLog
	err     error
}

func (r *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, log)
	return nil
}

type capturingEnqueuer struct {
	tasks []*asynq.Task
}

func (c *capturingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func (c *capturingEnqueuer) Close() error { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClientEnqueuesRoleChange(t *testing.T) {
	enq := &capturingEnqueuer{}
	client := NewClientWith(enq)
	change := admin.RoleChange{Operation: admin.OperationAssign, ActorID: "admin-1", UserID: "u-1", Role: rbac.Verifier, At: time.Unix(1700000000, 0).UTC()}

	require.NoError(t, client.RoleChanged(context.Background(), change))
	require.Len(t, enq.tasks, 1)
	require.Equal(t, TaskRoleChanged, enq.tasks[0].Type())

	var decoded admin.RoleChange
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &decoded))
	require.Equal(t, change.UserID, decoded.UserID)
	require.Equal(t, change.Role, decoded.Role)
	require.Equal(t, change.Operation, decoded.Operation)
	require.True(t, change.At.Equal(decoded.At))
}

func TestRoleChangeAuditJobRecordsEntry(t *testing.T) {
	audit := &recordingAudit{}
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := NewRoleChangeAuditJob(audit, quietLogger(), metrics)

	task, err := NewRoleChangedTask(admin.RoleChange{Operation: admin.OperationRemove, ActorID: "admin-1", UserID: "u-1", Role: rbac.Admin})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	require.Equal(t, "role_removed", entry.Action)
	require.Equal(t, "user_roles", entry.Entity)
	require.Equal(t, "u-1", entry.EntityID)
	require.Equal(t, "admin", entry.Meta["role"])
}

func TestRoleChangeAuditJobRejectsBadPayload(t *testing.T) {
	job := NewRoleChangeAuditJob(&recordingAudit{}, quietLogger(), nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskRoleChanged, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewRoleChangedTask(admin.RoleChange{Operation: admin.OperationAssign, Role: rbac.Creator})
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)
}

func TestRoleChangeAuditJobRetriesOnRecorderFailure(t *testing.T) {
	boom := errors.New("db down")
	job := NewRoleChangeAuditJob(&recordingAudit{err: boom}, quietLogger(), nil)
	task, err := NewRoleChangedTask(admin.RoleChange{Operation: admin.OperationAssign, ActorID: "a", UserID: "u", Role: rbac.Creator})
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestCatalogDriftJob(t *testing.T) {
	store := rbac.NewMemoryStore(rbac.DefaultCatalog)
	job := &CatalogDriftJob{Source: store, Catalog: rbac.DefaultCatalog, Logger: quietLogger()}
	require.NoError(t, job.Handle(context.Background(), NewCatalogDriftTask()))

	var nilJob *CatalogDriftJob
	require.Error(t, nilJob.Handle(context.Background(), NewCatalogDriftTask()))
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func TestQueueHealth(t *testing.T) {
	h := NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, quietLogger())
	rr := httptest.NewRecorder()
	h.health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"pending":3`)

	h = NewHandler(stubInspector{err: errors.New("redis gone")}, quietLogger())
	rr = httptest.NewRecorder()
	h.health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusBadGateway, rr.Code)
}
