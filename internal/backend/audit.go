package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/duriyam/operate/internal/shared"
)

type auditRow struct {
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	Entity     string         `json:"entity"`
	EntityID   string         `json:"entity_id"`
	Meta       map[string]any `json:"meta"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Record writes an audit entry to the backend's audit_logs table.
func (c *Client) Record(ctx context.Context, log shared.AuditLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	at := log.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	row := auditRow{ActorID: log.ActorID, Action: log.Action, Entity: log.Entity, EntityID: log.EntityID, Meta: log.Meta, OccurredAt: at}
	header := http.Header{"Prefer": {"return=minimal"}}
	return c.do(ctx, http.MethodPost, c.table("audit_logs", nil), row, nil, header)
}
