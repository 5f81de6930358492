package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Recorder writes events into the audit trail. The HTTP handlers hold a
// queue-backed implementation so mutations never block on trail writes;
// the worker holds the Postgres one.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// PostgresRecorder persists events into audit_events.
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

// NewPostgresRecorder returns a recorder backed by the given pool.
func NewPostgresRecorder(pool *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{pool: pool}
}

// Record persists the event. A zero CreatedAt defaults to now.
func (r *PostgresRecorder) Record(ctx context.Context, event Event) error {
	if r == nil || r.pool == nil {
		return errors.New("audit: recorder not initialised")
	}
	if err := event.Validate(); err != nil {
		return err
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	metaJSON, err := json.Marshal(event.Metadata)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit_events (id, organization_id, actor_id, action, resource_type, resource_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.OrganizationID, event.ActorID, event.Action, event.ResourceType, event.ResourceID, metaJSON, event.CreatedAt)
	return err
}
