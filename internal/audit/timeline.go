package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TimelineFilters narrows an organization's trail query.
type TimelineFilters struct {
	From         time.Time
	To           time.Time
	Action       string
	ResourceType string
	Page         int
	PageSize     int
}

// PagingInfo carries pagination metadata alongside a timeline page.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
	PrevPage int  `json:"prevPage,omitempty"`
	NextPage int  `json:"nextPage,omitempty"`
}

// Result is one page of an organization's trail, newest first.
type Result struct {
	Events []Event    `json:"events"`
	Paging PagingInfo `json:"paging"`
}

// TimelineStore reads trail pages back out of storage.
type TimelineStore interface {
	List(ctx context.Context, orgID uuid.UUID, filters TimelineFilters, limit, offset int) ([]Event, error)
}

// Service coordinates trail reads.
type Service struct {
	store TimelineStore
}

// NewService returns a timeline service over the given store.
func NewService(store TimelineStore) *Service {
	return &Service{store: store}
}

// Timeline fetches one page of events, newest first. Page sizes are
// clamped to [1, 50]; one extra row is fetched to detect a next page.
func (s *Service) Timeline(ctx context.Context, orgID uuid.UUID, filters TimelineFilters) (Result, error) {
	if s.store == nil {
		return Result{}, fmt.Errorf("audit: store not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	events, err := s.store.List(ctx, orgID, filters, pageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(events) > pageSize
	if hasNext {
		events = events[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Events: events, Paging: paging}, nil
}

// PostgresTimeline reads the trail from audit_events.
type PostgresTimeline struct {
	pool *pgxpool.Pool
}

// NewPostgresTimeline returns a store backed by the given pool.
func NewPostgresTimeline(pool *pgxpool.Pool) *PostgresTimeline {
	return &PostgresTimeline{pool: pool}
}

func (p *PostgresTimeline) List(ctx context.Context, orgID uuid.UUID, filters TimelineFilters, limit, offset int) ([]Event, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, organization_id, actor_id, action, resource_type, resource_id, metadata, created_at
		FROM audit_events
		WHERE organization_id = $1`)
	args := []any{orgID}

	if !filters.From.IsZero() {
		args = append(args, filters.From)
		fmt.Fprintf(&query, " AND created_at >= $%d", len(args))
	}
	if !filters.To.IsZero() {
		args = append(args, filters.To)
		fmt.Fprintf(&query, " AND created_at <= $%d", len(args))
	}
	if action := strings.TrimSpace(filters.Action); action != "" {
		args = append(args, action)
		fmt.Fprintf(&query, " AND action = $%d", len(args))
	}
	if rt := strings.TrimSpace(filters.ResourceType); rt != "" {
		args = append(args, rt)
		fmt.Fprintf(&query, " AND resource_type = $%d", len(args))
	}
	args = append(args, limit)
	fmt.Fprintf(&query, " ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	fmt.Fprintf(&query, " OFFSET $%d", len(args))

	rows, err := p.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var metaJSON []byte
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.ActorID, &e.Action, &e.ResourceType, &e.ResourceID, &metaJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &e.Metadata); err != nil {
				return nil, err
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
