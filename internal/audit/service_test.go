package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type stubTimelineStore struct {
	events     []Event
	lastOrg    uuid.UUID
	lastLimit  int
	lastOffset int
}

func (s *stubTimelineStore) List(ctx context.Context, orgID uuid.UUID, filters TimelineFilters, limit, offset int) ([]Event, error) {
	s.lastOrg = orgID
	s.lastLimit = limit
	s.lastOffset = offset
	if offset >= len(s.events) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.events) {
		end = len(s.events)
	}
	return s.events[offset:end], nil
}

func mockEvent(action string, at time.Time) Event {
	return Event{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		ActorID:        uuid.New(),
		Action:         action,
		ResourceType:   ResourceRole,
		ResourceID:     uuid.NewString(),
		CreatedAt:      at,
	}
}

func TestServiceTimelinePaging(t *testing.T) {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	store := &stubTimelineStore{
		events: []Event{
			mockEvent(ActionRoleCreated, base),
			mockEvent(ActionRoleUpdated, base.Add(-time.Hour)),
			mockEvent(ActionMemberInvited, base.Add(-2*time.Hour)),
		},
	}
	svc := NewService(store)
	orgID := uuid.New()
	result, err := svc.Timeline(context.Background(), orgID, TimelineFilters{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(result.Events))
	}
	if !result.Paging.HasNext {
		t.Fatalf("expected hasNext true")
	}
	if result.Paging.NextPage != 2 {
		t.Fatalf("expected nextPage 2, got %d", result.Paging.NextPage)
	}
	if store.lastOrg != orgID {
		t.Fatalf("expected org %s, got %s", orgID, store.lastOrg)
	}
	if store.lastLimit != 3 {
		t.Fatalf("expected limit 3, got %d", store.lastLimit)
	}
	if store.lastOffset != 0 {
		t.Fatalf("expected offset 0, got %d", store.lastOffset)
	}
}

func TestServiceTimelineLastPage(t *testing.T) {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	store := &stubTimelineStore{
		events: []Event{
			mockEvent(ActionRoleCreated, base),
			mockEvent(ActionRoleDeleted, base.Add(-time.Hour)),
			mockEvent(ActionMemberRemoved, base.Add(-2*time.Hour)),
		},
	}
	svc := NewService(store)
	result, err := svc.Timeline(context.Background(), uuid.New(), TimelineFilters{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(result.Events))
	}
	if result.Paging.HasNext {
		t.Fatalf("expected hasNext false")
	}
	if result.Paging.PrevPage != 1 {
		t.Fatalf("expected prevPage 1, got %d", result.Paging.PrevPage)
	}
	if store.lastOffset != 2 {
		t.Fatalf("expected offset 2, got %d", store.lastOffset)
	}
}

func TestServiceTimelineClampsPageSize(t *testing.T) {
	store := &stubTimelineStore{}
	svc := NewService(store)
	if _, err := svc.Timeline(context.Background(), uuid.New(), TimelineFilters{PageSize: 500}); err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if store.lastLimit != 51 {
		t.Fatalf("expected limit 51, got %d", store.lastLimit)
	}
	if _, err := svc.Timeline(context.Background(), uuid.New(), TimelineFilters{PageSize: -1}); err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if store.lastLimit != 21 {
		t.Fatalf("expected default limit 21, got %d", store.lastLimit)
	}
}

func TestEventValidate(t *testing.T) {
	valid := Event{
		OrganizationID: uuid.New(),
		ActorID:        uuid.New(),
		Action:         ActionRoleCreated,
		ResourceType:   ResourceRole,
		ResourceID:     uuid.NewString(),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}

	missingActor := valid
	missingActor.ActorID = uuid.Nil
	if err := missingActor.Validate(); err == nil {
		t.Fatalf("expected error for missing actor")
	}

	missingAction := valid
	missingAction.Action = ""
	if err := missingAction.Validate(); err == nil {
		t.Fatalf("expected error for missing action")
	}
}
