package audit

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the system. Every entry names a completed state
// change; failed attempts are never recorded.
const (
	ActionRoleCreated = "ROLE_CREATED"
	ActionRoleUpdated = "ROLE_UPDATED"
	ActionRoleDeleted = "ROLE_DELETED"

	ActionMemberInvited     = "MEMBER_INVITED"
	ActionMemberRemoved     = "MEMBER_REMOVED"
	ActionMemberRoleUpdated = "MEMBER_ROLE_UPDATED"

	ActionProjectMemberAdded   = "PROJECT_MEMBER_ADDED"
	ActionProjectMemberUpdated = "PROJECT_MEMBER_UPDATED"
	ActionProjectMemberRemoved = "PROJECT_MEMBER_REMOVED"

	ActionUserCreated   = "USER_CREATED"
	ActionUserUpdated   = "USER_UPDATED"
	ActionPasswordReset = "PASSWORD_RESET"
)

// Resource types an event can point at.
const (
	ResourceRole          = "ROLE"
	ResourceMember        = "MEMBER"
	ResourceProjectMember = "PROJECT_MEMBER"
	ResourceUser          = "USER"
)

// Event is one immutable entry in an organization's audit trail.
type Event struct {
	ID             uuid.UUID      `json:"id"`
	OrganizationID uuid.UUID      `json:"organizationId"`
	ActorID        uuid.UUID      `json:"actorId"`
	Action         string         `json:"action"`
	ResourceType   string         `json:"resourceType"`
	ResourceID     string         `json:"resourceId"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Validate rejects events missing the fields every trail entry requires.
func (e Event) Validate() error {
	if e.OrganizationID == uuid.Nil {
		return errors.New("audit: event requires organization id")
	}
	if e.ActorID == uuid.Nil {
		return errors.New("audit: event requires actor id")
	}
	if e.Action == "" || e.ResourceType == "" || e.ResourceID == "" {
		return errors.New("audit: event requires action/resource_type/resource_id")
	}
	return nil
}
