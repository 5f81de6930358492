package members

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// OrganizationMember assigns exactly one role to a user within an
// organization. One row per (user, organization).
type OrganizationMember struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	RoleID         uuid.UUID
	JoinedAt       time.Time
}

// ProjectMember assigns exactly one role to a user within a project, which
// may differ from their organization role. One row per (user, project).
type ProjectMember struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	UserID    uuid.UUID
	RoleID    uuid.UUID
	JoinedAt  time.Time
}

// Override is a per-(member, permission) grant/deny exception that always
// wins over the project role's derived permission set.
type Override struct {
	ProjectMemberID uuid.UUID
	PermissionID    uuid.UUID
	PermissionName  string
	Granted         bool
}

// OverrideInput names a permission override supplied by a caller.
type OverrideInput struct {
	PermissionName string
	Granted        bool
}

var (
	// ErrNotFound indicates the membership row does not exist.
	ErrNotFound = errors.New("members: not found")
	// ErrAlreadyMember indicates the user already belongs to the organization.
	ErrAlreadyMember = errors.New("members: user is already an organization member")
	// ErrAlreadyProjectMember indicates the user already belongs to the project.
	ErrAlreadyProjectMember = errors.New("members: user is already a project member")
	// ErrNotOrganizationMember indicates a project-membership precondition failure.
	ErrNotOrganizationMember = errors.New("members: user is not a member of the organization")
	// ErrRoleNotInOrganization indicates a cross-organization role assignment.
	ErrRoleNotInOrganization = errors.New("members: role does not belong to the organization")
	// ErrSelfRemoval indicates an actor tried to remove their own membership.
	ErrSelfRemoval = errors.New("members: cannot remove yourself from the organization")
)
