package roles

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/worklane/worklane/internal/permissions"
)

// Role is a named bundle of permissions. System roles are global templates
// (OrganizationID nil) cloned into every organization at provisioning time;
// everything else is owned by exactly one organization.
type Role struct {
	ID             uuid.UUID
	OrganizationID *uuid.UUID
	Name           string
	Description    string
	IsSystem       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// WithPermissions bundles a role with its resolved permission set.
type WithPermissions struct {
	Role
	Permissions []permissions.Permission
}

// System role names seeded as global templates.
const (
	SystemSuperAdmin     = "SUPER_ADMIN"
	SystemOrgAdmin       = "ORG_ADMIN"
	SystemProjectManager = "PROJECT_MANAGER"
	SystemTeamLead       = "TEAM_LEAD"
	SystemMember         = "MEMBER"
	SystemViewer         = "VIEWER"
)

var (
	// ErrNotFound indicates the requested role does not exist.
	ErrNotFound = errors.New("roles: not found")
	// ErrDuplicateName indicates the role name is taken within the
	// organization, or reserved by a system role.
	ErrDuplicateName = errors.New("roles: name already exists")
	// ErrSystemImmutable indicates a mutation attempt against a system role.
	ErrSystemImmutable = errors.New("roles: system roles are immutable")
)

// InUseError blocks deletion of a role that members still reference.
type InUseError struct {
	Members int
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("roles: role is assigned to %d member(s)", e.Members)
}

// UpdatePatch describes a partial role update. A nil field leaves the
// current value untouched; a non-nil Permissions slice replaces the whole
// permission set.
type UpdatePatch struct {
	Name        *string
	Description *string
	Permissions []string
}
