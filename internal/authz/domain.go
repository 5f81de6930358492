package authz

import (
	"errors"

	"github.com/google/uuid"
)

// ResourceKind identifies the level a permission check applies to.
type ResourceKind string

const (
	KindOrganization ResourceKind = "ORGANIZATION"
	KindProject      ResourceKind = "PROJECT"
	KindTask         ResourceKind = "TASK"
)

// Valid reports whether the kind is one of the closed set.
func (k ResourceKind) Valid() bool {
	switch k {
	case KindOrganization, KindProject, KindTask:
		return true
	}
	return false
}

var (
	// ErrCheckFailed wraps storage faults during a permission check. Callers
	// must treat it as deny, never as allow.
	ErrCheckFailed = errors.New("authz: permission check failed")
	// ErrInvalidKind indicates a resource kind outside the closed set.
	ErrInvalidKind = errors.New("authz: invalid resource kind")
)

// Scope selects the context for effective-permission and role-name lookups.
type Scope struct {
	OrganizationID *uuid.UUID
	ProjectID      *uuid.UUID
}

// Membership is a role assignment with its derived permission set, as loaded
// for resolution.
type Membership struct {
	RoleName    string
	Permissions map[string]struct{}
}

// Has reports whether the permission is in the role-derived set.
func (m *Membership) Has(permission string) bool {
	if m == nil {
		return false
	}
	_, ok := m.Permissions[permission]
	return ok
}

// ProjectMembership extends Membership with per-permission overrides.
type ProjectMembership struct {
	Membership
	Overrides map[string]bool
}

// TaskRef carries the two task attributes resolution needs.
type TaskRef struct {
	CreatorID uuid.UUID
	ProjectID uuid.UUID
}
