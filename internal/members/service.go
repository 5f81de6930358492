package members

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/worklane/worklane/internal/permissions"
	"github.com/worklane/worklane/internal/roles"
)

// RoleDirectory exposes the role lookups the membership model needs.
type RoleDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (roles.Role, error)
}

// PermissionResolver maps permission names to catalog entries.
type PermissionResolver interface {
	ResolveNames(ctx context.Context, names []string) ([]permissions.Permission, error)
}

// Service orchestrates organization and project memberships.
type Service struct {
	repo  Repository
	roles RoleDirectory
	perms PermissionResolver
}

// NewService builds Service instance.
func NewService(repo Repository, roleDir RoleDirectory, perms PermissionResolver) *Service {
	return &Service{repo: repo, roles: roleDir, perms: perms}
}

// GetOrganizationMember fetches a membership row.
func (s *Service) GetOrganizationMember(ctx context.Context, orgID, userID uuid.UUID) (OrganizationMember, error) {
	return s.repo.GetOrganizationMember(ctx, orgID, userID)
}

// ProjectOrganization resolves the organization owning a project.
func (s *Service) ProjectOrganization(ctx context.Context, projectID uuid.UUID) (uuid.UUID, error) {
	return s.repo.ProjectOrganization(ctx, projectID)
}

// ListOrganizationMembers lists memberships ordered by join time.
func (s *Service) ListOrganizationMembers(ctx context.Context, orgID uuid.UUID) ([]OrganizationMember, error) {
	return s.repo.ListOrganizationMembers(ctx, orgID)
}

// AddOrganizationMember enrolls a user in an organization with one role.
func (s *Service) AddOrganizationMember(ctx context.Context, orgID, userID, roleID uuid.UUID) (OrganizationMember, error) {
	if err := s.checkRoleInOrganization(ctx, roleID, orgID); err != nil {
		return OrganizationMember{}, err
	}
	return s.repo.CreateOrganizationMember(ctx, OrganizationMember{
		OrganizationID: orgID,
		UserID:         userID,
		RoleID:         roleID,
	})
}

// UpdateOrganizationMemberRole changes the member's role. Assigning the role
// the member already holds succeeds without touching the row.
func (s *Service) UpdateOrganizationMemberRole(ctx context.Context, orgID, userID, newRoleID uuid.UUID) (OrganizationMember, error) {
	if err := s.checkRoleInOrganization(ctx, newRoleID, orgID); err != nil {
		return OrganizationMember{}, err
	}
	member, err := s.repo.GetOrganizationMember(ctx, orgID, userID)
	if err != nil {
		return OrganizationMember{}, err
	}
	if member.RoleID == newRoleID {
		return member, nil
	}
	if err := s.repo.UpdateOrganizationMemberRole(ctx, orgID, userID, newRoleID); err != nil {
		return OrganizationMember{}, err
	}
	member.RoleID = newRoleID
	return member, nil
}

// RemoveOrganizationMember removes the user from the organization and every
// project it owns. Actors may not remove themselves.
func (s *Service) RemoveOrganizationMember(ctx context.Context, actorID, orgID, userID uuid.UUID) error {
	if actorID == userID {
		return ErrSelfRemoval
	}
	return s.repo.DeleteOrganizationMember(ctx, orgID, userID)
}

// GetProjectMember fetches a project membership row.
func (s *Service) GetProjectMember(ctx context.Context, projectID, userID uuid.UUID) (ProjectMember, error) {
	return s.repo.GetProjectMember(ctx, projectID, userID)
}

// ListProjectMembers lists project memberships ordered by join time.
func (s *Service) ListProjectMembers(ctx context.Context, projectID uuid.UUID) ([]ProjectMember, error) {
	return s.repo.ListProjectMembers(ctx, projectID)
}

// ListOverrides returns the member's permission overrides.
func (s *Service) ListOverrides(ctx context.Context, projectMemberID uuid.UUID) ([]Override, error) {
	return s.repo.ListOverrides(ctx, projectMemberID)
}

// AddProjectMember enrolls an organization member in a project, optionally
// with initial permission overrides applied atomically with the membership.
func (s *Service) AddProjectMember(ctx context.Context, projectID, userID, roleID uuid.UUID, overrides []OverrideInput) (ProjectMember, error) {
	orgID, err := s.repo.ProjectOrganization(ctx, projectID)
	if err != nil {
		return ProjectMember{}, err
	}
	if _, err := s.repo.GetOrganizationMember(ctx, orgID, userID); err != nil {
		if err == ErrNotFound {
			return ProjectMember{}, ErrNotOrganizationMember
		}
		return ProjectMember{}, err
	}
	if err := s.checkRoleInOrganization(ctx, roleID, orgID); err != nil {
		return ProjectMember{}, err
	}
	resolved, err := s.resolveOverrides(ctx, overrides)
	if err != nil {
		return ProjectMember{}, err
	}
	return s.repo.CreateProjectMember(ctx, ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		RoleID:    roleID,
	}, resolved)
}

// UpdateProjectMember changes the member's role and, when overrides are
// supplied, replaces the override set wholesale.
func (s *Service) UpdateProjectMember(ctx context.Context, projectID, userID, roleID uuid.UUID, overrides []OverrideInput) (ProjectMember, error) {
	orgID, err := s.repo.ProjectOrganization(ctx, projectID)
	if err != nil {
		return ProjectMember{}, err
	}
	if err := s.checkRoleInOrganization(ctx, roleID, orgID); err != nil {
		return ProjectMember{}, err
	}
	resolved, err := s.resolveOverrides(ctx, overrides)
	if err != nil {
		return ProjectMember{}, err
	}
	if err := s.repo.UpdateProjectMember(ctx, projectID, userID, roleID, resolved, overrides != nil); err != nil {
		return ProjectMember{}, err
	}
	return s.repo.GetProjectMember(ctx, projectID, userID)
}

// RemoveProjectMember drops the membership and its overrides.
func (s *Service) RemoveProjectMember(ctx context.Context, projectID, userID uuid.UUID) error {
	return s.repo.DeleteProjectMember(ctx, projectID, userID)
}

// SetOverride records a grant/deny exception for one permission.
func (s *Service) SetOverride(ctx context.Context, projectID, userID uuid.UUID, permissionName string, granted bool) error {
	member, err := s.repo.GetProjectMember(ctx, projectID, userID)
	if err != nil {
		return err
	}
	resolved, err := s.perms.ResolveNames(ctx, []string{permissionName})
	if err != nil {
		return err
	}
	return s.repo.UpsertOverride(ctx, Override{
		ProjectMemberID: member.ID,
		PermissionID:    resolved[0].ID,
		PermissionName:  resolved[0].Name,
		Granted:         granted,
	})
}

// ClearOverride removes the exception, restoring role-derived behavior.
func (s *Service) ClearOverride(ctx context.Context, projectID, userID uuid.UUID, permissionName string) error {
	member, err := s.repo.GetProjectMember(ctx, projectID, userID)
	if err != nil {
		return err
	}
	resolved, err := s.perms.ResolveNames(ctx, []string{permissionName})
	if err != nil {
		return err
	}
	return s.repo.DeleteOverride(ctx, member.ID, resolved[0].ID)
}

func (s *Service) checkRoleInOrganization(ctx context.Context, roleID, orgID uuid.UUID) error {
	role, err := s.roles.Get(ctx, roleID)
	if err != nil {
		return err
	}
	// System templates are not assignable; memberships reference the
	// organization-owned clones.
	if role.OrganizationID == nil || *role.OrganizationID != orgID {
		return ErrRoleNotInOrganization
	}
	return nil
}

func (s *Service) resolveOverrides(ctx context.Context, inputs []OverrideInput) ([]Override, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	names := make([]string, len(inputs))
	for i, in := range inputs {
		names[i] = in.PermissionName
	}
	perms, err := s.perms.ResolveNames(ctx, names)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]permissions.Permission, len(perms))
	for _, p := range perms {
		byName[p.Name] = p
	}
	out := make([]Override, 0, len(inputs))
	for _, in := range inputs {
		p, ok := byName[strings.TrimSpace(in.PermissionName)]
		if !ok {
			continue
		}
		out = append(out, Override{
			PermissionID:   p.ID,
			PermissionName: p.Name,
			Granted:        in.Granted,
		})
	}
	return out, nil
}
