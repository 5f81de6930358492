package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/worklane/worklane/internal/permissions"
)

// PermissionResolver maps permission names to catalog entries.
type PermissionResolver interface {
	ResolveNames(ctx context.Context, names []string) ([]permissions.Permission, error)
}

// Service orchestrates role management.
type Service struct {
	repo  Repository
	perms PermissionResolver
}

// NewService builds Service instance.
func NewService(repo Repository, perms PermissionResolver) *Service {
	return &Service{repo: repo, perms: perms}
}

// Get fetches a role by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Role, error) {
	return s.repo.Get(ctx, id)
}

// GetWithPermissions fetches a role and its permission set.
func (s *Service) GetWithPermissions(ctx context.Context, id uuid.UUID) (WithPermissions, error) {
	return s.repo.GetWithPermissions(ctx, id)
}

// ListByOrganization returns every role owned by the organization.
func (s *Service) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]WithPermissions, error) {
	return s.repo.ListByOrganization(ctx, orgID)
}

// OrganizationRoleByName looks up an organization role by name.
func (s *Service) OrganizationRoleByName(ctx context.Context, orgID uuid.UUID, name string) (Role, error) {
	return s.repo.FindByName(ctx, &orgID, name)
}

// CreateSystemRole creates a global template role. Unknown permission names
// fail the whole call; templates are never silently created with holes.
func (s *Service) CreateSystemRole(ctx context.Context, name, description string, permissionNames []string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("roles: name required")
	}
	perms, err := s.perms.ResolveNames(ctx, permissionNames)
	if err != nil {
		return Role{}, err
	}
	if _, err := s.repo.FindByName(ctx, nil, name); err == nil {
		return Role{}, ErrDuplicateName
	} else if !errors.Is(err, ErrNotFound) {
		return Role{}, err
	}
	return s.repo.Create(ctx, Role{
		Name:        name,
		Description: strings.TrimSpace(description),
		IsSystem:    true,
	}, permissionIDs(perms))
}

// CloneSystemRoles copies every system template into the organization,
// permission set included. Idempotent: existing clones are refreshed in
// place, never duplicated.
func (s *Service) CloneSystemRoles(ctx context.Context, orgID uuid.UUID) error {
	templates, err := s.repo.ListSystem(ctx)
	if err != nil {
		return err
	}
	for _, tmpl := range templates {
		if err := s.repo.UpsertOrganizationClone(ctx, orgID, tmpl.Name, tmpl.Description, permissionIDs(tmpl.Permissions)); err != nil {
			return fmt.Errorf("roles: clone %s: %w", tmpl.Name, err)
		}
	}
	return nil
}

// CreateCustomRole creates an organization-owned role. System role names are
// reserved: no role named like a template may be created in any organization.
func (s *Service) CreateCustomRole(ctx context.Context, orgID uuid.UUID, name, description string, permissionNames []string) (WithPermissions, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return WithPermissions{}, fmt.Errorf("roles: name required")
	}
	perms, err := s.perms.ResolveNames(ctx, permissionNames)
	if err != nil {
		return WithPermissions{}, err
	}
	if err := s.checkNameAvailable(ctx, orgID, name, uuid.Nil); err != nil {
		return WithPermissions{}, err
	}
	role, err := s.repo.Create(ctx, Role{
		OrganizationID: &orgID,
		Name:           name,
		Description:    strings.TrimSpace(description),
	}, permissionIDs(perms))
	if err != nil {
		return WithPermissions{}, err
	}
	return WithPermissions{Role: role, Permissions: perms}, nil
}

// Update applies a patch to a custom role. Supplying Permissions replaces the
// permission set wholesale.
func (s *Service) Update(ctx context.Context, roleID uuid.UUID, patch UpdatePatch) (WithPermissions, error) {
	role, err := s.repo.Get(ctx, roleID)
	if err != nil {
		return WithPermissions{}, err
	}
	if role.IsSystem {
		return WithPermissions{}, ErrSystemImmutable
	}

	name := role.Name
	if patch.Name != nil {
		name = strings.TrimSpace(*patch.Name)
		if name == "" {
			return WithPermissions{}, fmt.Errorf("roles: name required")
		}
	}
	description := role.Description
	if patch.Description != nil {
		description = strings.TrimSpace(*patch.Description)
	}

	// Renames re-check uniqueness excluding the role's own row, so a no-op
	// rename to the current name never fails.
	if name != role.Name && role.OrganizationID != nil {
		if err := s.checkNameAvailable(ctx, *role.OrganizationID, name, roleID); err != nil {
			return WithPermissions{}, err
		}
	}

	var permIDs []uuid.UUID
	replace := patch.Permissions != nil
	if replace {
		perms, err := s.perms.ResolveNames(ctx, patch.Permissions)
		if err != nil {
			return WithPermissions{}, err
		}
		permIDs = permissionIDs(perms)
	}

	if err := s.repo.Update(ctx, roleID, name, description, permIDs, replace); err != nil {
		return WithPermissions{}, err
	}
	return s.repo.GetWithPermissions(ctx, roleID)
}

// Delete removes a custom role. Deletion is rejected, not cascaded, while any
// organization or project membership still references the role.
func (s *Service) Delete(ctx context.Context, roleID uuid.UUID) error {
	role, err := s.repo.Get(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemImmutable
	}
	count, err := s.repo.MemberCount(ctx, roleID)
	if err != nil {
		return err
	}
	if count > 0 {
		return &InUseError{Members: count}
	}
	return s.repo.Delete(ctx, roleID)
}

func (s *Service) checkNameAvailable(ctx context.Context, orgID uuid.UUID, name string, selfID uuid.UUID) error {
	if existing, err := s.repo.FindByName(ctx, &orgID, name); err == nil {
		if existing.ID != selfID {
			return ErrDuplicateName
		}
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	// System template names stay reserved in every organization.
	if _, err := s.repo.FindByName(ctx, nil, name); err == nil {
		return ErrDuplicateName
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func permissionIDs(perms []permissions.Permission) []uuid.UUID {
	ids := make([]uuid.UUID, len(perms))
	for i, p := range perms {
		ids[i] = p.ID
	}
	return ids
}
