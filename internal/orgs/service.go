package orgs

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/worklane/worklane/internal/members"
	"github.com/worklane/worklane/internal/roles"
)

// RoleProvisioner seeds a fresh organization with role clones.
type RoleProvisioner interface {
	CloneSystemRoles(ctx context.Context, orgID uuid.UUID) error
	OrganizationRoleByName(ctx context.Context, orgID uuid.UUID, name string) (roles.Role, error)
}

// MemberEnroller attaches the creator to the new organization.
type MemberEnroller interface {
	AddOrganizationMember(ctx context.Context, orgID, userID, roleID uuid.UUID) (members.OrganizationMember, error)
}

// Service coordinates organization lifecycle and provisioning.
type Service struct {
	repo      Repository
	roles     RoleProvisioner
	enrollers MemberEnroller
}

// NewService constructs the organization service.
func NewService(repo Repository, provisioner RoleProvisioner, enroller MemberEnroller) *Service {
	return &Service{repo: repo, roles: provisioner, enrollers: enroller}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Organization, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (Organization, error) {
	return s.repo.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
}

// ListForUser returns the organizations the user is a member of.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]Organization, error) {
	return s.repo.ListForUser(ctx, userID)
}

// Create provisions a new organization: the record itself, a full set of
// role clones, and the creator enrolled under the SUPER_ADMIN clone. The
// creator is never left locked out of their own organization.
func (s *Service) Create(ctx context.Context, creatorID uuid.UUID, name, slug string) (Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Organization{}, errors.New("orgs: name is required")
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		slug = Slugify(name)
	}
	if !slugPattern.MatchString(slug) {
		return Organization{}, fmt.Errorf("orgs: invalid slug %q", slug)
	}

	now := time.Now().UTC()
	org := Organization{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, org); err != nil {
		return Organization{}, err
	}
	if err := s.roles.CloneSystemRoles(ctx, org.ID); err != nil {
		return Organization{}, fmt.Errorf("orgs: provisioning roles: %w", err)
	}
	admin, err := s.roles.OrganizationRoleByName(ctx, org.ID, roles.SystemSuperAdmin)
	if err != nil {
		return Organization{}, fmt.Errorf("orgs: locating admin role: %w", err)
	}
	if _, err := s.enrollers.AddOrganizationMember(ctx, org.ID, creatorID, admin.ID); err != nil {
		return Organization{}, fmt.Errorf("orgs: enrolling creator: %w", err)
	}
	return org, nil
}

// Update renames an organization or changes its slug.
func (s *Service) Update(ctx context.Context, id uuid.UUID, name, slug string) (Organization, error) {
	org, err := s.repo.Get(ctx, id)
	if err != nil {
		return Organization{}, err
	}
	if name = strings.TrimSpace(name); name != "" {
		org.Name = name
	}
	if slug = strings.ToLower(strings.TrimSpace(slug)); slug != "" {
		if !slugPattern.MatchString(slug) {
			return Organization{}, fmt.Errorf("orgs: invalid slug %q", slug)
		}
		org.Slug = slug
	}
	org.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, org); err != nil {
		return Organization{}, err
	}
	return org, nil
}

var (
	slugPattern    = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugScrubber   = regexp.MustCompile(`[^a-z0-9]+`)
	slugTrimDashes = regexp.MustCompile(`^-+|-+$`)
)

// Slugify derives a URL-safe slug from a display name.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugScrubber.ReplaceAllString(slug, "-")
	slug = slugTrimDashes.ReplaceAllString(slug, "")
	return slug
}
