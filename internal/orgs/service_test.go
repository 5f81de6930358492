package orgs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/worklane/worklane/internal/members"
	"github.com/worklane/worklane/internal/roles"
)

type memoryOrgRepo struct {
	orgs    map[uuid.UUID]Organization
	bySlug  map[string]uuid.UUID
	members map[uuid.UUID][]uuid.UUID
}

func newMemoryOrgRepo() *memoryOrgRepo {
	return &memoryOrgRepo{
		orgs:    make(map[uuid.UUID]Organization),
		bySlug:  make(map[string]uuid.UUID),
		members: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (m *memoryOrgRepo) Create(ctx context.Context, org Organization) error {
	if _, taken := m.bySlug[org.Slug]; taken {
		return ErrDuplicateSlug
	}
	m.orgs[org.ID] = org
	m.bySlug[org.Slug] = org.ID
	return nil
}

func (m *memoryOrgRepo) Get(ctx context.Context, id uuid.UUID) (Organization, error) {
	org, ok := m.orgs[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	return org, nil
}

func (m *memoryOrgRepo) GetBySlug(ctx context.Context, slug string) (Organization, error) {
	id, ok := m.bySlug[slug]
	if !ok {
		return Organization{}, ErrNotFound
	}
	return m.orgs[id], nil
}

func (m *memoryOrgRepo) Update(ctx context.Context, org Organization) error {
	current, ok := m.orgs[org.ID]
	if !ok {
		return ErrNotFound
	}
	if id, taken := m.bySlug[org.Slug]; taken && id != org.ID {
		return ErrDuplicateSlug
	}
	delete(m.bySlug, current.Slug)
	m.orgs[org.ID] = org
	m.bySlug[org.Slug] = org.ID
	return nil
}

func (m *memoryOrgRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]Organization, error) {
	var out []Organization
	for _, id := range m.members[userID] {
		out = append(out, m.orgs[id])
	}
	return out, nil
}

type stubProvisioner struct {
	cloned    []uuid.UUID
	adminRole roles.Role
	cloneErr  error
}

func (s *stubProvisioner) CloneSystemRoles(ctx context.Context, orgID uuid.UUID) error {
	if s.cloneErr != nil {
		return s.cloneErr
	}
	s.cloned = append(s.cloned, orgID)
	s.adminRole = roles.Role{ID: uuid.New(), OrganizationID: &orgID, Name: roles.SystemSuperAdmin}
	return nil
}

func (s *stubProvisioner) OrganizationRoleByName(ctx context.Context, orgID uuid.UUID, name string) (roles.Role, error) {
	if s.adminRole.OrganizationID == nil || *s.adminRole.OrganizationID != orgID || s.adminRole.Name != name {
		return roles.Role{}, roles.ErrNotFound
	}
	return s.adminRole, nil
}

type stubEnroller struct {
	repo  *memoryOrgRepo
	added []members.OrganizationMember
}

func (s *stubEnroller) AddOrganizationMember(ctx context.Context, orgID, userID, roleID uuid.UUID) (members.OrganizationMember, error) {
	member := members.OrganizationMember{ID: uuid.New(), OrganizationID: orgID, UserID: userID, RoleID: roleID}
	s.added = append(s.added, member)
	s.repo.members[userID] = append(s.repo.members[userID], orgID)
	return member, nil
}

func newFixture() (*Service, *memoryOrgRepo, *stubProvisioner, *stubEnroller) {
	repo := newMemoryOrgRepo()
	provisioner := &stubProvisioner{}
	enroller := &stubEnroller{repo: repo}
	return NewService(repo, provisioner, enroller), repo, provisioner, enroller
}

func TestCreateProvisionsRolesAndCreator(t *testing.T) {
	svc, repo, provisioner, enroller := newFixture()
	creator := uuid.New()

	org, err := svc.Create(context.Background(), creator, "Acme Corp", "")
	require.NoError(t, err)
	require.Equal(t, "acme-corp", org.Slug)
	require.Len(t, provisioner.cloned, 1)
	require.Equal(t, org.ID, provisioner.cloned[0])

	require.Len(t, enroller.added, 1)
	require.Equal(t, creator, enroller.added[0].UserID)
	require.Equal(t, provisioner.adminRole.ID, enroller.added[0].RoleID)

	mine, err := svc.ListForUser(context.Background(), creator)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	_, err = repo.GetBySlug(context.Background(), "acme-corp")
	require.NoError(t, err)
}

func TestCreateRejectsDuplicateSlug(t *testing.T) {
	svc, _, _, _ := newFixture()
	creator := uuid.New()

	_, err := svc.Create(context.Background(), creator, "Acme", "acme")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), creator, "Acme Two", "acme")
	require.ErrorIs(t, err, ErrDuplicateSlug)
}

func TestCreateRejectsInvalidSlug(t *testing.T) {
	svc, _, _, _ := newFixture()
	_, err := svc.Create(context.Background(), uuid.New(), "Acme", "Not A Slug!")
	require.Error(t, err)
}

func TestUpdateRenames(t *testing.T) {
	svc, _, _, _ := newFixture()
	org, err := svc.Create(context.Background(), uuid.New(), "Acme", "acme")
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), org.ID, "Acme Inc", "")
	require.NoError(t, err)
	require.Equal(t, "Acme Inc", updated.Name)
	require.Equal(t, "acme", updated.Slug)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Acme Corp":        "acme-corp",
		"  Alpha / Beta  ": "alpha-beta",
		"Already-Slugged":  "already-slugged",
		"--edge--":         "edge",
	}
	for in, want := range cases {
		require.Equal(t, want, Slugify(in), "input %q", in)
	}
}
