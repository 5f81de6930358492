package members

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/worklane/worklane/internal/permissions"
	"github.com/worklane/worklane/internal/roles"
)

type memoryMemberRepo struct {
	orgMembers  map[string]OrganizationMember // key org|user
	projMembers map[string]ProjectMember      // key project|user
	overrides   map[uuid.UUID][]Override
	projectOrg  map[uuid.UUID]uuid.UUID
}

func orgKey(orgID, userID uuid.UUID) string      { return orgID.String() + "|" + userID.String() }
func projKey(projectID, userID uuid.UUID) string { return projectID.String() + "|" + userID.String() }

func newMemoryMemberRepo() *memoryMemberRepo {
	return &memoryMemberRepo{
		orgMembers:  make(map[string]OrganizationMember),
		projMembers: make(map[string]ProjectMember),
		overrides:   make(map[uuid.UUID][]Override),
		projectOrg:  make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *memoryMemberRepo) GetOrganizationMember(ctx context.Context, orgID, userID uuid.UUID) (OrganizationMember, error) {
	member, ok := m.orgMembers[orgKey(orgID, userID)]
	if !ok {
		return OrganizationMember{}, ErrNotFound
	}
	return member, nil
}

func (m *memoryMemberRepo) ListOrganizationMembers(ctx context.Context, orgID uuid.UUID) ([]OrganizationMember, error) {
	var out []OrganizationMember
	for _, member := range m.orgMembers {
		if member.OrganizationID == orgID {
			out = append(out, member)
		}
	}
	return out, nil
}

func (m *memoryMemberRepo) CreateOrganizationMember(ctx context.Context, member OrganizationMember) (OrganizationMember, error) {
	key := orgKey(member.OrganizationID, member.UserID)
	if _, ok := m.orgMembers[key]; ok {
		return OrganizationMember{}, ErrAlreadyMember
	}
	member.ID = uuid.New()
	member.JoinedAt = time.Now()
	m.orgMembers[key] = member
	return member, nil
}

func (m *memoryMemberRepo) UpdateOrganizationMemberRole(ctx context.Context, orgID, userID, roleID uuid.UUID) error {
	key := orgKey(orgID, userID)
	member, ok := m.orgMembers[key]
	if !ok {
		return ErrNotFound
	}
	member.RoleID = roleID
	m.orgMembers[key] = member
	return nil
}

func (m *memoryMemberRepo) DeleteOrganizationMember(ctx context.Context, orgID, userID uuid.UUID) error {
	key := orgKey(orgID, userID)
	if _, ok := m.orgMembers[key]; !ok {
		return ErrNotFound
	}
	delete(m.orgMembers, key)
	for k, pm := range m.projMembers {
		if pm.UserID == userID && m.projectOrg[pm.ProjectID] == orgID {
			delete(m.overrides, pm.ID)
			delete(m.projMembers, k)
		}
	}
	return nil
}

func (m *memoryMemberRepo) GetProjectMember(ctx context.Context, projectID, userID uuid.UUID) (ProjectMember, error) {
	member, ok := m.projMembers[projKey(projectID, userID)]
	if !ok {
		return ProjectMember{}, ErrNotFound
	}
	return member, nil
}

func (m *memoryMemberRepo) ListProjectMembers(ctx context.Context, projectID uuid.UUID) ([]ProjectMember, error) {
	var out []ProjectMember
	for _, member := range m.projMembers {
		if member.ProjectID == projectID {
			out = append(out, member)
		}
	}
	return out, nil
}

func (m *memoryMemberRepo) CreateProjectMember(ctx context.Context, member ProjectMember, overrides []Override) (ProjectMember, error) {
	key := projKey(member.ProjectID, member.UserID)
	if _, ok := m.projMembers[key]; ok {
		return ProjectMember{}, ErrAlreadyProjectMember
	}
	member.ID = uuid.New()
	member.JoinedAt = time.Now()
	m.projMembers[key] = member
	for i := range overrides {
		overrides[i].ProjectMemberID = member.ID
	}
	m.overrides[member.ID] = overrides
	return member, nil
}

func (m *memoryMemberRepo) UpdateProjectMember(ctx context.Context, projectID, userID, roleID uuid.UUID, overrides []Override, replaceOverrides bool) error {
	key := projKey(projectID, userID)
	member, ok := m.projMembers[key]
	if !ok {
		return ErrNotFound
	}
	member.RoleID = roleID
	m.projMembers[key] = member
	if replaceOverrides {
		for i := range overrides {
			overrides[i].ProjectMemberID = member.ID
		}
		m.overrides[member.ID] = overrides
	}
	return nil
}

func (m *memoryMemberRepo) DeleteProjectMember(ctx context.Context, projectID, userID uuid.UUID) error {
	key := projKey(projectID, userID)
	member, ok := m.projMembers[key]
	if !ok {
		return ErrNotFound
	}
	delete(m.overrides, member.ID)
	delete(m.projMembers, key)
	return nil
}

func (m *memoryMemberRepo) UpsertOverride(ctx context.Context, o Override) error {
	existing := m.overrides[o.ProjectMemberID]
	for i := range existing {
		if existing[i].PermissionID == o.PermissionID {
			existing[i].Granted = o.Granted
			return nil
		}
	}
	m.overrides[o.ProjectMemberID] = append(existing, o)
	return nil
}

func (m *memoryMemberRepo) DeleteOverride(ctx context.Context, projectMemberID, permissionID uuid.UUID) error {
	existing := m.overrides[projectMemberID]
	for i := range existing {
		if existing[i].PermissionID == permissionID {
			m.overrides[projectMemberID] = append(existing[:i], existing[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memoryMemberRepo) ListOverrides(ctx context.Context, projectMemberID uuid.UUID) ([]Override, error) {
	return m.overrides[projectMemberID], nil
}

func (m *memoryMemberRepo) ProjectOrganization(ctx context.Context, projectID uuid.UUID) (uuid.UUID, error) {
	orgID, ok := m.projectOrg[projectID]
	if !ok {
		return uuid.Nil, ErrNotFound
	}
	return orgID, nil
}

type stubRoleDir struct {
	roles map[uuid.UUID]roles.Role
}

func (s *stubRoleDir) Get(ctx context.Context, id uuid.UUID) (roles.Role, error) {
	role, ok := s.roles[id]
	if !ok {
		return roles.Role{}, roles.ErrNotFound
	}
	return role, nil
}

type stubPermResolver struct {
	byName map[string]permissions.Permission
}

func (s *stubPermResolver) ResolveNames(ctx context.Context, names []string) ([]permissions.Permission, error) {
	var out []permissions.Permission
	for _, name := range names {
		p, ok := s.byName[name]
		if !ok {
			return nil, permissions.ErrUnknown
		}
		out = append(out, p)
	}
	return out, nil
}

type fixture struct {
	svc     *Service
	repo    *memoryMemberRepo
	orgID   uuid.UUID
	roleID  uuid.UUID
	projID  uuid.UUID
	roleDir *stubRoleDir
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemoryMemberRepo()
	orgID := uuid.New()
	roleID := uuid.New()
	projID := uuid.New()
	repo.projectOrg[projID] = orgID

	roleDir := &stubRoleDir{roles: map[uuid.UUID]roles.Role{
		roleID: {ID: roleID, OrganizationID: &orgID, Name: "MEMBER"},
	}}
	perms := &stubPermResolver{byName: map[string]permissions.Permission{
		permissions.EditProject: {ID: uuid.New(), Name: permissions.EditProject, Category: permissions.CategoryProject},
		permissions.ViewProject: {ID: uuid.New(), Name: permissions.ViewProject, Category: permissions.CategoryProject},
	}}
	return &fixture{
		svc:     NewService(repo, roleDir, perms),
		repo:    repo,
		orgID:   orgID,
		roleID:  roleID,
		projID:  projID,
		roleDir: roleDir,
	}
}

func TestAddOrganizationMemberUniqueness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.svc.AddOrganizationMember(ctx, f.orgID, userID, f.roleID)
	require.NoError(t, err)

	_, err = f.svc.AddOrganizationMember(ctx, f.orgID, userID, f.roleID)
	require.ErrorIs(t, err, ErrAlreadyMember)
}

func TestAddOrganizationMemberRejectsForeignRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	otherOrg := uuid.New()
	foreignRole := uuid.New()
	f.roleDir.roles[foreignRole] = roles.Role{ID: foreignRole, OrganizationID: &otherOrg}

	_, err := f.svc.AddOrganizationMember(ctx, f.orgID, uuid.New(), foreignRole)
	require.ErrorIs(t, err, ErrRoleNotInOrganization)

	// System templates are not assignable either.
	tmplRole := uuid.New()
	f.roleDir.roles[tmplRole] = roles.Role{ID: tmplRole, IsSystem: true}
	_, err = f.svc.AddOrganizationMember(ctx, f.orgID, uuid.New(), tmplRole)
	require.ErrorIs(t, err, ErrRoleNotInOrganization)
}

func TestUpdateOrganizationMemberRoleIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	created, err := f.svc.AddOrganizationMember(ctx, f.orgID, userID, f.roleID)
	require.NoError(t, err)

	same, err := f.svc.UpdateOrganizationMemberRole(ctx, f.orgID, userID, f.roleID)
	require.NoError(t, err)
	require.Equal(t, created.ID, same.ID)
	require.Equal(t, f.roleID, same.RoleID)
}

func TestRemoveOrganizationMemberCascadesProjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actorID := uuid.New()
	userID := uuid.New()

	_, err := f.svc.AddOrganizationMember(ctx, f.orgID, userID, f.roleID)
	require.NoError(t, err)
	pm, err := f.svc.AddProjectMember(ctx, f.projID, userID, f.roleID, []OverrideInput{
		{PermissionName: permissions.EditProject, Granted: true},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveOrganizationMember(ctx, actorID, f.orgID, userID))

	_, err = f.svc.GetOrganizationMember(ctx, f.orgID, userID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.GetProjectMember(ctx, f.projID, userID)
	require.ErrorIs(t, err, ErrNotFound)
	overrides, err := f.svc.ListOverrides(ctx, pm.ID)
	require.NoError(t, err)
	require.Empty(t, overrides)
}

func TestSelfRemovalRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.svc.AddOrganizationMember(ctx, f.orgID, userID, f.roleID)
	require.NoError(t, err)

	err = f.svc.RemoveOrganizationMember(ctx, userID, f.orgID, userID)
	require.ErrorIs(t, err, ErrSelfRemoval)

	// Membership untouched by the rejected call.
	_, err = f.svc.GetOrganizationMember(ctx, f.orgID, userID)
	require.NoError(t, err)
}

func TestAddProjectMemberRequiresOrganizationMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddProjectMember(ctx, f.projID, uuid.New(), f.roleID, nil)
	require.ErrorIs(t, err, ErrNotOrganizationMember)
}

func TestAddProjectMemberAppliesInitialOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.svc.AddOrganizationMember(ctx, f.orgID, userID, f.roleID)
	require.NoError(t, err)

	pm, err := f.svc.AddProjectMember(ctx, f.projID, userID, f.roleID, []OverrideInput{
		{PermissionName: permissions.EditProject, Granted: true},
		{PermissionName: permissions.ViewProject, Granted: false},
	})
	require.NoError(t, err)

	overrides, err := f.svc.ListOverrides(ctx, pm.ID)
	require.NoError(t, err)
	require.Len(t, overrides, 2)

	_, err = f.svc.AddProjectMember(ctx, f.projID, userID, f.roleID, nil)
	require.ErrorIs(t, err, ErrAlreadyProjectMember)
}

func TestAddProjectMemberRejectsUnknownOverridePermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.svc.AddOrganizationMember(ctx, f.orgID, userID, f.roleID)
	require.NoError(t, err)

	_, err = f.svc.AddProjectMember(ctx, f.projID, userID, f.roleID, []OverrideInput{
		{PermissionName: "NOT_A_PERMISSION", Granted: true},
	})
	require.ErrorIs(t, err, permissions.ErrUnknown)
}

func TestSetAndClearOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.svc.AddOrganizationMember(ctx, f.orgID, userID, f.roleID)
	require.NoError(t, err)
	pm, err := f.svc.AddProjectMember(ctx, f.projID, userID, f.roleID, nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.SetOverride(ctx, f.projID, userID, permissions.EditProject, true))
	require.NoError(t, f.svc.SetOverride(ctx, f.projID, userID, permissions.EditProject, false))

	overrides, err := f.svc.ListOverrides(ctx, pm.ID)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	require.False(t, overrides[0].Granted)

	require.NoError(t, f.svc.ClearOverride(ctx, f.projID, userID, permissions.EditProject))
	overrides, err = f.svc.ListOverrides(ctx, pm.ID)
	require.NoError(t, err)
	require.Empty(t, overrides)
}

func TestRemoveProjectMemberCascadesOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.svc.AddOrganizationMember(ctx, f.orgID, userID, f.roleID)
	require.NoError(t, err)
	pm, err := f.svc.AddProjectMember(ctx, f.projID, userID, f.roleID, []OverrideInput{
		{PermissionName: permissions.EditProject, Granted: true},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveProjectMember(ctx, f.projID, userID))
	overrides, err := f.svc.ListOverrides(ctx, pm.ID)
	require.NoError(t, err)
	require.Empty(t, overrides)
}
