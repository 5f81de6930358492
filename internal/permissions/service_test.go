package permissions

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryCatalog struct {
	byName map[string]Permission
}

func newMemoryCatalog() *memoryCatalog {
	return &memoryCatalog{byName: make(map[string]Permission)}
}

func (m *memoryCatalog) Create(ctx context.Context, p Permission) (Permission, error) {
	if _, ok := m.byName[p.Name]; ok {
		return Permission{}, ErrDuplicateName
	}
	p.ID = uuid.New()
	m.byName[p.Name] = p
	return p, nil
}

func (m *memoryCatalog) Upsert(ctx context.Context, def Definition) error {
	if existing, ok := m.byName[def.Name]; ok {
		existing.Description = def.Description
		existing.Category = def.Category
		m.byName[def.Name] = existing
		return nil
	}
	m.byName[def.Name] = Permission{
		ID:          uuid.New(),
		Name:        def.Name,
		Description: def.Description,
		Category:    def.Category,
	}
	return nil
}

func (m *memoryCatalog) GetByName(ctx context.Context, name string) (Permission, error) {
	p, ok := m.byName[name]
	if !ok {
		return Permission{}, ErrUnknown
	}
	return p, nil
}

func (m *memoryCatalog) List(ctx context.Context) ([]Permission, error) {
	return m.sorted(func(Permission) bool { return true }), nil
}

func (m *memoryCatalog) ListByCategory(ctx context.Context, category Category) ([]Permission, error) {
	return m.sorted(func(p Permission) bool { return p.Category == category }), nil
}

func (m *memoryCatalog) sorted(keep func(Permission) bool) []Permission {
	var out []Permission
	for _, p := range m.byName {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func TestDefineRejectsDuplicateName(t *testing.T) {
	svc := NewService(newMemoryCatalog())
	ctx := context.Background()

	_, err := svc.Define(ctx, "EXPORT_REPORTS", "Export reports", CategoryOrganization)
	require.NoError(t, err)

	_, err = svc.Define(ctx, "EXPORT_REPORTS", "Export reports again", CategoryOrganization)
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestDefineRejectsInvalidCategory(t *testing.T) {
	svc := NewService(newMemoryCatalog())

	_, err := svc.Define(context.Background(), "SOMETHING", "", Category("WORKSPACE"))
	require.ErrorIs(t, err, ErrInvalidCategory)
}

func TestEnsureCatalogIsIdempotent(t *testing.T) {
	repo := newMemoryCatalog()
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.EnsureCatalog(ctx))
	first, err := svc.List(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.EnsureCatalog(ctx))
	second, err := svc.List(ctx)
	require.NoError(t, err)

	require.Len(t, first, len(DefaultCatalog()))
	require.Equal(t, len(first), len(second))
}

func TestListByCategoryOrdersByName(t *testing.T) {
	repo := newMemoryCatalog()
	svc := NewService(repo)
	ctx := context.Background()
	require.NoError(t, svc.EnsureCatalog(ctx))

	perms, err := svc.ListByCategory(ctx, CategoryProject)
	require.NoError(t, err)
	require.NotEmpty(t, perms)
	for i := range perms {
		require.Equal(t, CategoryProject, perms[i].Category)
		if i > 0 {
			require.Less(t, perms[i-1].Name, perms[i].Name)
		}
	}

	_, err = svc.ListByCategory(ctx, Category("BILLING"))
	require.ErrorIs(t, err, ErrInvalidCategory)
}

func TestResolveNamesRejectsUnknown(t *testing.T) {
	repo := newMemoryCatalog()
	svc := NewService(repo)
	ctx := context.Background()
	require.NoError(t, svc.EnsureCatalog(ctx))

	perms, err := svc.ResolveNames(ctx, []string{ViewProject, EditProject, ViewProject})
	require.NoError(t, err)
	require.Len(t, perms, 2)

	_, err = svc.ResolveNames(ctx, []string{ViewProject, "VEIW_PROJECT"})
	require.ErrorIs(t, err, ErrUnknown)
}
