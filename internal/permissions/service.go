package permissions

import (
	"context"
	"fmt"
	"strings"
)

// Service handles catalog business logic.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Define registers a new permission in the catalog.
func (s *Service) Define(ctx context.Context, name, description string, category Category) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, fmt.Errorf("permissions: name required")
	}
	if !category.Valid() {
		return Permission{}, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	return s.repo.Create(ctx, Permission{
		Name:        name,
		Description: strings.TrimSpace(description),
		Category:    category,
	})
}

// List returns the whole catalog ordered by name.
func (s *Service) List(ctx context.Context) ([]Permission, error) {
	return s.repo.List(ctx)
}

// ListByCategory returns permissions tagged with the category, by name ascending.
func (s *Service) ListByCategory(ctx context.Context, category Category) ([]Permission, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	return s.repo.ListByCategory(ctx, category)
}

// ResolveNames maps permission names to catalog entries. Any name missing
// from the catalog fails the whole call with ErrUnknown; callers that want
// lenient behavior must filter beforehand.
func (s *Service) ResolveNames(ctx context.Context, names []string) ([]Permission, error) {
	perms := make([]Permission, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		p, err := s.repo.GetByName(ctx, name)
		if err != nil {
			if err == ErrUnknown {
				return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
			}
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, nil
}

// EnsureCatalog upserts the default catalog. Safe to re-run; it never
// duplicates entries.
func (s *Service) EnsureCatalog(ctx context.Context) error {
	for _, def := range DefaultCatalog() {
		if err := s.repo.Upsert(ctx, def); err != nil {
			return fmt.Errorf("permissions: ensure %s: %w", def.Name, err)
		}
	}
	return nil
}
