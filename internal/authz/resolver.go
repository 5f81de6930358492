package authz

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Store loads the membership data resolution runs over. Implementations
// return nil (not an error) when no membership or resource row exists;
// only genuine data-access faults are errors.
type Store interface {
	OrganizationMembership(ctx context.Context, userID, orgID uuid.UUID) (*Membership, error)
	ProjectMembership(ctx context.Context, userID, projectID uuid.UUID) (*ProjectMembership, error)
	ProjectOrganization(ctx context.Context, projectID uuid.UUID) (*uuid.UUID, error)
	Task(ctx context.Context, taskID uuid.UUID) (*TaskRef, error)
}

// Resolver answers "does user U hold permission P on resource R". It is a
// pure read over Store; absence of any membership is false, never an error.
type Resolver struct {
	store Store
}

// NewResolver constructs a Resolver.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve walks the override → role → organization-fallback chain for the
// given resource kind. Storage faults surface as ErrCheckFailed; callers
// fail closed on them.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, kind ResourceKind, resourceID uuid.UUID, permission string) (bool, error) {
	switch kind {
	case KindOrganization:
		return r.resolveOrganization(ctx, userID, resourceID, permission)
	case KindProject:
		return r.resolveProject(ctx, userID, resourceID, permission)
	case KindTask:
		return r.resolveTask(ctx, userID, resourceID, permission)
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
}

func (r *Resolver) resolveOrganization(ctx context.Context, userID, orgID uuid.UUID, permission string) (bool, error) {
	member, err := r.store.OrganizationMembership(ctx, userID, orgID)
	if err != nil {
		return false, checkFailed(err)
	}
	return member.Has(permission), nil
}

func (r *Resolver) resolveProject(ctx context.Context, userID, projectID uuid.UUID, permission string) (bool, error) {
	member, err := r.store.ProjectMembership(ctx, userID, projectID)
	if err != nil {
		return false, checkFailed(err)
	}
	if member == nil {
		// Organization members who were never explicitly added to the
		// project inherit the organization-level check for the same
		// permission name. This is how org admins act on projects they
		// are not enrolled in.
		orgID, err := r.store.ProjectOrganization(ctx, projectID)
		if err != nil {
			return false, checkFailed(err)
		}
		if orgID == nil {
			return false, nil
		}
		return r.resolveOrganization(ctx, userID, *orgID, permission)
	}
	// An override for this exact permission name is the final answer; the
	// role's own set is not consulted.
	if granted, ok := member.Overrides[permission]; ok {
		return granted, nil
	}
	return member.Has(permission), nil
}

func (r *Resolver) resolveTask(ctx context.Context, userID, taskID uuid.UUID, permission string) (bool, error) {
	task, err := r.store.Task(ctx, taskID)
	if err != nil {
		return false, checkFailed(err)
	}
	if task == nil {
		return false, nil
	}
	// Task creators keep full control over their own tasks regardless of
	// membership.
	if task.CreatorID == userID {
		return true, nil
	}
	return r.resolveProject(ctx, userID, task.ProjectID, permission)
}

// EffectivePermissions returns the union of role-derived permissions at the
// given scope(s), with project overrides applied when a project is supplied:
// granted overrides added, denied overrides subtracted. The result is sorted
// by name.
func (r *Resolver) EffectivePermissions(ctx context.Context, userID uuid.UUID, scope Scope) ([]string, error) {
	set := make(map[string]struct{})

	if scope.OrganizationID != nil {
		member, err := r.store.OrganizationMembership(ctx, userID, *scope.OrganizationID)
		if err != nil {
			return nil, checkFailed(err)
		}
		if member != nil {
			for name := range member.Permissions {
				set[name] = struct{}{}
			}
		}
	}

	if scope.ProjectID != nil {
		member, err := r.store.ProjectMembership(ctx, userID, *scope.ProjectID)
		if err != nil {
			return nil, checkFailed(err)
		}
		if member != nil {
			for name := range member.Permissions {
				set[name] = struct{}{}
			}
			for name, granted := range member.Overrides {
				if granted {
					set[name] = struct{}{}
				} else {
					delete(set, name)
				}
			}
		}
	}

	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// RoleName reports the user's role at the given scope: the project role when
// a project is supplied, the organization role otherwise. Empty string means
// no membership.
func (r *Resolver) RoleName(ctx context.Context, userID uuid.UUID, scope Scope) (string, error) {
	if scope.ProjectID != nil {
		member, err := r.store.ProjectMembership(ctx, userID, *scope.ProjectID)
		if err != nil {
			return "", checkFailed(err)
		}
		if member == nil {
			return "", nil
		}
		return member.RoleName, nil
	}
	if scope.OrganizationID != nil {
		member, err := r.store.OrganizationMembership(ctx, userID, *scope.OrganizationID)
		if err != nil {
			return "", checkFailed(err)
		}
		if member == nil {
			return "", nil
		}
		return member.RoleName, nil
	}
	return "", nil
}

func checkFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrCheckFailed, err)
}
