package authz

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type store struct {
	pool *pgxpool.Pool
}

// NewStore builds the PostgreSQL-backed Store the Resolver reads from.
func NewStore(pool *pgxpool.Pool) Store {
	return &store{pool: pool}
}

func (s *store) OrganizationMembership(ctx context.Context, userID, orgID uuid.UUID) (*Membership, error) {
	query := `
		SELECT r.name, COALESCE(p.name, '')
		FROM organization_members om
		JOIN roles r ON r.id = om.role_id
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		LEFT JOIN permissions p ON p.id = rp.permission_id
		WHERE om.user_id = $1 AND om.organization_id = $2
	`
	rows, err := s.pool.Query(ctx, query, userID, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var member *Membership
	for rows.Next() {
		var roleName, permName string
		if err := rows.Scan(&roleName, &permName); err != nil {
			return nil, err
		}
		if member == nil {
			member = &Membership{RoleName: roleName, Permissions: make(map[string]struct{})}
		}
		if permName != "" {
			member.Permissions[permName] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *store) ProjectMembership(ctx context.Context, userID, projectID uuid.UUID) (*ProjectMembership, error) {
	query := `
		SELECT pm.id, r.name, COALESCE(p.name, '')
		FROM project_members pm
		JOIN roles r ON r.id = pm.role_id
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		LEFT JOIN permissions p ON p.id = rp.permission_id
		WHERE pm.user_id = $1 AND pm.project_id = $2
	`
	rows, err := s.pool.Query(ctx, query, userID, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var member *ProjectMembership
	var memberID uuid.UUID
	for rows.Next() {
		var roleName, permName string
		if err := rows.Scan(&memberID, &roleName, &permName); err != nil {
			return nil, err
		}
		if member == nil {
			member = &ProjectMembership{
				Membership: Membership{RoleName: roleName, Permissions: make(map[string]struct{})},
				Overrides:  make(map[string]bool),
			}
		}
		if permName != "" {
			member.Permissions[permName] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if member == nil {
		return nil, nil
	}

	overrideQuery := `
		SELECT p.name, pmp.granted
		FROM project_member_permissions pmp
		JOIN permissions p ON p.id = pmp.permission_id
		WHERE pmp.project_member_id = $1
	`
	oRows, err := s.pool.Query(ctx, overrideQuery, memberID)
	if err != nil {
		return nil, err
	}
	defer oRows.Close()
	for oRows.Next() {
		var name string
		var granted bool
		if err := oRows.Scan(&name, &granted); err != nil {
			return nil, err
		}
		member.Overrides[name] = granted
	}
	if err := oRows.Err(); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *store) ProjectOrganization(ctx context.Context, projectID uuid.UUID) (*uuid.UUID, error) {
	var orgID uuid.UUID
	err := s.pool.QueryRow(ctx, `SELECT organization_id FROM projects WHERE id = $1`, projectID).Scan(&orgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &orgID, nil
}

func (s *store) Task(ctx context.Context, taskID uuid.UUID) (*TaskRef, error) {
	var ref TaskRef
	err := s.pool.QueryRow(ctx, `SELECT creator_id, project_id FROM tasks WHERE id = $1`, taskID).Scan(&ref.CreatorID, &ref.ProjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}
