package members

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/worklane/worklane/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for memberships.
type Repository interface {
	GetOrganizationMember(ctx context.Context, orgID, userID uuid.UUID) (OrganizationMember, error)
	ListOrganizationMembers(ctx context.Context, orgID uuid.UUID) ([]OrganizationMember, error)
	CreateOrganizationMember(ctx context.Context, m OrganizationMember) (OrganizationMember, error)
	UpdateOrganizationMemberRole(ctx context.Context, orgID, userID, roleID uuid.UUID) error
	DeleteOrganizationMember(ctx context.Context, orgID, userID uuid.UUID) error

	GetProjectMember(ctx context.Context, projectID, userID uuid.UUID) (ProjectMember, error)
	ListProjectMembers(ctx context.Context, projectID uuid.UUID) ([]ProjectMember, error)
	CreateProjectMember(ctx context.Context, m ProjectMember, overrides []Override) (ProjectMember, error)
	UpdateProjectMember(ctx context.Context, projectID, userID, roleID uuid.UUID, overrides []Override, replaceOverrides bool) error
	DeleteProjectMember(ctx context.Context, projectID, userID uuid.UUID) error

	UpsertOverride(ctx context.Context, o Override) error
	DeleteOverride(ctx context.Context, projectMemberID, permissionID uuid.UUID) error
	ListOverrides(ctx context.Context, projectMemberID uuid.UUID) ([]Override, error)

	ProjectOrganization(ctx context.Context, projectID uuid.UUID) (uuid.UUID, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) GetOrganizationMember(ctx context.Context, orgID, userID uuid.UUID) (OrganizationMember, error) {
	query := `
		SELECT id, organization_id, user_id, role_id, joined_at
		FROM organization_members
		WHERE organization_id = $1 AND user_id = $2
	`
	var m OrganizationMember
	err := r.pool.QueryRow(ctx, query, orgID, userID).Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.RoleID, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OrganizationMember{}, ErrNotFound
		}
		return OrganizationMember{}, err
	}
	return m, nil
}

func (r *repository) ListOrganizationMembers(ctx context.Context, orgID uuid.UUID) ([]OrganizationMember, error) {
	query := `
		SELECT id, organization_id, user_id, role_id, joined_at
		FROM organization_members
		WHERE organization_id = $1
		ORDER BY joined_at
	`
	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrganizationMember
	for rows.Next() {
		var m OrganizationMember
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.RoleID, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateOrganizationMember relies on the (user, organization) unique
// constraint so concurrent adds cannot slip in a second row.
func (r *repository) CreateOrganizationMember(ctx context.Context, m OrganizationMember) (OrganizationMember, error) {
	m.ID = uuid.New()
	query := `
		INSERT INTO organization_members (id, organization_id, user_id, role_id)
		VALUES ($1, $2, $3, $4)
		RETURNING joined_at
	`
	err := r.pool.QueryRow(ctx, query, m.ID, m.OrganizationID, m.UserID, m.RoleID).Scan(&m.JoinedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return OrganizationMember{}, ErrAlreadyMember
		}
		return OrganizationMember{}, err
	}
	return m, nil
}

func (r *repository) UpdateOrganizationMemberRole(ctx context.Context, orgID, userID, roleID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE organization_members SET role_id = $3 WHERE organization_id = $1 AND user_id = $2`, orgID, userID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOrganizationMember removes the membership and, in the same
// transaction, every project membership the user holds in that
// organization's projects. Project access is meaningless without the
// organization row.
func (r *repository) DeleteOrganizationMember(ctx context.Context, orgID, userID uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			DELETE FROM project_members pm
			USING projects p
			WHERE pm.project_id = p.id AND p.organization_id = $1 AND pm.user_id = $2
		`, orgID, userID)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM organization_members WHERE organization_id = $1 AND user_id = $2`, orgID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *repository) GetProjectMember(ctx context.Context, projectID, userID uuid.UUID) (ProjectMember, error) {
	query := `
		SELECT id, project_id, user_id, role_id, joined_at
		FROM project_members
		WHERE project_id = $1 AND user_id = $2
	`
	var m ProjectMember
	err := r.pool.QueryRow(ctx, query, projectID, userID).Scan(&m.ID, &m.ProjectID, &m.UserID, &m.RoleID, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProjectMember{}, ErrNotFound
		}
		return ProjectMember{}, err
	}
	return m, nil
}

func (r *repository) ListProjectMembers(ctx context.Context, projectID uuid.UUID) ([]ProjectMember, error) {
	query := `
		SELECT id, project_id, user_id, role_id, joined_at
		FROM project_members
		WHERE project_id = $1
		ORDER BY joined_at
	`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProjectMember
	for rows.Next() {
		var m ProjectMember
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.RoleID, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateProjectMember inserts the membership and any initial overrides in a
// single transaction so readers see them land together.
func (r *repository) CreateProjectMember(ctx context.Context, m ProjectMember, overrides []Override) (ProjectMember, error) {
	m.ID = uuid.New()
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO project_members (id, project_id, user_id, role_id)
			VALUES ($1, $2, $3, $4)
			RETURNING joined_at
		`
		if err := tx.QueryRow(ctx, query, m.ID, m.ProjectID, m.UserID, m.RoleID).Scan(&m.JoinedAt); err != nil {
			return err
		}
		return upsertOverrides(ctx, tx, m.ID, overrides)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ProjectMember{}, ErrAlreadyProjectMember
		}
		return ProjectMember{}, err
	}
	return m, nil
}

func (r *repository) UpdateProjectMember(ctx context.Context, projectID, userID, roleID uuid.UUID, overrides []Override, replaceOverrides bool) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var memberID uuid.UUID
		err := tx.QueryRow(ctx, `
			UPDATE project_members SET role_id = $3
			WHERE project_id = $1 AND user_id = $2
			RETURNING id
		`, projectID, userID, roleID).Scan(&memberID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if !replaceOverrides {
			return nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM project_member_permissions WHERE project_member_id = $1`, memberID); err != nil {
			return err
		}
		return upsertOverrides(ctx, tx, memberID, overrides)
	})
}

func (r *repository) DeleteProjectMember(ctx context.Context, projectID, userID uuid.UUID) error {
	// Override rows cascade via the project_member_permissions FK.
	tag, err := r.pool.Exec(ctx, `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpsertOverride(ctx context.Context, o Override) error {
	query := `
		INSERT INTO project_member_permissions (project_member_id, permission_id, granted)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_member_id, permission_id) DO UPDATE SET granted = EXCLUDED.granted
	`
	_, err := r.pool.Exec(ctx, query, o.ProjectMemberID, o.PermissionID, o.Granted)
	return err
}

func (r *repository) DeleteOverride(ctx context.Context, projectMemberID, permissionID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM project_member_permissions WHERE project_member_id = $1 AND permission_id = $2`, projectMemberID, permissionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListOverrides(ctx context.Context, projectMemberID uuid.UUID) ([]Override, error) {
	query := `
		SELECT pmp.project_member_id, pmp.permission_id, p.name, pmp.granted
		FROM project_member_permissions pmp
		JOIN permissions p ON p.id = pmp.permission_id
		WHERE pmp.project_member_id = $1
		ORDER BY p.name
	`
	rows, err := r.pool.Query(ctx, query, projectMemberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Override
	for rows.Next() {
		var o Override
		if err := rows.Scan(&o.ProjectMemberID, &o.PermissionID, &o.PermissionName, &o.Granted); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *repository) ProjectOrganization(ctx context.Context, projectID uuid.UUID) (uuid.UUID, error) {
	var orgID uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT organization_id FROM projects WHERE id = $1`, projectID).Scan(&orgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, err
	}
	return orgID, nil
}

func upsertOverrides(ctx context.Context, tx pgx.Tx, memberID uuid.UUID, overrides []Override) error {
	for _, o := range overrides {
		_, err := tx.Exec(ctx, `
			INSERT INTO project_member_permissions (project_member_id, permission_id, granted)
			VALUES ($1, $2, $3)
			ON CONFLICT (project_member_id, permission_id) DO UPDATE SET granted = EXCLUDED.granted
		`, memberID, o.PermissionID, o.Granted)
		if err != nil {
			return err
		}
	}
	return nil
}
