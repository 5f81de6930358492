package roles

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/worklane/worklane/internal/permissions"
	"github.com/worklane/worklane/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for roles.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (Role, error)
	GetWithPermissions(ctx context.Context, id uuid.UUID) (WithPermissions, error)
	FindByName(ctx context.Context, orgID *uuid.UUID, name string) (Role, error)
	ListSystem(ctx context.Context) ([]WithPermissions, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]WithPermissions, error)
	Create(ctx context.Context, role Role, permissionIDs []uuid.UUID) (Role, error)
	Update(ctx context.Context, id uuid.UUID, name, description string, permissionIDs []uuid.UUID, replacePermissions bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	MemberCount(ctx context.Context, id uuid.UUID) (int, error)
	UpsertOrganizationClone(ctx context.Context, orgID uuid.UUID, name, description string, permissionIDs []uuid.UUID) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const roleColumns = `id, organization_id, name, description, is_system, created_at, updated_at`

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.OrganizationID, &role.Name, &role.Description, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
}

func (r *repository) FindByName(ctx context.Context, orgID *uuid.UUID, name string) (Role, error) {
	if orgID == nil {
		return scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE organization_id IS NULL AND name = $1`, name))
	}
	return scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE organization_id = $1 AND name = $2`, *orgID, name))
}

func (r *repository) GetWithPermissions(ctx context.Context, id uuid.UUID) (WithPermissions, error) {
	role, err := r.Get(ctx, id)
	if err != nil {
		return WithPermissions{}, err
	}
	perms, err := r.rolePermissions(ctx, id)
	if err != nil {
		return WithPermissions{}, err
	}
	return WithPermissions{Role: role, Permissions: perms}, nil
}

func (r *repository) rolePermissions(ctx context.Context, roleID uuid.UUID) ([]permissions.Permission, error) {
	query := `
		SELECT p.id, p.name, p.description, p.category
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.name
	`
	rows, err := r.pool.Query(ctx, query, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []permissions.Permission
	for rows.Next() {
		var p permissions.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r *repository) ListSystem(ctx context.Context) ([]WithPermissions, error) {
	return r.listWithPermissions(ctx, `SELECT `+roleColumns+` FROM roles WHERE organization_id IS NULL AND is_system ORDER BY name`)
}

func (r *repository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]WithPermissions, error) {
	return r.listWithPermissions(ctx, `SELECT `+roleColumns+` FROM roles WHERE organization_id = $1 ORDER BY created_at`, orgID)
}

func (r *repository) listWithPermissions(ctx context.Context, query string, args ...any) ([]WithPermissions, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WithPermissions
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, WithPermissions{Role: role})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		perms, err := r.rolePermissions(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Permissions = perms
	}
	return out, nil
}

func (r *repository) Create(ctx context.Context, role Role, permissionIDs []uuid.UUID) (Role, error) {
	role.ID = uuid.New()
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO roles (id, organization_id, name, description, is_system)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at, updated_at
		`
		if err := tx.QueryRow(ctx, query, role.ID, role.OrganizationID, role.Name, role.Description, role.IsSystem).
			Scan(&role.CreatedAt, &role.UpdatedAt); err != nil {
			return err
		}
		return attachPermissions(ctx, tx, role.ID, permissionIDs)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Role{}, ErrDuplicateName
		}
		return Role{}, err
	}
	return role, nil
}

// Update replaces role fields and, when replacePermissions is set, the whole
// permission link set. Clear and re-add run inside one transaction so readers
// never observe an empty set mid-update.
func (r *repository) Update(ctx context.Context, id uuid.UUID, name, description string, permissionIDs []uuid.UUID, replacePermissions bool) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE roles SET name = $2, description = $3, updated_at = $4 WHERE id = $1`, id, name, description, time.Now())
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if !replacePermissions {
			return nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		return attachPermissions(ctx, tx, id, permissionIDs)
	})
	if db.IsUniqueViolation(err) {
		return ErrDuplicateName
	}
	return err
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) MemberCount(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		SELECT (SELECT COUNT(*) FROM organization_members WHERE role_id = $1)
		     + (SELECT COUNT(*) FROM project_members WHERE role_id = $1)
	`
	var count int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// UpsertOrganizationClone creates or refreshes the organization-owned copy of
// a system role, replacing its permission links in the same transaction.
func (r *repository) UpsertOrganizationClone(ctx context.Context, orgID uuid.UUID, name, description string, permissionIDs []uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var roleID uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM roles WHERE organization_id = $1 AND name = $2`, orgID, name).Scan(&roleID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			roleID = uuid.New()
			_, err = tx.Exec(ctx, `INSERT INTO roles (id, organization_id, name, description, is_system) VALUES ($1, $2, $3, $4, FALSE)`,
				roleID, orgID, name, description)
			if err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			_, err = tx.Exec(ctx, `UPDATE roles SET description = $2, updated_at = $3 WHERE id = $1`, roleID, description, time.Now())
			if err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		return attachPermissions(ctx, tx, roleID, permissionIDs)
	})
}

func attachPermissions(ctx context.Context, tx pgx.Tx, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	for _, pid := range permissionIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, roleID, pid); err != nil {
			return err
		}
	}
	return nil
}
