package permissions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/worklane/worklane/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for the catalog.
type Repository interface {
	Create(ctx context.Context, p Permission) (Permission, error)
	Upsert(ctx context.Context, def Definition) error
	GetByName(ctx context.Context, name string) (Permission, error)
	List(ctx context.Context) ([]Permission, error)
	ListByCategory(ctx context.Context, category Category) ([]Permission, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Create(ctx context.Context, p Permission) (Permission, error) {
	query := `
		INSERT INTO permissions (id, name, description, category)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, description, category
	`
	var out Permission
	err := r.pool.QueryRow(ctx, query, uuid.New(), p.Name, p.Description, p.Category).
		Scan(&out.ID, &out.Name, &out.Description, &out.Category)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Permission{}, ErrDuplicateName
		}
		return Permission{}, err
	}
	return out, nil
}

func (r *repository) Upsert(ctx context.Context, def Definition) error {
	query := `
		INSERT INTO permissions (id, name, description, category)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET description = EXCLUDED.description, category = EXCLUDED.category
	`
	_, err := r.pool.Exec(ctx, query, uuid.New(), def.Name, def.Description, def.Category)
	return err
}

func (r *repository) GetByName(ctx context.Context, name string) (Permission, error) {
	query := `SELECT id, name, description, category FROM permissions WHERE name = $1`
	var p Permission
	err := r.pool.QueryRow(ctx, query, name).Scan(&p.ID, &p.Name, &p.Description, &p.Category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, ErrUnknown
		}
		return Permission{}, err
	}
	return p, nil
}

func (r *repository) List(ctx context.Context) ([]Permission, error) {
	return r.list(ctx, `SELECT id, name, description, category FROM permissions ORDER BY name`)
}

func (r *repository) ListByCategory(ctx context.Context, category Category) ([]Permission, error) {
	return r.list(ctx, `SELECT id, name, description, category FROM permissions WHERE category = $1 ORDER BY name`, category)
}

func (r *repository) list(ctx context.Context, query string, args ...any) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}
