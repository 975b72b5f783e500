package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commercehq/staff-access-service/internal/domain"
)

// RBACRepository manages roles, permissions and the role↔permission edges.
type RBACRepository interface {
	CreateRole(ctx context.Context, role *domain.Role) error
	GetRoleByID(ctx context.Context, id string) (*domain.Role, error)
	ListRoles(ctx context.Context) ([]domain.RoleWithPermissions, error)
	CreatePermission(ctx context.Context, permission *domain.Permission) error
	GetPermissionByCode(ctx context.Context, code string) (*domain.Permission, error)
	ListPermissions(ctx context.Context) ([]domain.Permission, error)
	AddRolePermission(ctx context.Context, roleID, permissionID string) error
	// ReplaceRolePermissions swaps a role's full permission set
	// (delete-then-insert) inside one transaction.
	ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error
	// Seed installs the standard catalogue atomically: all permission codes,
	// all roles, and every role's full permission set, or nothing.
	Seed(ctx context.Context, permissions []domain.PermissionSeed, roles []domain.RoleSeed) error
}

type rbacRepository struct {
	pool *pgxpool.Pool
}

// NewRBACRepository instantiates the repository.
func NewRBACRepository(pool *pgxpool.Pool) RBACRepository {
	return &rbacRepository{pool: pool}
}

func (r *rbacRepository) CreateRole(ctx context.Context, role *domain.Role) error {
	const query = `
        INSERT INTO roles (name, description)
        VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, role.Name, role.Description).
		Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
}

func (r *rbacRepository) GetRoleByID(ctx context.Context, id string) (*domain.Role, error) {
	const query = `SELECT id, name, description, created_at, updated_at FROM roles WHERE id=$1`
	var role domain.Role
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&role.ID,
		&role.Name,
		&role.Description,
		&role.CreatedAt,
		&role.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *rbacRepository) ListRoles(ctx context.Context) ([]domain.RoleWithPermissions, error) {
	const query = `
        SELECT r.id, r.name, r.description, r.created_at, r.updated_at,
               COALESCE(ARRAY_AGG(p.code ORDER BY p.code) FILTER (WHERE p.code IS NOT NULL), '{}')
        FROM roles r
        LEFT JOIN role_permissions rp ON rp.role_id = r.id
        LEFT JOIN permissions p ON p.id = rp.permission_id
        GROUP BY r.id
        ORDER BY r.name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RoleWithPermissions
	for rows.Next() {
		var role domain.RoleWithPermissions
		if err := rows.Scan(
			&role.ID,
			&role.Name,
			&role.Description,
			&role.CreatedAt,
			&role.UpdatedAt,
			&role.Permissions,
		); err != nil {
			return nil, err
		}
		result = append(result, role)
	}
	return result, rows.Err()
}

func (r *rbacRepository) CreatePermission(ctx context.Context, permission *domain.Permission) error {
	const query = `
        INSERT INTO permissions (code, description)
        VALUES ($1,$2)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, permission.Code, permission.Description).
		Scan(&permission.ID, &permission.CreatedAt)
}

func (r *rbacRepository) GetPermissionByCode(ctx context.Context, code string) (*domain.Permission, error) {
	const query = `SELECT id, code, description, created_at FROM permissions WHERE code=$1`
	var permission domain.Permission
	if err := r.pool.QueryRow(ctx, query, code).Scan(
		&permission.ID,
		&permission.Code,
		&permission.Description,
		&permission.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &permission, nil
}

func (r *rbacRepository) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	const query = `SELECT id, code, description, created_at FROM permissions ORDER BY code`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Permission
	for rows.Next() {
		var permission domain.Permission
		if err := rows.Scan(
			&permission.ID,
			&permission.Code,
			&permission.Description,
			&permission.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, permission)
	}
	return result, rows.Err()
}

func (r *rbacRepository) AddRolePermission(ctx context.Context, roleID, permissionID string) error {
	const query = `
        INSERT INTO role_permissions (role_id, permission_id)
        VALUES ($1,$2)
        ON CONFLICT (role_id, permission_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, roleID, permissionID)
	return err
}

func (r *rbacRepository) ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := replaceRolePermissionsTx(ctx, tx, roleID, permissionIDs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *rbacRepository) Seed(ctx context.Context, permissions []domain.PermissionSeed, roles []domain.RoleSeed) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const upsertPermission = `
        INSERT INTO permissions (code, description)
        VALUES ($1,$2)
        ON CONFLICT (code) DO UPDATE SET description = EXCLUDED.description
        RETURNING id`
	permissionIDs := make(map[string]string, len(permissions))
	for _, p := range permissions {
		var id string
		if err := tx.QueryRow(ctx, upsertPermission, p.Code, p.Description).Scan(&id); err != nil {
			return err
		}
		permissionIDs[p.Code] = id
	}

	const upsertRole = `
        INSERT INTO roles (name, description)
        VALUES ($1,$2)
        ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, updated_at = NOW()
        RETURNING id`
	for _, seed := range roles {
		var roleID string
		if err := tx.QueryRow(ctx, upsertRole, seed.Name, seed.Description).Scan(&roleID); err != nil {
			return err
		}
		ids := make([]string, 0, len(seed.Permissions))
		for _, code := range seed.Permissions {
			id, ok := permissionIDs[code]
			if !ok {
				return fmt.Errorf("role %s references unknown permission code %s", seed.Name, code)
			}
			ids = append(ids, id)
		}
		if err := replaceRolePermissionsTx(ctx, tx, roleID, ids); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func replaceRolePermissionsTx(ctx context.Context, tx pgx.Tx, roleID string, permissionIDs []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id=$1`, roleID); err != nil {
		return err
	}
	const insert = `INSERT INTO role_permissions (role_id, permission_id) VALUES ($1,$2)`
	for _, permissionID := range permissionIDs {
		if _, err := tx.Exec(ctx, insert, roleID, permissionID); err != nil {
			return err
		}
	}
	return nil
}
