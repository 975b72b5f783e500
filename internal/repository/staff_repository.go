package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commercehq/staff-access-service/internal/domain"
)

// StaffRepository handles persistence for staff accounts. Access-bearing
// lookups aggregate roles and permissions in a single joined query so the
// caller never stitches the sets together itself.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffUser) error
	GetByID(ctx context.Context, id string) (*domain.StaffUser, error)
	GetAccessByEmail(ctx context.Context, email string) (*domain.StaffAccess, error)
	GetAccessByID(ctx context.Context, id string) (*domain.StaffAccess, error)
	List(ctx context.Context, filter StaffFilter) ([]domain.StaffUser, error)
	AssignRole(ctx context.Context, staffID, roleID string) error
	RecordLoginFailure(ctx context.Context, id string) error
	RecordLoginSuccess(ctx context.Context, id string) error
	StampLogout(ctx context.Context, id string) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	// ChangePasswordRevokingSessions atomically stores the new hash and
	// revokes every other live session of the staff member, returning the
	// tokens of the sessions it revoked.
	ChangePasswordRevokingSessions(ctx context.Context, staffID, keepSessionID, hash string) ([]string, error)
	// Deactivate atomically clears is_active and revokes all live sessions,
	// returning their tokens.
	Deactivate(ctx context.Context, id string) ([]string, error)
}

// StaffFilter defines query params for staff listing.
type StaffFilter struct {
	Active      *bool
	EmailSearch *string
	RoleID      *string
	Limit       int
	Offset      int
}

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

const staffColumns = `id, name, email, password_hash, is_active, failed_login_attempts,
        last_login_at, last_failed_login_at, last_logout_at, password_changed_at, created_at, updated_at`

// accessQuery aggregates role names and permission codes per staff member.
// DISTINCT collapses duplicate grant paths through multiple roles; pgx scans
// the text[] aggregates straight into []string.
const accessQuery = `
        SELECT s.id, s.name, s.email, s.password_hash, s.is_active, s.failed_login_attempts,
               s.last_login_at, s.last_failed_login_at, s.last_logout_at, s.password_changed_at,
               s.created_at, s.updated_at,
               COALESCE(ARRAY_AGG(DISTINCT r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}'),
               COALESCE(ARRAY_AGG(DISTINCT p.code ORDER BY p.code) FILTER (WHERE p.code IS NOT NULL), '{}')
        FROM staff_users s
        LEFT JOIN staff_roles sr ON sr.staff_id = s.id
        LEFT JOIN roles r ON r.id = sr.role_id
        LEFT JOIN role_permissions rp ON rp.role_id = sr.role_id
        LEFT JOIN permissions p ON p.id = rp.permission_id`

func (r *staffRepository) Create(ctx context.Context, staff *domain.StaffUser) error {
	const query = `
        INSERT INTO staff_users (name, email, password_hash, is_active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, failed_login_attempts, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		staff.Name,
		staff.Email,
		staff.PasswordHash,
		staff.IsActive,
	).Scan(&staff.ID, &staff.FailedLoginAttempts, &staff.CreatedAt, &staff.UpdatedAt)
}

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffUser, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_users WHERE id=$1`

	var staff domain.StaffUser
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&staff.ID,
		&staff.Name,
		&staff.Email,
		&staff.PasswordHash,
		&staff.IsActive,
		&staff.FailedLoginAttempts,
		&staff.LastLoginAt,
		&staff.LastFailedLoginAt,
		&staff.LastLogoutAt,
		&staff.PasswordChangedAt,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepository) GetAccessByEmail(ctx context.Context, email string) (*domain.StaffAccess, error) {
	query := accessQuery + `
        WHERE LOWER(s.email) = LOWER($1)
        GROUP BY s.id`
	return r.scanAccess(r.pool.QueryRow(ctx, query, email))
}

func (r *staffRepository) GetAccessByID(ctx context.Context, id string) (*domain.StaffAccess, error) {
	query := accessQuery + `
        WHERE s.id = $1
        GROUP BY s.id`
	return r.scanAccess(r.pool.QueryRow(ctx, query, id))
}

func (r *staffRepository) scanAccess(row pgx.Row) (*domain.StaffAccess, error) {
	var access domain.StaffAccess
	if err := row.Scan(
		&access.ID,
		&access.Name,
		&access.Email,
		&access.PasswordHash,
		&access.IsActive,
		&access.FailedLoginAttempts,
		&access.LastLoginAt,
		&access.LastFailedLoginAt,
		&access.LastLogoutAt,
		&access.PasswordChangedAt,
		&access.CreatedAt,
		&access.UpdatedAt,
		&access.Roles,
		&access.Permissions,
	); err != nil {
		return nil, err
	}
	return &access, nil
}

func (r *staffRepository) List(ctx context.Context, filter StaffFilter) ([]domain.StaffUser, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_users`
	args := []any{}
	clauses := []string{}

	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("is_active=$%d", len(args)))
	}
	if filter.EmailSearch != nil {
		args = append(args, "%"+*filter.EmailSearch+"%")
		clauses = append(clauses, fmt.Sprintf("email ILIKE $%d", len(args)))
	}
	if filter.RoleID != nil {
		args = append(args, *filter.RoleID)
		clauses = append(clauses, fmt.Sprintf("id IN (SELECT staff_id FROM staff_roles WHERE role_id=$%d)", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffUser
	for rows.Next() {
		var staff domain.StaffUser
		if err := rows.Scan(
			&staff.ID,
			&staff.Name,
			&staff.Email,
			&staff.PasswordHash,
			&staff.IsActive,
			&staff.FailedLoginAttempts,
			&staff.LastLoginAt,
			&staff.LastFailedLoginAt,
			&staff.LastLogoutAt,
			&staff.PasswordChangedAt,
			&staff.CreatedAt,
			&staff.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, staff)
	}
	return result, rows.Err()
}

func (r *staffRepository) AssignRole(ctx context.Context, staffID, roleID string) error {
	const query = `
        INSERT INTO staff_roles (staff_id, role_id)
        VALUES ($1,$2)
        ON CONFLICT (staff_id, role_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, staffID, roleID)
	return err
}

func (r *staffRepository) RecordLoginFailure(ctx context.Context, id string) error {
	const query = `
        UPDATE staff_users
        SET failed_login_attempts = failed_login_attempts + 1,
            last_failed_login_at = NOW(), updated_at = NOW()
        WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *staffRepository) RecordLoginSuccess(ctx context.Context, id string) error {
	const query = `
        UPDATE staff_users
        SET failed_login_attempts = 0,
            last_login_at = NOW(),
            password_changed_at = COALESCE(password_changed_at, NOW()),
            updated_at = NOW()
        WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *staffRepository) StampLogout(ctx context.Context, id string) error {
	const query = `UPDATE staff_users SET last_logout_at = NOW(), updated_at = NOW() WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *staffRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	const query = `
        UPDATE staff_users
        SET password_hash=$1, password_changed_at = NOW(), updated_at = NOW()
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, hash, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *staffRepository) ChangePasswordRevokingSessions(ctx context.Context, staffID, keepSessionID, hash string) ([]string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const updatePassword = `
        UPDATE staff_users
        SET password_hash=$1, password_changed_at = NOW(), updated_at = NOW()
        WHERE id=$2`
	cmd, err := tx.Exec(ctx, updatePassword, hash, staffID)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, pgx.ErrNoRows
	}

	const revokeOthers = `
        UPDATE staff_sessions
        SET revoked_at = NOW()
        WHERE staff_id=$1 AND id <> $2 AND revoked_at IS NULL
        RETURNING token`
	tokens, err := collectTokens(tx, ctx, revokeOthers, staffID, keepSessionID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *staffRepository) Deactivate(ctx context.Context, id string) ([]string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const deactivate = `UPDATE staff_users SET is_active = FALSE, updated_at = NOW() WHERE id=$1`
	cmd, err := tx.Exec(ctx, deactivate, id)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, pgx.ErrNoRows
	}

	const revokeAll = `
        UPDATE staff_sessions
        SET revoked_at = NOW()
        WHERE staff_id=$1 AND revoked_at IS NULL
        RETURNING token`
	tokens, err := collectTokens(tx, ctx, revokeAll, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return tokens, nil
}

func collectTokens(tx pgx.Tx, ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}
