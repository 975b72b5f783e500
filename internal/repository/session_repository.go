package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commercehq/staff-access-service/internal/domain"
)

// SessionRecord is the raw joined row behind session resolution: the session
// itself plus the owner's state and aggregated access sets. Validity is
// decided by the caller against the current time.
type SessionRecord struct {
	SessionID   string
	StaffID     string
	Name        string
	Email       string
	StaffActive bool
	Roles       []string
	Permissions []string
	ExpiresAt   time.Time
	RevokedAt   *time.Time
}

// SessionRepository manages staff session rows. Rows are never deleted;
// revocation sets revoked_at and expiry is detected lazily on read.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.StaffSession) error
	GetByID(ctx context.Context, id string) (*domain.StaffSession, error)
	GetRecordByToken(ctx context.Context, token string) (*SessionRecord, error)
	// Revoke sets revoked_at once; revoking an already-revoked session is a
	// no-op reporting alreadyRevoked.
	Revoke(ctx context.Context, id string) (session *domain.StaffSession, alreadyRevoked bool, err error)
	ListByStaff(ctx context.Context, staffID string) ([]domain.StaffSession, error)
}

type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository instantiates the repository.
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

const sessionColumns = `id, staff_id, token, user_agent, ip_address, metadata, expires_at, revoked_at, created_at`

func (r *sessionRepository) Create(ctx context.Context, session *domain.StaffSession) error {
	const query = `
        INSERT INTO staff_sessions (id, staff_id, token, user_agent, ip_address, metadata, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		session.ID,
		session.StaffID,
		session.Token,
		session.UserAgent,
		session.IPAddress,
		session.Metadata,
		session.ExpiresAt,
	).Scan(&session.CreatedAt)
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.StaffSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM staff_sessions WHERE id=$1`
	return scanSession(r.pool.QueryRow(ctx, query, id))
}

func (r *sessionRepository) GetRecordByToken(ctx context.Context, token string) (*SessionRecord, error) {
	const query = `
        SELECT ss.id, ss.staff_id, s.name, s.email, s.is_active, ss.expires_at, ss.revoked_at,
               COALESCE(ARRAY_AGG(DISTINCT r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}'),
               COALESCE(ARRAY_AGG(DISTINCT p.code ORDER BY p.code) FILTER (WHERE p.code IS NOT NULL), '{}')
        FROM staff_sessions ss
        JOIN staff_users s ON s.id = ss.staff_id
        LEFT JOIN staff_roles sr ON sr.staff_id = s.id
        LEFT JOIN roles r ON r.id = sr.role_id
        LEFT JOIN role_permissions rp ON rp.role_id = sr.role_id
        LEFT JOIN permissions p ON p.id = rp.permission_id
        WHERE ss.token = $1
        GROUP BY ss.id, s.id`

	var rec SessionRecord
	if err := r.pool.QueryRow(ctx, query, token).Scan(
		&rec.SessionID,
		&rec.StaffID,
		&rec.Name,
		&rec.Email,
		&rec.StaffActive,
		&rec.ExpiresAt,
		&rec.RevokedAt,
		&rec.Roles,
		&rec.Permissions,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *sessionRepository) Revoke(ctx context.Context, id string) (*domain.StaffSession, bool, error) {
	const query = `
        UPDATE staff_sessions
        SET revoked_at = NOW()
        WHERE id=$1 AND revoked_at IS NULL
        RETURNING ` + sessionColumns

	session, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if err == nil {
		return session, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	// Either unknown or already revoked; a second lookup decides.
	session, err = r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return session, true, nil
}

func (r *sessionRepository) ListByStaff(ctx context.Context, staffID string) ([]domain.StaffSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM staff_sessions WHERE staff_id=$1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffSession
	for rows.Next() {
		var session domain.StaffSession
		if err := rows.Scan(
			&session.ID,
			&session.StaffID,
			&session.Token,
			&session.UserAgent,
			&session.IPAddress,
			&session.Metadata,
			&session.ExpiresAt,
			&session.RevokedAt,
			&session.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, session)
	}
	return result, rows.Err()
}

func scanSession(row pgx.Row) (*domain.StaffSession, error) {
	var session domain.StaffSession
	if err := row.Scan(
		&session.ID,
		&session.StaffID,
		&session.Token,
		&session.UserAgent,
		&session.IPAddress,
		&session.Metadata,
		&session.ExpiresAt,
		&session.RevokedAt,
		&session.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &session, nil
}
