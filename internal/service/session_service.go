package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commercehq/staff-access-service/internal/auth"
	"github.com/commercehq/staff-access-service/internal/config"
	"github.com/commercehq/staff-access-service/internal/domain"
	"github.com/commercehq/staff-access-service/internal/repository"
	apperrors "github.com/commercehq/staff-access-service/pkg/util"
)

// SessionService coordinates login, session resolution and the password
// flows.
type SessionService struct {
	staff    repository.StaffRepository
	sessions repository.SessionRepository
	cache    repository.SessionCache
	audit    *AuditLogger
	ttl      time.Duration
}

// SessionDependencies encapsulates repo requirements for the session service.
type SessionDependencies struct {
	StaffRepo   repository.StaffRepository
	SessionRepo repository.SessionRepository
	Cache       repository.SessionCache
	Audit       *AuditLogger
}

// NewSessionService builds the service.
func NewSessionService(cfg config.Config, deps SessionDependencies) *SessionService {
	cache := deps.Cache
	if cache == nil {
		cache = repository.NoopSessionCache{}
	}
	return &SessionService{
		staff:    deps.StaffRepo,
		sessions: deps.SessionRepo,
		cache:    cache,
		audit:    deps.Audit,
		ttl:      cfg.Auth.SessionTTL(),
	}
}

// LoginResult carries the issued token and the authenticated staff member
// with their aggregated access sets.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Staff     *domain.StaffAccess
}

// Login authenticates a staff member and issues a new session. Unknown
// email, deactivated account and wrong password all surface as the same
// generic credentials error.
func (s *SessionService) Login(ctx context.Context, email, password string, meta domain.SessionMetadata) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password required", nil)
	}

	access, err := s.staff.GetAccessByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.audit.Log(ctx, nil, domain.ActionLoginFailed, map[string]any{"email": email, "reason": "unknown_email"})
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, apperrors.MapError(err)
	}
	if !access.IsActive {
		s.audit.Log(ctx, &access.ID, domain.ActionLoginFailed, map[string]any{"reason": "inactive"})
		return nil, apperrors.NewInvalidCredentials()
	}
	if !auth.VerifyPassword(access.PasswordHash, password) {
		if err := s.staff.RecordLoginFailure(ctx, access.ID); err != nil {
			return nil, apperrors.MapError(err)
		}
		s.audit.Log(ctx, &access.ID, domain.ActionLoginFailed, map[string]any{"reason": "bad_password"})
		return nil, apperrors.NewInvalidCredentials()
	}

	token, err := auth.NewSessionToken()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	session := &domain.StaffSession{
		ID:        uuid.NewString(),
		StaffID:   access.ID,
		Token:     token,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		Metadata:  meta.Extra,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.staff.RecordLoginSuccess(ctx, access.ID); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.audit.Log(ctx, &access.ID, domain.ActionLogin, map[string]any{
		"session_id": session.ID,
		"ip":         meta.IPAddress,
	})
	return &LoginResult{Token: token, ExpiresAt: session.ExpiresAt, Staff: access}, nil
}

// Resolve turns a bearer token into a session context. Missing, revoked and
// expired sessions, and sessions of deactivated staff, all return (nil, nil)
// so callers cannot tell the cases apart. Expiry is detected lazily here;
// there is no background sweep.
func (s *SessionService) Resolve(ctx context.Context, token string) (*domain.SessionContext, error) {
	if !auth.LooksLikeSessionToken(token) {
		return nil, nil
	}

	if sessCtx, ok := s.cache.Get(ctx, token); ok {
		if sessCtx.ExpiresAt.After(time.Now()) {
			return sessCtx, nil
		}
		s.cache.Purge(ctx, token)
		return nil, nil
	}

	rec, err := s.sessions.GetRecordByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}
	if rec.RevokedAt != nil || !rec.ExpiresAt.After(time.Now()) || !rec.StaffActive {
		return nil, nil
	}

	sessCtx := &domain.SessionContext{
		SessionID:   rec.SessionID,
		StaffID:     rec.StaffID,
		Name:        rec.Name,
		Email:       rec.Email,
		Roles:       rec.Roles,
		Permissions: rec.Permissions,
		ExpiresAt:   rec.ExpiresAt,
	}
	s.cache.Set(ctx, token, sessCtx)
	return sessCtx, nil
}

// Logout revokes the session idempotently and stamps the owner's last
// logout time. Revoking an already-dead session is not an error.
func (s *SessionService) Logout(ctx context.Context, sessionID string) error {
	session, alreadyRevoked, err := s.sessions.Revoke(ctx, sessionID)
	if err != nil {
		return apperrors.MapError(err)
	}
	s.cache.Purge(ctx, session.Token)
	if alreadyRevoked {
		return nil
	}
	if err := s.staff.StampLogout(ctx, session.StaffID); err != nil {
		return apperrors.MapError(err)
	}
	s.audit.Log(ctx, &session.StaffID, domain.ActionLogout, map[string]any{"session_id": session.ID})
	return nil
}

// ChangePassword verifies the current password, stores the new hash, and
// revokes every other live session of the staff member. The invoking
// session stays valid.
func (s *SessionService) ChangePassword(ctx context.Context, staffID, sessionID, current, newPassword, confirm string) error {
	if current == "" || newPassword == "" || confirm == "" {
		return apperrors.NewValidationError("current, new and confirmation passwords are required", nil)
	}
	if len(newPassword) < 8 {
		return apperrors.NewValidationError("new password must be at least 8 characters", nil)
	}
	if newPassword != confirm {
		return apperrors.NewValidationError("new password and confirmation do not match", nil)
	}

	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Do not reveal whether the account exists.
			return apperrors.NewInvalidCurrentPassword()
		}
		return apperrors.MapError(err)
	}
	if !auth.VerifyPassword(staff.PasswordHash, current) {
		s.audit.Log(ctx, &staffID, domain.ActionPasswordChangeFailed, nil)
		return apperrors.NewInvalidCurrentPassword()
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	revokedTokens, err := s.staff.ChangePasswordRevokingSessions(ctx, staffID, sessionID, hash)
	if err != nil {
		return apperrors.MapError(err)
	}
	s.cache.Purge(ctx, revokedTokens...)

	s.audit.Log(ctx, &staffID, domain.ActionPasswordChanged, map[string]any{
		"revoked_sessions": len(revokedTokens),
	})
	return nil
}

// ResetPassword is the administrative path: no current-password check. It
// must only be reached through a route gated on an elevated permission.
func (s *SessionService) ResetPassword(ctx context.Context, actorID *string, staffID, newPassword string) error {
	if len(newPassword) < 8 {
		return apperrors.NewValidationError("new password must be at least 8 characters", nil)
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.staff.UpdatePasswordHash(ctx, staffID, hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("staff user", map[string]any{"id": staffID})
		}
		return apperrors.MapError(err)
	}
	s.audit.Log(ctx, &staffID, domain.ActionResetPassword, map[string]any{"by": actorID})
	return nil
}

// RevokeSession is the administrative revocation of one session.
func (s *SessionService) RevokeSession(ctx context.Context, actorID *string, sessionID string) error {
	session, alreadyRevoked, err := s.sessions.Revoke(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("session", map[string]any{"id": sessionID})
		}
		return apperrors.MapError(err)
	}
	s.cache.Purge(ctx, session.Token)
	if !alreadyRevoked {
		s.audit.Log(ctx, &session.StaffID, domain.ActionSessionRevoked, map[string]any{
			"session_id": session.ID,
			"by":         actorID,
		})
	}
	return nil
}
