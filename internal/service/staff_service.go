package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/commercehq/staff-access-service/internal/auth"
	"github.com/commercehq/staff-access-service/internal/domain"
	"github.com/commercehq/staff-access-service/internal/repository"
	apperrors "github.com/commercehq/staff-access-service/pkg/util"
)

// StaffService manages staff account provisioning and lifecycle.
type StaffService struct {
	staff    repository.StaffRepository
	rbac     repository.RBACRepository
	sessions repository.SessionRepository
	activity repository.ActivityRepository
	cache    repository.SessionCache
	audit    *AuditLogger
}

// StaffDependencies encapsulates repositories for staff management.
type StaffDependencies struct {
	StaffRepo    repository.StaffRepository
	RBACRepo     repository.RBACRepository
	SessionRepo  repository.SessionRepository
	ActivityRepo repository.ActivityRepository
	Cache        repository.SessionCache
	Audit        *AuditLogger
}

// NewStaffService constructs the service.
func NewStaffService(deps StaffDependencies) *StaffService {
	cache := deps.Cache
	if cache == nil {
		cache = repository.NoopSessionCache{}
	}
	return &StaffService{
		staff:    deps.StaffRepo,
		rbac:     deps.RBACRepo,
		sessions: deps.SessionRepo,
		activity: deps.ActivityRepo,
		cache:    cache,
		audit:    deps.Audit,
	}
}

// CreateStaff provisions a new account with an initial password and
// optional roles.
func (s *StaffService) CreateStaff(ctx context.Context, actor *domain.SessionContext, name, email, password string, roleIDs []string) (*domain.StaffAccess, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, apperrors.NewValidationError("name and email required", nil)
	}
	if !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("invalid email", map[string]any{"email": email})
	}
	if len(password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	staff := &domain.StaffUser{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}

	for _, roleID := range roleIDs {
		if err := s.staff.AssignRole(ctx, staff.ID, roleID); err != nil {
			if apperrors.IsForeignKeyViolation(err) {
				return nil, apperrors.NewNotFound("role", map[string]any{"id": roleID})
			}
			return nil, apperrors.MapError(err)
		}
	}

	access, err := s.staff.GetAccessByID(ctx, staff.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.audit.Log(ctx, &actor.StaffID, domain.ActionStaffCreated, map[string]any{
		"staff_id": staff.ID,
		"email":    email,
	})
	return access, nil
}

// ListStaff returns staff accounts matching the filter.
func (s *StaffService) ListStaff(ctx context.Context, filter repository.StaffFilter) ([]domain.StaffUser, error) {
	list, err := s.staff.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// GetStaff fetches one account with its aggregated access sets.
func (s *StaffService) GetStaff(ctx context.Context, id string) (*domain.StaffAccess, error) {
	access, err := s.staff.GetAccessByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("staff user", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return access, nil
}

// AssignRole attaches a role to a staff member. Duplicate assignment is a
// no-op.
func (s *StaffService) AssignRole(ctx context.Context, actor *domain.SessionContext, staffID, roleID string) error {
	role, err := s.rbac.GetRoleByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("role", map[string]any{"id": roleID})
		}
		return apperrors.MapError(err)
	}
	if err := s.staff.AssignRole(ctx, staffID, roleID); err != nil {
		if apperrors.IsForeignKeyViolation(err) {
			return apperrors.NewNotFound("staff user", map[string]any{"id": staffID})
		}
		return apperrors.MapError(err)
	}
	s.audit.Log(ctx, &actor.StaffID, domain.ActionStaffRoleAssigned, map[string]any{
		"staff_id": staffID,
		"role":     role.Name,
	})
	return nil
}

// DisableStaff soft-deactivates an account and revokes its live sessions.
// The row is retained; there is no hard delete.
func (s *StaffService) DisableStaff(ctx context.Context, actor *domain.SessionContext, staffID string) error {
	revokedTokens, err := s.staff.Deactivate(ctx, staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("staff user", map[string]any{"id": staffID})
		}
		return apperrors.MapError(err)
	}
	s.cache.Purge(ctx, revokedTokens...)
	s.audit.Log(ctx, &actor.StaffID, domain.ActionStaffDisabled, map[string]any{
		"staff_id":         staffID,
		"revoked_sessions": len(revokedTokens),
	})
	return nil
}

// ListSessions returns all sessions (live and dead) of a staff member for
// audit screens.
func (s *StaffService) ListSessions(ctx context.Context, staffID string) ([]domain.StaffSession, error) {
	if _, err := s.staff.GetByID(ctx, staffID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("staff user", map[string]any{"id": staffID})
		}
		return nil, apperrors.MapError(err)
	}
	sessions, err := s.sessions.ListByStaff(ctx, staffID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return sessions, nil
}

// ListActivity returns audit entries matching the filter.
func (s *StaffService) ListActivity(ctx context.Context, filter domain.ActivityFilter) ([]domain.ActivityEntry, error) {
	entries, err := s.activity.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}
