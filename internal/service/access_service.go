package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/commercehq/staff-access-service/internal/domain"
	"github.com/commercehq/staff-access-service/internal/repository"
	apperrors "github.com/commercehq/staff-access-service/pkg/util"
)

// StandardPermissions is the fixed capability catalogue of the admin panel.
var StandardPermissions = []domain.PermissionSeed{
	{Code: "users:read", Description: "View staff accounts"},
	{Code: "users:create", Description: "Provision staff accounts"},
	{Code: "users:update", Description: "Modify, disable and reset staff accounts"},
	{Code: "roles:read", Description: "View roles and permissions"},
	{Code: "roles:manage", Description: "Create roles and edit permission assignments"},
	{Code: "orders:read", Description: "View orders"},
	{Code: "orders:update", Description: "Update order status and details"},
	{Code: "products:read", Description: "View products"},
	{Code: "products:update", Description: "Edit products"},
	{Code: "logs:read", Description: "View activity logs"},
	{Code: "payments:read", Description: "View payment records"},
	{Code: "content:manage", Description: "Manage blog and CMS content"},
}

// StandardRoles maps each built-in role to its permission subset. Seeding
// replaces a role's set wholesale, so edits here win over manual changes.
var StandardRoles = []domain.RoleSeed{
	{
		Name:        "super_admin",
		Description: "Full access including role management",
		Permissions: permissionCodes(),
	},
	{
		Name:        "admin",
		Description: "Full access except role management",
		Permissions: []string{
			"users:read", "users:create", "users:update", "roles:read",
			"orders:read", "orders:update", "products:read", "products:update",
			"logs:read", "payments:read", "content:manage",
		},
	},
	{
		Name:        "manager",
		Description: "Operational order and catalogue management",
		Permissions: []string{"orders:read", "orders:update", "products:read", "products:update", "logs:read"},
	},
	{
		Name:        "support",
		Description: "Customer support lookups",
		Permissions: []string{"orders:read", "users:read"},
	},
	{
		Name:        "viewer",
		Description: "Read-only storefront data",
		Permissions: []string{"orders:read", "products:read"},
	},
}

func permissionCodes() []string {
	codes := make([]string, 0, len(StandardPermissions))
	for _, p := range StandardPermissions {
		codes = append(codes, p.Code)
	}
	return codes
}

// AccessService manages roles and permissions.
type AccessService struct {
	rbac  repository.RBACRepository
	audit *AuditLogger
}

// NewAccessService builds the service.
func NewAccessService(rbac repository.RBACRepository, audit *AuditLogger) *AccessService {
	return &AccessService{rbac: rbac, audit: audit}
}

// CreateRole creates a new named permission bundle.
func (s *AccessService) CreateRole(ctx context.Context, actor *domain.SessionContext, name, description string) (*domain.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("role name required", nil)
	}
	role := &domain.Role{Name: name, Description: description}
	if err := s.rbac.CreateRole(ctx, role); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("role name already exists", map[string]any{"name": name})
		}
		return nil, apperrors.MapError(err)
	}
	s.audit.Log(ctx, &actor.StaffID, domain.ActionRoleCreated, map[string]any{"role": name})
	return role, nil
}

// ListRoles returns all roles with their permission codes.
func (s *AccessService) ListRoles(ctx context.Context) ([]domain.RoleWithPermissions, error) {
	roles, err := s.rbac.ListRoles(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return roles, nil
}

// CreatePermission registers a new capability code.
func (s *AccessService) CreatePermission(ctx context.Context, actor *domain.SessionContext, code, description string) (*domain.Permission, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperrors.NewValidationError("permission code required", nil)
	}
	permission := &domain.Permission{Code: code, Description: description}
	if err := s.rbac.CreatePermission(ctx, permission); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("permission code already exists", map[string]any{"code": code})
		}
		return nil, apperrors.MapError(err)
	}
	s.audit.Log(ctx, &actor.StaffID, domain.ActionPermissionCreated, map[string]any{"code": code})
	return permission, nil
}

// ListPermissions returns the full permission catalogue.
func (s *AccessService) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	permissions, err := s.rbac.ListPermissions(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return permissions, nil
}

// AddRolePermission attaches one permission to a role.
func (s *AccessService) AddRolePermission(ctx context.Context, actor *domain.SessionContext, roleID, permissionID string) error {
	role, err := s.rbac.GetRoleByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("role", map[string]any{"id": roleID})
		}
		return apperrors.MapError(err)
	}
	if err := s.rbac.AddRolePermission(ctx, roleID, permissionID); err != nil {
		if apperrors.IsForeignKeyViolation(err) {
			return apperrors.NewNotFound("permission", map[string]any{"id": permissionID})
		}
		return apperrors.MapError(err)
	}
	s.audit.Log(ctx, &actor.StaffID, domain.ActionRolePermissionsChanged, map[string]any{
		"role":          role.Name,
		"permission_id": permissionID,
		"op":            "add",
	})
	return nil
}

// SetRolePermissions replaces a role's full permission set atomically.
func (s *AccessService) SetRolePermissions(ctx context.Context, actor *domain.SessionContext, roleID string, permissionIDs []string) error {
	role, err := s.rbac.GetRoleByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("role", map[string]any{"id": roleID})
		}
		return apperrors.MapError(err)
	}
	if err := s.rbac.ReplaceRolePermissions(ctx, roleID, permissionIDs); err != nil {
		if apperrors.IsForeignKeyViolation(err) {
			return apperrors.NewNotFound("permission", nil)
		}
		return apperrors.MapError(err)
	}
	s.audit.Log(ctx, &actor.StaffID, domain.ActionRolePermissionsChanged, map[string]any{
		"role":  role.Name,
		"count": len(permissionIDs),
		"op":    "replace",
	})
	return nil
}

// SeedStandardCatalogue idempotently installs the standard permissions and
// role mappings in one transaction. Running it twice yields the same final
// state.
func (s *AccessService) SeedStandardCatalogue(ctx context.Context) error {
	if err := s.rbac.Seed(ctx, StandardPermissions, StandardRoles); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}
