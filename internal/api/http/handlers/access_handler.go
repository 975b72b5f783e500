package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/commercehq/staff-access-service/internal/api/dto"
	"github.com/commercehq/staff-access-service/internal/auth"
	"github.com/commercehq/staff-access-service/internal/service"
	apperrors "github.com/commercehq/staff-access-service/pkg/util"
)

// AccessHandler exposes role and permission management endpoints.
type AccessHandler struct {
	access *service.AccessService
}

// NewAccessHandler constructs handler.
func NewAccessHandler(access *service.AccessService) *AccessHandler {
	return &AccessHandler{access: access}
}

// CreateRole handles POST /api/staff/roles.
func (h *AccessHandler) CreateRole(c *fiber.Ctx) error {
	actor, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	var req dto.RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	role, err := h.access.CreateRole(c.UserContext(), actor, req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.RoleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Permissions: []string{},
	}})
}

// ListRoles handles GET /api/staff/roles.
func (h *AccessHandler) ListRoles(c *fiber.Ctx) error {
	roles, err := h.access.ListRoles(c.UserContext())
	if err != nil {
		return err
	}
	resp := make([]dto.RoleResponse, 0, len(roles))
	for i := range roles {
		resp = append(resp, dto.RoleResponse{
			ID:          roles[i].ID,
			Name:        roles[i].Name,
			Description: roles[i].Description,
			Permissions: roles[i].Permissions,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

// CreatePermission handles POST /api/staff/permissions.
func (h *AccessHandler) CreatePermission(c *fiber.Ctx) error {
	actor, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	var req dto.PermissionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	permission, err := h.access.CreatePermission(c.UserContext(), actor, req.Code, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.PermissionResponse{
		ID:          permission.ID,
		Code:        permission.Code,
		Description: permission.Description,
	}})
}

// ListPermissions handles GET /api/staff/permissions.
func (h *AccessHandler) ListPermissions(c *fiber.Ctx) error {
	permissions, err := h.access.ListPermissions(c.UserContext())
	if err != nil {
		return err
	}
	resp := make([]dto.PermissionResponse, 0, len(permissions))
	for i := range permissions {
		resp = append(resp, dto.PermissionResponse{
			ID:          permissions[i].ID,
			Code:        permissions[i].Code,
			Description: permissions[i].Description,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

// AddRolePermission handles POST /api/staff/roles/:id/permissions.
func (h *AccessHandler) AddRolePermission(c *fiber.Ctx) error {
	actor, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	var req dto.RolePermissionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.PermissionID == "" {
		return apperrors.NewValidationError("permission_id required", nil)
	}
	if err := h.access.AddRolePermission(c.UserContext(), actor, c.Params("id"), req.PermissionID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// SetRolePermissions handles PUT /api/staff/roles/:id/permissions.
func (h *AccessHandler) SetRolePermissions(c *fiber.Ctx) error {
	actor, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	var req dto.SetRolePermissionsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.access.SetRolePermissions(c.UserContext(), actor, c.Params("id"), req.PermissionIDs); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
