package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/commercehq/staff-access-service/internal/api/dto"
	"github.com/commercehq/staff-access-service/internal/auth"
	"github.com/commercehq/staff-access-service/internal/domain"
	"github.com/commercehq/staff-access-service/internal/observability"
	"github.com/commercehq/staff-access-service/internal/service"
	apperrors "github.com/commercehq/staff-access-service/pkg/util"
)

// AuthHandler exposes the staff authentication endpoints.
type AuthHandler struct {
	sessions *service.SessionService
	metrics  *observability.Metrics
}

// NewAuthHandler constructs handler.
func NewAuthHandler(sessions *service.SessionService, metrics *observability.Metrics) *AuthHandler {
	return &AuthHandler{sessions: sessions, metrics: metrics}
}

// Login handles POST /api/staff/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	meta := domain.SessionMetadata{
		UserAgent: c.Get("User-Agent"),
		IPAddress: c.IP(),
	}
	result, err := h.sessions.Login(c.UserContext(), req.Email, req.Password, meta)
	if err != nil {
		return err
	}

	h.metrics.RecordLogin()
	return c.JSON(dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      staffSummary(result.Staff),
	})
}

// Logout handles POST /api/staff/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sessCtx, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	if err := h.sessions.Logout(c.UserContext(), sessCtx.SessionID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// Me handles GET /api/staff/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	sessCtx, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	return c.JSON(fiber.Map{"user": dto.StaffSummary{
		ID:          sessCtx.StaffID,
		Name:        sessCtx.Name,
		Email:       sessCtx.Email,
		Role:        sessCtx.PrimaryRole(),
		Roles:       sessCtx.Roles,
		Permissions: sessCtx.Permissions,
	}})
}

// ChangePassword handles POST /api/staff/auth/change-password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	sessCtx, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}

	var req dto.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	err := h.sessions.ChangePassword(c.UserContext(),
		sessCtx.StaffID, sessCtx.SessionID,
		req.CurrentPassword, req.NewPassword, req.ConfirmNewPassword)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

func staffSummary(access *domain.StaffAccess) dto.StaffSummary {
	return dto.StaffSummary{
		ID:          access.ID,
		Name:        access.Name,
		Email:       access.Email,
		Role:        access.PrimaryRole(),
		Roles:       access.Roles,
		Permissions: access.Permissions,
	}
}
