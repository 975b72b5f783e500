package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/commercehq/staff-access-service/internal/api/dto"
	"github.com/commercehq/staff-access-service/internal/auth"
	"github.com/commercehq/staff-access-service/internal/domain"
	"github.com/commercehq/staff-access-service/internal/repository"
	"github.com/commercehq/staff-access-service/internal/service"
	apperrors "github.com/commercehq/staff-access-service/pkg/util"
)

// StaffHandler exposes the staff management and audit endpoints.
type StaffHandler struct {
	staffService   *service.StaffService
	sessionService *service.SessionService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(staffService *service.StaffService, sessionService *service.SessionService) *StaffHandler {
	return &StaffHandler{staffService: staffService, sessionService: sessionService}
}

// Create handles POST /api/staff/users.
func (h *StaffHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	var req dto.StaffCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	access, err := h.staffService.CreateStaff(c.UserContext(), actor, req.Name, req.Email, req.Password, req.RoleIDs)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": staffSummary(access)})
}

// List handles GET /api/staff/users.
func (h *StaffHandler) List(c *fiber.Ctx) error {
	filter := parseStaffFilter(c)
	list, err := h.staffService.ListStaff(c.UserContext(), filter)
	if err != nil {
		return err
	}
	resp := make([]dto.StaffResponse, 0, len(list))
	for i := range list {
		resp = append(resp, staffResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Get handles GET /api/staff/users/:id.
func (h *StaffHandler) Get(c *fiber.Ctx) error {
	access, err := h.staffService.GetStaff(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffSummary(access)})
}

// AssignRole handles POST /api/staff/users/:id/roles.
func (h *StaffHandler) AssignRole(c *fiber.Ctx) error {
	actor, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	var req dto.AssignRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.RoleID == "" {
		return apperrors.NewValidationError("role_id required", nil)
	}
	if err := h.staffService.AssignRole(c.UserContext(), actor, c.Params("id"), req.RoleID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// Disable handles POST /api/staff/users/:id/disable.
func (h *StaffHandler) Disable(c *fiber.Ctx) error {
	actor, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	if err := h.staffService.DisableStaff(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// ResetPassword handles POST /api/staff/users/:id/reset-password. The route
// is gated on users:update; this path skips the current-password check.
func (h *StaffHandler) ResetPassword(c *fiber.Ctx) error {
	actor, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.sessionService.ResetPassword(c.UserContext(), &actor.StaffID, c.Params("id"), req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// ListSessions handles GET /api/staff/users/:id/sessions.
func (h *StaffHandler) ListSessions(c *fiber.Ctx) error {
	sessions, err := h.staffService.ListSessions(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	resp := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		resp = append(resp, sessionResponse(&sessions[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// RevokeSession handles POST /api/staff/sessions/:id/revoke.
func (h *StaffHandler) RevokeSession(c *fiber.Ctx) error {
	actor, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	if err := h.sessionService.RevokeSession(c.UserContext(), &actor.StaffID, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// ListActivity handles GET /api/staff/activity.
func (h *StaffHandler) ListActivity(c *fiber.Ctx) error {
	filter := parseActivityFilter(c)
	entries, err := h.staffService.ListActivity(c.UserContext(), filter)
	if err != nil {
		return err
	}
	resp := make([]dto.ActivityResponse, 0, len(entries))
	for i := range entries {
		resp = append(resp, dto.ActivityResponse{
			ID:        entries[i].ID,
			StaffID:   entries[i].StaffID,
			Action:    entries[i].Action,
			Details:   entries[i].Details,
			CreatedAt: entries[i].CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

func parseStaffFilter(c *fiber.Ctx) repository.StaffFilter {
	var filter repository.StaffFilter
	if active := c.Query("active"); active != "" {
		if val, err := strconv.ParseBool(active); err == nil {
			filter.Active = &val
		}
	}
	if search := c.Query("email"); search != "" {
		filter.EmailSearch = &search
	}
	if roleID := c.Query("role_id"); roleID != "" {
		filter.RoleID = &roleID
	}
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseActivityFilter(c *fiber.Ctx) domain.ActivityFilter {
	var filter domain.ActivityFilter
	if staffID := c.Query("staff_id"); staffID != "" {
		filter.StaffID = &staffID
	}
	if action := c.Query("action"); action != "" {
		filter.Action = &action
	}
	if from := c.Query("from"); from != "" {
		if ts, err := time.Parse(time.RFC3339, from); err == nil {
			filter.From = &ts
		}
	}
	if to := c.Query("to"); to != "" {
		if ts, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = &ts
		}
	}
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultVal
}

func staffResponse(staff *domain.StaffUser) dto.StaffResponse {
	return dto.StaffResponse{
		ID:                  staff.ID,
		Name:                staff.Name,
		Email:               staff.Email,
		IsActive:            staff.IsActive,
		FailedLoginAttempts: staff.FailedLoginAttempts,
		LastLoginAt:         staff.LastLoginAt,
		CreatedAt:           staff.CreatedAt,
	}
}

func sessionResponse(session *domain.StaffSession) dto.SessionResponse {
	return dto.SessionResponse{
		ID:        session.ID,
		StaffID:   session.StaffID,
		UserAgent: session.UserAgent,
		IPAddress: session.IPAddress,
		ExpiresAt: session.ExpiresAt,
		RevokedAt: session.RevokedAt,
		CreatedAt: session.CreatedAt,
	}
}
