package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/commercehq/staff-access-service/internal/api/http/handlers"
	"github.com/commercehq/staff-access-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Staff          *handlers.StaffHandler
	Access         *handlers.AccessHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes. Admin routes are gated on permission
// codes resolved from the caller's session; the display role is never
// consulted.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/staff")

	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)

	session := authGroup.Group("", cfg.AuthMiddleware.Handle)
	session.Post("/logout", cfg.Auth.Logout)
	session.Get("/me", cfg.Auth.Me)
	session.Post("/change-password", cfg.Auth.ChangePassword)

	admin := api.Group("", cfg.AuthMiddleware.Handle)

	admin.Post("/users", auth.RequirePermission("users:create"), cfg.Staff.Create)
	admin.Get("/users", auth.RequirePermission("users:read"), cfg.Staff.List)
	admin.Get("/users/:id", auth.RequirePermission("users:read"), cfg.Staff.Get)
	admin.Post("/users/:id/roles", auth.RequirePermission("users:update"), cfg.Staff.AssignRole)
	admin.Post("/users/:id/disable", auth.RequirePermission("users:update"), cfg.Staff.Disable)
	admin.Post("/users/:id/reset-password", auth.RequirePermission("users:update"), cfg.Staff.ResetPassword)
	admin.Get("/users/:id/sessions", auth.RequirePermission("users:read"), cfg.Staff.ListSessions)
	admin.Post("/sessions/:id/revoke", auth.RequirePermission("users:update"), cfg.Staff.RevokeSession)

	admin.Post("/roles", auth.RequirePermission("roles:manage"), cfg.Access.CreateRole)
	admin.Get("/roles", auth.RequirePermission("roles:read"), cfg.Access.ListRoles)
	admin.Post("/roles/:id/permissions", auth.RequirePermission("roles:manage"), cfg.Access.AddRolePermission)
	admin.Put("/roles/:id/permissions", auth.RequirePermission("roles:manage"), cfg.Access.SetRolePermissions)
	admin.Post("/permissions", auth.RequirePermission("roles:manage"), cfg.Access.CreatePermission)
	admin.Get("/permissions", auth.RequirePermission("roles:read"), cfg.Access.ListPermissions)

	admin.Get("/activity", auth.RequirePermission("logs:read"), cfg.Staff.ListActivity)
}
