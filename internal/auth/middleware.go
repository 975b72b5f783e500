package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/commercehq/staff-access-service/internal/domain"
	apperrors "github.com/commercehq/staff-access-service/pkg/util"
)

const sessionContextKey = "session_context"

// SessionResolver turns a bearer token into a SessionContext. A nil context
// with a nil error means the token is unknown, revoked, expired, or belongs
// to a deactivated account; callers are not told which.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*domain.SessionContext, error)
}

// Middleware validates bearer tokens and attaches the resolved session
// context to the request.
type Middleware struct {
	resolver SessionResolver
}

// NewMiddleware constructs the authentication middleware.
func NewMiddleware(resolver SessionResolver) *Middleware {
	return &Middleware{resolver: resolver}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthenticated()
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthenticated()
	}

	sessCtx, err := m.resolver.Resolve(c.UserContext(), parts[1])
	if err != nil {
		return apperrors.MapError(err)
	}
	if sessCtx == nil {
		return apperrors.NewUnauthenticated()
	}

	c.Locals(sessionContextKey, sessCtx)
	return c.Next()
}

// SessionFromContext retrieves the authenticated session context.
func SessionFromContext(c *fiber.Ctx) (*domain.SessionContext, bool) {
	val := c.Locals(sessionContextKey)
	if val == nil {
		return nil, false
	}
	sessCtx, ok := val.(*domain.SessionContext)
	return sessCtx, ok
}

// RequirePermission gates a route on one permission code. Display role
// names play no part here; only the resolved permission set is consulted.
func RequirePermission(code string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessCtx, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated()
		}
		if !sessCtx.HasPermission(code) {
			return apperrors.NewForbidden("missing permission: " + code)
		}
		return c.Next()
	}
}
