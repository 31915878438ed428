package usercontext

import "github.com/gofiber/fiber/v2"

// Shared Locals keys set by the authentication layer in front of this
// service.
const (
	ContextKey = "USER_CONTEXT"

	RoleSubscriber = "subscriber"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// UserContext represents the authenticated caller of a protected request.
// Authentication itself happens upstream; this service only consumes the
// resolved identity.
type UserContext struct {
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
	IsLoggedIn  bool   `json:"is_logged_in"`
}

// IsPrivileged reports whether the caller bypasses subscription checks.
func (u UserContext) IsPrivileged() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals(ContextKey); ctx != nil {
		if uc, ok := ctx.(UserContext); ok {
			return uc
		}
	}
	return UserContext{IsLoggedIn: false}
}

// SetUserContext stores the user context on the request (auth middleware,
// tests).
func SetUserContext(c *fiber.Ctx, uc UserContext) {
	c.Locals(ContextKey, uc)
}
