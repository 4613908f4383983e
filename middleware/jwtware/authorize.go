package jwtware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/skfsd/go-auth"
)

var defaultResponder = ErrorResponder(nil)

// Authorize allows the request only when the user attached by New holds
// one of roles. The role is read from the stored record, not the token.
// Without an attached user the request is forbidden.
func Authorize(roles ...auth.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok || !user.Role.In(roles...) {
			return defaultResponder(c, auth.ErrForbidden)
		}
		return c.Next()
	}
}

// SelfOrRoles allows the request when the route parameter param is the
// attached user's own id, or when the user holds one of roles.
func SelfOrRoles(param string, roles ...auth.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return defaultResponder(c, auth.ErrForbidden)
		}

		if id, err := uuid.Parse(c.Params(param)); err == nil && id == user.ID {
			return c.Next()
		}

		if user.Role.In(roles...) {
			return c.Next()
		}

		return defaultResponder(c, auth.ErrForbidden)
	}
}

// CurrentUser returns the user attached to the request by New
func CurrentUser(c *fiber.Ctx) (*auth.User, bool) {
	return auth.FromContext(c.UserContext())
}

// CurrentClaims returns the validated token claims of the request
func CurrentClaims(c *fiber.Ctx) (auth.AuthClaims, bool) {
	return auth.GetClaims(c.UserContext())
}
