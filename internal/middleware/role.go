package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/volunteer-map/internal/auth"
	"github.com/iliyamo/volunteer-map/internal/model"
)

// RequireRole lets the request through when the authenticated caller holds
// one of roles.  It must run after RequireAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := CurrentIdentity(c)
			var err error
			for _, r := range roles {
				if err = auth.RequireRole(id, r); err == nil {
					return next(c)
				}
			}
			if err == nil {
				err = auth.RequireAuthenticated(id)
			}
			return err
		}
	}
}

// RequireAdmin is RequireRole(ADMIN).
func RequireAdmin() echo.MiddlewareFunc { return RequireRole(model.RoleAdmin) }
