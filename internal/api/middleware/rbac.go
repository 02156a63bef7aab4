package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/admin-console/internal/core/domain"
	"github.com/99minutos/admin-console/internal/core/ports"
)

// RequireRole enforces role-based access control on top of RequireSession.
func RequireRole(sessions ports.SessionReader, allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	requireSession := RequireSession(sessions)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return requireSession(func(c echo.Context) error {
			s, _ := c.Get(SessionKey).(domain.Session)
			if s.User == nil {
				return domain.ErrForbidden
			}
			if _, ok := allowed[s.User.Role]; !ok {
				return domain.ErrForbidden
			}
			return next(c)
		})
	}
}

// RequireAdmin admits only sessions whose record carries the admin role.
func RequireAdmin(sessions ports.SessionReader) echo.MiddlewareFunc {
	return RequireRole(sessions, domain.RoleAdmin)
}
