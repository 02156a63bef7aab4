package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/admin-console/internal/core/domain"
	"github.com/99minutos/admin-console/internal/core/ports"
)

// SessionKey is the echo context key holding the domain.Session a guard
// admitted the request with.
const SessionKey = "session"

// retryAfterSeconds is sent while the first identity notification is pending.
const retryAfterSeconds = "1"

// RequireSession admits requests only while somebody is signed in. While the
// session is still loading it answers 503 with Retry-After. The session is
// process-wide: every admitted request acts as the signed-in user.
func RequireSession(sessions ports.SessionReader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := sessions.Session()
			switch s.State() {
			case domain.StateLoading:
				c.Response().Header().Set(echo.HeaderRetryAfter, retryAfterSeconds)
				return echo.NewHTTPError(http.StatusServiceUnavailable, "session is loading")
			case domain.StateUnauthenticated:
				return echo.NewHTTPError(http.StatusUnauthorized, "sign-in required")
			}
			c.Set(SessionKey, s)
			return next(c)
		}
	}
}
