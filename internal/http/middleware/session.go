package middleware

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/cerita/nobat/internal/repository"
)

// SessionUserFromCtx extracts the authenticated operator user_id set by SessionMiddleware.
func SessionUserFromCtx(c echo.Context) (string, bool) {
	v := c.Get("session_user")
	s, ok := v.(string)
	return s, ok && s != ""
}

// SessionTokenFromCtx extracts the raw bearer token of the current request.
func SessionTokenFromCtx(c echo.Context) (string, bool) {
	v := c.Get("session_token")
	s, ok := v.(string)
	return s, ok && s != ""
}

// SessionMiddleware authenticates requests using an Authorization bearer
// session token. Missing or expired sessions are a plain 401; there is no
// finer-grained "not authenticated" error kind.
func SessionMiddleware(sessions repository.SessionsRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := strings.TrimSpace(c.Request().Header.Get("Authorization"))
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" || token == auth {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing session token"})
			}
			userID, err := sessions.Resolve(c.Request().Context(), token)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
			}
			if userID == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid session token"})
			}
			c.Set("session_user", userID)
			c.Set("session_token", token)
			return next(c)
		}
	}
}
