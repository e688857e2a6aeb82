package http

import (
	"net/http"
	"strings"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/cerita/nobat/internal/http/middleware"
	"github.com/cerita/nobat/internal/repository"
	"github.com/cerita/nobat/internal/util"
)

type loginReq struct {
	UserID string `json:"userId"`
}

// loginHandler validates the submitted operator ID and issues the opaque
// session token the page stores and sends as a bearer credential.
func loginHandler(operators repository.OperatorsRepository, sessions repository.SessionsRepository, ttl time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		userID := strings.ToLower(strings.TrimSpace(req.UserID))
		if userID == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "userId is required"})
		}

		op, err := operators.GetByUserID(c.Request().Context(), userID)
		if err != nil {
			log.Errorf("operator lookup failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
		}
		if op == nil || op.Status != "active" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid user id"})
		}

		token := util.New()
		if err := sessions.Create(c.Request().Context(), token, op.UserID, ttl); err != nil {
			log.Errorf("session create failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
		}

		return c.JSON(http.StatusOK, map[string]string{"id": token})
	}
}

// logoutHandler revokes the bearer session so the token stops resolving;
// the page drops its own stored copy separately.
func logoutHandler(sessions repository.SessionsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := middleware.SessionTokenFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing session token"})
		}

		if err := sessions.Revoke(c.Request().Context(), token); err != nil {
			log.Errorf("session revoke failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
		}

		return c.NoContent(http.StatusNoContent)
	}
}
