package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/livechat/internal/models"
	"github.com/nguyentranbao-ct/livechat/pkg/logger/log"
)

const (
	HeaderAccessToken = "access-token"
	userKey           = "user"
)

type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.User, error)
}

// Auth accepts the JWT issued by /login in the access-token header and stores
// the resolved user on the echo context.
func Auth(validator TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get(HeaderAccessToken)
			if token == "" {
				return models.ErrUnauthorized
			}

			ctx := c.Request().Context()
			user, err := validator.ValidateToken(ctx, token)
			if err != nil {
				return err
			}

			c.Set(userKey, user)
			log.WithFields(ctx, "user_id", user.ID.Hex())
			return next(c)
		}
	}
}

// CurrentUser returns the user set by Auth, nil on public routes.
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(userKey).(*models.User)
	return user
}

func GetUserID(c echo.Context) string {
	if user := CurrentUser(c); user != nil {
		return user.ID.Hex()
	}
	return ""
}
