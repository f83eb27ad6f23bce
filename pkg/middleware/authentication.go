package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/ouarsenis/thawra-api/pkg/auth"
	appctx "github.com/ouarsenis/thawra-api/pkg/context"
	"github.com/ouarsenis/thawra-api/pkg/models"
)

// UserLoader resolves the token subject to a live user row.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Authentication attaches the principal to the request context when a valid
// bearer token is presented. A request without an Authorization header
// passes through with no principal; whether that is enough is the route
// policy's decision, not this middleware's. The role always comes from the
// user row, not the token, so role changes apply without re-login.
func Authentication(tokens *auth.TokenIssuer, users UserLoader, logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(c)
			}

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				return httperror.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			ctx := c.Request().Context()

			userID, err := tokens.Verify(raw)
			if err != nil {
				logger.WithContext(ctx).Warn("Rejected invalid bearer token")
				return httperror.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			user, err := users.GetByID(ctx, userID)
			if err != nil {
				return err
			}
			if user == nil || !user.Active {
				return httperror.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			ctx = appctx.SetUserID(ctx, user.ID)
			ctx = appctx.SetUserRole(ctx, string(user.Role))
			ctx = appctx.SetUserName(ctx, user.Name)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
