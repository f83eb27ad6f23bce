package auth

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	authsvc "github.com/ouarsenis/thawra-api/internal/services/auth"
	usersvc "github.com/ouarsenis/thawra-api/internal/services/user"
	appctx "github.com/ouarsenis/thawra-api/pkg/context"
	"github.com/ouarsenis/thawra-api/pkg/models"
	"github.com/ouarsenis/thawra-api/pkg/tracing"
)

var validate = validator.New()

// Handler serves login and the current-principal lookup.
type Handler struct {
	auth   *authsvc.Service
	users  *usersvc.Service
	logger ectologger.Logger
}

func NewHandler(auth *authsvc.Service, users *usersvc.Service, logger ectologger.Logger) *Handler {
	return &Handler{
		auth:   auth,
		users:  users,
		logger: logger,
	}
}

// Register registers the auth routes.
func (h *Handler) Register(g *echo.Group) {
	g.POST("/login", h.Login)
	g.GET("/me", h.Me)
}

// Login verifies credentials and returns a bearer token.
func (h *Handler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "auth_handler.Login")
	defer span.End()

	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	resp, err := h.auth.Login(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated principal.
func (h *Handler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "auth_handler.Me")
	defer span.End()

	userID := appctx.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	user, err := h.users.Get(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}
