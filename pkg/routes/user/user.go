package user

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	usersvc "github.com/ouarsenis/thawra-api/internal/services/user"
	"github.com/ouarsenis/thawra-api/pkg/models"
	"github.com/ouarsenis/thawra-api/pkg/tracing"
)

var validate = validator.New()

// Handler serves the admin-only account endpoints.
type Handler struct {
	users  *usersvc.Service
	logger ectologger.Logger
}

func NewHandler(users *usersvc.Service, logger ectologger.Logger) *Handler {
	return &Handler{
		users:  users,
		logger: logger,
	}
}

// Register registers the user routes.
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.PATCH("/:id/role", h.UpdateRole)
	g.DELETE("/:id", h.Deactivate)
}

// List returns all accounts.
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "user_handler.List")
	defer span.End()

	users, err := h.users.List(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, users)
}

// Get returns one account.
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "user_handler.Get")
	defer span.End()

	user, err := h.users.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}

// Create registers an account.
func (h *Handler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "user_handler.Create")
	defer span.End()

	var req models.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.users.Create(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, user)
}

// UpdateRole changes an account's role.
func (h *Handler) UpdateRole(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "user_handler.UpdateRole")
	defer span.End()

	var req models.UpdateUserRoleRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.users.UpdateRole(ctx, c.Param("id"), req.Role)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}

// Deactivate disables an account without erasing its audit history.
func (h *Handler) Deactivate(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "user_handler.Deactivate")
	defer span.End()

	if err := h.users.Deactivate(ctx, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
