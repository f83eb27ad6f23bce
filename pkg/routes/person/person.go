package person

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	personsvc "github.com/ouarsenis/thawra-api/internal/services/person"
	"github.com/ouarsenis/thawra-api/pkg/models"
	"github.com/ouarsenis/thawra-api/pkg/tracing"
)

var validate = validator.New()

// Handler serves the person endpoints.
type Handler struct {
	people *personsvc.Service
	logger ectologger.Logger
}

func NewHandler(people *personsvc.Service, logger ectologger.Logger) *Handler {
	return &Handler{
		people: people,
		logger: logger,
	}
}

// Register registers the person routes.
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.POST("/import", h.Import)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// List returns all people.
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "person_handler.List")
	defer span.End()

	people, err := h.people.List(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, people)
}

// Get returns one person.
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "person_handler.Get")
	defer span.End()

	person, err := h.people.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, person)
}

// Create creates a person.
func (h *Handler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "person_handler.Create")
	defer span.End()

	var req models.CreatePersonRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	person, err := h.people.Create(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, person)
}

// Import bulk upserts people, deduplicating on externalRef.
func (h *Handler) Import(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "person_handler.Import")
	defer span.End()

	var req models.ImportPeopleRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.people.Import(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Update applies a partial update to a person.
func (h *Handler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "person_handler.Update")
	defer span.End()

	var req models.UpdatePersonRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	person, err := h.people.Update(ctx, c.Param("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, person)
}

// Delete removes a person.
func (h *Handler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "person_handler.Delete")
	defer span.End()

	if err := h.people.Delete(ctx, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
