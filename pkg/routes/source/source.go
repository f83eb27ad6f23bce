package source

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	sourcesvc "github.com/ouarsenis/thawra-api/internal/services/source"
	"github.com/ouarsenis/thawra-api/pkg/models"
	"github.com/ouarsenis/thawra-api/pkg/tracing"
)

var validate = validator.New()

// Handler serves the source endpoints.
type Handler struct {
	sources *sourcesvc.Service
	logger  ectologger.Logger
}

func NewHandler(sources *sourcesvc.Service, logger ectologger.Logger) *Handler {
	return &Handler{
		sources: sources,
		logger:  logger,
	}
}

// Register registers the source routes.
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/search", h.Search)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// List returns all sources with citation counts.
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "source_handler.List")
	defer span.End()

	sources, err := h.sources.List(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sources)
}

// Search matches sources by title or author for the citation picker.
func (h *Handler) Search(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "source_handler.Search")
	defer span.End()

	sources, err := h.sources.Search(ctx, c.QueryParam("q"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sources)
}

// Get returns one source with the events citing it.
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "source_handler.Get")
	defer span.End()

	source, err := h.sources.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, source)
}

// Create creates a source.
func (h *Handler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "source_handler.Create")
	defer span.End()

	var req models.CreateSourceRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	source, err := h.sources.Create(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, source)
}

// Update applies a partial update to a source.
func (h *Handler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "source_handler.Update")
	defer span.End()

	var req models.UpdateSourceRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	source, err := h.sources.Update(ctx, c.Param("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, source)
}

// Delete removes a source that no event cites.
func (h *Handler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "source_handler.Delete")
	defer span.End()

	if err := h.sources.Delete(ctx, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
