package event

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	eventsvc "github.com/ouarsenis/thawra-api/internal/services/event"
	appctx "github.com/ouarsenis/thawra-api/pkg/context"
	"github.com/ouarsenis/thawra-api/pkg/models"
	"github.com/ouarsenis/thawra-api/pkg/tracing"
)

var validate = validator.New()

// Handler serves the event endpoints.
type Handler struct {
	events *eventsvc.Service
	logger ectologger.Logger
}

func NewHandler(events *eventsvc.Service, logger ectologger.Logger) *Handler {
	return &Handler{
		events: events,
		logger: logger,
	}
}

// Register registers the event routes.
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/statistics", h.Statistics)
	g.GET("/region/:code", h.ListByRegion)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id/status", h.UpdateStatus)
	g.DELETE("/:id", h.Delete)
}

// List returns a filtered, sorted, paginated page of events.
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "event_handler.List")
	defer span.End()

	var q models.EventListQuery
	if err := c.Bind(&q); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}

	if err := validate.Struct(q); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	resp, err := h.events.List(ctx, q)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// Statistics returns dataset-wide aggregates.
func (h *Handler) Statistics(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "event_handler.Statistics")
	defer span.End()

	stats, err := h.events.Statistics(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, stats)
}

// ListByRegion returns a region addressed by code with all of its events.
func (h *Handler) ListByRegion(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "event_handler.ListByRegion")
	defer span.End()

	region, err := h.events.GetByRegionCode(ctx, c.Param("code"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, region)
}

// Get returns one event with all relations expanded.
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "event_handler.Get")
	defer span.End()

	event, err := h.events.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, event)
}

// Create creates an event. The stored review status is always DRAFT.
func (h *Handler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "event_handler.Create")
	defer span.End()

	var req models.CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	event, err := h.events.Create(ctx, req, appctx.GetUserID(ctx))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, event)
}

// Update applies a partial update to an event.
func (h *Handler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "event_handler.Update")
	defer span.End()

	var req models.UpdateEventRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	event, err := h.events.Update(ctx, c.Param("id"), req, appctx.GetUserID(ctx))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, event)
}

// UpdateStatus moves an event through the review workflow.
func (h *Handler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "event_handler.UpdateStatus")
	defer span.End()

	var req models.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	event, err := h.events.UpdateStatus(ctx, c.Param("id"), req.Status, appctx.GetUserID(ctx))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, event)
}

// Delete removes an event.
func (h *Handler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "event_handler.Delete")
	defer span.End()

	if err := h.events.Delete(ctx, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
