package region

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	eventrepo "github.com/ouarsenis/thawra-api/internal/repositories/event"
	regionrepo "github.com/ouarsenis/thawra-api/internal/repositories/region"
	"github.com/ouarsenis/thawra-api/pkg/models"
	"github.com/ouarsenis/thawra-api/pkg/tracing"
)

// Handler serves the region endpoints. Regions are read-only reference data
// so the handler talks straight to the repositories.
type Handler struct {
	regions *regionrepo.Repository
	events  *eventrepo.Repository
	logger  ectologger.Logger
}

func NewHandler(regions *regionrepo.Repository, events *eventrepo.Repository, logger ectologger.Logger) *Handler {
	return &Handler{
		regions: regions,
		events:  events,
		logger:  logger,
	}
}

// Register registers the region routes.
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/geojson", h.GeoJSON)
	g.GET("/code/:code", h.GetByCode)
	g.GET("/:id", h.Get)
}

// List returns all regions with live event counts.
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "region_handler.List")
	defer span.End()

	regions, err := h.regions.List(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, regions)
}

// GeoJSON renders every region that carries a geometry as a GeoJSON
// FeatureCollection for the map frontend.
func (h *Handler) GeoJSON(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "region_handler.GeoJSON")
	defer span.End()

	regions, err := h.regions.ListGeometries(ctx)
	if err != nil {
		return err
	}

	collection := models.GeoJSONFeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]models.GeoJSONFeature, 0, len(regions)),
	}
	for _, region := range regions {
		collection.Features = append(collection.Features, models.GeoJSONFeature{
			Type: "Feature",
			Properties: map[string]any{
				"id":         region.ID,
				"nameAr":     region.NameAr,
				"nameEn":     region.NameEn,
				"code":       region.Code,
				"eventCount": region.EventCount,
			},
			Geometry: region.Geometry,
		})
	}

	return c.JSON(http.StatusOK, collection)
}

// GetByCode returns one region looked up by its human-assigned code. The
// code and the opaque id are independent lookup keys, never interchangeable.
func (h *Handler) GetByCode(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "region_handler.GetByCode")
	defer span.End()

	code := c.Param("code")
	region, err := h.regions.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if region == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "region with code "+code+" not found")
	}

	events, err := h.events.ListByRegionCode(ctx, region.Code)
	if err != nil {
		return err
	}
	region.Events = events

	return c.JSON(http.StatusOK, region)
}

// Get returns one region with its events.
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "region_handler.Get")
	defer span.End()

	id := c.Param("id")
	region, err := h.regions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if region == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "region "+id+" not found")
	}

	events, err := h.events.ListByRegionCode(ctx, region.Code)
	if err != nil {
		return err
	}
	region.Events = events

	return c.JSON(http.StatusOK, region)
}
