package audit

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	auditrepo "github.com/ouarsenis/thawra-api/internal/repositories/audit"
	"github.com/ouarsenis/thawra-api/pkg/tracing"
)

// Handler serves the admin-only audit trail reads. Writes happen in the
// audit middleware, never here.
type Handler struct {
	audit  *auditrepo.Repository
	logger ectologger.Logger
}

func NewHandler(audit *auditrepo.Repository, logger ectologger.Logger) *Handler {
	return &Handler{
		audit:  audit,
		logger: logger,
	}
}

// Register registers the audit routes.
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.Recent)
	g.GET("/entity/:type/:id", h.ByEntity)
	g.GET("/user/:userId", h.ByUser)
}

func limitParam(c echo.Context) int {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return limit
}

// Recent returns the newest records across all entities.
func (h *Handler) Recent(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "audit_handler.Recent")
	defer span.End()

	entries, err := h.audit.Recent(ctx, limitParam(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entries)
}

// ByEntity returns the history of one entity.
func (h *Handler) ByEntity(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "audit_handler.ByEntity")
	defer span.End()

	entries, err := h.audit.ByEntity(ctx, c.Param("type"), c.Param("id"), limitParam(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entries)
}

// ByUser returns everything a user did.
func (h *Handler) ByUser(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "audit_handler.ByUser")
	defer span.End()

	entries, err := h.audit.ByUser(ctx, c.Param("userId"), limitParam(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entries)
}
