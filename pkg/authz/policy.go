// Package authz implements the role-hierarchy authorization gate. Per-route
// requirements live in a static policy table keyed by method and route
// template; the gate consults it before dispatch.
package authz

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	appctx "github.com/ouarsenis/thawra-api/pkg/context"
	"github.com/ouarsenis/thawra-api/pkg/models"
	"github.com/ouarsenis/thawra-api/pkg/tracing"
)

// Requirement declares what a route demands of the caller. An empty Roles
// set or Public=true means the route is open relative to roles. Roles is
// satisfied by a principal whose level is >= the LOWEST listed role's level;
// the set is a floor, not a conjunction.
type Requirement struct {
	Roles  []models.UserRole
	Public bool
}

// Policy maps "METHOD /route/template" to its requirement. Routes with no
// entry require no role.
type Policy map[string]Requirement

// DefaultPolicy is the route table for the API. Reads on events, regions and
// sources are public per-operation overrides even though their mutating
// siblings are gated.
func DefaultPolicy() Policy {
	editor := Requirement{Roles: []models.UserRole{models.RoleEditor, models.RoleAdmin}}
	admin := Requirement{Roles: []models.UserRole{models.RoleAdmin}}
	public := Requirement{Public: true}

	return Policy{
		"POST /api/v1/events":              editor,
		"PUT /api/v1/events/:id":           editor,
		"PATCH /api/v1/events/:id/status":  admin,
		"DELETE /api/v1/events/:id":        admin,
		"GET /api/v1/events":               public,
		"GET /api/v1/events/statistics":    public,
		"GET /api/v1/events/region/:code":  public,
		"GET /api/v1/events/:id":           public,
		"POST /api/v1/sources":             editor,
		"PUT /api/v1/sources/:id":          editor,
		"DELETE /api/v1/sources/:id":       admin,
		"POST /api/v1/people":              editor,
		"POST /api/v1/people/import":       editor,
		"PUT /api/v1/people/:id":           editor,
		"DELETE /api/v1/people/:id":        admin,
		"GET /api/v1/users":                admin,
		"GET /api/v1/users/:id":            admin,
		"POST /api/v1/users":               admin,
		"PATCH /api/v1/users/:id/role":     admin,
		"DELETE /api/v1/users/:id":         admin,
		"GET /api/v1/audit":                admin,
		"GET /api/v1/audit/entity/:type/:id": admin,
		"GET /api/v1/audit/user/:userId":   admin,
	}
}

// Gate returns the middleware enforcing the policy. A required role with no
// principal yields 401; a principal below every listed role yields 403.
func Gate(policy Policy, logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			ctx, span := tracing.StartSpan(ctx, "authz.Gate")
			defer span.End()

			req, ok := policy[c.Request().Method+" "+c.Path()]
			if !ok || req.Public || len(req.Roles) == 0 {
				return next(c)
			}

			role := models.UserRole(appctx.GetUserRole(ctx))
			if role == "" {
				logger.WithContext(ctx).WithField("route", c.Path()).Warn("protected route called without a principal")
				return httperror.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			if !Satisfies(role, req.Roles) {
				logger.WithContext(ctx).WithFields(map[string]any{
					"route": c.Path(),
					"role":  string(role),
				}).Warn("principal role below route requirement")
				return httperror.NewHTTPError(http.StatusForbidden, "insufficient permissions")
			}

			return next(c)
		}
	}
}

// Satisfies reports whether the principal's role level meets or exceeds the
// level of ANY required role. This is the hierarchy comparison: ADMIN passes
// a bare {EDITOR} requirement because level(ADMIN) >= level(EDITOR).
func Satisfies(role models.UserRole, required []models.UserRole) bool {
	level := role.Level()
	if level == 0 {
		return false
	}
	for _, r := range required {
		if level >= r.Level() {
			return true
		}
	}
	return false
}
