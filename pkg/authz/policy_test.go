package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "github.com/ouarsenis/thawra-api/pkg/context"
	"github.com/ouarsenis/thawra-api/pkg/models"
)

func TestSatisfiesHierarchy(t *testing.T) {
	editorOrAbove := []models.UserRole{models.RoleEditor, models.RoleAdmin}

	tests := []struct {
		name     string
		role     models.UserRole
		required []models.UserRole
		want     bool
	}{
		{"viewer below editor", models.RoleViewer, editorOrAbove, false},
		{"editor meets editor", models.RoleEditor, editorOrAbove, true},
		{"admin exceeds editor", models.RoleAdmin, editorOrAbove, true},
		{"admin passes a bare editor requirement", models.RoleAdmin, []models.UserRole{models.RoleEditor}, true},
		{"editor below admin", models.RoleEditor, []models.UserRole{models.RoleAdmin}, false},
		{"viewer meets viewer", models.RoleViewer, []models.UserRole{models.RoleViewer}, true},
		{"unknown role never passes", models.UserRole("SUPERUSER"), []models.UserRole{models.RoleViewer}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Satisfies(tt.role, tt.required))
		})
	}
}

func gateContext(t *testing.T, method, routePath, role string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(routePath)
	if role != "" {
		ctx := appctx.SetUserRole(req.Context(), role)
		ctx = appctx.SetUserID(ctx, "user-1")
		c.SetRequest(req.WithContext(ctx))
	}
	return c
}

func testGate(policy Policy) echo.MiddlewareFunc {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return Gate(policy, logger)
}

func TestGateNoPrincipalIs401(t *testing.T) {
	mw := testGate(DefaultPolicy())
	c := gateContext(t, http.MethodPost, "/api/v1/events", "")

	err := mw(func(c echo.Context) error { return nil })(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, httperror.GetStatusCode(err))
}

func TestGateInsufficientRoleIs403(t *testing.T) {
	mw := testGate(DefaultPolicy())
	c := gateContext(t, http.MethodPost, "/api/v1/events", string(models.RoleViewer))

	err := mw(func(c echo.Context) error { return nil })(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(err))
}

func TestGateSufficientRolePasses(t *testing.T) {
	mw := testGate(DefaultPolicy())

	for _, role := range []models.UserRole{models.RoleEditor, models.RoleAdmin} {
		c := gateContext(t, http.MethodPost, "/api/v1/events", string(role))
		called := false
		err := mw(func(c echo.Context) error { called = true; return nil })(c)
		require.NoError(t, err, "role %s", role)
		assert.True(t, called, "role %s", role)
	}
}

func TestGateAdminOnlyRoutes(t *testing.T) {
	mw := testGate(DefaultPolicy())

	c := gateContext(t, http.MethodDelete, "/api/v1/events/:id", string(models.RoleEditor))
	err := mw(func(c echo.Context) error { return nil })(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(err))

	c = gateContext(t, http.MethodDelete, "/api/v1/events/:id", string(models.RoleAdmin))
	require.NoError(t, mw(func(c echo.Context) error { return nil })(c))
}

func TestGatePublicRouteNeedsNoPrincipal(t *testing.T) {
	mw := testGate(DefaultPolicy())
	c := gateContext(t, http.MethodGet, "/api/v1/events", "")

	called := false
	err := mw(func(c echo.Context) error { called = true; return nil })(c)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestGateUnlistedRoutePasses(t *testing.T) {
	mw := testGate(DefaultPolicy())
	c := gateContext(t, http.MethodGet, "/api/v1/regions", "")

	called := false
	err := mw(func(c echo.Context) error { called = true; return nil })(c)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestGateUnknownRoleNeverPasses(t *testing.T) {
	mw := testGate(DefaultPolicy())
	c := gateContext(t, http.MethodPost, "/api/v1/events", "SUPERUSER")

	err := mw(func(c echo.Context) error { return nil })(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(err))
}
