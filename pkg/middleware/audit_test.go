package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "github.com/ouarsenis/thawra-api/pkg/context"
	"github.com/ouarsenis/thawra-api/pkg/models"
)

type fakeRecorder struct {
	mu      sync.Mutex
	entries []*models.AuditLogEntry
}

func (f *fakeRecorder) Insert(ctx context.Context, entry *models.AuditLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeRecorder) all() []*models.AuditLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.AuditLogEntry{}, f.entries...)
}

type fakeSnapshotter struct {
	snapshots map[string]json.RawMessage
}

func (f *fakeSnapshotter) Snapshot(ctx context.Context, entityType, entityID string) (json.RawMessage, error) {
	return f.snapshots[entityType+"/"+entityID], nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func auditedContext(t *testing.T, method, path, body, userID string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		ctx := appctx.SetUserID(req.Context(), userID)
		c.SetRequest(req.WithContext(ctx))
	}
	return c, rec
}

func TestAuditRecordsCreate(t *testing.T) {
	recorder := &fakeRecorder{}
	mw := Audit(recorder, &fakeSnapshotter{}, time.Second, testLogger())

	c, _ := auditedContext(t, http.MethodPost, "/api/v1/events", `{"title":"x"}`, "user-1")
	handler := mw(func(c echo.Context) error {
		return c.JSON(http.StatusCreated, map[string]string{"id": "event-9"})
	})

	require.NoError(t, handler(c))

	assert.Eventually(t, func() bool { return len(recorder.all()) == 1 }, time.Second, 10*time.Millisecond)
	entry := recorder.all()[0]
	assert.Equal(t, models.AuditActionCreate, entry.Action)
	assert.Equal(t, "event", entry.EntityType)
	// No :id param on create, so the id comes from the response body.
	assert.Equal(t, "event-9", entry.EntityID)
	assert.Equal(t, "user-1", entry.UserID)
	assert.JSONEq(t, `{"id":"event-9"}`, string(entry.NewData))
	assert.Nil(t, entry.OldData)
}

func TestAuditSkipsReads(t *testing.T) {
	recorder := &fakeRecorder{}
	mw := Audit(recorder, &fakeSnapshotter{}, time.Second, testLogger())

	c, _ := auditedContext(t, http.MethodGet, "/api/v1/events", "", "user-1")
	called := false
	handler := mw(func(c echo.Context) error {
		called = true
		return c.JSON(http.StatusOK, []string{})
	})

	require.NoError(t, handler(c))
	assert.True(t, called)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, recorder.all())
}

func TestAuditSkipsUnauthenticated(t *testing.T) {
	recorder := &fakeRecorder{}
	mw := Audit(recorder, &fakeSnapshotter{}, time.Second, testLogger())

	c, _ := auditedContext(t, http.MethodPost, "/api/v1/events", `{"title":"x"}`, "")
	handler := mw(func(c echo.Context) error {
		return c.JSON(http.StatusCreated, map[string]string{"id": "event-9"})
	})

	require.NoError(t, handler(c))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, recorder.all())
}

func TestAuditSkipsAuthRoutes(t *testing.T) {
	recorder := &fakeRecorder{}
	mw := Audit(recorder, &fakeSnapshotter{}, time.Second, testLogger())

	c, _ := auditedContext(t, http.MethodPost, "/api/v1/auth/login", `{"email":"x"}`, "user-1")
	handler := mw(func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"accessToken": "t"})
	})

	require.NoError(t, handler(c))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, recorder.all())
}

func TestAuditUpdateCarriesSnapshot(t *testing.T) {
	recorder := &fakeRecorder{}
	snaps := &fakeSnapshotter{snapshots: map[string]json.RawMessage{
		"event/event-1": json.RawMessage(`{"id":"event-1","title":"old"}`),
	}}
	mw := Audit(recorder, snaps, time.Second, testLogger())

	c, _ := auditedContext(t, http.MethodPut, "/api/v1/events/event-1", `{"title":"new"}`, "user-1")
	c.SetParamNames("id")
	c.SetParamValues("event-1")
	handler := mw(func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"id": "event-1", "title": "new"})
	})

	require.NoError(t, handler(c))

	assert.Eventually(t, func() bool { return len(recorder.all()) == 1 }, time.Second, 10*time.Millisecond)
	entry := recorder.all()[0]
	assert.Equal(t, models.AuditActionUpdate, entry.Action)
	assert.Equal(t, "event-1", entry.EntityID)
	assert.JSONEq(t, `{"id":"event-1","title":"old"}`, string(entry.OldData))
	assert.JSONEq(t, `{"id":"event-1","title":"new"}`, string(entry.NewData))
}

func TestAuditFailureKeepsAttemptedPayload(t *testing.T) {
	recorder := &fakeRecorder{}
	mw := Audit(recorder, &fakeSnapshotter{}, time.Second, testLogger())

	c, _ := auditedContext(t, http.MethodPost, "/api/v1/events", `{"title":"bad"}`, "user-1")
	handler := mw(func(c echo.Context) error {
		return httperror.NewHTTPError(http.StatusBadRequest, "startDate must fall between 1830-01-01 and 1954-12-31")
	})

	require.Error(t, handler(c))

	assert.Eventually(t, func() bool { return len(recorder.all()) == 1 }, time.Second, 10*time.Millisecond)
	entry := recorder.all()[0]
	assert.Equal(t, models.AuditEntityUnknown, entry.EntityID)
	assert.Nil(t, entry.NewData)

	var failure struct {
		Error     string          `json:"error"`
		Attempted json.RawMessage `json:"attempted"`
	}
	require.NoError(t, json.Unmarshal(entry.OldData, &failure))
	assert.Contains(t, failure.Error, "1830-01-01")
	assert.JSONEq(t, `{"title":"bad"}`, string(failure.Attempted))
}

func TestAuditDeleteAction(t *testing.T) {
	recorder := &fakeRecorder{}
	snaps := &fakeSnapshotter{snapshots: map[string]json.RawMessage{
		"source/source-1": json.RawMessage(`{"id":"source-1"}`),
	}}
	mw := Audit(recorder, snaps, time.Second, testLogger())

	c, _ := auditedContext(t, http.MethodDelete, "/api/v1/sources/source-1", "", "admin-1")
	c.SetParamNames("id")
	c.SetParamValues("source-1")
	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	require.NoError(t, handler(c))

	assert.Eventually(t, func() bool { return len(recorder.all()) == 1 }, time.Second, 10*time.Millisecond)
	entry := recorder.all()[0]
	assert.Equal(t, models.AuditActionDelete, entry.Action)
	assert.Equal(t, "source", entry.EntityType)
	assert.JSONEq(t, `{"id":"source-1"}`, string(entry.OldData))
}
