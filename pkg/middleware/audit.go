package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	appctx "github.com/ouarsenis/thawra-api/pkg/context"
	"github.com/ouarsenis/thawra-api/pkg/models"
)

// AuditRecorder appends one record to the audit trail.
type AuditRecorder interface {
	Insert(ctx context.Context, entry *models.AuditLogEntry) error
}

// Snapshotter captures an entity's current state before it is mutated.
type Snapshotter interface {
	Snapshot(ctx context.Context, entityType, entityID string) (json.RawMessage, error)
}

// auditEntityTypes maps a path segment to the entity type recorded in the
// trail. Paths with none of these segments are not audited.
var auditEntityTypes = map[string]string{
	"events":  "event",
	"sources": "source",
	"regions": "region",
	"users":   "user",
	"people":  "person",
}

// Audit records every authenticated mutating request. The write happens on a
// detached goroutine with its own timeout: the trail must never add latency
// to, or fail, the request it describes. Requests without a principal are
// skipped silently; the authorization gate decides whether such requests get
// through at all.
func Audit(recorder AuditRecorder, snapshots Snapshotter, writeTimeout time.Duration, logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			action, audited := actionForMethod(c.Request().Method)
			if !audited {
				return next(c)
			}
			// Login and token traffic never lands in the trail.
			if strings.Contains(c.Request().URL.Path, "/auth/") {
				return next(c)
			}
			entityType := entityTypeFromPath(c.Request().URL.Path)
			if entityType == "" {
				return next(c)
			}

			ctx := c.Request().Context()

			var reqBody []byte
			if c.Request().Body != nil {
				reqBody, _ = io.ReadAll(c.Request().Body)
				c.Request().Body = io.NopCloser(bytes.NewReader(reqBody))
			}

			entityID := c.Param("id")

			// The pre-change state only matters when something is changed in
			// place.
			var oldData json.RawMessage
			if entityID != "" && (action == models.AuditActionUpdate || action == models.AuditActionDelete) {
				snapshot, err := snapshots.Snapshot(ctx, entityType, entityID)
				if err != nil {
					logger.WithContext(ctx).WithError(err).Warn("Failed to snapshot entity for audit")
				} else {
					oldData = snapshot
				}
			}

			capture := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = capture

			err := next(c)

			userID := appctx.GetUserID(c.Request().Context())
			if userID == "" {
				return err
			}

			entry := &models.AuditLogEntry{
				ID:         uuid.New().String(),
				UserID:     userID,
				EntityType: entityType,
				EntityID:   entityID,
				Action:     action,
				OldData:    oldData,
				Timestamp:  time.Now().UTC(),
			}
			if ip := appctx.GetRemoteIP(c.Request().Context()); ip != "" {
				entry.IPAddress = &ip
			}

			failed := err != nil || capture.status >= http.StatusBadRequest
			if failed {
				entry.OldData = failurePayload(err, capture.status, reqBody)
			} else {
				if json.Valid(capture.body.Bytes()) {
					entry.NewData = json.RawMessage(bytes.Clone(capture.body.Bytes()))
				}
				if entry.EntityID == "" {
					entry.EntityID = idFromResponse(capture.body.Bytes())
				}
			}
			if entry.EntityID == "" {
				entry.EntityID = models.AuditEntityUnknown
			}

			// Detach from the request: its context dies when the response is
			// sent, the write must not.
			writeCtx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), writeTimeout)
			go func() {
				defer cancel()
				if insertErr := recorder.Insert(writeCtx, entry); insertErr != nil {
					logger.WithContext(writeCtx).WithError(insertErr).Error("Failed to write audit record")
				}
			}()

			return err
		}
	}
}

func actionForMethod(method string) (models.AuditAction, bool) {
	switch method {
	case http.MethodPost:
		return models.AuditActionCreate, true
	case http.MethodPut, http.MethodPatch:
		return models.AuditActionUpdate, true
	case http.MethodDelete:
		return models.AuditActionDelete, true
	}
	return "", false
}

func entityTypeFromPath(path string) string {
	for _, segment := range strings.Split(path, "/") {
		if entityType, ok := auditEntityTypes[segment]; ok {
			return entityType
		}
	}
	return ""
}

// failurePayload preserves what the caller tried to do when the request
// failed, since there is no entity state to record.
func failurePayload(err error, status int, reqBody []byte) json.RawMessage {
	message := http.StatusText(status)
	if err != nil {
		message = err.Error()
		if httperror.IsHTTPError(err) {
			message = httperror.ToHTTPError(err).Error()
		}
	}

	payload := map[string]any{"error": message}
	if json.Valid(reqBody) {
		payload["attempted"] = json.RawMessage(reqBody)
	}

	data, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return nil
	}
	return data
}

func idFromResponse(body []byte) string {
	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.ID
}

type captureWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (w *captureWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}
