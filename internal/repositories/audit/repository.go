package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/ouarsenis/thawra-api/pkg/database"
	"github.com/ouarsenis/thawra-api/pkg/models"
	"github.com/ouarsenis/thawra-api/pkg/tracing"
)

const tableName = "audit_logs"

const defaultLimit = 50

var auditColumns = []string{
	"a.id", "a.user_id", "a.entity_type", "a.entity_id", "a.action",
	"a.old_data", "a.new_data", "a.ip_address", "a.timestamp",
}

// Repository handles the append-only audit trail. Insert is the only write;
// nothing ever updates or deletes a row here.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Insert appends one audit record.
func (r *Repository) Insert(ctx context.Context, entry *models.AuditLogEntry) error {
	ctx, span := tracing.StartSpan(ctx, "audit.Repository.Insert")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "user_id", "entity_type", "entity_id", "action", "old_data", "new_data", "ip_address", "timestamp")
	sb.Values(entry.ID, entry.UserID, entry.EntityType, entry.EntityID, entry.Action,
		entry.OldData, entry.NewData, entry.IPAddress, entry.Timestamp)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to insert audit record")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert audit record")
	}

	return nil
}

// snapshotTables whitelists the tables the audit middleware may snapshot
// before a mutation. The entity type comes from the request path, so the
// table name must never be built from user input directly.
var snapshotTables = map[string]string{
	"event":  "events",
	"source": "sources",
	"region": "regions",
	"user":   "users",
	"person": "people",
}

// Snapshot returns the current row of an entity as JSON, for the old_data
// side of an update or delete record. A missing row or unknown entity type
// yields nil, not an error: the trail records what it can.
func (r *Repository) Snapshot(ctx context.Context, entityType, entityID string) (json.RawMessage, error) {
	ctx, span := tracing.StartSpan(ctx, "audit.Repository.Snapshot")
	defer span.End()

	table, ok := snapshotTables[entityType]
	if !ok {
		return nil, nil
	}

	var data []byte
	query := fmt.Sprintf("SELECT row_to_json(t) FROM %s t WHERE t.id = $1", table)
	if err := r.db.GetContext(ctx, &data, query, entityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to snapshot entity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to snapshot entity")
	}

	return json.RawMessage(data), nil
}

type auditRow struct {
	models.AuditLogEntry
	UserName  *string `db:"user_name"`
	UserEmail *string `db:"user_email"`
}

// Recent returns the newest records across all entities.
func (r *Repository) Recent(ctx context.Context, limit int) ([]models.AuditLogEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "audit.Repository.Recent")
	defer span.End()

	return r.list(ctx, limit, nil)
}

// ByEntity returns the history of one entity, newest first.
func (r *Repository) ByEntity(ctx context.Context, entityType, entityID string, limit int) ([]models.AuditLogEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "audit.Repository.ByEntity")
	defer span.End()

	return r.list(ctx, limit, func(sb *sqlbuilder.SelectBuilder) []string {
		return []string{
			sb.Equal("a.entity_type", entityType),
			sb.Equal("a.entity_id", entityID),
		}
	})
}

// ByUser returns everything a user did, newest first.
func (r *Repository) ByUser(ctx context.Context, userID string, limit int) ([]models.AuditLogEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "audit.Repository.ByUser")
	defer span.End()

	return r.list(ctx, limit, func(sb *sqlbuilder.SelectBuilder) []string {
		return []string{sb.Equal("a.user_id", userID)}
	})
}

func (r *Repository) list(ctx context.Context, limit int, where func(*sqlbuilder.SelectBuilder) []string) ([]models.AuditLogEntry, error) {
	if limit < 1 || limit > 500 {
		limit = defaultLimit
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(append(append([]string{}, auditColumns...),
		"u.name AS user_name",
		"u.email AS user_email",
	)...)
	sb.From(tableName + " a")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "users u", "u.id = a.user_id")
	if where != nil {
		sb.Where(where(sb)...)
	}
	sb.OrderBy("a.timestamp DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var rows []auditRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list audit records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list audit records")
	}

	entries := make([]models.AuditLogEntry, len(rows))
	for i, row := range rows {
		entry := row.AuditLogEntry
		if row.UserName != nil {
			entry.User = &models.UserRef{ID: entry.UserID, Name: *row.UserName}
			if row.UserEmail != nil {
				entry.User.Email = *row.UserEmail
			}
		}
		entries[i] = entry
	}

	return entries, nil
}
