package event

import (
	"context"
	"database/sql"
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

// Links are the join rows attached to an event. On update a non-nil slice
// replaces the existing set for that relation; nil leaves it alone.
type Links struct {
	SourceIDs []string
	People    []models.PersonAssignment
	TagIDs    []string
}

// Repository handles event persistence.
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

type listRow struct {
	models.Event
	RegionNameAr  string         `db:"region_name_ar"`
	RegionCode    string         `db:"region_code"`
	CreatedByName sql.NullString `db:"created_by_name"`
}

func (row listRow) toEvent() models.Event {
	ev := row.Event
	ev.Region = &models.RegionRef{ID: ev.RegionID, NameAr: row.RegionNameAr, Code: row.RegionCode}
	if ev.CreatedByID != nil && row.CreatedByName.Valid {
		ev.CreatedBy = &models.UserRef{ID: *ev.CreatedByID, Name: row.CreatedByName.String}
	}
	return ev
}

// List returns one page of events matching the query plus the total count of
// matches. Both queries come from the same builder so a row counted is a row
// the pagination can reach.
func (r *Repository) List(ctx context.Context, q models.EventListQuery) ([]models.Event, int, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.List")
	defer span.End()

	countSb := listSelect(q, "COUNT(*)")
	countQuery, countArgs := countSb.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count events")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count events")
	}

	sb := pageSelect(q)
	primary, secondary := orderClause(q)
	sb.OrderBy(primary, secondary)
	sb.Limit(q.Limit).Offset((q.Page - 1) * q.Limit)

	query, args := sb.Build()
	var rows []listRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list events")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list events")
	}

	events := make([]models.Event, len(rows))
	for i, row := range rows {
		events[i] = row.toEvent()
	}

	if err := r.attachRelations(ctx, events); err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

type detailRow struct {
	models.Event
	RegionNameAr   string         `db:"region_name_ar"`
	RegionCode     string         `db:"region_code"`
	CreatedByName  sql.NullString `db:"created_by_name"`
	CreatedByEmail sql.NullString `db:"created_by_email"`
	UpdatedByName  sql.NullString `db:"updated_by_name"`
	UpdatedByEmail sql.NullString `db:"updated_by_email"`
}

// GetByID returns the event with every relation expanded, or nil when no row
// exists.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.GetByID")
	defer span.End()

	cols := append(append([]string{}, eventColumns...),
		"r.name_ar AS region_name_ar",
		"r.code AS region_code",
		"cu.name AS created_by_name",
		"cu.email AS created_by_email",
		"uu.name AS updated_by_name",
		"uu.email AS updated_by_email",
	)

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(cols...)
	sb.From(tableName + " e")
	sb.Join("regions r", "e.region_id = r.id")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "users cu", "cu.id = e.created_by_id")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "users uu", "uu.id = e.updated_by_id")
	sb.Where(sb.Equal("e.id", id))

	query, args := sb.Build()
	var row detailRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get event")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get event")
	}

	ev := row.Event
	ev.Region = &models.RegionRef{ID: ev.RegionID, NameAr: row.RegionNameAr, Code: row.RegionCode}
	if ev.CreatedByID != nil && row.CreatedByName.Valid {
		ev.CreatedBy = &models.UserRef{ID: *ev.CreatedByID, Name: row.CreatedByName.String, Email: row.CreatedByEmail.String}
	}
	if ev.UpdatedByID != nil && row.UpdatedByName.Valid {
		ev.UpdatedBy = &models.UserRef{ID: *ev.UpdatedByID, Name: row.UpdatedByName.String, Email: row.UpdatedByEmail.String}
	}

	events := []models.Event{ev}
	if err := r.attachRelations(ctx, events); err != nil {
		return nil, err
	}

	return &events[0], nil
}

// ListByRegionCode returns all events of the region with the given code in
// chronological order.
func (r *Repository) ListByRegionCode(ctx context.Context, code string) ([]models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.ListByRegionCode")
	defer span.End()

	sb := pageSelect(models.EventListQuery{RegionCode: code})
	sb.OrderBy("e.start_date ASC", "e.id ASC")

	query, args := sb.Build()
	var rows []listRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list events by region code")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list events")
	}

	events := make([]models.Event, len(rows))
	for i, row := range rows {
		events[i] = row.toEvent()
	}

	if err := r.attachRelations(ctx, events); err != nil {
		return nil, err
	}

	return events, nil
}

// Statistics aggregates the whole events table.
func (r *Repository) Statistics(ctx context.Context) (*models.EventStatistics, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.Statistics")
	defer span.End()

	stats := &models.EventStatistics{}

	if err := r.db.GetContext(ctx, &stats.Total, "SELECT COUNT(*) FROM events"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count events")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to compute statistics")
	}

	if err := r.db.SelectContext(ctx, &stats.ByType,
		"SELECT type, COUNT(*) AS count FROM events GROUP BY type ORDER BY count DESC"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to aggregate events by type")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to compute statistics")
	}

	if err := r.db.SelectContext(ctx, &stats.ByStatus,
		"SELECT review_status, COUNT(*) AS count FROM events GROUP BY review_status ORDER BY count DESC"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to aggregate events by status")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to compute statistics")
	}

	if err := r.db.GetContext(ctx, &stats.RegionsWithEvents,
		"SELECT COUNT(DISTINCT region_id) FROM events"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count regions with events")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to compute statistics")
	}

	return stats, nil
}

// Create writes the scalar row and all join rows in a single transaction:
// either the event and every link land together, or nothing does.
func (r *Repository) Create(ctx context.Context, event *models.Event, links Links) error {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method": "Create",
		"id":     event.ID,
		"title":  event.Title,
	})

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "title", "type", "region_id", "start_date", "end_date",
		"description", "detailed_description", "coordinates", "outcome",
		"casualties_text", "casualties_estimated", "parties",
		"review_status", "created_by_id", "updated_by_id", "created_at", "updated_at")
	sb.Values(event.ID, event.Title, event.Type, event.RegionID, event.StartDate, event.EndDate,
		event.Description, event.DetailedDescription, event.Coordinates, event.Outcome,
		event.CasualtiesText, event.CasualtiesEstimated, event.Parties,
		event.ReviewStatus, event.CreatedByID, event.UpdatedByID, event.CreatedAt, event.UpdatedAt)

	query, args := sb.Build()
	if _, err := tx.ExecContext(txCtx, query, args...); err != nil {
		log.WithError(err).Error("Failed to insert event")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create event")
	}

	if err := r.insertLinks(txCtx, tx, event.ID, links); err != nil {
		log.WithError(err).Error("Failed to insert event links")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create event")
	}

	if err := tx.Commit(txCtx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create event")
	}

	log.Info("Created event")
	return nil
}

// Update rewrites the scalar row and, for each non-nil relation in links,
// replaces that relation's join rows. Scalar and relation writes share one
// transaction.
func (r *Repository) Update(ctx context.Context, event *models.Event, links Links) error {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.Update")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method": "Update",
		"id":     event.ID,
	})

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("title", event.Title),
		sb.Assign("type", event.Type),
		sb.Assign("region_id", event.RegionID),
		sb.Assign("start_date", event.StartDate),
		sb.Assign("end_date", event.EndDate),
		sb.Assign("description", event.Description),
		sb.Assign("detailed_description", event.DetailedDescription),
		sb.Assign("coordinates", event.Coordinates),
		sb.Assign("outcome", event.Outcome),
		sb.Assign("casualties_text", event.CasualtiesText),
		sb.Assign("casualties_estimated", event.CasualtiesEstimated),
		sb.Assign("parties", event.Parties),
		sb.Assign("updated_by_id", event.UpdatedByID),
		sb.Assign("updated_at", event.UpdatedAt),
	)
	sb.Where(sb.Equal("id", event.ID))

	query, args := sb.Build()
	if _, err := tx.ExecContext(txCtx, query, args...); err != nil {
		log.WithError(err).Error("Failed to update event")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update event")
	}

	if err := r.replaceLinks(txCtx, tx, event.ID, links); err != nil {
		log.WithError(err).Error("Failed to replace event links")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update event")
	}

	if err := tx.Commit(txCtx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update event")
	}

	log.Info("Updated event")
	return nil
}

// UpdateStatus changes the review status and records who changed it. No
// other column is touched.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status models.ReviewStatus, updatedBy *string) error {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.UpdateStatus")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("review_status", status),
		sb.Assign("updated_by_id", updatedBy),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update event status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update event status")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("event %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id, "status": string(status)}).Info("Updated event status")
	return nil
}

// Delete removes the event. Join rows cascade at the database level.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete event")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete event")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("event %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deleted event")
	return nil
}

func (r *Repository) insertLinks(ctx context.Context, tx database.Tx, eventID string, links Links) error {
	if len(links.SourceIDs) > 0 {
		sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
		sb.InsertInto("event_sources")
		sb.Cols("event_id", "source_id")
		for _, sourceID := range links.SourceIDs {
			sb.Values(eventID, sourceID)
		}
		query, args := sb.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	if len(links.People) > 0 {
		sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
		sb.InsertInto("event_people")
		sb.Cols("event_id", "person_id", "role")
		for _, p := range links.People {
			sb.Values(eventID, p.PersonID, p.Role)
		}
		query, args := sb.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	if len(links.TagIDs) > 0 {
		sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
		sb.InsertInto("event_tags")
		sb.Cols("event_id", "tag_id")
		for _, tagID := range links.TagIDs {
			sb.Values(eventID, tagID)
		}
		query, args := sb.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	return nil
}

func (r *Repository) replaceLinks(ctx context.Context, tx database.Tx, eventID string, links Links) error {
	replace := func(table string) error {
		sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
		sb.DeleteFrom(table)
		sb.Where(sb.Equal("event_id", eventID))
		query, args := sb.Build()
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	}

	insert := Links{}
	if links.SourceIDs != nil {
		if err := replace("event_sources"); err != nil {
			return err
		}
		insert.SourceIDs = links.SourceIDs
	}
	if links.People != nil {
		if err := replace("event_people"); err != nil {
			return err
		}
		insert.People = links.People
	}
	if links.TagIDs != nil {
		if err := replace("event_tags"); err != nil {
			return err
		}
		insert.TagIDs = links.TagIDs
	}

	return r.insertLinks(ctx, tx, eventID, insert)
}

type personLinkRow struct {
	EventID string `db:"event_id"`
	models.EventPerson
}

type sourceLinkRow struct {
	EventID string `db:"event_id"`
	models.EventSource
}

type tagLinkRow struct {
	EventID string `db:"event_id"`
	models.Tag
}

// attachRelations batch loads the people, sources and tags of the given
// events with one query per relation.
func (r *Repository) attachRelations(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	ids := make([]any, len(events))
	index := make(map[string]*models.Event, len(events))
	for i := range events {
		ids[i] = events[i].ID
		index[events[i].ID] = &events[i]
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("ep.event_id", "p.id", "p.name_ar", "ep.role")
	sb.From("event_people ep")
	sb.Join("people p", "p.id = ep.person_id")
	sb.Where(sb.In("ep.event_id", ids...))
	sb.OrderBy("p.name_ar ASC")

	query, args := sb.Build()
	var people []personLinkRow
	if err := r.db.SelectContext(ctx, &people, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load event people")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to load event relations")
	}
	for _, row := range people {
		if ev, ok := index[row.EventID]; ok {
			ev.People = append(ev.People, row.EventPerson)
		}
	}

	sb = sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("es.event_id", "es.page_range",
		"s.id", "s.title", "s.author", "s.year", "s.publisher", "s.type",
		"s.url", "s.isbn", "s.notes", "s.created_at", "s.updated_at")
	sb.From("event_sources es")
	sb.Join("sources s", "s.id = es.source_id")
	sb.Where(sb.In("es.event_id", ids...))
	sb.OrderBy("s.title ASC")

	query, args = sb.Build()
	var sources []sourceLinkRow
	if err := r.db.SelectContext(ctx, &sources, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load event sources")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to load event relations")
	}
	for _, row := range sources {
		if ev, ok := index[row.EventID]; ok {
			ev.Sources = append(ev.Sources, row.EventSource)
		}
	}

	sb = sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("et.event_id", "t.id", "t.name_ar", "t.name_en")
	sb.From("event_tags et")
	sb.Join("tags t", "t.id = et.tag_id")
	sb.Where(sb.In("et.event_id", ids...))
	sb.OrderBy("t.name_ar ASC")

	query, args = sb.Build()
	var tags []tagLinkRow
	if err := r.db.SelectContext(ctx, &tags, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load event tags")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to load event relations")
	}
	for _, row := range tags {
		if ev, ok := index[row.EventID]; ok {
			ev.Tags = append(ev.Tags, row.Tag)
		}
	}

	return nil
}
