package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/ouarsenis/thawra-api/pkg/database"
	"github.com/ouarsenis/thawra-api/pkg/models"
	"github.com/ouarsenis/thawra-api/pkg/tracing"
)

const tableName = "sources"

// searchLimit caps the typeahead search endpoint.
const searchLimit = 20

var sourceColumns = []string{
	"s.id", "s.title", "s.author", "s.year", "s.publisher", "s.type",
	"s.url", "s.isbn", "s.notes", "s.created_at", "s.updated_at",
}

// Repository handles source persistence.
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

// List returns all sources with the number of events citing each.
func (r *Repository) List(ctx context.Context) ([]models.Source, error) {
	ctx, span := tracing.StartSpan(ctx, "source.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(append(append([]string{}, sourceColumns...),
		"COUNT(es.event_id) AS event_count")...)
	sb.From(tableName + " s")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "event_sources es", "es.source_id = s.id")
	sb.GroupBy("s.id")
	sb.OrderBy("s.title ASC")

	query, args := sb.Build()
	var sources []models.Source
	if err := r.db.SelectContext(ctx, &sources, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list sources")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list sources")
	}

	return sources, nil
}

// GetByID returns the source, or nil when no row exists.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Source, error) {
	ctx, span := tracing.StartSpan(ctx, "source.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(append(append([]string{}, sourceColumns...),
		"COUNT(es.event_id) AS event_count")...)
	sb.From(tableName + " s")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "event_sources es", "es.source_id = s.id")
	sb.Where(sb.Equal("s.id", id))
	sb.GroupBy("s.id")

	query, args := sb.Build()
	var source models.Source
	if err := r.db.GetContext(ctx, &source, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get source")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get source")
	}

	return &source, nil
}

// CitingEvents returns the events citing a source, newest first.
func (r *Repository) CitingEvents(ctx context.Context, sourceID string) ([]models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "source.Repository.CitingEvents")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("e.id", "e.title", "e.type", "e.region_id", "e.start_date", "e.end_date",
		"e.description", "e.review_status", "e.created_at", "e.updated_at")
	sb.From("event_sources es")
	sb.Join("events e", "e.id = es.event_id")
	sb.Where(sb.Equal("es.source_id", sourceID))
	sb.OrderBy("e.start_date DESC")

	query, args := sb.Build()
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list citing events")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list citing events")
	}

	return events, nil
}

// Search matches titles and authors case-insensitively, capped to a short
// typeahead page.
func (r *Repository) Search(ctx context.Context, term string) ([]models.Source, error) {
	ctx, span := tracing.StartSpan(ctx, "source.Repository.Search")
	defer span.End()

	pattern := "%" + strings.ToLower(term) + "%"

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(sourceColumns...)
	sb.From(tableName + " s")
	sb.Where(sb.Or(
		sb.Like("LOWER(s.title)", pattern),
		sb.Like("LOWER(COALESCE(s.author, ''))", pattern),
	))
	sb.OrderBy("s.title ASC")
	sb.Limit(searchLimit)

	query, args := sb.Build()
	var sources []models.Source
	if err := r.db.SelectContext(ctx, &sources, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to search sources")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search sources")
	}

	return sources, nil
}

// Create inserts a new source.
func (r *Repository) Create(ctx context.Context, source *models.Source) error {
	ctx, span := tracing.StartSpan(ctx, "source.Repository.Create")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "title", "author", "year", "publisher", "type", "url", "isbn", "notes", "created_at", "updated_at")
	sb.Values(source.ID, source.Title, source.Author, source.Year, source.Publisher,
		source.Type, source.URL, source.ISBN, source.Notes, source.CreatedAt, source.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create source")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create source")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": source.ID, "title": source.Title}).Info("Created source")
	return nil
}

// Update rewrites the source row.
func (r *Repository) Update(ctx context.Context, source *models.Source) error {
	ctx, span := tracing.StartSpan(ctx, "source.Repository.Update")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("title", source.Title),
		sb.Assign("author", source.Author),
		sb.Assign("year", source.Year),
		sb.Assign("publisher", source.Publisher),
		sb.Assign("type", source.Type),
		sb.Assign("url", source.URL),
		sb.Assign("isbn", source.ISBN),
		sb.Assign("notes", source.Notes),
		sb.Assign("updated_at", source.UpdatedAt),
	)
	sb.Where(sb.Equal("id", source.ID))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update source")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update source")
	}

	return nil
}

// CitationCount returns how many events cite the source.
func (r *Repository) CitationCount(ctx context.Context, sourceID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "source.Repository.CitationCount")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("event_sources")
	sb.Where(sb.Equal("source_id", sourceID))

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count citations")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count citations")
	}

	return count, nil
}

// Delete removes the source. Callers must have checked for citations first;
// the RESTRICT constraint on event_sources is the backstop.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "source.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete source")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete source")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("source %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deleted source")
	return nil
}
