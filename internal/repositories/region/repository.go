package region

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/ouarsenis/thawra-api/pkg/database"
	"github.com/ouarsenis/thawra-api/pkg/models"
	"github.com/ouarsenis/thawra-api/pkg/tracing"
)

const tableName = "regions"

var regionColumns = []string{
	"r.id", "r.name_ar", "r.name_en", "r.code", "r.geometry",
	"r.center_lat", "r.center_lng", "r.created_at", "r.updated_at",
}

// Repository handles region persistence. Regions are reference data: reads
// only, seeded through migrations.
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

// List returns every region with its live event count. The count comes from
// the events join at read time, never from a stored column.
func (r *Repository) List(ctx context.Context) ([]models.Region, error) {
	ctx, span := tracing.StartSpan(ctx, "region.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(append(append([]string{}, regionColumns...),
		"COUNT(e.id) AS event_count")...)
	sb.From(tableName + " r")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "events e", "e.region_id = r.id")
	sb.GroupBy("r.id")
	sb.OrderBy("r.name_ar ASC")

	query, args := sb.Build()
	var regions []models.Region
	if err := r.db.SelectContext(ctx, &regions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list regions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list regions")
	}

	return regions, nil
}

// GetByID returns the region with its live event count, or nil when no row
// exists.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Region, error) {
	ctx, span := tracing.StartSpan(ctx, "region.Repository.GetByID")
	defer span.End()

	return r.getOne(ctx, "r.id", id)
}

// GetByCode resolves a region by its human-assigned code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*models.Region, error) {
	ctx, span := tracing.StartSpan(ctx, "region.Repository.GetByCode")
	defer span.End()

	return r.getOne(ctx, "r.code", code)
}

func (r *Repository) getOne(ctx context.Context, column, value string) (*models.Region, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(append(append([]string{}, regionColumns...),
		"COUNT(e.id) AS event_count")...)
	sb.From(tableName + " r")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "events e", "e.region_id = r.id")
	sb.Where(sb.Equal(column, value))
	sb.GroupBy("r.id")

	query, args := sb.Build()
	var region models.Region
	if err := r.db.GetContext(ctx, &region, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get region")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get region")
	}

	return &region, nil
}

// ListGeometries returns the regions that carry a geometry, with event
// counts, for the GeoJSON export.
func (r *Repository) ListGeometries(ctx context.Context) ([]models.Region, error) {
	ctx, span := tracing.StartSpan(ctx, "region.Repository.ListGeometries")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(append(append([]string{}, regionColumns...),
		"COUNT(e.id) AS event_count")...)
	sb.From(tableName + " r")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "events e", "e.region_id = r.id")
	sb.Where(sb.IsNotNull("r.geometry"))
	sb.GroupBy("r.id")
	sb.OrderBy("r.name_ar ASC")

	query, args := sb.Build()
	var regions []models.Region
	if err := r.db.SelectContext(ctx, &regions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list region geometries")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list region geometries")
	}

	return regions, nil
}
