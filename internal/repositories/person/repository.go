package person

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/ouarsenis/thawra-api/pkg/database"
	"github.com/ouarsenis/thawra-api/pkg/models"
	"github.com/ouarsenis/thawra-api/pkg/tracing"
)

const tableName = "people"

var personColumns = []string{
	"id", "name_ar", "name_en", "birth_year", "death_year", "bio", "role",
	"external_ref", "created_at", "updated_at",
}

// Repository handles person persistence.
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

// List returns all people ordered by Arabic name.
func (r *Repository) List(ctx context.Context) ([]models.Person, error) {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(personColumns...)
	sb.From(tableName)
	sb.OrderBy("name_ar ASC")

	query, args := sb.Build()
	var people []models.Person
	if err := r.db.SelectContext(ctx, &people, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list people")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list people")
	}

	return people, nil
}

// GetByID returns the person, or nil when no row exists.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Person, error) {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(personColumns...)
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var person models.Person
	if err := r.db.GetContext(ctx, &person, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get person")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get person")
	}

	return &person, nil
}

// Create inserts a new person.
func (r *Repository) Create(ctx context.Context, person *models.Person) error {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.Create")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(personColumns...)
	sb.Values(person.ID, person.NameAr, person.NameEn, person.BirthYear, person.DeathYear,
		person.Bio, person.Role, person.ExternalRef, person.CreatedAt, person.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create person")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create person")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": person.ID, "name_ar": person.NameAr}).Info("Created person")
	return nil
}

// Update rewrites the person row. external_ref is immutable once assigned.
func (r *Repository) Update(ctx context.Context, person *models.Person) error {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.Update")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("name_ar", person.NameAr),
		sb.Assign("name_en", person.NameEn),
		sb.Assign("birth_year", person.BirthYear),
		sb.Assign("death_year", person.DeathYear),
		sb.Assign("bio", person.Bio),
		sb.Assign("role", person.Role),
		sb.Assign("updated_at", person.UpdatedAt),
	)
	sb.Where(sb.Equal("id", person.ID))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update person")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update person")
	}

	return nil
}

// Delete removes the person. Event links cascade at the database level.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete person")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete person")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("person %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deleted person")
	return nil
}

// Import upserts a batch of people in one transaction. Entries carrying an
// external_ref land on the unique index: an existing person with the same
// ref is updated in place instead of duplicated. Entries without a ref are
// plain inserts.
func (r *Repository) Import(ctx context.Context, people []models.CreatePersonRequest) (*models.ImportPeopleResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.Import")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method": "Import",
		"count":  len(people),
	})

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	result := &models.ImportPeopleResponse{}
	now := time.Now().UTC()

	for _, req := range people {
		person := models.Person{
			ID:        uuid.New().String(),
			NameAr:    req.NameAr,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if req.NameEn != "" {
			person.NameEn = &req.NameEn
		}
		person.BirthYear = req.BirthYear
		person.DeathYear = req.DeathYear
		if req.Bio != "" {
			person.Bio = &req.Bio
		}
		if req.Role != "" {
			person.Role = &req.Role
		}
		if req.ExternalRef != "" {
			person.ExternalRef = &req.ExternalRef
		}

		ib := database.NewInsertBuilder()
		ib.InsertInto(tableName)
		ib.Cols(personColumns...)
		ib.Values(person.ID, person.NameAr, person.NameEn, person.BirthYear, person.DeathYear,
			person.Bio, person.Role, person.ExternalRef, person.CreatedAt, person.UpdatedAt)

		if person.ExternalRef != nil {
			ub := ib.OnConflict("external_ref")
			ub.Set(
				ub.Assign("name_ar", database.Excluded("name_ar")),
				ub.Assign("name_en", database.Excluded("name_en")),
				ub.Assign("birth_year", database.Excluded("birth_year")),
				ub.Assign("death_year", database.Excluded("death_year")),
				ub.Assign("bio", database.Excluded("bio")),
				ub.Assign("role", database.Excluded("role")),
				ub.Assign("updated_at", now),
			)
		}
		// xmax = 0 only on freshly inserted rows, so this tells an insert
		// apart from a conflict update.
		ib.SQL("RETURNING (xmax = 0) AS inserted")

		query, args := ib.Build()
		var inserted bool
		if err := tx.GetContext(txCtx, &inserted, query, args...); err != nil {
			log.WithError(err).WithFields(map[string]any{"name_ar": req.NameAr}).Error("Failed to upsert person")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to import people")
		}

		if inserted {
			result.Imported++
		} else {
			result.Updated++
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to import people")
	}

	log.WithFields(map[string]any{"imported": result.Imported, "updated": result.Updated}).Info("Imported people")
	return result, nil
}
