package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/ouarsenis/thawra-api/pkg/database"
	"github.com/ouarsenis/thawra-api/pkg/models"
	"github.com/ouarsenis/thawra-api/pkg/tracing"
)

const tableName = "users"

var userColumns = []string{
	"id", "email", "password_hash", "name", "role", "active",
	"last_login", "created_at", "updated_at",
}

// Repository handles user persistence.
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

// List returns all users, newest first.
func (r *Repository) List(ctx context.Context) ([]models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(userColumns...)
	sb.From(tableName)
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list users")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list users")
	}

	return users, nil
}

// GetByID returns the user, or nil when no row exists.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.GetByID")
	defer span.End()

	return r.getOne(ctx, "id", id)
}

// GetByEmail returns the user with the given email, or nil when no row
// exists. The login path depends on nil here meaning unknown credential, not
// an error.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.GetByEmail")
	defer span.End()

	return r.getOne(ctx, "email", email)
}

func (r *Repository) getOne(ctx context.Context, column, value string) (*models.User, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(userColumns...)
	sb.From(tableName)
	sb.Where(sb.Equal(column, value))

	query, args := sb.Build()
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get user")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get user")
	}

	return &user, nil
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, user *models.User) error {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.Create")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(userColumns...)
	sb.Values(user.ID, user.Email, user.PasswordHash, user.Name, user.Role, user.Active,
		user.LastLogin, user.CreatedAt, user.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create user")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create user")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": user.ID, "role": string(user.Role)}).Info("Created user")
	return nil
}

// UpdateRole changes a user's role. The new role applies on the user's next
// request because authentication reads the row, not the token.
func (r *Repository) UpdateRole(ctx context.Context, id string, role models.UserRole) error {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.UpdateRole")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("role", role),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update user role")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update user role")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("user %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id, "role": string(role)}).Info("Updated user role")
	return nil
}

// Deactivate disables a user without deleting the row, so audit history
// keeps its author.
func (r *Repository) Deactivate(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.Deactivate")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("active", false),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to deactivate user")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to deactivate user")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("user %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deactivated user")
	return nil
}

// StampLastLogin records a successful login.
func (r *Repository) StampLastLogin(ctx context.Context, id string, at time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.StampLastLogin")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(sb.Assign("last_login", at))
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to stamp last login")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to stamp last login")
	}

	return nil
}
