package user

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ouarsenis/thawra-api/pkg/models"
	"github.com/ouarsenis/thawra-api/pkg/tracing"
)

type UserRepository interface {
	List(ctx context.Context) ([]models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateRole(ctx context.Context, id string, role models.UserRole) error
	Deactivate(ctx context.Context, id string) error
}

// Service owns account administration. Only admins reach these paths; the
// route policy enforces that before the service runs.
type Service struct {
	users  UserRepository
	logger ectologger.Logger
}

func NewService(users UserRepository, logger ectologger.Logger) *Service {
	return &Service{
		users:  users,
		logger: logger,
	}
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Service.List")
	defer span.End()

	return s.users.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Service.Get")
	defer span.End()

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("user %s not found", id))
	}

	return user, nil
}

// Create registers an account. New accounts default to VIEWER unless the
// admin asks for more.
func (s *Service) Create(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Service.Create")
	defer span.End()

	existing, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("email %s is already registered", req.Email))
	}

	role := req.Role
	if role == "" {
		role = models.RoleViewer
	}
	if !role.Valid() {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid role %q", role))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to hash password")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create user")
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{"id": user.ID, "role": string(role)}).Info("Created user")
	return user, nil
}

// UpdateRole moves a user up or down the hierarchy. The change applies on
// the user's next request.
func (s *Service) UpdateRole(ctx context.Context, id string, role models.UserRole) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Service.UpdateRole")
	defer span.End()

	if !role.Valid() {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid role %q", role))
	}

	if err := s.users.UpdateRole(ctx, id, role); err != nil {
		return nil, err
	}

	return s.users.GetByID(ctx, id)
}

// Deactivate disables an account without erasing its audit history.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "user.Service.Deactivate")
	defer span.End()

	return s.users.Deactivate(ctx, id)
}
