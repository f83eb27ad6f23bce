package person

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/ouarsenis/thawra-api/pkg/models"
	"github.com/ouarsenis/thawra-api/pkg/tracing"
)

type PersonRepository interface {
	List(ctx context.Context) ([]models.Person, error)
	GetByID(ctx context.Context, id string) (*models.Person, error)
	Create(ctx context.Context, person *models.Person) error
	Update(ctx context.Context, person *models.Person) error
	Delete(ctx context.Context, id string) error
	Import(ctx context.Context, people []models.CreatePersonRequest) (*models.ImportPeopleResponse, error)
}

// Service owns person business rules. The external_ref dedup lives in the
// repository's Import.
type Service struct {
	people PersonRepository
	logger ectologger.Logger
}

func NewService(people PersonRepository, logger ectologger.Logger) *Service {
	return &Service{
		people: people,
		logger: logger,
	}
}

func (s *Service) List(ctx context.Context) ([]models.Person, error) {
	ctx, span := tracing.StartSpan(ctx, "person.Service.List")
	defer span.End()

	return s.people.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Person, error) {
	ctx, span := tracing.StartSpan(ctx, "person.Service.Get")
	defer span.End()

	person, err := s.people.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if person == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("person %s not found", id))
	}

	return person, nil
}

func (s *Service) Create(ctx context.Context, req models.CreatePersonRequest) (*models.Person, error) {
	ctx, span := tracing.StartSpan(ctx, "person.Service.Create")
	defer span.End()

	if err := validateLifeSpan(req.BirthYear, req.DeathYear); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	person := &models.Person{
		ID:        uuid.New().String(),
		NameAr:    req.NameAr,
		BirthYear: req.BirthYear,
		DeathYear: req.DeathYear,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.NameEn != "" {
		person.NameEn = &req.NameEn
	}
	if req.Bio != "" {
		person.Bio = &req.Bio
	}
	if req.Role != "" {
		person.Role = &req.Role
	}
	if req.ExternalRef != "" {
		person.ExternalRef = &req.ExternalRef
	}

	if err := s.people.Create(ctx, person); err != nil {
		return nil, err
	}

	return person, nil
}

func (s *Service) Update(ctx context.Context, id string, req models.UpdatePersonRequest) (*models.Person, error) {
	ctx, span := tracing.StartSpan(ctx, "person.Service.Update")
	defer span.End()

	existing, err := s.people.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("person %s not found", id))
	}

	if req.NameAr != nil {
		existing.NameAr = *req.NameAr
	}
	if req.NameEn != nil {
		existing.NameEn = req.NameEn
	}
	if req.BirthYear != nil {
		existing.BirthYear = req.BirthYear
	}
	if req.DeathYear != nil {
		existing.DeathYear = req.DeathYear
	}
	if req.Bio != nil {
		existing.Bio = req.Bio
	}
	if req.Role != nil {
		existing.Role = req.Role
	}
	// Checked after the merge so a partial update cannot cross the years
	// it leaves untouched.
	if err := validateLifeSpan(existing.BirthYear, existing.DeathYear); err != nil {
		return nil, err
	}
	existing.UpdatedAt = time.Now().UTC()

	if err := s.people.Update(ctx, existing); err != nil {
		return nil, err
	}

	return existing, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "person.Service.Delete")
	defer span.End()

	return s.people.Delete(ctx, id)
}

// Import bulk upserts people, deduplicating on externalRef.
func (s *Service) Import(ctx context.Context, req models.ImportPeopleRequest) (*models.ImportPeopleResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "person.Service.Import")
	defer span.End()

	if len(req.People) == 0 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "people must not be empty")
	}

	for i, p := range req.People {
		if err := validateLifeSpan(p.BirthYear, p.DeathYear); err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("people[%d]: deathYear cannot be before birthYear", i))
		}
	}

	return s.people.Import(ctx, req.People)
}

func validateLifeSpan(birthYear, deathYear *int) error {
	if birthYear != nil && deathYear != nil && *deathYear < *birthYear {
		return httperror.NewHTTPError(http.StatusBadRequest, "deathYear cannot be before birthYear")
	}
	return nil
}
