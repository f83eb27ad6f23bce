package source

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

type SourceRepository interface {
	List(ctx context.Context) ([]models.Source, error)
	GetByID(ctx context.Context, id string) (*models.Source, error)
	CitingEvents(ctx context.Context, sourceID string) ([]models.Event, error)
	Search(ctx context.Context, term string) ([]models.Source, error)
	Create(ctx context.Context, source *models.Source) error
	Update(ctx context.Context, source *models.Source) error
	CitationCount(ctx context.Context, sourceID string) (int, error)
	Delete(ctx context.Context, id string) error
}

// SourceDetail is a source with the events citing it.
type SourceDetail struct {
	models.Source
	Events []models.Event `json:"events"`
}

// Service owns source business rules, most importantly the citation check
// that keeps a cited source from being deleted.
type Service struct {
	sources SourceRepository
	logger  ectologger.Logger
}

func NewService(sources SourceRepository, logger ectologger.Logger) *Service {
	return &Service{
		sources: sources,
		logger:  logger,
	}
}

// List returns all sources with citation counts.
func (s *Service) List(ctx context.Context) ([]models.Source, error) {
	ctx, span := tracing.StartSpan(ctx, "source.Service.List")
	defer span.End()

	return s.sources.List(ctx)
}

// Get returns one source with the events citing it.
func (s *Service) Get(ctx context.Context, id string) (*SourceDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "source.Service.Get")
	defer span.End()

	source, err := s.sources.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("source %s not found", id))
	}

	events, err := s.sources.CitingEvents(ctx, id)
	if err != nil {
		return nil, err
	}

	return &SourceDetail{Source: *source, Events: events}, nil
}

// Search matches sources by title or author for the citation picker.
func (s *Service) Search(ctx context.Context, term string) ([]models.Source, error) {
	ctx, span := tracing.StartSpan(ctx, "source.Service.Search")
	defer span.End()

	if term == "" {
		return []models.Source{}, nil
	}

	return s.sources.Search(ctx, term)
}

// Create persists a new source.
func (s *Service) Create(ctx context.Context, req models.CreateSourceRequest) (*models.Source, error) {
	ctx, span := tracing.StartSpan(ctx, "source.Service.Create")
	defer span.End()

	if !req.Type.Valid() {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid source type %q", req.Type))
	}

	now := time.Now().UTC()
	source := &models.Source{
		ID:        uuid.New().String(),
		Title:     req.Title,
		Year:      req.Year,
		Type:      req.Type,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Author != "" {
		source.Author = &req.Author
	}
	if req.Publisher != "" {
		source.Publisher = &req.Publisher
	}
	if req.URL != "" {
		source.URL = &req.URL
	}
	if req.ISBN != "" {
		source.ISBN = &req.ISBN
	}
	if req.Notes != "" {
		source.Notes = &req.Notes
	}

	if err := s.sources.Create(ctx, source); err != nil {
		return nil, err
	}

	return source, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id string, req models.UpdateSourceRequest) (*models.Source, error) {
	ctx, span := tracing.StartSpan(ctx, "source.Service.Update")
	defer span.End()

	existing, err := s.sources.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("source %s not found", id))
	}

	if req.Title != nil {
		existing.Title = *req.Title
	}
	if req.Author != nil {
		existing.Author = req.Author
	}
	if req.Year != nil {
		existing.Year = req.Year
	}
	if req.Publisher != nil {
		existing.Publisher = req.Publisher
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid source type %q", *req.Type))
		}
		existing.Type = *req.Type
	}
	if req.URL != nil {
		existing.URL = req.URL
	}
	if req.ISBN != nil {
		existing.ISBN = req.ISBN
	}
	if req.Notes != nil {
		existing.Notes = req.Notes
	}
	existing.UpdatedAt = time.Now().UTC()

	if err := s.sources.Update(ctx, existing); err != nil {
		return nil, err
	}

	return existing, nil
}

// Delete removes a source that no event cites. A cited source cannot be
// deleted; the citations must be removed from the events first.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "source.Service.Delete")
	defer span.End()

	existing, err := s.sources.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("source %s not found", id))
	}

	count, err := s.sources.CitationCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return httperror.NewHTTPError(http.StatusConflict,
			fmt.Sprintf("source is cited by %d event(s) and cannot be deleted", count))
	}

	return s.sources.Delete(ctx, id)
}
