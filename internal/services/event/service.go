package event

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	eventrepo "github.com/ouarsenis/thawra-api/internal/repositories/event"
	"github.com/ouarsenis/thawra-api/pkg/models"
	"github.com/ouarsenis/thawra-api/pkg/tracing"
)

const dateLayout = "2006-01-02"

type EventRepository interface {
	List(ctx context.Context, q models.EventListQuery) ([]models.Event, int, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
	ListByRegionCode(ctx context.Context, code string) ([]models.Event, error)
	Statistics(ctx context.Context) (*models.EventStatistics, error)
	Create(ctx context.Context, event *models.Event, links eventrepo.Links) error
	Update(ctx context.Context, event *models.Event, links eventrepo.Links) error
	UpdateStatus(ctx context.Context, id string, status models.ReviewStatus, updatedBy *string) error
	Delete(ctx context.Context, id string) error
}

type RegionRepository interface {
	GetByID(ctx context.Context, id string) (*models.Region, error)
	GetByCode(ctx context.Context, code string) (*models.Region, error)
}

// Service owns event business rules: date bounds, region existence, the
// forced DRAFT status on creation and the relation handling around writes.
type Service struct {
	events  EventRepository
	regions RegionRepository
	logger  ectologger.Logger
}

func NewService(events EventRepository, regions RegionRepository, logger ectologger.Logger) *Service {
	return &Service{
		events:  events,
		regions: regions,
		logger:  logger,
	}
}

// List returns one page of events with totals from the same predicate.
func (s *Service) List(ctx context.Context, q models.EventListQuery) (*models.EventListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Service.List")
	defer span.End()

	q.Normalize()

	events, total, err := s.events.List(ctx, q)
	if err != nil {
		return nil, err
	}

	return &models.EventListResponse{
		Data:       events,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: models.TotalPages(total, q.Limit),
	}, nil
}

// Get returns one fully expanded event.
func (s *Service) Get(ctx context.Context, id string) (*models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Service.Get")
	defer span.End()

	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("event %s not found", id))
	}

	return event, nil
}

// GetByRegionCode returns the region addressed by its code with all of its
// events attached in chronological order.
func (s *Service) GetByRegionCode(ctx context.Context, code string) (*models.Region, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Service.GetByRegionCode")
	defer span.End()

	region, err := s.regions.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if region == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("region %s not found", code))
	}

	events, err := s.events.ListByRegionCode(ctx, code)
	if err != nil {
		return nil, err
	}

	region.Events = events
	return region, nil
}

// Statistics aggregates the whole dataset.
func (s *Service) Statistics(ctx context.Context) (*models.EventStatistics, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Service.Statistics")
	defer span.End()

	return s.events.Statistics(ctx)
}

// Create validates and persists a new event with its relations in one
// transaction. Whatever review status the caller sent, the stored event is
// DRAFT.
func (s *Service) Create(ctx context.Context, req models.CreateEventRequest, userID string) (*models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Service.Create")
	defer span.End()

	if !req.Type.Valid() {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid event type %q", req.Type))
	}

	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "startDate must be formatted YYYY-MM-DD")
	}
	var endDate *time.Time
	if req.EndDate != "" {
		parsed, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "endDate must be formatted YYYY-MM-DD")
		}
		endDate = &parsed
	}
	if err := validateDates(startDate, endDate); err != nil {
		return nil, err
	}

	region, err := s.regions.GetByID(ctx, req.RegionID)
	if err != nil {
		return nil, err
	}
	if region == nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("region %s does not exist", req.RegionID))
	}

	now := time.Now().UTC()
	event := &models.Event{
		ID:                  uuid.New().String(),
		Title:               req.Title,
		Type:                req.Type,
		RegionID:            req.RegionID,
		StartDate:           startDate,
		EndDate:             endDate,
		Description:         req.Description,
		CasualtiesEstimated: req.CasualtiesEstimated,
		ReviewStatus:        models.ReviewStatusDraft,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if req.DetailedDescription != "" {
		event.DetailedDescription = &req.DetailedDescription
	}
	if req.Outcome != "" {
		event.Outcome = &req.Outcome
	}
	if req.CasualtiesText != "" {
		event.CasualtiesText = &req.CasualtiesText
	}
	event.Coordinates.Data = req.Coordinates
	event.Parties.Data = req.Parties
	if userID != "" {
		event.CreatedByID = &userID
		event.UpdatedByID = &userID
	}

	links := eventrepo.Links{
		SourceIDs: req.SourceIDs,
		People:    req.People,
		TagIDs:    req.TagIDs,
	}

	if err := s.events.Create(ctx, event, links); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"id":    event.ID,
		"title": event.Title,
		"type":  string(event.Type),
	}).Info("Created event")

	return s.events.GetByID(ctx, event.ID)
}

// Update applies a partial update. Nil request fields keep their current
// values; non-nil relation slices replace the relation outright.
func (s *Service) Update(ctx context.Context, id string, req models.UpdateEventRequest, userID string) (*models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Service.Update")
	defer span.End()

	existing, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("event %s not found", id))
	}

	if req.Title != nil {
		existing.Title = *req.Title
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid event type %q", *req.Type))
		}
		existing.Type = *req.Type
	}
	if req.RegionID != nil {
		region, err := s.regions.GetByID(ctx, *req.RegionID)
		if err != nil {
			return nil, err
		}
		if region == nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("region %s does not exist", *req.RegionID))
		}
		existing.RegionID = *req.RegionID
	}
	if req.StartDate != nil {
		parsed, err := time.Parse(dateLayout, *req.StartDate)
		if err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "startDate must be formatted YYYY-MM-DD")
		}
		existing.StartDate = parsed
	}
	if req.EndDate != nil {
		parsed, err := time.Parse(dateLayout, *req.EndDate)
		if err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "endDate must be formatted YYYY-MM-DD")
		}
		existing.EndDate = &parsed
	}
	if err := validateDates(existing.StartDate, existing.EndDate); err != nil {
		return nil, err
	}
	if req.Description != nil {
		existing.Description = *req.Description
	}
	if req.DetailedDescription != nil {
		existing.DetailedDescription = req.DetailedDescription
	}
	if req.Coordinates != nil {
		existing.Coordinates.Data = req.Coordinates
	}
	if req.Outcome != nil {
		existing.Outcome = req.Outcome
	}
	if req.CasualtiesText != nil {
		existing.CasualtiesText = req.CasualtiesText
	}
	if req.CasualtiesEstimated != nil {
		existing.CasualtiesEstimated = req.CasualtiesEstimated
	}
	if req.Parties != nil {
		existing.Parties.Data = req.Parties
	}
	existing.UpdatedAt = time.Now().UTC()
	if userID != "" {
		existing.UpdatedByID = &userID
	}

	var links eventrepo.Links
	if req.SourceIDs != nil {
		links.SourceIDs = *req.SourceIDs
		if links.SourceIDs == nil {
			links.SourceIDs = []string{}
		}
	}
	if req.People != nil {
		links.People = *req.People
		if links.People == nil {
			links.People = []models.PersonAssignment{}
		}
	}
	if req.TagIDs != nil {
		links.TagIDs = *req.TagIDs
		if links.TagIDs == nil {
			links.TagIDs = []string{}
		}
	}

	if err := s.events.Update(ctx, existing, links); err != nil {
		return nil, err
	}

	return s.events.GetByID(ctx, id)
}

// UpdateStatus moves an event through the review workflow. Only the status
// and the author of the change are written.
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.ReviewStatus, userID string) (*models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Service.UpdateStatus")
	defer span.End()

	if !status.Valid() {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid review status %q", status))
	}

	var updatedBy *string
	if userID != "" {
		updatedBy = &userID
	}

	if err := s.events.UpdateStatus(ctx, id, status, updatedBy); err != nil {
		return nil, err
	}

	return s.events.GetByID(ctx, id)
}

// Delete removes an event and, through the schema, its join rows.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "event.Service.Delete")
	defer span.End()

	return s.events.Delete(ctx, id)
}

// validateDates enforces the documented period and date ordering.
func validateDates(start time.Time, end *time.Time) error {
	if start.Before(models.EarliestEventDate) || start.After(models.LatestEventDate) {
		return httperror.NewHTTPError(http.StatusBadRequest, "startDate must fall between 1830-01-01 and 1954-12-31")
	}
	if end != nil && end.Before(start) {
		return httperror.NewHTTPError(http.StatusBadRequest, "endDate cannot be before startDate")
	}
	return nil
}
