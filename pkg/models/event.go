package models

import (
	"time"

	"github.com/ouarsenis/thawra-api/pkg/database"
)

// EventType classifies a historical event.
type EventType string

const (
	EventTypeRevolution EventType = "REVOLUTION"
	EventTypeUprising   EventType = "UPRISING"
	EventTypeBattle     EventType = "BATTLE"
	EventTypeSiege      EventType = "SIEGE"
	EventTypeResistance EventType = "RESISTANCE"
	EventTypeRaid       EventType = "RAID"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTypeRevolution, EventTypeUprising, EventTypeBattle,
		EventTypeSiege, EventTypeResistance, EventTypeRaid:
		return true
	}
	return false
}

// ReviewStatus is the editorial trust label on an event. It is independent
// from authorization roles.
type ReviewStatus string

const (
	ReviewStatusDraft       ReviewStatus = "DRAFT"
	ReviewStatusUnverified  ReviewStatus = "UNVERIFIED"
	ReviewStatusNeedsReview ReviewStatus = "NEEDS_REVIEW"
	ReviewStatusConfirmed   ReviewStatus = "CONFIRMED"
)

func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewStatusDraft, ReviewStatusUnverified, ReviewStatusNeedsReview, ReviewStatusConfirmed:
		return true
	}
	return false
}

// Documented period covered by the dataset. Event start dates must fall
// inside this bound.
var (
	EarliestEventDate = time.Date(1830, time.January, 1, 0, 0, 0, 0, time.UTC)
	LatestEventDate   = time.Date(1954, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// Coordinates is the optional lat/lng point of an event, stored as jsonb.
type Coordinates struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// Parties is the optional structured actor breakdown of an event.
type Parties struct {
	Resistance []string `json:"resistance,omitempty"`
	Colonial   []string `json:"colonial,omitempty"`
	Other      []string `json:"other,omitempty"`
}

// Event is a historical occurrence tied to a region.
type Event struct {
	ID                  string                       `json:"id" db:"id"`
	Title               string                       `json:"title" db:"title"`
	Type                EventType                    `json:"type" db:"type"`
	RegionID            string                       `json:"regionId" db:"region_id"`
	StartDate           time.Time                    `json:"startDate" db:"start_date"`
	EndDate             *time.Time                   `json:"endDate,omitempty" db:"end_date"`
	Description         string                       `json:"description" db:"description"`
	DetailedDescription *string                      `json:"detailedDescription,omitempty" db:"detailed_description"`
	Coordinates         database.JSONB[*Coordinates] `json:"coordinates" db:"coordinates"`
	Outcome             *string                      `json:"outcome,omitempty" db:"outcome"`
	CasualtiesText      *string                      `json:"casualtiesText,omitempty" db:"casualties_text"`
	CasualtiesEstimated *int                         `json:"casualtiesEstimated,omitempty" db:"casualties_estimated"`
	Parties             database.JSONB[*Parties]     `json:"parties" db:"parties"`
	ReviewStatus        ReviewStatus                 `json:"reviewStatus" db:"review_status"`
	CreatedByID         *string                      `json:"createdById,omitempty" db:"created_by_id"`
	UpdatedByID         *string                      `json:"updatedById,omitempty" db:"updated_by_id"`
	CreatedAt           time.Time                    `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time                    `json:"updatedAt" db:"updated_at"`

	// Relation expansions, loaded separately from the scalar row.
	Region    *RegionRef    `json:"region,omitempty" db:"-"`
	People    []EventPerson `json:"people,omitempty" db:"-"`
	Sources   []EventSource `json:"sources,omitempty" db:"-"`
	Tags      []Tag         `json:"tags,omitempty" db:"-"`
	CreatedBy *UserRef      `json:"createdBy,omitempty" db:"-"`
	UpdatedBy *UserRef      `json:"updatedBy,omitempty" db:"-"`
}

// EventPerson is a person linked to an event, with the role annotation from
// the join row.
type EventPerson struct {
	ID     string `json:"id" db:"id"`
	NameAr string `json:"nameAr" db:"name_ar"`
	Role   string `json:"role" db:"role"`
}

// EventSource is a source cited by an event, with the pageRange annotation
// from the join row.
type EventSource struct {
	Source
	PageRange *string `json:"pageRange,omitempty" db:"page_range"`
}

// PersonAssignment links a person to an event with a role annotation.
type PersonAssignment struct {
	PersonID string `json:"personId" validate:"required,uuid4"`
	Role     string `json:"role" validate:"required,min=1,max=255"`
}

// CreateEventRequest is the request body for creating an event. Relation
// fields (sourceIds, personIds, tagIds) are stripped before the scalar row
// is written and persisted as join rows in the same transaction.
type CreateEventRequest struct {
	Title               string             `json:"title" validate:"required,min=5,max=500"`
	Type                EventType          `json:"type" validate:"required"`
	RegionID            string             `json:"regionId" validate:"required"`
	StartDate           string             `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate             string             `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Description         string             `json:"description" validate:"required,min=20,max=1000"`
	DetailedDescription string             `json:"detailedDescription,omitempty" validate:"omitempty,max=10000"`
	Coordinates         *Coordinates       `json:"coordinates,omitempty"`
	Outcome             string             `json:"outcome,omitempty" validate:"omitempty,max=2000"`
	CasualtiesText      string             `json:"casualtiesText,omitempty" validate:"omitempty,max=500"`
	CasualtiesEstimated *int               `json:"casualtiesEstimated,omitempty" validate:"omitempty,min=0"`
	Parties             *Parties           `json:"parties,omitempty"`
	ReviewStatus        ReviewStatus       `json:"reviewStatus,omitempty"` // ignored: creation always persists DRAFT
	SourceIDs           []string           `json:"sourceIds,omitempty" validate:"omitempty,dive,uuid4"`
	People              []PersonAssignment `json:"personIds,omitempty" validate:"omitempty,dive"`
	TagIDs              []string           `json:"tagIds,omitempty" validate:"omitempty,dive,uuid4"`
}

// UpdateEventRequest is the partial-update body. Nil fields are left
// untouched; non-nil relation slices replace the existing set.
type UpdateEventRequest struct {
	Title               *string             `json:"title,omitempty" validate:"omitempty,min=5,max=500"`
	Type                *EventType          `json:"type,omitempty"`
	RegionID            *string             `json:"regionId,omitempty"`
	StartDate           *string             `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate             *string             `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Description         *string             `json:"description,omitempty" validate:"omitempty,min=20,max=1000"`
	DetailedDescription *string             `json:"detailedDescription,omitempty" validate:"omitempty,max=10000"`
	Coordinates         *Coordinates        `json:"coordinates,omitempty"`
	Outcome             *string             `json:"outcome,omitempty" validate:"omitempty,max=2000"`
	CasualtiesText      *string             `json:"casualtiesText,omitempty" validate:"omitempty,max=500"`
	CasualtiesEstimated *int                `json:"casualtiesEstimated,omitempty" validate:"omitempty,min=0"`
	Parties             *Parties            `json:"parties,omitempty"`
	SourceIDs           *[]string           `json:"sourceIds,omitempty"`
	People              *[]PersonAssignment `json:"personIds,omitempty" validate:"omitempty,dive"`
	TagIDs              *[]string           `json:"tagIds,omitempty"`
}

// UpdateStatusRequest is the body of the status-only endpoint.
type UpdateStatusRequest struct {
	Status ReviewStatus `json:"status" validate:"required"`
}

// EventListQuery is the declarative filter/pagination request for the event
// listing pipeline. Filters combine conjunctively; Search alone is a
// disjunction across fields and relations.
type EventListQuery struct {
	Page         int          `query:"page" validate:"omitempty,min=1"`
	Limit        int          `query:"limit" validate:"omitempty,min=1,max=1000"`
	SortBy       string       `query:"sortBy"`
	SortOrder    string       `query:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Search       string       `query:"search" validate:"omitempty,max=200"`
	RegionCode   string       `query:"regionId"` // matches Region.code, not the opaque id
	Types        []EventType  `query:"type"`
	StartYear    int          `query:"startYear" validate:"omitempty,min=1830,max=1954"`
	EndYear      int          `query:"endYear" validate:"omitempty,min=1830,max=1954"`
	ReviewStatus ReviewStatus `query:"reviewStatus" validate:"omitempty,oneof=DRAFT UNVERIFIED NEEDS_REVIEW CONFIRMED"`
}

// Normalize applies the documented defaults in place.
func (q *EventListQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 20
	}
	if q.Limit > 1000 {
		q.Limit = 1000
	}
	if q.SortBy == "" {
		q.SortBy = "startDate"
	}
	if q.SortOrder == "" {
		q.SortOrder = "asc"
	}
}

// EventListResponse is a page of events with the totals computed from the
// same predicate as the page itself.
type EventListResponse struct {
	Data       []Event `json:"data"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"totalPages"`
}

// TotalPages returns ceil(total/limit). A zero limit yields zero pages.
func TotalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// TypeCount is a per-type aggregate row.
type TypeCount struct {
	Type  EventType `json:"type" db:"type"`
	Count int       `json:"count" db:"count"`
}

// StatusCount is a per-review-status aggregate row.
type StatusCount struct {
	Status ReviewStatus `json:"status" db:"review_status"`
	Count  int          `json:"count" db:"count"`
}

// EventStatistics is the response of the statistics endpoint.
type EventStatistics struct {
	Total             int           `json:"total"`
	ByType            []TypeCount   `json:"byType"`
	ByStatus          []StatusCount `json:"byStatus"`
	RegionsWithEvents int           `json:"regionsWithEvents"`
}

// Tag is a free-form label attached to events.
type Tag struct {
	ID     string `json:"id" db:"id"`
	NameAr string `json:"nameAr" db:"name_ar"`
	NameEn string `json:"nameEn,omitempty" db:"name_en"`
}
