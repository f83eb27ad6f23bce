package models

import "time"

// SourceType classifies a citation.
type SourceType string

const (
	SourceTypeBook         SourceType = "BOOK"
	SourceTypeArticle      SourceType = "ARTICLE"
	SourceTypeArchive      SourceType = "ARCHIVE"
	SourceTypeEncyclopedia SourceType = "ENCYCLOPEDIA"
	SourceTypeThesis       SourceType = "THESIS"
	SourceTypeWebsite      SourceType = "WEBSITE"
	SourceTypeDocument     SourceType = "DOCUMENT"
)

func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeBook, SourceTypeArticle, SourceTypeArchive,
		SourceTypeEncyclopedia, SourceTypeThesis, SourceTypeWebsite, SourceTypeDocument:
		return true
	}
	return false
}

// Source is a citation that events reference through event_sources.
type Source struct {
	ID        string     `json:"id" db:"id"`
	Title     string     `json:"title" db:"title"`
	Author    *string    `json:"author,omitempty" db:"author"`
	Year      *int       `json:"year,omitempty" db:"year"`
	Publisher *string    `json:"publisher,omitempty" db:"publisher"`
	Type      SourceType `json:"type" db:"type"`
	URL       *string    `json:"url,omitempty" db:"url"`
	ISBN      *string    `json:"isbn,omitempty" db:"isbn"`
	Notes     *string    `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`

	// EventCount is the number of events citing this source.
	EventCount int `json:"eventCount" db:"event_count"`
}

// CreateSourceRequest is the body for creating a source.
type CreateSourceRequest struct {
	Title     string     `json:"title" validate:"required,min=1,max=500"`
	Author    string     `json:"author,omitempty" validate:"omitempty,max=255"`
	Year      *int       `json:"year,omitempty"`
	Publisher string     `json:"publisher,omitempty" validate:"omitempty,max=255"`
	Type      SourceType `json:"type" validate:"required"`
	URL       string     `json:"url,omitempty" validate:"omitempty,url"`
	ISBN      string     `json:"isbn,omitempty" validate:"omitempty,max=32"`
	Notes     string     `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// UpdateSourceRequest is the partial-update body for a source.
type UpdateSourceRequest struct {
	Title     *string     `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Author    *string     `json:"author,omitempty" validate:"omitempty,max=255"`
	Year      *int        `json:"year,omitempty"`
	Publisher *string     `json:"publisher,omitempty" validate:"omitempty,max=255"`
	Type      *SourceType `json:"type,omitempty"`
	URL       *string     `json:"url,omitempty" validate:"omitempty,url"`
	ISBN      *string     `json:"isbn,omitempty" validate:"omitempty,max=32"`
	Notes     *string     `json:"notes,omitempty" validate:"omitempty,max=2000"`
}
