package models

import "time"

// Person is a historical figure linkable to events through event_people.
// ExternalRef is the stable identifier used to deduplicate bulk imports.
type Person struct {
	ID          string    `json:"id" db:"id"`
	NameAr      string    `json:"nameAr" db:"name_ar"`
	NameEn      *string   `json:"nameEn,omitempty" db:"name_en"`
	BirthYear   *int      `json:"birthYear,omitempty" db:"birth_year"`
	DeathYear   *int      `json:"deathYear,omitempty" db:"death_year"`
	Bio         *string   `json:"bio,omitempty" db:"bio"`
	Role        *string   `json:"role,omitempty" db:"role"`
	ExternalRef *string   `json:"externalRef,omitempty" db:"external_ref"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// CreatePersonRequest is the body for creating a person.
type CreatePersonRequest struct {
	NameAr      string `json:"nameAr" validate:"required,min=1,max=255"`
	NameEn      string `json:"nameEn,omitempty" validate:"omitempty,max=255"`
	BirthYear   *int   `json:"birthYear,omitempty"`
	DeathYear   *int   `json:"deathYear,omitempty"`
	Bio         string `json:"bio,omitempty" validate:"omitempty,max=10000"`
	Role        string `json:"role,omitempty" validate:"omitempty,max=255"`
	ExternalRef string `json:"externalRef,omitempty" validate:"omitempty,max=255"`
}

// UpdatePersonRequest is the partial-update body for a person.
type UpdatePersonRequest struct {
	NameAr    *string `json:"nameAr,omitempty" validate:"omitempty,min=1,max=255"`
	NameEn    *string `json:"nameEn,omitempty" validate:"omitempty,max=255"`
	BirthYear *int    `json:"birthYear,omitempty"`
	DeathYear *int    `json:"deathYear,omitempty"`
	Bio       *string `json:"bio,omitempty" validate:"omitempty,max=10000"`
	Role      *string `json:"role,omitempty" validate:"omitempty,max=255"`
}

// ImportPeopleRequest is the bulk-import body. Entries sharing an
// externalRef with an existing person update that person in place.
type ImportPeopleRequest struct {
	People []CreatePersonRequest `json:"people" validate:"required,min=1,dive"`
}

// ImportPeopleResponse reports how the import resolved.
type ImportPeopleResponse struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
}
