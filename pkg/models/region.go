package models

import (
	"encoding/json"
	"time"
)

// Region is an administrative area. The human-assigned code is the stable
// external identifier clients filter on; the uuid id is internal.
type Region struct {
	ID        string          `json:"id" db:"id"`
	NameAr    string          `json:"nameAr" db:"name_ar"`
	NameEn    *string         `json:"nameEn,omitempty" db:"name_en"`
	Code      string          `json:"code" db:"code"`
	Geometry  json.RawMessage `json:"geometry,omitempty" db:"geometry"`
	CenterLat *float64        `json:"centerLat,omitempty" db:"center_lat"`
	CenterLng *float64        `json:"centerLng,omitempty" db:"center_lng"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`

	// EventCount is computed live from the events join, never stored.
	EventCount int     `json:"eventCount" db:"event_count"`
	Events     []Event `json:"events,omitempty" db:"-"`
}

// RegionRef is the compact region expansion embedded in event payloads.
type RegionRef struct {
	ID     string `json:"id" db:"id"`
	NameAr string `json:"nameAr" db:"name_ar"`
	Code   string `json:"code" db:"code"`
}

// GeoJSONFeature is one region rendered as a GeoJSON feature.
type GeoJSONFeature struct {
	Type       string          `json:"type"`
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// GeoJSONFeatureCollection is the map export of all regions with geometry.
type GeoJSONFeatureCollection struct {
	Type     string           `json:"type"`
	Features []GeoJSONFeature `json:"features"`
}
