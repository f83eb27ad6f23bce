package database

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB wraps an arbitrary document stored in a jsonb column. Shape
// validation happens at the API boundary, not here.
type JSONB[T any] struct {
	Data T
}

func (p *JSONB[T]) Scan(src any) error {
	if src == nil {
		var zero T
		p.Data = zero
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("JSONB.Scan: expected []byte, got %T", src)
	}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		var zero T
		p.Data = zero
		return nil
	}
	return json.Unmarshal(b, &p.Data)
}

func (p JSONB[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(p.Data)
	if err != nil {
		return nil, err
	}
	// Keep the column NULL rather than storing the jsonb 'null' literal.
	if bytes.Equal(b, []byte("null")) {
		return nil, nil
	}
	return b, nil
}

func (p JSONB[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Data)
}

func (p *JSONB[T]) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &p.Data)
}

func (p *JSONB[T]) GetValue() T {
	return p.Data
}
