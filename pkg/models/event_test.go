package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventListQueryNormalize(t *testing.T) {
	q := EventListQuery{}
	q.Normalize()

	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.Limit)
	assert.Equal(t, "startDate", q.SortBy)
	assert.Equal(t, "asc", q.SortOrder)
}

func TestEventListQueryNormalizeCapsLimit(t *testing.T) {
	q := EventListQuery{Page: 3, Limit: 5000}
	q.Normalize()

	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 1000, q.Limit)
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, limit, want int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{100, 7, 15},
		{5, 0, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.total, tt.limit), "total=%d limit=%d", tt.total, tt.limit)
	}
}

func TestEventTypeValid(t *testing.T) {
	assert.True(t, EventTypeBattle.Valid())
	assert.True(t, EventTypeResistance.Valid())
	assert.False(t, EventType("PICNIC").Valid())
	assert.False(t, EventType("").Valid())
}

func TestReviewStatusValid(t *testing.T) {
	assert.True(t, ReviewStatusDraft.Valid())
	assert.True(t, ReviewStatusConfirmed.Valid())
	assert.False(t, ReviewStatus("PUBLISHED").Valid())
}
