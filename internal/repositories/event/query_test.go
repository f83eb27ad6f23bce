package event

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ouarsenis/thawra-api/pkg/models"
)

func whereClause(t *testing.T, query string) string {
	t.Helper()
	idx := strings.Index(query, "WHERE")
	require.GreaterOrEqual(t, idx, 0, "query has no WHERE clause: %s", query)
	clause := query[idx:]
	if end := strings.Index(clause, " ORDER BY"); end >= 0 {
		clause = clause[:end]
	}
	if end := strings.Index(clause, " LIMIT"); end >= 0 {
		clause = clause[:end]
	}
	return clause
}

func TestListSelectSearchIsDisjunction(t *testing.T) {
	q := models.EventListQuery{Search: "Sétif"}
	q.Normalize()

	query, args := listSelect(q, "COUNT(*)").Build()

	// One term, six reachable fields, one OR group.
	assert.Contains(t, query, "LOWER(e.title) LIKE")
	assert.Contains(t, query, "LOWER(e.description) LIKE")
	assert.Contains(t, query, "LOWER(COALESCE(e.detailed_description, '')) LIKE")
	assert.Contains(t, query, "LOWER(COALESCE(e.outcome, '')) LIKE")
	assert.Contains(t, query, "LOWER(r.name_ar) LIKE")
	assert.Contains(t, query, "EXISTS (SELECT 1 FROM event_people ep JOIN people p")
	assert.Contains(t, query, " OR ")

	// The term is lowercased and wrapped once per field.
	require.Len(t, args, 6)
	for _, arg := range args {
		assert.Equal(t, "%sétif%", arg)
	}
}

func TestListSelectFiltersAreConjunctive(t *testing.T) {
	q := models.EventListQuery{
		RegionCode:   "setif",
		Types:        []models.EventType{models.EventTypeBattle, models.EventTypeSiege},
		StartYear:    1850,
		EndYear:      1860,
		ReviewStatus: models.ReviewStatusConfirmed,
	}
	q.Normalize()

	query, args := listSelect(q, "COUNT(*)").Build()
	clause := whereClause(t, query)

	assert.Contains(t, clause, "r.code =")
	assert.Contains(t, clause, "e.type IN")
	assert.Contains(t, clause, "e.start_date >=")
	assert.Contains(t, clause, "e.start_date <=")
	assert.Contains(t, clause, "e.review_status =")
	assert.NotContains(t, clause, " OR ")
	assert.Len(t, args, 6)
}

func TestListSelectRegionFilterUsesCode(t *testing.T) {
	q := models.EventListQuery{RegionCode: "constantine"}
	q.Normalize()

	query, args := listSelect(q, "COUNT(*)").Build()
	clause := whereClause(t, query)

	// The external filter key matches the human-assigned code column, never
	// the uuid foreign key.
	assert.Contains(t, clause, "r.code =")
	assert.NotContains(t, clause, "region_id =")
	assert.Equal(t, []any{"constantine"}, args)
}

func TestListSelectCountAndPageSharePredicate(t *testing.T) {
	q := models.EventListQuery{
		Search:     "مقاومة",
		RegionCode: "oran",
		Types:      []models.EventType{models.EventTypeResistance},
		StartYear:  1830,
		EndYear:    1871,
	}
	q.Normalize()

	countQuery, countArgs := listSelect(q, "COUNT(*)").Build()

	sb := pageSelect(q)
	primary, secondary := orderClause(q)
	sb.OrderBy(primary, secondary)
	sb.Limit(q.Limit).Offset(0)
	pageQuery, pageArgs := sb.Build()

	// Identical WHERE clause and identical bound arguments: a row the count
	// sees is a row some page returns.
	assert.Equal(t, whereClause(t, countQuery), whereClause(t, pageQuery))
	assert.Equal(t, countArgs, pageArgs[:len(countArgs)])
}

func TestPageSelectExpandsCreator(t *testing.T) {
	q := models.EventListQuery{}
	q.Normalize()

	query, _ := pageSelect(q).Build()

	assert.Contains(t, query, "cu.name AS created_by_name")
	assert.Contains(t, query, "LEFT JOIN users cu ON cu.id = e.created_by_id")
}

func TestPageSelectCreatorJoinStaysOffCountQuery(t *testing.T) {
	q := models.EventListQuery{RegionCode: "oran"}
	q.Normalize()

	countQuery, _ := listSelect(q, "COUNT(*)").Build()

	assert.NotContains(t, countQuery, "users")
}

func TestListSelectNoFilters(t *testing.T) {
	q := models.EventListQuery{}
	q.Normalize()

	query, args := listSelect(q, "COUNT(*)").Build()

	assert.NotContains(t, query, "WHERE")
	assert.Empty(t, args)
}

func TestOrderClause(t *testing.T) {
	tests := []struct {
		name      string
		sortBy    string
		sortOrder string
		want      string
	}{
		{"default ascending", "startDate", "asc", "e.start_date ASC"},
		{"descending", "createdAt", "desc", "e.created_at DESC"},
		{"casualties", "casualtiesEstimated", "desc", "e.casualties_estimated DESC"},
		{"unknown column falls back", "passwordHash", "asc", "e.start_date ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := models.EventListQuery{SortBy: tt.sortBy, SortOrder: tt.sortOrder}
			primary, secondary := orderClause(q)
			assert.Equal(t, tt.want, primary)
			assert.Equal(t, "e.id ASC", secondary)
		})
	}
}
