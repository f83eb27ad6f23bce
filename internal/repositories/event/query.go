package event

import (
	"strings"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/ouarsenis/thawra-api/pkg/models"
)

const tableName = "events"

var eventColumns = []string{
	"e.id", "e.title", "e.type", "e.region_id", "e.start_date", "e.end_date",
	"e.description", "e.detailed_description", "e.coordinates", "e.outcome",
	"e.casualties_text", "e.casualties_estimated", "e.parties",
	"e.review_status", "e.created_by_id", "e.updated_by_id",
	"e.created_at", "e.updated_at",
}

// sortColumns whitelists the externally addressable sort fields. Anything
// else falls back to the start date.
var sortColumns = map[string]string{
	"startDate":           "e.start_date",
	"endDate":             "e.end_date",
	"title":               "e.title",
	"type":                "e.type",
	"createdAt":           "e.created_at",
	"casualtiesEstimated": "e.casualties_estimated",
}

// listSelect builds a select over events with the query's full predicate
// applied. The count query and the page query are both produced by this
// function so they always share an identical predicate; only the selected
// columns, joins on non-filtered tables, ordering and paging differ.
//
// Filters on independent dimensions (region, type, date range, status)
// combine conjunctively. The free-text search is a single disjunction across
// title, description, detailed description, outcome, the region's Arabic
// name and the Arabic names of linked people: one match anywhere qualifies
// the event.
func listSelect(q models.EventListQuery, cols ...string) *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(cols...)
	sb.From(tableName + " e")
	sb.Join("regions r", "e.region_id = r.id")

	var conds []string

	if q.Search != "" {
		term := "%" + strings.ToLower(q.Search) + "%"
		conds = append(conds, sb.Or(
			sb.Like("LOWER(e.title)", term),
			sb.Like("LOWER(e.description)", term),
			sb.Like("LOWER(COALESCE(e.detailed_description, ''))", term),
			sb.Like("LOWER(COALESCE(e.outcome, ''))", term),
			sb.Like("LOWER(r.name_ar)", term),
			"EXISTS (SELECT 1 FROM event_people ep JOIN people p ON p.id = ep.person_id"+
				" WHERE ep.event_id = e.id AND LOWER(p.name_ar) LIKE "+sb.Var(term)+")",
		))
	}

	// The external filter key is the human-assigned region code, not the
	// opaque region id.
	if q.RegionCode != "" {
		conds = append(conds, sb.Equal("r.code", q.RegionCode))
	}

	if len(q.Types) > 0 {
		vals := make([]any, len(q.Types))
		for i, t := range q.Types {
			vals[i] = string(t)
		}
		conds = append(conds, sb.In("e.type", vals...))
	}

	// startYear/endYear both bound start_date and AND together as a range.
	if q.StartYear != 0 {
		conds = append(conds, sb.GreaterEqualThan("e.start_date",
			time.Date(q.StartYear, time.January, 1, 0, 0, 0, 0, time.UTC)))
	}
	if q.EndYear != 0 {
		conds = append(conds, sb.LessEqualThan("e.start_date",
			time.Date(q.EndYear, time.December, 31, 0, 0, 0, 0, time.UTC)))
	}

	if q.ReviewStatus != "" {
		conds = append(conds, sb.Equal("e.review_status", string(q.ReviewStatus)))
	}

	if len(conds) > 0 {
		sb.Where(conds...)
	}

	return sb
}

// pageSelect builds the row-returning side of a list query: the full
// predicate from listSelect plus the region columns and the creator's name.
// The users join lives here and not in listSelect so the count query never
// carries it.
func pageSelect(q models.EventListQuery) *sqlbuilder.SelectBuilder {
	cols := append(append([]string{}, eventColumns...),
		"r.name_ar AS region_name_ar",
		"r.code AS region_code",
		"cu.name AS created_by_name",
	)
	sb := listSelect(q, cols...)
	sb.JoinWithOption(sqlbuilder.LeftJoin, "users cu", "cu.id = e.created_by_id")
	return sb
}

// orderClause resolves the whitelisted sort column and direction. The id is
// always a secondary sort so pages are deterministic under equal keys.
func orderClause(q models.EventListQuery) (string, string) {
	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = sortColumns["startDate"]
	}
	dir := "ASC"
	if strings.EqualFold(q.SortOrder, "desc") {
		dir = "DESC"
	}
	return col + " " + dir, "e.id ASC"
}
