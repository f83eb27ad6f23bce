package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertBuilderUpsert(t *testing.T) {
	ib := NewInsertBuilder()
	ib.InsertInto("people")
	ib.Cols("id", "name_ar", "external_ref")
	ib.Values("p1", "الأمير عبد القادر", "wikidata:Q188553")

	ub := ib.OnConflict("external_ref")
	ub.Set(
		ub.Assign("name_ar", Excluded("name_ar")),
	)

	query, args := ib.Build()

	assert.Contains(t, query, "INSERT INTO people")
	assert.Contains(t, query, "ON CONFLICT (external_ref) DO UPDATE SET name_ar = EXCLUDED.name_ar")
	assert.Equal(t, []interface{}{"p1", "الأمير عبد القادر", "wikidata:Q188553"}, args)
}

func TestInsertBuilderWithoutConflictClause(t *testing.T) {
	ib := NewInsertBuilder()
	ib.InsertInto("people")
	ib.Cols("id", "name_ar")
	ib.Values("p1", "لالة فاطمة نسومر")

	query, _ := ib.Build()

	assert.NotContains(t, query, "ON CONFLICT")
	assert.Contains(t, query, "$1")
}
