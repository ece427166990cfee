package datatable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type order struct {
	ID        string   `json:"id"`
	Product   string   `json:"product"`
	Amount    *float64 `json:"amount"`
	CreatedAt string   `json:"createdAt"`
	Note      string   `json:"note"`
}

func amount(v float64) *float64 { return &v }

func orderColumns() []Column[order] {
	return []Column[order]{
		{Header: "Order", Key: "ID", Sortable: true},
		{Header: "Product", Key: "Product", Sortable: true, SortType: SortString},
		{Header: "Amount", Key: "Amount", Sortable: true, SortType: SortNumber},
		{Header: "Created", Key: "createdAt", Sortable: true, SortType: SortDate},
		{Header: "Note", Key: "Note"},
	}
}

func ids(rows []order) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestNextSortStateCycle(t *testing.T) {
	cols := orderColumns()

	first := NextSortState(SortState{}, cols, "Amount")
	assert.Equal(t, SortState{Key: "Amount", Direction: Ascending}, first)

	second := NextSortState(first, cols, "Amount")
	assert.Equal(t, SortState{Key: "Amount", Direction: Descending}, second)

	third := NextSortState(second, cols, "Amount")
	assert.Equal(t, SortState{}, third)
	assert.False(t, third.Active())

	fourth := NextSortState(third, cols, "Amount")
	assert.Equal(t, first, fourth)
}

func TestNextSortStateSwitchingColumnRestartsAscending(t *testing.T) {
	cols := orderColumns()
	state := SortState{Key: "Amount", Direction: Descending}
	assert.Equal(t, SortState{Key: "Product", Direction: Ascending}, NextSortState(state, cols, "Product"))
}

func TestNextSortStateIgnoresNonSortableAndUnknown(t *testing.T) {
	cols := orderColumns()
	states := []SortState{
		{},
		{Key: "Amount", Direction: Ascending},
		{Key: "Product", Direction: Descending},
	}
	for _, s := range states {
		assert.Equal(t, s, NextSortState(s, cols, "Note"))
		assert.Equal(t, s, NextSortState(s, cols, "missing"))
	}
}

func TestNormalizeResetsInvalidStates(t *testing.T) {
	cols := orderColumns()
	assert.Equal(t, SortState{}, Normalize(SortState{Key: "Note", Direction: Ascending}, cols))
	assert.Equal(t, SortState{}, Normalize(SortState{Key: "missing", Direction: Ascending}, cols))
	assert.Equal(t, SortState{}, Normalize(SortState{Key: "Amount", Direction: "sideways"}, cols))
	assert.Equal(t, SortState{}, Normalize(SortState{Direction: Ascending}, cols))
	valid := SortState{Key: "Amount", Direction: Descending}
	assert.Equal(t, valid, Normalize(valid, cols))
}

func TestSortRowsNumberNullHandling(t *testing.T) {
	cols := orderColumns()
	data := []order{
		{ID: "five", Amount: amount(5)},
		{ID: "null"},
		{ID: "one", Amount: amount(1)},
	}

	asc := SortRows(data, cols, SortState{Key: "Amount", Direction: Ascending})
	assert.Equal(t, []string{"one", "five", "null"}, ids(asc))

	desc := SortRows(data, cols, SortState{Key: "Amount", Direction: Descending})
	assert.Equal(t, []string{"null", "five", "one"}, ids(desc))
}

func TestSortRowsInvalidNumbersSortWithNulls(t *testing.T) {
	cols := []Column[map[string]any]{{Header: "Value", Key: "v", Sortable: true, SortType: SortNumber}}
	data := []map[string]any{
		{"id": "text", "v": "abc"},
		{"id": "ten", "v": "10"},
		{"id": "nil", "v": nil},
		{"id": "two", "v": 2},
		{"id": "nan", "v": "NaN"},
		{"id": "empty", "v": ""},
	}
	rowIDs := func(rows []map[string]any) []string {
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r["id"].(string)
		}
		return out
	}

	asc := SortRows(data, cols, SortState{Key: "v", Direction: Ascending})
	assert.Equal(t, []string{"two", "ten", "text", "nil", "nan", "empty"}, rowIDs(asc))

	desc := SortRows(data, cols, SortState{Key: "v", Direction: Descending})
	assert.Equal(t, []string{"text", "nil", "nan", "empty", "ten", "two"}, rowIDs(desc))
}

func TestSortRowsDate(t *testing.T) {
	cols := orderColumns()
	data := []order{
		{ID: "a", CreatedAt: "2024-06-03"},
		{ID: "b", CreatedAt: "2024-06-01"},
	}
	asc := SortRows(data, cols, SortState{Key: "createdAt", Direction: Ascending})
	assert.Equal(t, []string{"b", "a"}, ids(asc))
	assert.Equal(t, "2024-06-01", asc[0].CreatedAt)
	assert.Equal(t, "2024-06-03", asc[1].CreatedAt)
}

func TestSortRowsDateMixedFormatsAndInvalid(t *testing.T) {
	cols := []Column[order]{{
		Header:   "Created",
		Key:      "CreatedAt",
		Sortable: true,
		SortType: SortDate,
	}}
	data := []order{
		{ID: "late", CreatedAt: "2024-06-03T14:30:00Z"},
		{ID: "bad", CreatedAt: "not a date"},
		{ID: "early", CreatedAt: "2024-06-01T10:00:00Z"},
		{ID: "mid", CreatedAt: "2024-06-02"},
	}
	asc := SortRows(data, cols, SortState{Key: "CreatedAt", Direction: Ascending})
	assert.Equal(t, []string{"early", "mid", "late", "bad"}, ids(asc))
}

func TestSortRowsTimeValues(t *testing.T) {
	type event struct {
		Name string
		At   time.Time
	}
	cols := []Column[event]{{Header: "At", Key: "At", Sortable: true, SortType: SortDate}}
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	data := []event{
		{Name: "zero"},
		{Name: "later", At: base.Add(time.Nanosecond)},
		{Name: "first", At: base},
	}
	sorted := SortRows(data, cols, SortState{Key: "At", Direction: Ascending})
	require.Len(t, sorted, 3)
	assert.Equal(t, "first", sorted[0].Name)
	assert.Equal(t, "later", sorted[1].Name)
	assert.Equal(t, "zero", sorted[2].Name)
}

func TestSortRowsStringCollation(t *testing.T) {
	cols := orderColumns()
	data := []order{
		{ID: "1", Product: "gift card"},
		{ID: "2", Product: "Éclair voucher"},
		{ID: "3", Product: "Game Card"},
		{ID: "4", Product: "apple"},
	}
	asc := SortRows(data, cols, SortState{Key: "Product", Direction: Ascending})
	assert.Equal(t, []string{"4", "2", "3", "1"}, ids(asc))
}

func TestSortRowsStableForEqualKeys(t *testing.T) {
	cols := orderColumns()
	data := []order{
		{ID: "a", Amount: amount(10)},
		{ID: "b", Amount: amount(5)},
		{ID: "c", Amount: amount(10)},
		{ID: "d", Amount: amount(5)},
	}
	asc := SortRows(data, cols, SortState{Key: "Amount", Direction: Ascending})
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids(asc))

	desc := SortRows(data, cols, SortState{Key: "Amount", Direction: Descending})
	assert.Equal(t, []string{"a", "c", "b", "d"}, ids(desc))
}

func TestSortRowsDoesNotMutateInput(t *testing.T) {
	cols := orderColumns()
	data := []order{
		{ID: "c", Amount: amount(3)},
		{ID: "a", Amount: amount(1)},
		{ID: "b", Amount: amount(2)},
	}
	snapshot := append([]order(nil), data...)
	state := SortState{Key: "Amount", Direction: Ascending}

	first := SortRows(data, cols, state)
	second := SortRows(data, cols, state)

	assert.Equal(t, snapshot, data)
	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, []string{"a", "b", "c"}, ids(first))
	first[0].ID = "changed"
	assert.Equal(t, "c", data[0].ID)
}

func TestSortRowsWithoutActiveStateKeepsOrder(t *testing.T) {
	cols := orderColumns()
	data := []order{{ID: "b"}, {ID: "a"}}
	assert.Equal(t, []string{"b", "a"}, ids(SortRows(data, cols, SortState{})))
	assert.Equal(t, []string{"b", "a"}, ids(SortRows(data, cols, SortState{Key: "Note", Direction: Ascending})))
}

func TestSortRowsCustomValueAccessor(t *testing.T) {
	cols := []Column[order]{{
		Header:   "Length",
		Key:      "len",
		Value:    func(o order) any { return len(o.Product) },
		Sortable: true,
		SortType: SortNumber,
	}}
	data := []order{{ID: "long", Product: "abcdef"}, {ID: "short", Product: "ab"}}
	assert.Equal(t, []string{"short", "long"}, ids(SortRows(data, cols, SortState{Key: "len", Direction: Ascending})))
}
