package datatable

import (
	"cmp"
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Direction is the sort direction of the active column.
type Direction string

const (
	// DirectionNone leaves rows in their original order.
	DirectionNone Direction = ""
	// Ascending sorts smallest first.
	Ascending Direction = "asc"
	// Descending sorts largest first.
	Descending Direction = "desc"
)

// SortState names the active sort column and its direction.
type SortState struct {
	Key       string
	Direction Direction
}

// Active reports whether the state selects a column and a direction.
func (s SortState) Active() bool {
	return s.Key != "" && (s.Direction == Ascending || s.Direction == Descending)
}

// NextSortState returns the state after the column identified by key is
// activated. The cycle is ascending, descending, unsorted. Keys that do not
// name a sortable column leave the state unchanged.
func NextSortState[T any](current SortState, columns []Column[T], key string) SortState {
	col, ok := findColumn(columns, key)
	if !ok || !col.Sortable {
		return current
	}
	current = Normalize(current, columns)
	if current.Key != key {
		return SortState{Key: key, Direction: Ascending}
	}
	switch current.Direction {
	case Ascending:
		return SortState{Key: key, Direction: Descending}
	default:
		return SortState{}
	}
}

// Normalize resets states that do not reference a sortable column with a
// known direction.
func Normalize[T any](state SortState, columns []Column[T]) SortState {
	if !state.Active() {
		return SortState{}
	}
	col, ok := findColumn(columns, state.Key)
	if !ok || !col.Sortable {
		return SortState{}
	}
	return state
}

// SortRows derives the displayed order of data. Without an active state data
// is returned unchanged; otherwise a sorted copy is returned and data is left
// untouched. Equal keys keep their original relative order.
func SortRows[T any](data []T, columns []Column[T], state SortState) []T {
	return sortRows(data, columns, state, language.Und)
}

func sortRows[T any](data []T, columns []Column[T], state SortState, tag language.Tag) []T {
	state = Normalize(state, columns)
	if !state.Active() || len(data) == 0 {
		return data
	}
	col, _ := findColumn(columns, state.Key)

	keys := make([]sortKey, len(data))
	for i, record := range data {
		keys[i] = makeSortKey(col.sortType(), col.value(record))
	}
	order := make([]int, len(data))
	for i := range order {
		order[i] = i
	}

	compare := comparator(col.sortType(), tag)
	slices.SortStableFunc(order, func(a, b int) int {
		c := compareKeys(keys[a], keys[b], compare)
		if state.Direction == Descending {
			return -c
		}
		return c
	})

	sorted := make([]T, len(data))
	for i, idx := range order {
		sorted[i] = data[idx]
	}
	return sorted
}

type sortKey struct {
	valid bool
	num   float64
	at    time.Time
	str   string
}

func makeSortKey(st SortType, v any) sortKey {
	switch st {
	case SortNumber:
		f, ok := numberKey(v)
		return sortKey{valid: ok, num: f}
	case SortDate:
		t, ok := dateKey(v)
		if !ok {
			return sortKey{}
		}
		return sortKey{valid: true, at: t}
	default:
		s, ok := stringKey(v)
		return sortKey{valid: ok, str: s}
	}
}

// compareKeys orders invalid keys after every valid key. Reversing the result
// for descending order therefore places them first.
func compareKeys(a, b sortKey, compare func(a, b sortKey) int) int {
	switch {
	case !a.valid && !b.valid:
		return 0
	case !a.valid:
		return 1
	case !b.valid:
		return -1
	}
	return compare(a, b)
}

func comparator(st SortType, tag language.Tag) func(a, b sortKey) int {
	switch st {
	case SortNumber:
		return func(a, b sortKey) int { return cmp.Compare(a.num, b.num) }
	case SortDate:
		return func(a, b sortKey) int { return a.at.Compare(b.at) }
	}
	// Collators keep internal buffers; one per sort call.
	col := collate.New(tag)
	return func(a, b sortKey) int { return col.CompareString(a.str, b.str) }
}
