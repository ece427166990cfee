package datatable

import (
	"net/url"
	"strings"
)

// Query parameters carrying sort state between requests.
const (
	ParamSort      = "sort"
	ParamDirection = "dir"
)

// ParseSortState reads sort state from query values. Unknown directions yield
// the unsorted state; column validity is checked by Table.SetSort.
func ParseSortState(values url.Values) SortState {
	key := strings.TrimSpace(values.Get(ParamSort))
	dir := Direction(strings.ToLower(strings.TrimSpace(values.Get(ParamDirection))))
	if key == "" || (dir != Ascending && dir != Descending) {
		return SortState{}
	}
	return SortState{Key: key, Direction: dir}
}

// QueryLink returns a link builder that keeps every other query parameter of
// current and replaces the sort parameters.
func QueryLink(current *url.URL) func(SortState) string {
	path := ""
	var base url.Values
	if current != nil {
		path = current.Path
		base = current.Query()
	}
	return func(state SortState) string {
		values := url.Values{}
		for k, v := range base {
			values[k] = append([]string(nil), v...)
		}
		values.Del(ParamSort)
		values.Del(ParamDirection)
		if state.Active() {
			values.Set(ParamSort, state.Key)
			values.Set(ParamDirection, string(state.Direction))
		}
		if encoded := values.Encode(); encoded != "" {
			return path + "?" + encoded
		}
		return path
	}
}
