// Package datatable renders typed record slices as sortable HTML tables.
//
// A table is described by an ordered list of Column descriptors. Sorting is a
// tri-state cycle per sortable column (ascending, descending, unsorted) and is
// always applied to a copy of the caller's rows.
package datatable

import (
	"errors"
	"html/template"
	"reflect"
	"strings"
)

// SortType selects the comparison used when a column is sorted.
type SortType string

const (
	// SortString compares values with locale-aware collation.
	SortString SortType = "string"
	// SortNumber compares values numerically.
	SortNumber SortType = "number"
	// SortDate compares values as timestamps.
	SortDate SortType = "date"
)

// ErrNoColumns is returned when a table is constructed without columns.
var ErrNoColumns = errors.New("datatable: at least one column is required")

// Column describes how one field of T is displayed and optionally sorted.
type Column[T any] struct {
	// Header is the display label.
	Header string
	// Key identifies the field of T holding the default cell value. It also
	// names the column in sort state.
	Key string
	// Value overrides the field lookup by Key.
	Value func(T) any
	// Cell overrides the default stringification of the value.
	Cell func(T) template.HTML
	// Sortable enables header activation.
	Sortable bool
	// SortType defaults to SortString.
	SortType SortType
}

func (c Column[T]) sortType() SortType {
	switch c.SortType {
	case SortNumber, SortDate:
		return c.SortType
	default:
		return SortString
	}
}

// value extracts the raw value for record. Missing fields yield nil.
func (c Column[T]) value(record T) any {
	if c.Value != nil {
		return c.Value(record)
	}
	return fieldByKey(record, c.Key)
}

func findColumn[T any](columns []Column[T], key string) (Column[T], bool) {
	for _, col := range columns {
		if col.Key == key {
			return col, true
		}
	}
	return Column[T]{}, false
}

// fieldByKey resolves key against a struct field name, a json tag name, or a
// string-keyed map entry. Anything else resolves to nil.
func fieldByKey(record any, key string) any {
	if key == "" {
		return nil
	}
	v := reflect.ValueOf(record)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		if f := v.FieldByName(key); f.IsValid() && f.CanInterface() {
			return f.Interface()
		}
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() {
				continue
			}
			name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
			if name == key {
				return v.Field(i).Interface()
			}
		}
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil
		}
		if mv := v.MapIndex(reflect.ValueOf(key).Convert(v.Type().Key())); mv.IsValid() {
			return mv.Interface()
		}
	}
	return nil
}
