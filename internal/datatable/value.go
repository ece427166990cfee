package datatable

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// indirect dereferences pointers. A nil value or nil pointer reports false.
func indirect(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	return rv.Interface(), true
}

// numberKey coerces v for numeric comparison. Empty strings, NaN and values
// cast cannot convert are invalid.
func numberKey(v any) (float64, bool) {
	v, ok := indirect(v)
	if !ok {
		return 0, false
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return 0, false
	}
	if s, isString := v.(string); isString {
		v = strings.TrimSpace(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// dateKey coerces v to a timestamp. Zero times and unparsable strings are invalid.
func dateKey(v any) (time.Time, bool) {
	v, ok := indirect(v)
	if !ok {
		return time.Time{}, false
	}
	if s, isString := v.(string); isString {
		s = strings.TrimSpace(s)
		if s == "" {
			return time.Time{}, false
		}
		v = s
	}
	t, err := cast.ToTimeE(v)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

// stringKey coerces v for collation. Only nil is invalid.
func stringKey(v any) (string, bool) {
	if _, ok := indirect(v); !ok {
		return "", false
	}
	return stringify(v), true
}

// stringify renders v for display. Missing values render as "".
func stringify(v any) string {
	v, ok := indirect(v)
	if !ok {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	case error:
		return x.Error()
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}
