package formula

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order when coercing a string to a time. The set
// covers the formats the generation service and schema files actually emit.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"2006-01",
}

// toTime coerces an argument to a time value.
func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: cannot parse %q as a date", ErrMalformedArgument, t)
	default:
		return time.Time{}, fmt.Errorf("%w: cannot use %T as a date", ErrMalformedArgument, v)
	}
}

// toFloat coerces an argument to a float64. Numeric strings convert; anything
// else is malformed.
func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: cannot parse %q as a number", ErrMalformedArgument, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: cannot use %T as a number", ErrMalformedArgument, v)
	}
}

// toString renders an argument for the string functions. nil renders as the
// empty string; whole floats drop the trailing ".0" so numeric arguments
// concatenate the way schema authors expect.
func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case time.Time:
		return s.Format("2006-01-02")
	default:
		return fmt.Sprint(v)
	}
}

// isTruthy reproduces the source schema language's emptiness rules as an
// explicit predicate: nil, false, zero numbers, empty strings and empty
// collections are falsy, everything else is truthy.
func isTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != "" && t != "0"
	case float64:
		return t != 0
	case float32:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
