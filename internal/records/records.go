// Package records defines the schema-less raw record shape shared by the
// source backends and the normalization layer, plus the value coercion
// helpers both sides need.
//
// A Raw is whatever the record store handed us: an unordered mapping from
// field name to an arbitrary scalar or nested value. No field is guaranteed
// to exist, and the same field may arrive as an int from one store and a
// string from another. All coercion here is best-effort and never fails;
// callers decide what a failed coercion means.
package records

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Raw is one record as delivered by a source backend.
type Raw = map[string]any

// Int coerces v to an int.
//
// Accepted forms:
//   - Go integer kinds (int, int32, int64, ...)
//   - float32/float64 with an integral value (JSON decoding without
//     UseNumber produces float64 for every number)
//   - json.Number
//   - strings containing a decimal integer (surrounding space tolerated)
//
// Anything else reports ok=false.
func Int(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int8:
		return int(t), true
	case int16:
		return int(t), true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case uint:
		return int(t), true
	case uint8:
		return int(t), true
	case uint16:
		return int(t), true
	case uint32:
		return int(t), true
	case uint64:
		return int(t), true
	case float32:
		return intFromFloat(float64(t))
	case float64:
		return intFromFloat(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
		if f, err := t.Float64(); err == nil {
			return intFromFloat(f)
		}
		return 0, false
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return intFromFloat(f)
		}
		return 0, false
	default:
		return 0, false
	}
}

func intFromFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// IsEmpty reports whether v counts as "absent" for presence checks:
// nil, an empty or all-whitespace string, or an empty slice/array/map.
// Any other value (including 0 and false) is considered present.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}

	// BSON and other decoders produce their own named slice/map types
	// (e.g. primitive.A); fall back to reflection for those.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

// ListLen returns the number of entries in v when it is a list, and 0
// otherwise. Scalars deliberately contribute nothing: this mirrors the
// store-side crew aggregation, which only sized array-valued fields.
func ListLen(v any) int {
	switch t := v.(type) {
	case []any:
		return len(t)
	case []string:
		return len(t)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv.Len()
	}
	return 0
}
