package mapsafe

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrTypeMismatch is returned by GetStrict when a value cannot be converted.
var ErrTypeMismatch = errors.New("unexpected value type")

// GetStrict retrieves a typed value from a map[string]any. A missing key
// yields defaultValue, an explicit null yields the zero value of T, and a
// value that cannot be converted is reported as ErrTypeMismatch.
func GetStrict[T any](m map[string]any, key string, defaultValue T) (T, error) {
	val, ok := m[key]
	if !ok {
		return defaultValue, nil
	}
	if val == nil {
		var zero T
		return zero, nil
	}
	if v, ok := convert(val, defaultValue); ok {
		return v, nil
	}

	return defaultValue, fmt.Errorf("%w: %q must be %T, got %T", ErrTypeMismatch, key, defaultValue, val)
}

func convert[T any](val any, defaultValue T) (T, bool) {
	switch any(defaultValue).(type) {
	case int:
		switch x := val.(type) {
		case int:
			return any(x).(T), true
		case float64:
			return any(int(x)).(T), true
		case json.Number:
			if i, err := x.Int64(); err == nil {
				return any(int(i)).(T), true
			}
		}
	case float64:
		switch x := val.(type) {
		case float64:
			return any(x).(T), true
		case int:
			return any(float64(x)).(T), true
		case json.Number:
			if f, err := x.Float64(); err == nil {
				return any(f).(T), true
			}
		}
	case string:
		if s, ok := val.(string); ok {
			return any(s).(T), true
		}
	case bool:
		if b, ok := val.(bool); ok {
			return any(b).(T), true
		}
	default:
		// fallback: if type matches exactly
		if v2, ok := val.(T); ok {
			return v2, true
		}
	}
	return defaultValue, false
}
