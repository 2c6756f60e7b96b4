package model

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Model is a deserialized classifier.
type Model interface {
	// Predict returns one label per input row.
	Predict(ctx context.Context, input json.RawMessage) (Output, error)

	// PredictProba returns one probability row per input row, with columns
	// in Classes order.
	PredictProba(ctx context.Context, input json.RawMessage) (Output, error)

	// Classes returns the class labels in the model's order.
	Classes() []string

	// Close releases the resources held by the model.
	Close() error
}

// HealthChecker is implemented by models whose backing resources can fail
// after loading. The cache drops an unhealthy model and loads a new one.
type HealthChecker interface {
	Healthy() bool
}

func healthy(m Model) bool {
	if hc, ok := m.(HealthChecker); ok {
		return hc.Healthy()
	}
	return true
}

// Output is the raw result of a model call. Values holds JSON-decoded data
// (numbers as json.Number). When TextualBytes is set the string leaves are
// base64 encodings of byte strings and must go through Decode first.
type Output struct {
	Values       any
	TextualBytes bool
}

// Decode returns Values with every byte string converted to unicode text.
func (o Output) Decode() (any, error) {
	if !o.TextualBytes {
		return o.Values, nil
	}
	return decodeTextual(o.Values)
}

func decodeTextual(v any) (any, error) {
	switch x := v.(type) {
	case string:
		raw, err := base64.StdEncoding.DecodeString(x)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTextualBytes, err)
		}
		if !utf8.Valid(raw) {
			return nil, fmt.Errorf("%w: %q is not valid UTF-8", ErrTextualBytes, raw)
		}
		return string(raw), nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			decoded, err := decodeTextual(item)
			if err != nil {
				return nil, err
			}
			out[i] = decoded
		}
		return out, nil
	default:
		return v, nil
	}
}
