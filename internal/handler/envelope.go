package handler

import (
	"bytes"
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Request is the inbound gateway envelope.
type Request struct {
	Body            string `json:"body"`
	IsBase64Encoded bool   `json:"isBase64Encoded"`

	// RequestID correlates log lines. A uuid is generated when empty.
	RequestID string `json:"-"`
}

// Response is the outbound gateway envelope.
type Response struct {
	IsBase64Encoded bool   `json:"isBase64Encoded"`
	StatusCode      int    `json:"statusCode"`
	Body            string `json:"body"`
}

// result is the success body. Nil fields were not requested.
type result struct {
	Prediction    any `json:"prediction,omitempty"`
	Probabilities any `json:"probabilities,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

// classProbabilities pairs class labels with one probability row. The map
// keeps insertion order when marshaled, so keys follow the model's class
// order. A repeated label keeps its first position and its last value.
func classProbabilities(labels []string, row []any) *orderedmap.OrderedMap[string, any] {
	probabilities := orderedmap.New[string, any]()
	for i, label := range labels {
		probabilities.Set(label, row[i])
	}
	return probabilities
}

// encodeJSON marshals v without HTML escaping and without a trailing newline.
// Map keys come out sorted.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
