package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ekisa-team/skserve/internal/model"
	"github.com/ekisa-team/skserve/mapsafe"
)

const (
	keyInput               = "input"
	keyReturnPrediction    = "return_prediction"
	keyReturnProbabilities = "return_probabilities"
)

// ModelSource provides the model to serve.
type ModelSource interface {
	Get(ctx context.Context) (model.Model, error)
}

// Handler turns gateway envelopes into model calls.
type Handler struct {
	models ModelSource
	logger *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// New creates a new Handler.
func New(models ModelSource, opts ...Option) *Handler {
	h := &Handler{
		models: models,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// inference is a validated request body.
type inference struct {
	input               json.RawMessage
	returnPrediction    bool
	returnProbabilities bool
}

// Handle runs the request pipeline. It never fails: every error becomes an
// error response with the matching status code.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log := h.logger.With("request_id", requestID)
	start := time.Now()

	var payload any
	res, err := h.serve(ctx, req)
	if err != nil {
		payload = errorBody{Error: errorMessage(err)}
	} else {
		payload = res
	}
	status := StatusFor(err)

	body, encErr := encodeJSON(payload)
	if encErr != nil {
		err = fmt.Errorf("failed to encode response: %w", encErr)
		status = http.StatusInternalServerError
		body, _ = encodeJSON(errorBody{Error: errorMessage(err)})
	}

	switch {
	case status >= http.StatusInternalServerError:
		log.Error("Request failed", "status", status, "error", err, "elapsed", time.Since(start))
	case err != nil:
		log.Warn("Request rejected", "status", status, "error", err, "elapsed", time.Since(start))
	default:
		log.Info("Request handled", "status", status, "elapsed", time.Since(start))
	}

	return Response{
		IsBase64Encoded: false,
		StatusCode:      status,
		Body:            string(body),
	}
}

func (h *Handler) serve(ctx context.Context, req Request) (*result, error) {
	m, err := h.models.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}

	body := req.Body
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64 body: %w", ErrBodyParse, err)
		}
		body = string(decoded)
	}

	inf, err := parseBody(body)
	if err != nil {
		return nil, err
	}

	res := &result{}
	if inf.returnPrediction {
		prediction, err := predict(ctx, m, inf.input)
		if err != nil {
			return nil, &InferenceError{Output: "prediction", Err: err}
		}
		res.Prediction = prediction
	}

	if inf.returnProbabilities {
		probabilities, err := predictProba(ctx, m, inf.input)
		if err != nil {
			return nil, &InferenceError{Output: "probabilities", Err: err}
		}
		res.Probabilities = probabilities
	}

	return res, nil
}

// parseBody validates the request body: a JSON object with an input key and
// at least one requested output.
func parseBody(raw string) (*inference, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBodyParse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after JSON object", ErrBodyParse)
	}
	if body == nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", ErrBodyParse)
	}

	input, ok := body[keyInput]
	if !ok {
		echo, err := encodeJSON(body)
		if err != nil {
			return nil, fmt.Errorf("%w", ErrMissingInput)
		}
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, echo)
	}

	returnPrediction, err := mapsafe.GetStrict(body, keyReturnPrediction, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFlag, err)
	}
	returnProbabilities, err := mapsafe.GetStrict(body, keyReturnProbabilities, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFlag, err)
	}
	if !returnPrediction && !returnProbabilities {
		return nil, ErrNoOutputRequested
	}

	rawInput, err := encodeJSON(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBodyParse, err)
	}

	return &inference{
		input:               rawInput,
		returnPrediction:    returnPrediction,
		returnProbabilities: returnProbabilities,
	}, nil
}

func predict(ctx context.Context, m model.Model, input json.RawMessage) (any, error) {
	out, err := m.Predict(ctx, input)
	if err != nil {
		return nil, err
	}

	return out.Decode()
}

func predictProba(ctx context.Context, m model.Model, input json.RawMessage) ([]*orderedmap.OrderedMap[string, any], error) {
	out, err := m.PredictProba(ctx, input)
	if err != nil {
		return nil, err
	}

	decoded, err := out.Decode()
	if err != nil {
		return nil, err
	}

	rows, ok := decoded.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list of rows, got %T", ErrShape, decoded)
	}

	classes := m.Classes()
	probabilities := make([]*orderedmap.OrderedMap[string, any], len(rows))
	for i, r := range rows {
		row, ok := r.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: row %d is %T, not a list", ErrShape, i, r)
		}
		if len(row) != len(classes) {
			return nil, fmt.Errorf("%w: row %d has %d columns for %d classes", ErrShape, i, len(row), len(classes))
		}
		probabilities[i] = classProbabilities(classes, row)
	}

	return probabilities, nil
}
