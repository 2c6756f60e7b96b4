package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ekisa-team/skserve/internal/handler"
)

const maxPredictBodyBytes = 32 << 20

type (
	PredictInput struct {
		RawBody []byte
	}

	// PredictOutput carries the envelope produced by the request handler.
	PredictOutput struct {
		Status      int
		ContentType string `header:"Content-Type"`
		Body        []byte
	}

	HealthOutput struct {
		Body struct {
			Status      string `json:"status" example:"ok"`
			ModelLoaded bool   `json:"model_loaded"`
			ModelLoads  uint64 `json:"model_loads" doc:"Number of model loads since start"`
		}
	}
)

// Invoker runs one gateway envelope through the inference pipeline.
type Invoker interface {
	Handle(ctx context.Context, req handler.Request) handler.Response
}

// ModelStatus reports the state of the model cache.
type ModelStatus interface {
	Loaded() bool
	Loads() uint64
}

// PredictHandler exposes the request handler over HTTP.
type PredictHandler struct {
	invoker Invoker
	status  ModelStatus
}

// NewPredictHandler registers the predict and health operations on api.
func NewPredictHandler(api huma.API, invoker Invoker, status ModelStatus) *PredictHandler {
	h := &PredictHandler{invoker: invoker, status: status}

	huma.Register(api, huma.Operation{
		OperationID:   "predict",
		Method:        http.MethodPost,
		Path:          "/predict",
		Summary:       "Run the model on a request envelope body",
		Tags:          []string{"model"},
		MaxBodyBytes:  maxPredictBodyBytes,
		DefaultStatus: http.StatusOK,
	}, h.handlePredict)

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Report liveness and model state",
		Tags:        []string{"health"},
	}, h.handleHealth)

	return h
}

// handlePredict wraps the raw body into an envelope. Pipeline errors are
// already encoded in the envelope, so they are returned as regular output.
func (h *PredictHandler) handlePredict(ctx context.Context, input *PredictInput) (*PredictOutput, error) {
	resp := h.invoker.Handle(ctx, handler.Request{
		Body:      string(input.RawBody),
		RequestID: RequestIDFromContext(ctx),
	})

	return &PredictOutput{
		Status:      resp.StatusCode,
		ContentType: "application/json",
		Body:        []byte(resp.Body),
	}, nil
}

func (h *PredictHandler) handleHealth(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	out := &HealthOutput{}
	out.Body.Status = "ok"
	out.Body.ModelLoaded = h.status.Loaded()
	out.Body.ModelLoads = h.status.Loads()
	return out, nil
}
