package sklearn

import "encoding/json"

type op string

const (
	opPredict      op = "predict"
	opPredictProba op = "predict_proba"
)

type workerRequest struct {
	Op    op              `json:"op"`
	Input json.RawMessage `json:"input"`
}

// workerReply is both the ready line and the per-request response.
type workerReply struct {
	OK           bool     `json:"ok"`
	Error        string   `json:"error,omitempty"`
	Classes      []string `json:"classes,omitempty"`
	Values       any      `json:"values,omitempty"`
	TextualBytes bool     `json:"textual_bytes,omitempty"`
}
