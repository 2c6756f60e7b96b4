// Package modeltest provides in-memory models for tests.
package modeltest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/ekisa-team/skserve/internal/model"
)

// FakeModel is an in-memory model.Model. Without overrides it predicts the
// first class for every row and a uniform distribution over ClassLabels.
type FakeModel struct {
	PredictFunc      func(ctx context.Context, input json.RawMessage) (model.Output, error)
	PredictProbaFunc func(ctx context.Context, input json.RawMessage) (model.Output, error)
	ClassLabels      []string

	mu           sync.Mutex
	PredictCalls int
	ProbaCalls   int
	Closed       bool
	Broken       bool
}

// NewFakeModel creates a FakeModel with the given class labels.
func NewFakeModel(classes ...string) *FakeModel {
	return &FakeModel{ClassLabels: classes}
}

func (m *FakeModel) Predict(ctx context.Context, input json.RawMessage) (model.Output, error) {
	m.mu.Lock()
	m.PredictCalls++
	m.mu.Unlock()

	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, input)
	}

	rows, err := Rows(input)
	if err != nil {
		return model.Output{}, err
	}
	labels := make([]any, rows)
	for i := range labels {
		labels[i] = json.Number(m.ClassLabels[0])
	}
	return model.Output{Values: labels}, nil
}

func (m *FakeModel) PredictProba(ctx context.Context, input json.RawMessage) (model.Output, error) {
	m.mu.Lock()
	m.ProbaCalls++
	m.mu.Unlock()

	if m.PredictProbaFunc != nil {
		return m.PredictProbaFunc(ctx, input)
	}

	rows, err := Rows(input)
	if err != nil {
		return model.Output{}, err
	}
	p := json.Number(strconv.FormatFloat(1/float64(len(m.ClassLabels)), 'g', -1, 64))
	out := make([]any, rows)
	for i := range out {
		row := make([]any, len(m.ClassLabels))
		for j := range row {
			row[j] = p
		}
		out[i] = row
	}
	return model.Output{Values: out}, nil
}

func (m *FakeModel) Classes() []string {
	return m.ClassLabels
}

// Healthy reports false once Break has been called.
func (m *FakeModel) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return !m.Broken
}

// Break marks the model unhealthy.
func (m *FakeModel) Break() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Broken = true
}

func (m *FakeModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Closed = true
	return nil
}

// Rows returns the number of rows in a JSON matrix.
func Rows(input json.RawMessage) (int, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(input, &rows); err != nil {
		return 0, fmt.Errorf("expected 2D array, got %s", bytes.TrimSpace(input))
	}
	for _, row := range rows {
		var cols []json.Number
		if err := json.Unmarshal(row, &cols); err != nil {
			return 0, fmt.Errorf("expected 2D array, got %s", bytes.TrimSpace(input))
		}
	}
	return len(rows), nil
}

// Values decodes a JSON literal the way model outputs are decoded.
func Values(raw string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		panic(err)
	}
	return v
}

// FakeLoader counts loads and returns Model or Err.
type FakeLoader struct {
	LoadFunc func(ctx context.Context) (model.Model, error)
	Model    model.Model
	Err      error

	mu    sync.Mutex
	Calls int
}

func (l *FakeLoader) Load(ctx context.Context) (model.Model, error) {
	l.mu.Lock()
	l.Calls++
	l.mu.Unlock()

	if l.LoadFunc != nil {
		return l.LoadFunc(ctx)
	}
	return l.Model, l.Err
}

// CallCount returns the number of Load calls.
func (l *FakeLoader) CallCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.Calls
}
