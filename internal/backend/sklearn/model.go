package sklearn

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ekisa-team/skserve/internal/backend"
	"github.com/ekisa-team/skserve/internal/model"
)

const maxReplySize = 64 << 20

// Model is a model.Model served by a long-running Python worker that holds
// the deserialized estimator. Calls are answered in order, one at a time.
// A call abandoned through its context kills the worker, since the reply
// would otherwise arrive out of order.
type Model struct {
	proc     backend.Process
	cancel   context.CancelFunc
	lines    *bufio.Scanner
	stderr   *tailBuffer
	classes  []string
	mu       sync.Mutex // serializes calls
	closed   atomic.Bool
	stopOnce sync.Once
}

type lineResult struct {
	line []byte
	err  error
}

func newModel(proc backend.Process, cancel context.CancelFunc) *Model {
	lines := bufio.NewScanner(proc.Stdout())
	lines.Buffer(make([]byte, 0, 64<<10), maxReplySize)

	m := &Model{
		proc:   proc,
		cancel: cancel,
		lines:  lines,
		stderr: &tailBuffer{},
	}

	go func() {
		if _, err := io.Copy(m.stderr, proc.Stderr()); err != nil {
			slog.Debug("Worker stderr closed", "error", err)
		}
	}()

	return m
}

// waitReady reads the ready line the worker prints once the artifact is
// deserialized.
func (m *Model) waitReady(ctx context.Context, timeout time.Duration) error {
	ch := make(chan lineResult, 1)
	go func() {
		line, err := m.readLine()
		ch <- lineResult{line: line, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var res lineResult
	select {
	case res = <-ch:
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for worker: %w", backend.ErrWorkerUnavailable, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("%w: worker not ready after %s", backend.ErrWorkerUnavailable, timeout)
	}
	if res.err != nil {
		return res.err
	}

	reply, err := decodeReply(res.line)
	if err != nil {
		return err
	}
	if !reply.OK {
		return fmt.Errorf("%w: %s", model.ErrDeserialization, reply.Error)
	}

	m.classes = reply.Classes
	return nil
}

// Predict implements model.Model.
func (m *Model) Predict(ctx context.Context, input json.RawMessage) (model.Output, error) {
	return m.call(ctx, opPredict, input)
}

// PredictProba implements model.Model.
func (m *Model) PredictProba(ctx context.Context, input json.RawMessage) (model.Output, error) {
	return m.call(ctx, opPredictProba, input)
}

// Classes implements model.Model.
func (m *Model) Classes() []string {
	return m.classes
}

// Healthy reports whether the worker can still answer calls.
func (m *Model) Healthy() bool {
	return !m.closed.Load()
}

// Close stops the worker. It does not wait for a call in flight, which
// fails once the worker is gone.
func (m *Model) Close() error {
	m.closed.Store(true)
	m.stop()
	return nil
}

func (m *Model) stop() {
	m.stopOnce.Do(func() {
		if err := m.proc.Stdin().Close(); err != nil {
			slog.Debug("Failed to close worker stdin", "error", err)
		}
		if err := m.proc.Kill(); err != nil {
			slog.Warn("Failed to kill worker", "error", err)
		}
		m.cancel()
		_ = m.proc.Wait()
	})
}

func (m *Model) call(ctx context.Context, o op, input json.RawMessage) (model.Output, error) {
	if err := ctx.Err(); err != nil {
		return model.Output{}, err
	}

	payload, err := json.Marshal(workerRequest{Op: o, Input: input})
	if err != nil {
		return model.Output{}, fmt.Errorf("%w: failed to encode request: %w", backend.ErrProtocol, err)
	}
	payload = append(payload, '\n')

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Load() {
		return model.Output{}, fmt.Errorf("%w: worker is closed", backend.ErrWorkerUnavailable)
	}

	ch := make(chan lineResult, 1)
	go func() {
		if _, err := m.proc.Stdin().Write(payload); err != nil {
			ch <- lineResult{err: fmt.Errorf("%w: failed to write request: %w%s", backend.ErrWorkerUnavailable, err, m.stderrSuffix())}
			return
		}
		line, err := m.readLine()
		ch <- lineResult{line: line, err: err}
	}()

	var res lineResult
	select {
	case res = <-ch:
	case <-ctx.Done():
		slog.Warn("Worker call abandoned, stopping worker", "op", o, "error", ctx.Err())
		m.closed.Store(true)
		m.stop()
		return model.Output{}, fmt.Errorf("%w: call abandoned: %w", backend.ErrWorkerUnavailable, ctx.Err())
	}
	if res.err != nil {
		if errors.Is(res.err, backend.ErrWorkerUnavailable) {
			m.closed.Store(true)
			m.stop()
		}
		return model.Output{}, res.err
	}

	reply, err := decodeReply(res.line)
	if err != nil {
		return model.Output{}, err
	}
	if !reply.OK {
		return model.Output{}, fmt.Errorf("%w: %s", backend.ErrInference, reply.Error)
	}

	return model.Output{Values: reply.Values, TextualBytes: reply.TextualBytes}, nil
}

func (m *Model) readLine() ([]byte, error) {
	if !m.lines.Scan() {
		err := m.lines.Err()
		if err == nil {
			err = io.EOF
		}
		return nil, fmt.Errorf("%w: worker exited: %w%s", backend.ErrWorkerUnavailable, err, m.stderrSuffix())
	}

	return bytes.Clone(m.lines.Bytes()), nil
}

func (m *Model) stderrSuffix() string {
	if s := m.stderr.String(); s != "" {
		return ": " + s
	}
	return ""
}

func decodeReply(line []byte) (workerReply, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var reply workerReply
	if err := dec.Decode(&reply); err != nil {
		return workerReply{}, fmt.Errorf("%w: failed to decode worker reply: %w", backend.ErrProtocol, err)
	}
	return reply, nil
}
