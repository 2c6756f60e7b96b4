package sklearn

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ekisa-team/skserve/internal/backend"
	"github.com/ekisa-team/skserve/internal/model"
)

//go:embed worker.py
var workerScript string

// Opener implements model.Opener by starting one Python worker per model.
type Opener struct {
	executor     *backend.Executor
	readyTimeout time.Duration
}

// NewOpener creates a new Opener.
func NewOpener(executor *backend.Executor, readyTimeout time.Duration) *Opener {
	return &Opener{
		executor:     executor,
		readyTimeout: readyTimeout,
	}
}

// Open starts a worker that deserializes the artifact at path. It returns
// once the worker reports the model is loaded, so path may be removed
// afterwards.
func (o *Opener) Open(ctx context.Context, format model.Format, path string) (model.Model, error) {
	// The worker outlives the request that triggered the load.
	procCtx, cancel := context.WithCancel(context.Background())

	proc, err := o.executor.Start(procCtx, workerArgs(format, path))
	if err != nil {
		cancel()
		return nil, err
	}

	m := newModel(proc, cancel)
	if err := m.waitReady(ctx, o.readyTimeout); err != nil {
		_ = m.Close()
		return nil, err
	}

	slog.Info("Worker ready", "python", o.executor.BinaryPath(), "format", format, "classes", m.Classes())
	return m, nil
}

func workerArgs(format model.Format, path string) []string {
	return []string{"-u", "-c", workerScript, string(format), path}
}

// Version returns the scikit-learn version available to the interpreter.
func Version(ctx context.Context, executor *backend.Executor) (string, error) {
	stdout, stderr, err := executor.Execute(ctx, []string{"-c", "import sklearn; print(sklearn.__version__)"}, nil)
	if err != nil {
		return "", fmt.Errorf("%w: scikit-learn version check failed: %w: %s", backend.ErrWorkerUnavailable, err, strings.TrimSpace(string(stderr)))
	}

	return strings.TrimSpace(string(stdout)), nil
}
