package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ekisa-team/skserve/internal/xfs"
)

// Fetcher downloads a single object into w.
type Fetcher interface {
	Fetch(ctx context.Context, bucket, key string, w io.WriterAt) (int64, error)
}

// FetcherFactory builds a Fetcher on first use.
type FetcherFactory func(ctx context.Context) (Fetcher, error)

// Resolver turns a Location into a readable local file.
type Resolver struct {
	factory FetcherFactory
	tempDir string

	mu      sync.Mutex
	fetcher Fetcher
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFetcher sets the object storage fetcher.
func WithFetcher(f Fetcher) ResolverOption {
	return func(r *Resolver) {
		r.fetcher = f
	}
}

// WithFetcherFactory defers fetcher construction to the first remote Open.
func WithFetcherFactory(factory FetcherFactory) ResolverOption {
	return func(r *Resolver) {
		r.factory = factory
	}
}

// WithTempDir sets the parent of the scoped download directories.
func WithTempDir(dir string) ResolverOption {
	return func(r *Resolver) {
		r.tempDir = dir
	}
}

// NewResolver creates a new Resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open makes the artifact at loc available as a local file for the duration
// of fn. Remote artifacts are downloaded into a temporary directory named after
// loc.Filename, and that directory is removed when Open returns.
func (r *Resolver) Open(ctx context.Context, loc Location, fn func(path string) error) error {
	if err := loc.Validate(); err != nil {
		return err
	}

	if !loc.IsRemote() {
		if err := statFile(loc.URL()); err != nil {
			return err
		}
		return fn(loc.URL())
	}

	fetcher, err := r.getFetcher(ctx)
	if err != nil {
		return err
	}

	return xfs.WithTempDir(r.tempDir, "skserve-model-*", func(tmp string) error {
		localPath := filepath.Join(tmp, loc.Filename)

		slog.Info("Downloading model artifact", "bucket", loc.Bucket, "key", loc.Key, "path", localPath)
		n, err := download(ctx, fetcher, loc, localPath)
		if err != nil {
			return err
		}
		slog.Info("Model artifact downloaded", "bucket", loc.Bucket, "key", loc.Key, "bytes", n)

		return fn(localPath)
	})
}

func (r *Resolver) getFetcher(ctx context.Context) (Fetcher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fetcher != nil {
		return r.fetcher, nil
	}
	if r.factory == nil {
		return nil, fmt.Errorf("%w: object storage is not configured", ErrTransport)
	}

	f, err := r.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create object storage client: %w", ErrTransport, err)
	}
	r.fetcher = f

	return f, nil
}

func download(ctx context.Context, fetcher Fetcher, loc Location, localPath string) (int64, error) {
	file, err := os.Create(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", localPath, err)
	}

	n, fetchErr := fetcher.Fetch(ctx, loc.Bucket, loc.Key, file)
	closeErr := file.Close()
	if fetchErr != nil {
		return 0, fetchErr
	}
	if closeErr != nil {
		return 0, fmt.Errorf("failed to write %s: %w", localPath, closeErr)
	}

	return n, nil
}

func statFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidLocation, path)
	}

	return nil
}
