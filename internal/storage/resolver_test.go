package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFetcher struct {
	mock.Mock
	data []byte
}

func (m *MockFetcher) Fetch(ctx context.Context, bucket, key string, w io.WriterAt) (int64, error) {
	args := m.Called(ctx, bucket, key)
	if err := args.Error(0); err != nil {
		return 0, err
	}
	n, err := w.WriteAt(m.data, 0)
	return int64(n), err
}

func TestResolver_OpenLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.pkl")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	r := NewResolver()

	var got string
	err := r.Open(context.Background(), Parse(path), func(p string) error {
		got = p
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.FileExists(t, path)
}

func TestResolver_OpenLocalMissing(t *testing.T) {
	r := NewResolver()

	called := false
	err := r.Open(context.Background(), Parse("file/doesnt/exist.joblib"), func(string) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, called)
}

func TestResolver_OpenLocalDirectory(t *testing.T) {
	err := NewResolver().Open(context.Background(), Parse(t.TempDir()), func(string) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidLocation)
}

func TestResolver_OpenS3(t *testing.T) {
	base := t.TempDir()
	fetcher := &MockFetcher{data: []byte("artifact")}
	fetcher.On("Fetch", mock.Anything, "test-bucket", "models/svm.joblib?v=2").Return(nil).Once()

	r := NewResolver(WithFetcher(fetcher), WithTempDir(base))

	var localPath string
	err := r.Open(context.Background(), Parse("s3://test-bucket/models/svm.joblib?v=2"), func(p string) error {
		localPath = p
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, "artifact", string(data))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "svm.joblib", filepath.Base(localPath))
	assert.NoFileExists(t, localPath)
	assert.NoDirExists(t, filepath.Dir(localPath))
	fetcher.AssertExpectations(t)
}

func TestResolver_OpenS3CleansUpOnFailure(t *testing.T) {
	base := t.TempDir()

	t.Run("download fails", func(t *testing.T) {
		fetcher := &MockFetcher{}
		fetcher.On("Fetch", mock.Anything, "invalid-bucket", "invalid-model-path").
			Return(ErrNotFound).Once()

		r := NewResolver(WithFetcher(fetcher), WithTempDir(base))
		err := r.Open(context.Background(), Parse("s3://invalid-bucket/invalid-model-path"), func(string) error {
			t.Fatal("fn must not run when the download fails")
			return nil
		})
		assert.ErrorIs(t, err, ErrNotFound)
		fetcher.AssertExpectations(t)
	})

	t.Run("callback fails", func(t *testing.T) {
		fetcher := &MockFetcher{data: []byte("x")}
		fetcher.On("Fetch", mock.Anything, "bucket", "model.pkl").Return(nil).Once()

		boom := errors.New("boom")
		r := NewResolver(WithFetcher(fetcher), WithTempDir(base))
		err := r.Open(context.Background(), Parse("s3://bucket/model.pkl"), func(string) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
	})

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResolver_FactoryIsLazy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.pkl")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	calls := 0
	fetcher := &MockFetcher{data: []byte("x")}
	fetcher.On("Fetch", mock.Anything, "bucket", "model.pkl").Return(nil).Twice()

	r := NewResolver(WithFetcherFactory(func(context.Context) (Fetcher, error) {
		calls++
		return fetcher, nil
	}))

	require.NoError(t, r.Open(context.Background(), Parse(path), func(string) error { return nil }))
	assert.Equal(t, 0, calls)

	for range 2 {
		require.NoError(t, r.Open(context.Background(), Parse("s3://bucket/model.pkl"), func(string) error { return nil }))
	}
	assert.Equal(t, 1, calls)
}

func TestResolver_FactoryError(t *testing.T) {
	r := NewResolver(WithFetcherFactory(func(context.Context) (Fetcher, error) {
		return nil, errors.New("no credentials")
	}))

	err := r.Open(context.Background(), Parse("s3://bucket/model.pkl"), func(string) error { return nil })
	assert.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "no credentials")

	err = NewResolver().Open(context.Background(), Parse("s3://bucket/model.pkl"), func(string) error { return nil })
	assert.ErrorIs(t, err, ErrTransport)
}
