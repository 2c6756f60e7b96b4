package xfs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "models", "svm.joblib"), ExpandTilde("~/models/svm.joblib"))
	assert.Equal(t, home, ExpandTilde("~"))
	assert.Equal(t, "/abs/path", ExpandTilde("/abs/path"))
	assert.Equal(t, "~user/x", ExpandTilde("~user/x"))
}

func TestWithTempDir_RemovesOnSuccessAndFailure(t *testing.T) {
	base := t.TempDir()

	var seen string
	err := WithTempDir(base, "ok-*", func(tmp string) error {
		seen = tmp
		return os.WriteFile(filepath.Join(tmp, "f"), []byte("x"), 0o644)
	})
	require.NoError(t, err)
	assert.NoDirExists(t, seen)

	boom := errors.New("boom")
	err = WithTempDir(base, "fail-*", func(tmp string) error {
		seen = tmp
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoDirExists(t, seen)
}
