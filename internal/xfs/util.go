package xfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandTilde replaces a leading tilde (~) with the user's home directory.
func ExpandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}

	return path
}

// WithTempDir creates a temporary directory under dir (the system default when
// empty), calls fn with its path and removes it afterwards, whatever fn returns.
func WithTempDir(dir, pattern string, fn func(tmp string) error) (err error) {
	tmp, err := os.MkdirTemp(dir, pattern)
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tmp); rmErr != nil && err == nil {
			err = fmt.Errorf("failed to remove temp dir %s: %w", tmp, rmErr)
		}
	}()

	return fn(tmp)
}
