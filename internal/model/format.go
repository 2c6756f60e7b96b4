package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is the serialization format of a model artifact.
type Format string

const (
	// FormatPickle is Python's generic object serialization (.pkl, .pickle).
	FormatPickle Format = "pickle"

	// FormatJoblib is joblib's format for objects holding large numeric arrays.
	FormatJoblib Format = "joblib"
)

// FormatFromPath selects the format from the artifact's file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pkl", ".pickle":
		return FormatPickle, nil
	case ".joblib":
		return FormatJoblib, nil
	default:
		return "", fmt.Errorf("%w: %q (expected .pkl, .pickle or .joblib)", ErrUnsupportedFormat, filepath.Base(path))
	}
}
