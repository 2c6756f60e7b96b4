package model

import "errors"

// Error definitions for the model package.
var (
	ErrUnsupportedFormat = errors.New("unsupported model format")
	ErrDeserialization   = errors.New("failed to deserialize model")
	ErrTextualBytes      = errors.New("invalid textual byte output")
)
