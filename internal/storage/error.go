package storage

import "errors"

// Error definitions for the storage package.
var (
	ErrNotFound        = errors.New("artifact not found")
	ErrInvalidLocation = errors.New("invalid location")
	ErrTransport       = errors.New("object storage request failed")
)
