package backend

import "errors"

// Error definitions for the backend package.
var (
	ErrWorkerUnavailable = errors.New("inference worker unavailable")
	ErrInference         = errors.New("inference worker call failed")
	ErrProtocol          = errors.New("inference worker protocol failed")
)
