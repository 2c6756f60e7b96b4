package handler

import (
	"errors"
	"net/http"
	"unicode"
	"unicode/utf8"
)

// Error definitions for the request pipeline. Each one maps to a status code
// in StatusFor.
var (
	ErrModelLoad         = errors.New("failed to load model")
	ErrBodyParse         = errors.New("failed to parse request body as JSON")
	ErrMissingInput      = errors.New("failed to find an 'input' key in request body")
	ErrNoOutputRequested = errors.New("must either specify return_prediction: true or return_probabilities: true")
	ErrInvalidFlag       = errors.New("invalid request flag")
	ErrInference         = errors.New("inference failed")
	ErrShape             = errors.New("unexpected model output shape")
)

// InferenceError reports a failed model call.
type InferenceError struct {
	// Output is "prediction" or "probabilities".
	Output string
	Err    error
}

func (e *InferenceError) Error() string {
	return "failed to get model " + e.Output + ": " + e.Err.Error()
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrInference) hold for every InferenceError.
func (e *InferenceError) Is(target error) bool {
	return target == ErrInference
}

// StatusFor maps a pipeline error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrBodyParse),
		errors.Is(err, ErrMissingInput),
		errors.Is(err, ErrNoOutputRequested),
		errors.Is(err, ErrInvalidFlag):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage renders err for the response body. Error strings stay
// lowercase inside the program, the client sees a capitalized sentence.
func errorMessage(err error) string {
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}
