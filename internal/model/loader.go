package model

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ekisa-team/skserve/internal/storage"
)

// Opener deserializes a validated local artifact into a Model. The file at
// path only exists for the duration of the call.
type Opener interface {
	Open(ctx context.Context, format Format, path string) (Model, error)
}

// Resolver makes a location available as a local file for the duration of fn.
type Resolver interface {
	Open(ctx context.Context, loc storage.Location, fn func(path string) error) error
}

// LocationFunc returns the configured model location.
type LocationFunc func() (string, error)

// Loader resolves, validates and opens the configured artifact.
type Loader struct {
	location LocationFunc
	resolver Resolver
	opener   Opener
}

// NewLoader creates a new Loader.
func NewLoader(location LocationFunc, resolver Resolver, opener Opener) *Loader {
	return &Loader{
		location: location,
		resolver: resolver,
		opener:   opener,
	}
}

// Load reads the location, selects the format from the filename, fetches the
// artifact and opens it.
func (l *Loader) Load(ctx context.Context) (Model, error) {
	raw, err := l.location()
	if err != nil {
		return nil, err
	}

	loc := storage.Parse(raw)
	format, err := FormatFromPath(loc.Filename)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	slog.Info("Loading model", "location", loc.URL(), "scheme", loc.Scheme, "format", format)

	var m Model
	err = l.resolver.Open(ctx, loc, func(path string) error {
		if err := ValidateFile(format, path); err != nil {
			return err
		}

		opened, err := l.opener.Open(ctx, format, path)
		if err != nil {
			return err
		}
		m = opened
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loc.URL(), err)
	}

	slog.Info("Model loaded", "location", loc.URL(), "format", format, "classes", len(m.Classes()), "elapsed", time.Since(start))
	return m, nil
}
