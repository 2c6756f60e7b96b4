package storage

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Scheme identifies where an artifact lives.
type Scheme string

const (
	SchemeLocal Scheme = "file"
	SchemeS3    Scheme = "s3"
)

const s3Prefix = "s3://"

// Location is a parsed model location.
//
// For s3 locations the grammar is s3://bucket/path[?query]. Fragments are not
// recognised, so '#' stays part of the key. Key never starts with '/' and
// Filename is the last segment of path, query excluded.
type Location struct {
	raw      string
	Scheme   Scheme
	Bucket   string
	Key      string
	Filename string
}

// Parse parses raw into a Location. Anything without the s3:// prefix is a
// local filesystem path.
func Parse(raw string) Location {
	if !strings.HasPrefix(raw, s3Prefix) {
		return Location{
			raw:      raw,
			Scheme:   SchemeLocal,
			Filename: filepath.Base(raw),
		}
	}

	rest := raw[len(s3Prefix):]

	bucket := rest
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		bucket, rest = rest[:i], rest[i:]
	} else {
		rest = ""
	}

	path, query, _ := strings.Cut(rest, "?")

	key := strings.TrimLeft(path, "/")
	if query != "" {
		key += "?" + query
	}

	return Location{
		raw:      raw,
		Scheme:   SchemeS3,
		Bucket:   bucket,
		Key:      key,
		Filename: path[strings.LastIndex(path, "/")+1:],
	}
}

// URL returns the location exactly as it was given.
func (l Location) URL() string {
	return l.raw
}

// String implements fmt.Stringer.
func (l Location) String() string {
	return l.raw
}

// IsRemote reports whether the artifact must be downloaded first.
func (l Location) IsRemote() bool {
	return l.Scheme == SchemeS3
}

// Validate checks that the location has every component it needs.
func (l Location) Validate() error {
	switch l.Scheme {
	case SchemeLocal:
		if strings.TrimSpace(l.raw) == "" {
			return fmt.Errorf("%w: empty path", ErrInvalidLocation)
		}
	case SchemeS3:
		if l.Bucket == "" {
			return fmt.Errorf("%w: %q has no bucket", ErrInvalidLocation, l.raw)
		}
		if l.Key == "" {
			return fmt.Errorf("%w: %q has no key", ErrInvalidLocation, l.raw)
		}
		if l.Filename == "" {
			return fmt.Errorf("%w: %q has no filename", ErrInvalidLocation, l.raw)
		}
	default:
		return fmt.Errorf("%w: unknown scheme %q", ErrInvalidLocation, l.Scheme)
	}

	return nil
}
