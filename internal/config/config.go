package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/ekisa-team/skserve/internal/envvar"
	"github.com/ekisa-team/skserve/internal/storage"
	"github.com/ekisa-team/skserve/internal/xfs"
)

// ErrModelPathNotSet is returned when no model location is configured.
var ErrModelPathNotSet = errors.New("model path is not configured (set " + envvar.SklearnModelPath + " or model.path)")

// Config holds the main configuration for the application.
type Config struct {
	Version string        `json:"version"           yaml:"version"`
	Model   ModelConfig   `json:"model,omitempty"   yaml:"model,omitempty"`
	Bridge  BridgeConfig  `json:"bridge,omitempty"  yaml:"bridge,omitempty"`
	Storage StorageConfig `json:"storage,omitempty" yaml:"storage,omitempty"`
	Server  ServerConfig  `json:"server,omitempty"  yaml:"server,omitempty"`
	Log     LogConfig     `json:"log,omitempty"     yaml:"log,omitempty"`
}

// ModelConfig holds the location of the model artifact.
type ModelConfig struct {
	// Path is a local filesystem path or an s3://bucket/key URL.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// BridgeConfig holds configuration for the scikit-learn worker process.
type BridgeConfig struct {
	Python              string `json:"python,omitempty"                yaml:"python,omitempty"`
	ReadyTimeoutSeconds int    `json:"ready_timeout_seconds,omitempty" yaml:"ready_timeout_seconds,omitempty"`
}

// StorageConfig holds configuration for object storage access.
type StorageConfig struct {
	Region       string `json:"region,omitempty"         yaml:"region,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"       yaml:"endpoint,omitempty"`
	UsePathStyle bool   `json:"use_path_style,omitempty" yaml:"use_path_style,omitempty"`
	TempDir      string `json:"temp_dir,omitempty"       yaml:"temp_dir,omitempty"`
}

// ServerConfig holds configuration for the local HTTP server.
type ServerConfig struct {
	HTTPPort int `json:"http_port,omitempty" yaml:"http_port,omitempty"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `json:"level,omitempty"   yaml:"level,omitempty"`
	File   string `json:"file,omitempty"    yaml:"file,omitempty"`
	ToFile bool   `json:"to_file,omitempty" yaml:"to_file,omitempty"`
}

// ModelLocation returns the configured model location. The environment
// variable is consulted on every call and takes precedence over the file.
// Object store URLs are returned verbatim; local paths get tilde expansion.
func (c *Config) ModelLocation() (string, error) {
	raw := os.Getenv(envvar.SklearnModelPath)
	if strings.TrimSpace(raw) == "" {
		raw = c.Model.Path
	}
	if strings.TrimSpace(raw) == "" {
		return "", ErrModelPathNotSet
	}

	if storage.Parse(raw).IsRemote() {
		return raw, nil
	}
	return xfs.ExpandTilde(raw), nil
}

// ReadyTimeout returns how long the worker may take to load the model.
func (b BridgeConfig) ReadyTimeout() time.Duration {
	if b.ReadyTimeoutSeconds <= 0 {
		return DefaultReadyTimeout
	}
	return time.Duration(b.ReadyTimeoutSeconds) * time.Second
}
