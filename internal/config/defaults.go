package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/ekisa-team/skserve/internal/envvar"
)

const (
	// DefaultPython is the interpreter used to run the scikit-learn worker.
	DefaultPython = "python3"

	// DefaultReadyTimeout bounds how long the worker may take to load a model.
	DefaultReadyTimeout = 60 * time.Second

	// DefaultConfigFile is the config file looked up in DefaultConfigPath.
	DefaultConfigFile = "config.yaml"

	defaultHTTPPort = 8080
	defaultRegion   = "us-east-1"
)

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Version: "1",
		Bridge: BridgeConfig{
			Python:              DefaultPython,
			ReadyTimeoutSeconds: int(DefaultReadyTimeout / time.Second),
		},
		Storage: StorageConfig{
			Region: defaultRegion,
		},
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort(),
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join("logs", "skserve.log"),
		},
	}
}

// DefaultHTTPPort returns the HTTP port from the environment or the default.
func DefaultHTTPPort() int {
	if raw := os.Getenv(envvar.SkserveServerHTTPPort); raw != "" {
		if port, err := strconv.Atoi(raw); err == nil && port > 0 {
			return port
		}
	}
	return defaultHTTPPort
}

// DefaultConfigPath returns the default path for the skserve config directory.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "skserve", "config")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "skserve")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "skserve")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "skserve")
		}
		return filepath.Join(home, ".config", "skserve")
	}
}

// ResolvePath returns explicit when set, otherwise config.yaml in
// DefaultConfigPath if that file exists, otherwise an empty path so that
// Load falls back to the defaults.
func ResolvePath(explicit string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}

	candidate := filepath.Join(DefaultConfigPath(), DefaultConfigFile)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}
	return ""
}
