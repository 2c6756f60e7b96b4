package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/skserve/internal/envvar"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	t.Setenv(envvar.SkservePython, "")
	t.Setenv(envvar.AWSRegion, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPython, cfg.Bridge.Python)
	assert.Equal(t, DefaultReadyTimeout, cfg.Bridge.ReadyTimeout())
	assert.Equal(t, "us-east-1", cfg.Storage.Region)
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, `
version: "1"
model:
  path: s3://models/iris/svm.joblib
bridge:
  python: /opt/venv/bin/python
  ready_timeout_seconds: 5
storage:
  region: eu-west-1
  endpoint: http://localhost:9000
  use_path_style: true
log:
  level: debug
`)

	cfg, err := LoadAndValidate(path)
	require.NoError(t, err)
	assert.Equal(t, "s3://models/iris/svm.joblib", cfg.Model.Path)
	assert.Equal(t, "/opt/venv/bin/python", cfg.Bridge.Python)
	assert.Equal(t, 5*time.Second, cfg.Bridge.ReadyTimeout())
	assert.Equal(t, "eu-west-1", cfg.Storage.Region)
	assert.True(t, cfg.Storage.UsePathStyle)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched sections keep their defaults
	assert.Equal(t, DefaultHTTPPort(), cfg.Server.HTTPPort)
}

func TestLoadAndValidate_SchemaViolation(t *testing.T) {
	tests := map[string]string{
		"unknown key": "models: {}\n",
		"bad level":   "log:\n  level: loud\n",
		"bad port":    "server:\n  http_port: 70000\n",
		"empty path":  "model:\n  path: \"\"\n",
		"wrong type":  "bridge:\n  ready_timeout_seconds: soon\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadAndValidate(writeConfig(t, content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validation failed")
		})
	}
}

func TestLoadAndValidate_InvalidYAML(t *testing.T) {
	_, err := LoadAndValidate(writeConfig(t, "model: [unclosed\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid YAML")
}

func TestLoadAndValidate_MissingFile(t *testing.T) {
	_, err := LoadAndValidate(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(envvar.SkservePython, "/usr/bin/python3.12")
	t.Setenv(envvar.AWSRegion, "ap-south-1")
	t.Setenv(envvar.SkserveS3Endpoint, "http://minio:9000")
	t.Setenv(envvar.SkserveLogLevel, "warn")
	t.Setenv(envvar.SkserveServerHTTPPort, "9090")

	cfg := Default()
	ApplyEnv(cfg)

	assert.Equal(t, "/usr/bin/python3.12", cfg.Bridge.Python)
	assert.Equal(t, "ap-south-1", cfg.Storage.Region)
	assert.Equal(t, "http://minio:9000", cfg.Storage.Endpoint)
	assert.True(t, cfg.Storage.UsePathStyle)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.HTTPPort)
}

func TestModelLocation(t *testing.T) {
	cfg := Default()

	t.Setenv(envvar.SklearnModelPath, "")
	_, err := cfg.ModelLocation()
	assert.ErrorIs(t, err, ErrModelPathNotSet)

	cfg.Model.Path = "testdata/svm.joblib"
	loc, err := cfg.ModelLocation()
	require.NoError(t, err)
	assert.Equal(t, "testdata/svm.joblib", loc)

	t.Setenv(envvar.SklearnModelPath, "s3://bucket/mlp.pickle")
	loc, err = cfg.ModelLocation()
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/mlp.pickle", loc)
}

func TestModelLocation_ObjectStoreURLIsVerbatim(t *testing.T) {
	cfg := Default()
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Setenv(envvar.SklearnModelPath, "s3://bucket/~/models/svm.joblib ")
	loc, err := cfg.ModelLocation()
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/~/models/svm.joblib ", loc)

	t.Setenv(envvar.SklearnModelPath, "~/models/svm.joblib")
	loc, err = cfg.ModelLocation()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "models", "svm.joblib"), loc)
}

func TestResolvePath(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG_CONFIG_HOME is only honored on unix-like systems")
	}
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	assert.Equal(t, "custom.yaml", ResolvePath("custom.yaml"))
	assert.Equal(t, "", ResolvePath(""))

	dir := filepath.Join(xdg, "skserve")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte("version: \"1\"\n"), 0o644))

	assert.Equal(t, path, ResolvePath(""))
	assert.Equal(t, path, ResolvePath("  "))
}
