package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.yaml.in/yaml/v3"

	"github.com/ekisa-team/skserve/internal/envvar"
)

//go:embed schema.json
var schemaSource string

const schemaURL = "skserve.v1.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString(schemaURL, schemaSource)
	})
	return schema, schemaErr
}

// Load returns the defaults when path is empty, otherwise the validated
// contents of the file. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		cfg := Default()
		ApplyEnv(cfg)
		return cfg, nil
	}

	cfg, err := LoadAndValidate(path)
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg)

	return cfg, nil
}

// LoadAndValidate loads and validates the configuration file at path.
func LoadAndValidate(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read config: %w", err)
	}

	return Parse(data)
}

// Parse validates raw YAML against the schema and decodes it over the defaults.
func Parse(data []byte) (*Config, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: invalid YAML: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	s, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("config: failed to compile schema: %w", err)
	}

	if err := s.Validate(raw); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal into Config struct: %w", err)
	}

	return config, nil
}

// ApplyEnv overrides config values with the environment.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(envvar.SkservePython); v != "" {
		cfg.Bridge.Python = v
	}
	if v := os.Getenv(envvar.AWSRegion); v != "" {
		cfg.Storage.Region = v
	}
	if v := os.Getenv(envvar.SkserveS3Endpoint); v != "" {
		cfg.Storage.Endpoint = v
		cfg.Storage.UsePathStyle = true
	}
	if v := os.Getenv(envvar.SkserveLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if os.Getenv(envvar.SkserveServerHTTPPort) != "" {
		cfg.Server.HTTPPort = DefaultHTTPPort()
	}
}
