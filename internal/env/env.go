package env

import (
	"os"
	"strings"

	"github.com/ekisa-team/skserve/internal/envvar"
)

// Environment is the runtime environment the process runs in.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
	Test        Environment = "test"
)

// FromEnv reads the environment from SKSERVE_ENV. Unknown or empty values
// resolve to Production, which is what a Lambda deployment expects.
func FromEnv() Environment {
	return Parse(os.Getenv(envvar.SkserveEnv))
}

// Parse converts a raw string into an Environment.
func Parse(raw string) Environment {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "dev", "development", "local":
		return Development
	case "test":
		return Test
	default:
		return Production
	}
}

// IsDevelopment reports whether e is the development environment.
func (e Environment) IsDevelopment() bool {
	return e == Development
}
