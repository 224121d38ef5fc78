package userstack

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Environment variable names for configuration.
const (
	// EnvProjectKey is the environment variable for the project key.
	EnvProjectKey = "USERSTACK_PROJECT_KEY"
	// EnvBaseURL is the environment variable for the API base URL.
	EnvBaseURL = "USERSTACK_BASE_URL"
	// EnvTimeout is the environment variable for the request timeout (e.g. "5s").
	EnvTimeout = "USERSTACK_TIMEOUT"
	// EnvDebug is the environment variable to enable debug mode.
	EnvDebug = "USERSTACK_DEBUG"
)

// EnvConfig is the subset of Config that can be read from the environment.
type EnvConfig struct {
	ProjectKey string        `env:"USERSTACK_PROJECT_KEY"`
	BaseURL    string        `env:"USERSTACK_BASE_URL" envDefault:"https://userstack.app/api/edge"`
	Timeout    time.Duration `env:"USERSTACK_TIMEOUT" envDefault:"10s"`
	Debug      bool          `env:"USERSTACK_DEBUG"`
}

// LoadEnvConfig reads EnvConfig from the process environment. Files passed in
// are loaded with godotenv first; when none are given, ".env" is tried and a
// missing file is ignored. Variables already set in the environment win.
func LoadEnvConfig(files ...string) (EnvConfig, error) {
	if len(files) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(files...); err != nil {
		return EnvConfig{}, fmt.Errorf("userstack: failed to load env files: %w", err)
	}

	cfg, err := env.ParseAs[EnvConfig]()
	if err != nil {
		return EnvConfig{}, fmt.Errorf("userstack: failed to parse environment: %w", err)
	}
	if strings.TrimSpace(cfg.ProjectKey) == "" {
		return EnvConfig{}, fmt.Errorf("%w: %s environment variable is required", ErrMissingProjectKey, EnvProjectKey)
	}
	return cfg, nil
}

// Options converts the environment config into client options.
func (e EnvConfig) Options() []ConfigOption {
	return []ConfigOption{
		WithBaseURL(e.BaseURL),
		WithTimeout(e.Timeout),
		WithDebug(e.Debug),
	}
}

// NewFromEnv creates a new client using environment variables for configuration.
// It reads USERSTACK_PROJECT_KEY and optionally USERSTACK_BASE_URL,
// USERSTACK_TIMEOUT and USERSTACK_DEBUG. A .env file in the working directory
// is honoured when present.
//
// Example:
//
//	client, err := userstack.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Shutdown(context.Background())
func NewFromEnv(opts ...ConfigOption) (*Client, error) {
	cfg, err := LoadEnvConfig()
	if err != nil {
		return nil, err
	}

	// Explicit options take precedence over the environment.
	allOpts := append(cfg.Options(), opts...)

	return New(cfg.ProjectKey, allOpts...)
}
