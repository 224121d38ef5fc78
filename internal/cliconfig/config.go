// Package cliconfig provides configuration loading for the userstack CLI.
package cliconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	userstack "github.com/jdziat/userstack-go"
	"github.com/jdziat/userstack-go/pkg/redisstore"
)

// Backend selects where the CLI keeps the session token.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
)

// FileName is the per-project configuration file the CLI looks for.
const FileName = ".userstack.yaml"

// Config represents the complete CLI configuration.
type Config struct {
	ProjectKey string        `yaml:"project_key"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	Storage    StorageConfig `yaml:"storage"`
	Log        LogConfig     `yaml:"log"`
}

// StorageConfig configures the session token storage.
type StorageConfig struct {
	Backend  Backend `yaml:"backend"`
	Path     string  `yaml:"path"`
	RedisURL string  `yaml:"redis_url"`
	Prefix   string  `yaml:"prefix"`

	// Redis connection behaviour; see redisstore.Connect.
	RedisRetryAttempts  int           `yaml:"redis_retry_attempts"`
	RedisRetryInterval  time.Duration `yaml:"redis_retry_interval"`
	RedisConnectTimeout time.Duration `yaml:"redis_connect_timeout"`
}

// LogConfig configures CLI logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: userstack.DefaultBaseURL,
		Timeout: userstack.DefaultTimeout,
		Storage: StorageConfig{
			Backend: BackendFile,
			Path:    DefaultSessionPath(),
			Prefix:  redisstore.DefaultPrefix,

			RedisRetryAttempts:  3,
			RedisRetryInterval:  time.Second,
			RedisConnectTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// DefaultSessionPath returns the session file under the user's config
// directory, or a file in the working directory when that is unknown.
func DefaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "userstack-session.json"
	}
	return filepath.Join(dir, "userstack", "session.json")
}

// Load reads configuration from path, or from the nearest .userstack.yaml
// when path is empty, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	expandEnvVars(cfg)

	return cfg, nil
}

// findConfigFile searches for the configuration file from the working
// directory upwards.
func findConfigFile() string {
	candidates := []string{FileName, ".userstack.yml"}

	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		for _, name := range candidates {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(userstack.EnvProjectKey); v != "" {
		cfg.ProjectKey = v
	}
	if v := os.Getenv(userstack.EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(userstack.EnvTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v := os.Getenv("USERSTACK_REDIS_URL"); v != "" {
		cfg.Storage.RedisURL = v
		if cfg.Storage.Backend == BackendFile {
			cfg.Storage.Backend = BackendRedis
		}
	}
	if v := os.Getenv("USERSTACK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

var envRef = regexp.MustCompile(`\$\{?([A-Za-z_][A-Za-z0-9_]*)\}?`)

// expandEnvVars expands ${VAR} references in secrets and paths.
func expandEnvVars(cfg *Config) {
	cfg.ProjectKey = expandEnvVar(cfg.ProjectKey)
	cfg.Storage.RedisURL = expandEnvVar(cfg.Storage.RedisURL)
	cfg.Storage.Path = expandEnvVar(cfg.Storage.Path)
}

func expandEnvVar(s string) string {
	if s == "" {
		return s
	}
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(match, "${")
		name = strings.TrimPrefix(name, "$")
		name = strings.TrimSuffix(name, "}")
		return os.Getenv(name)
	})
}

// Validate checks the settings the CLI cannot work without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ProjectKey) == "" {
		return fmt.Errorf("%w: set project_key in %s or %s", userstack.ErrMissingProjectKey, FileName, userstack.EnvProjectKey)
	}
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the file backend")
		}
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("storage.redis_url is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// ClientOptions converts the configuration into client options. Storage is
// not included; the caller builds it from c.Storage.
func (c *Config) ClientOptions() []userstack.ConfigOption {
	return []userstack.ConfigOption{
		userstack.WithBaseURL(c.BaseURL),
		userstack.WithTimeout(c.Timeout),
	}
}

// IsDisabled returns true if the CLI is globally disabled, in which case
// commands exit without contacting the backend.
func IsDisabled() bool {
	v := os.Getenv("USERSTACK_DISABLED")
	return v == "true" || v == "1"
}

// RedisConfig returns the redisstore settings for the redis backend.
func (c *Config) RedisConfig() redisstore.Config {
	return redisstore.Config{
		ConnectionURL:  c.Storage.RedisURL,
		Prefix:         c.Storage.Prefix,
		RetryAttempts:  c.Storage.RedisRetryAttempts,
		RetryInterval:  c.Storage.RedisRetryInterval,
		ConnectTimeout: c.Storage.RedisConnectTimeout,
	}
}
