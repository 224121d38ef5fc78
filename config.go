package userstack

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Default configuration values.
const (
	// DefaultBaseURL is the production userstack edge API.
	DefaultBaseURL = "https://userstack.app/api/edge"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultShutdownTimeout bounds how long Shutdown waits for in-flight tracks
	// when the caller's context has no deadline.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultUserAgent is sent on every request.
	DefaultUserAgent = "userstack-go/1.0.0"

	// MaxTimeout is the maximum allowed request timeout.
	MaxTimeout = 5 * time.Minute
)

// Wire-level constants shared with the backend.
const (
	// ProjectKeyHeader carries the project key on every request.
	ProjectKeyHeader = "x-userstack-project-key"

	// TokenKey is the storage key under which the session token is persisted.
	TokenKey = "us-jwt"

	// FeatureApp is the feature label used for SDK-generated events.
	FeatureApp = "app"

	// EventSignin is emitted after every successful identify.
	EventSignin = "signin"

	// EventPageview is emitted on every navigation change.
	EventPageview = "pageview"
)

// Config holds the configuration for the userstack client.
type Config struct {
	// ProjectKey identifies the integrating application (required).
	ProjectKey string

	// BaseURL is the base URL of the userstack API.
	// Defaults to DefaultBaseURL.
	BaseURL string

	// HTTPClient is the HTTP client to use for requests.
	// If not set, a client with Timeout is created.
	HTTPClient *http.Client

	// Timeout is the request timeout. Defaults to 10 seconds.
	Timeout time.Duration

	// ShutdownTimeout is used by Shutdown when its context has no deadline.
	ShutdownTimeout time.Duration

	// Storage persists the session token. Defaults to a MemoryStorage.
	Storage Storage

	// UserAgent overrides the User-Agent header.
	UserAgent string

	// Debug enables debug logging to stderr when no logger is set.
	Debug bool

	// ErrorHandler receives background failures (track delivery, pageviews).
	// If nil, failures are only logged.
	ErrorHandler func(error)

	// Logger is a printf-style logger. StructuredLogger takes precedence.
	Logger Logger

	// StructuredLogger is used for structured SDK logging.
	StructuredLogger StructuredLogger

	// Metrics is used for SDK telemetry. If nil, no metrics are collected.
	Metrics Metrics

	// HTTPHooks are called before and after each HTTP request.
	HTTPHooks []HTTPHook
}

// String returns a string representation of the config with the project key masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{ProjectKey: %q, BaseURL: %q, Timeout: %v}",
		MaskCredential(c.ProjectKey),
		c.BaseURL,
		c.Timeout,
	)
}

// applyDefaults sets default values for unset configuration options.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")

	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}

	if c.Storage == nil {
		c.Storage = NewMemoryStorage()
	}

	if c.Debug && c.Logger == nil && c.StructuredLogger == nil {
		c.Logger = &defaultLogger{
			logger: log.New(os.Stderr, "userstack: ", log.LstdFlags),
		}
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
}

// validate checks that the configuration is valid.
func (c *Config) validate() error {
	if strings.TrimSpace(c.ProjectKey) == "" {
		return ErrMissingProjectKey
	}
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("userstack: invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: base URL must be http or https, got %q", ErrInvalidConfig, c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: base URL has no host: %q", ErrInvalidConfig, c.BaseURL)
	}

	if c.Timeout < 0 || c.Timeout > MaxTimeout {
		return fmt.Errorf("%w: timeout must be between 0 and %v, got %v", ErrInvalidConfig, MaxTimeout, c.Timeout)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: shutdown timeout cannot be negative", ErrInvalidConfig)
	}

	return nil
}

// structuredLogger returns the effective structured logger for the config.
func (c *Config) structuredLogger() StructuredLogger {
	if c.StructuredLogger != nil {
		return c.StructuredLogger
	}
	if c.Logger != nil {
		return WrapPrintfLogger(c.Logger)
	}
	return NopLogger{}
}
