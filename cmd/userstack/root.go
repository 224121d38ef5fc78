package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	userstack "github.com/jdziat/userstack-go"
	"github.com/jdziat/userstack-go/internal/cliconfig"
	"github.com/jdziat/userstack-go/pkg/redisstore"
)

// app carries state shared by every subcommand.
type app struct {
	out    io.Writer
	logger *logrus.Logger

	configPath string
	projectKey string
	baseURL    string
	backend    string
	logLevel   string

	cfg    *cliconfig.Config
	client *userstack.Client
	closer io.Closer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out, logger: logrus.New()}
	a.logger.SetOutput(os.Stderr)

	root := &cobra.Command{
		Use:               "userstack",
		Short:             "Identify users and report feature usage to userstack",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default: nearest "+cliconfig.FileName+")")
	flags.StringVar(&a.projectKey, "project-key", "", "project key (overrides config and "+userstack.EnvProjectKey+")")
	flags.StringVar(&a.baseURL, "base-url", "", "API base URL")
	flags.StringVar(&a.backend, "storage", "", "session storage backend: file, memory or redis")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		a.identifyCmd(),
		a.trackCmd(),
		a.pageviewCmd(),
		a.forgetCmd(),
		a.whoamiCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Skip the client setup of the root command.
		PersistentPreRun:  func(*cobra.Command, []string) {},
		PersistentPostRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "userstack version %s (%s)\n", version, userstack.DefaultUserAgent)
		},
	}
}

// setup loads configuration, configures logging and creates the client.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cliconfig.IsDisabled() {
		a.logger.Debug("userstack CLI disabled by USERSTACK_DISABLED")
		return nil
	}

	cfg, err := cliconfig.Load(a.configPath)
	if err != nil {
		return err
	}
	a.applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if err := a.setupLogging(); err != nil {
		return err
	}

	storage, err := a.openStorage(cmd.Context())
	if err != nil {
		return err
	}

	opts := append(cfg.ClientOptions(),
		userstack.WithStorage(storage),
		userstack.WithStructuredLogger(userstack.NewLogrusAdapter(a.logger.WithField("component", "userstack"))),
		userstack.WithHTTPHooks(userstack.RequestIDHook()),
		userstack.WithErrorHandler(func(err error) {
			a.logger.WithError(err).Error("background delivery failed")
		}),
	)
	client, err := userstack.New(cfg.ProjectKey, opts...)
	if err != nil {
		return err
	}
	a.client = client
	return nil
}

func (a *app) applyFlags(cfg *cliconfig.Config) {
	if a.projectKey != "" {
		cfg.ProjectKey = a.projectKey
	}
	if a.baseURL != "" {
		cfg.BaseURL = a.baseURL
	}
	if a.backend != "" {
		cfg.Storage.Backend = cliconfig.Backend(a.backend)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
}

func (a *app) setupLogging() error {
	level, err := logrus.ParseLevel(a.cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", a.cfg.Log.Level, err)
	}
	a.logger.SetLevel(level)
	if a.cfg.Log.Format == "json" {
		a.logger.SetFormatter(&logrus.JSONFormatter{})
	}
	a.logger.WithFields(logrus.Fields{
		"Version":  version,
		"Storage":  a.cfg.Storage.Backend,
		"Endpoint": a.cfg.BaseURL,
	}).Debug("starting")
	return nil
}

func (a *app) openStorage(ctx context.Context) (userstack.Storage, error) {
	switch a.cfg.Storage.Backend {
	case cliconfig.BackendMemory:
		return userstack.NewMemoryStorage(), nil
	case cliconfig.BackendRedis:
		rcfg := a.cfg.RedisConfig()
		rdb, err := redisstore.Connect(ctx, rcfg)
		if err != nil {
			return nil, err
		}
		store := redisstore.NewFromConfig(rdb, rcfg)
		a.closer = store
		return store, nil
	default:
		return userstack.NewFileStorage(a.cfg.Storage.Path)
	}
}

// teardown drains in-flight events before the process exits.
func (a *app) teardown(ctx context.Context) error {
	if a.client == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := a.client.Shutdown(ctx)
	if a.closer != nil {
		a.closer.Close()
	}
	return err
}

// ready reports whether the client was created; false means the CLI is
// disabled and the command should do nothing.
func (a *app) ready() bool {
	return a.client != nil
}

// parseData decodes a --data flag value. Empty means no data.
func parseData(raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("--data must be valid JSON: %w", err)
	}
	return v, nil
}
