// Command neotraverse runs the sample traversals against a Neo4j server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/saulfrancisco-ruizacevedo/go-neotraverse"
	"github.com/saulfrancisco-ruizacevedo/go-neotraverse/examples/models"
)

var (
	configPath  string
	envFile     string
	logLevel    string
	jsonOutput  bool
	metricsAddr string
	printTraces bool
)

var rootCmd = &cobra.Command{
	Use:   "neotraverse",
	Short: "Run typed graph traversals against Neo4j",
	Long: `Runs the sample traversals of the people/software graph.

Connection settings come from --config (YAML), a .env file and the
NEO4J_URI, NEO4J_USERNAME, NEO4J_PASSWORD and NEO4J_DATABASE variables.

Examples:
  neotraverse create-graph
  neotraverse who-knows "Marko"
  neotraverse older-than --age 30
  neotraverse report --json`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Env file to load when present")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	rootCmd.PersistentFlags().BoolVar(&printTraces, "traces", false, "Print traces to stderr")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// session is what every command needs to talk to the server.
type session struct {
	client   *neotraverse.Client
	logger   *slog.Logger
	shutdown func(context.Context) error
	executor *neotraverse.Neo4jExecutor
}

func (s *session) Close(ctx context.Context) {
	if err := s.executor.Close(ctx); err != nil {
		s.logger.Warn("could not close driver", "error", err)
	}
	if err := s.shutdown(ctx); err != nil {
		s.logger.Warn("could not flush telemetry", "error", err)
	}
}

func openSession(ctx context.Context) (*session, error) {
	logger, err := newLogger(logLevel)
	if err != nil {
		return nil, err
	}

	var envFiles []string
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			envFiles = append(envFiles, envFile)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	cfg, err := neotraverse.LoadConfig(configPath, envFiles...)
	if err != nil {
		return nil, err
	}

	shutdown, err := setupTelemetry(logger, metricsAddr, printTraces)
	if err != nil {
		return nil, err
	}

	executor, err := neotraverse.NewNeo4jExecutor(cfg)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	if err := executor.Verify(ctx); err != nil {
		_ = executor.Close(ctx)
		_ = shutdown(ctx)
		return nil, fmt.Errorf("could not reach %s: %w", cfg.URI, err)
	}
	logger.Debug("connected", "uri", cfg.URI, "database", cfg.Database)

	model, err := models.NewModel()
	if err != nil {
		_ = executor.Close(ctx)
		_ = shutdown(ctx)
		return nil, err
	}
	return &session{
		client:   neotraverse.NewClient(executor, model, neotraverse.WithLogger(logger)),
		logger:   logger,
		shutdown: shutdown,
		executor: executor,
	}, nil
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	// Piped or collected output gets machine readable logs.
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}

// withSession wraps a command body with session setup and teardown.
func withSession(run func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close(context.WithoutCancel(ctx))
		return run(cmd, args, s)
	}
}
