package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/quill"
	"github.com/aretw0/quill/internal/config"
	"github.com/aretw0/quill/pkg/core"
)

// flushGrace is added to the request timeout when draining on exit.
const flushGrace = 5 * time.Second

var (
	verbose    bool
	configPath string
	adapter    string
	endpoint   string
	apiKey     string

	cfg config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "A note client with optimistic updates and live sync",
	Long: `quill keeps a list of notes in sync with a hosted GraphQL note service.
Local changes are applied at once and pushed in the background; notes created
by other clients arrive over a live subscription.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlags(cmd, &loaded)
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		level := cfg.Level()
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/quill/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&adapter, "adapter", "", "Remote adapter: graphql or memory")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "GraphQL endpoint URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for the GraphQL service")
}

// applyFlags lets explicit flags win over file and environment values.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("adapter") {
		c.Adapter = adapter
	}
	if flags.Changed("endpoint") {
		c.Endpoint = endpoint
	}
	if flags.Changed("api-key") {
		c.APIKey = apiKey
	}
}

// storeOptions translates the loaded config into store options.
func storeOptions(extra ...quill.Option) []quill.Option {
	opts := []quill.Option{
		quill.WithAdapter(cfg.Adapter),
		quill.WithAPIKey(cfg.APIKey),
		quill.WithRealtimeEndpoint(cfg.RealtimeEndpoint),
		quill.WithTimeout(cfg.Timeout),
		quill.WithEventBuffer(cfg.EventBuffer),
		quill.WithHideCompleted(cfg.HideCompleted),
		quill.WithLogger(slog.Default()),
	}
	return append(opts, extra...)
}

// openStore creates a store from the config and runs the initial load.
func openStore(ctx context.Context, extra ...quill.Option) (*core.Store, error) {
	store, err := quill.New(cfg.Endpoint, storeOptions(extra...)...)
	if err != nil {
		return nil, fmt.Errorf("initializing quill: %w", err)
	}
	if err := store.InitialLoad(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	return store, nil
}

// closeStore waits for in-flight mutations before the process exits.
func closeStore(store *core.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout+flushGrace)
	defer cancel()
	if err := store.Close(ctx); err != nil {
		slog.Warn("pending mutations not flushed", "error", err)
	}
}
