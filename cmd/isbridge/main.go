// Package main implements the isbridge command: the Infusionsoft token
// gateway server and the CLI for managing its credentials and token.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/holtech/isbridge/internal/bridge"
	"github.com/holtech/isbridge/internal/logging"
	"github.com/holtech/isbridge/pkg/auth/storage"
	"github.com/holtech/isbridge/pkg/config"
	"github.com/holtech/isbridge/pkg/hooks"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Version is set at build time
	version = "0.1.0"
	// BuildDate is set at build time
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "isbridge",
		Short: "Infusionsoft OAuth token gateway",
		Long: `isbridge keeps an Infusionsoft OAuth2 token authorized.

It stores the application credentials and the current token, exchanges
authorization codes delivered to the settings page, refreshes stale tokens
and serves contact lookups to the rest of the site.`,
		Version:      fmt.Sprintf("%s (built %s)", version, buildDate),
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file (default $XDG_CONFIG_HOME/isbridge/config.yaml)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("environment", "", "environment (development, production)")
	flags.String("storage", "", "option storage backend (memory, file, keyring, bolt, redis)")
	flags.String("storage-path", "", "path for file or bolt storage")
	flags.String("redis-url", "", "redis URL for redis storage")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newAuthCmd())
	cmd.AddCommand(newCredentialsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newContactsCmd())

	return cmd
}

// app is the runtime shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	bus    *hooks.Bus
	bridge *bridge.Bridge
}

// loadConfig resolves the configuration for cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp loads the configuration and opens the store. When validate is set
// the whole configuration must pass validation. subscribe runs against the
// bus before the first Manager is built.
func newApp(cmd *cobra.Command, validate bool, subscribe ...func(*hooks.Bus)) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := storage.NewFactory().Create(ctx, &cfg.Storage, config.AppName)
	if err != nil {
		return nil, fmt.Errorf("failed to open option storage: %w", err)
	}

	bus := hooks.New()
	for _, fn := range subscribe {
		fn(bus)
	}

	br, err := bridge.New(ctx, cfg, store, bus, bridge.WithLogger(logger))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, bus: bus, bridge: br}, nil
}

// Close releases the store and flushes the logger.
func (a *app) Close() {
	if err := a.bridge.Close(); err != nil {
		a.logger.Warn("failed to close option storage", zap.Error(err))
	}
	_ = a.logger.Sync()
}
