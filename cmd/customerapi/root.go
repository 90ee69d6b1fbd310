package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Strob0t/customerapi/internal/config"
	"github.com/Strob0t/customerapi/internal/logger"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath string
}

// newRootCommand creates the root command with all subcommands attached.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "customerapi",
		Short:         "Customers HTTP API backed by a JSON file store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", config.DefaultConfigFile,
		"path to the YAML config file (optional)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newResetCommand(opts))
	cmd.AddCommand(newEventsCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// bootstrap loads configuration and installs the default logger. The
// returned cleanup flushes the logger.
func bootstrap(opts *rootOptions) (*config.Config, func(), error) {
	cfg, err := config.LoadFrom(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	log, closer := logger.New(cfg.Logging)
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"store_path", cfg.Store.Path,
		"collection", cfg.Store.Collection,
		"log_level", cfg.Logging.Level,
		"cache_enabled", cfg.Cache.Enabled,
		"nats_enabled", cfg.NATS.URL != "",
		"otel_enabled", cfg.OTel.Enabled,
	)
	return cfg, closer.Close, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
