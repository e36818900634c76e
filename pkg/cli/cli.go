// Package cli assembles the service command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/chirpnet/chirp/pkg/config"
	"github.com/chirpnet/chirp/pkg/observability/logger"
	"github.com/chirpnet/chirp/pkg/version"
)

// Options defines the service-specific pieces of the command tree.
type Options struct {
	Name        string
	Description string
	ConfigPath  string
	EnvPrefix   string

	// RunServer starts the service and blocks until ctx is cancelled.
	RunServer func(ctx context.Context, cfg *config.Config, log logger.Logger) error
}

// NewRootCommand creates the root command with serve and version
// subcommands.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = "CHIRP"
	}

	rootCmd := &cobra.Command{
		Use:           opts.Name,
		Short:         opts.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var cfgPath string
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config-file", "c", opts.ConfigPath, "config file path")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Current(opts.Name)
			fmt.Printf("Service:    %s\n", info.Service)
			fmt.Printf("Version:    %s\n", info.Version)
			fmt.Printf("Commit:     %s\n", info.Commit)
			fmt.Printf("Build Time: %s\n", info.BuildTime)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfigAndLogger(cfgPath, opts.EnvPrefix)
			if err != nil {
				return err
			}
			if err := applyFlagOverrides(cmd.Flags(), cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info("starting service",
				"service", cfg.Service.Name,
				"environment", cfg.Service.Environment,
				"version", version.Current(cfg.Service.Name).Version)
			return opts.RunServer(ctx, cfg, log)
		},
	}
	serveCmd.Flags().Int("port", 0, "override the configured HTTP port")
	rootCmd.AddCommand(serveCmd)

	return rootCmd
}

// applyFlagOverrides layers explicit command line flags on top of the
// loaded configuration, then re-validates it.
func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed("port") {
		port, err := flags.GetInt("port")
		if err != nil {
			return err
		}
		cfg.HTTP.Port = port
	}
	return cfg.Validate()
}

// loadConfigAndLogger loads .env, the service configuration, and builds
// the structured logger from it.
func loadConfigAndLogger(cfgPath, envPrefix string) (*config.Config, logger.Logger, error) {
	// A missing .env file is not an error; real deployments use the
	// process environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.NewViperLoader(cfgPath, envPrefix).Load()
	if err != nil {
		return nil, nil, err
	}

	level, err := logger.ParseLogLevel(cfg.Observability.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	format, err := logger.ParseLogFormat(cfg.Observability.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.NewZapLogger(logger.Config{Level: level, Format: format})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
