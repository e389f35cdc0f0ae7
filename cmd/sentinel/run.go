package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sentinel-hq/sentinel/pkg/cli"
	"sentinel-hq/sentinel/pkg/config"
	"sentinel-hq/sentinel/pkg/server"
	"sentinel-hq/sentinel/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watchConfig   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Sentinel gateway",
	Long: `Start the Sentinel gateway with the specified configuration.

The gateway listens on the configured address and forwards chat completion
requests through the rate limiter, content shield, response cache, and
provider router.

Examples:
  # Start with default config
  sentinel run

  # Start with custom config
  sentinel run --config /etc/sentinel/config.yaml

  # Override listen address
  sentinel run --listen 0.0.0.0:8080

  # Validate config without starting
  sentinel run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the gateway")
	runCmd.Flags().BoolVar(&runFlags.watchConfig, "watch-config", false, "reload validated config on file changes")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if runFlags.listenAddress != "" {
		cfg.Gateway.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:           cfg.Telemetry.Logging.Level,
		Format:          cfg.Telemetry.Logging.Format,
		RedactSensitive: cfg.Telemetry.Logging.RedactPII == nil || *cfg.Telemetry.Logging.RedactPII,
		Writer:          os.Stdout,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("configuration valid")
		return nil
	}

	printBanner(cfg)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	ctx := cli.SetupSignalHandler()

	if runFlags.watchConfig {
		watcher := config.NewWatcher(cfgFile, logger)
		go func() {
			if err := watcher.Watch(ctx, func(next *config.Config) {
				// Full component rewiring needs a restart; the pieces that
				// can change live are applied in place.
				config.SetConfig(next)
				logger.Info("configuration reloaded")
			}); err != nil {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

func printBanner(cfg *config.Config) {
	fmt.Printf("Sentinel %s\n", Version)
	fmt.Printf("  listen:    %s\n", cfg.Gateway.ListenAddress)
	fmt.Printf("  store:     %s\n", cfg.Store.Backend)
	fmt.Printf("  providers: %d configured\n", len(cfg.Providers))
	fmt.Println()
}
