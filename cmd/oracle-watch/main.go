package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/StrathCole/oracle-watch/pkg/config"
	"github.com/StrathCole/oracle-watch/pkg/logging"
	"github.com/StrathCole/oracle-watch/pkg/version"
)

type rootFlags struct {
	configFile  string
	logLevel    string
	observerURL string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "oracle-watch",
		Short:         "Watch Terra oracle votes, price averages and validator events",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCommand(cmd.Context(), flags)
		},
	}
	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "config.yaml", "Path to configuration file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override logging.level")
	root.PersistentFlags().StringVar(&flags.observerURL, "observer-url", "", "Override observer.url")

	run := &cobra.Command{
		Use:   "run",
		Short: "Connect to the observer and run the pipeline (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCommand(cmd.Context(), flags)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "oracle-watch version %s\n", version.Version)
		},
	}

	root.AddCommand(run, versionCmd)
	return root
}

// loadConfig loads the file, applies flag overrides and validates the result.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.observerURL != "" {
		cfg.Observer.URL = flags.observerURL
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runCommand(parent context.Context, flags *rootFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logging.SetGlobal(logger)

	logger.Info("Starting oracle-watch", "version", version.Version, "chain_id", cfg.ChainID, "observer", cfg.Observer.URL)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("oracle-watch failed", "error", err)
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}
