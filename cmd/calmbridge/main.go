// Command calmbridge runs the breathing coach: the HTTP and gRPC services,
// the terminal coach, one-shot narration, replay and session inspection.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/calmbridge/internal/config"
	"github.com/danielpatrickdp/calmbridge/internal/observability"
)

// cli carries what the persistent pre-run builds for every subcommand.
type cli struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "calmbridge",
		Short: "Breathing coach for children during clinical procedures",
		Long: `calmbridge maps a calmness reading to an HRV proxy, a clinician
traffic light and a calming script built around the child's chosen anchor.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			if c.verbose {
				cfg.Logging.Level = "debug"
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.cfg = cfg
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", os.Getenv(config.EnvPrefix+"CONFIG"), "path to YAML config")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newServeCmd(c),
		newCoachCmd(c),
		newNarrateCmd(c),
		newReplayCmd(c),
		newInspectCmd(c),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
