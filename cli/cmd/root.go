package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"strato/config"
	"strato/gateway"
	"strato/logging"
	"strato/sky"
	"strato/state"
)

var (
	cfgPath string
	cfg     *config.Config
	logger  *zap.Logger
	runner  gateway.Runner
	skyc    *sky.Client
)

var rootCmd = &cobra.Command{
	Use:   "strato",
	Short: "Fleet lifecycle controller for ephemeral spot deployments",
	Long: `Strato launches, watches, and destroys short-lived spot instance fleets.

Deployments run through the sky orchestrator in a local container; the
cleanup side talks to the cloud directly, region by region, in parallel.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger, err = logging.New(cfg.LogFile)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		runner = gateway.NewExecRunner(logger)
		skyc = sky.New(runner, cfg.Container.Name, cfg.Container.Image, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Config file path (default: built-in defaults)")
}

func openStore() (*state.Store, error) {
	s, err := state.Open(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("open state at %s: %w", cfg.StateDir, err)
	}
	return s, nil
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	for len(s) < n {
		s += " "
	}
	return s
}
