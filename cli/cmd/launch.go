package cmd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"strato/bundle"
	"strato/cli/style"
	"strato/fleet"
	"strato/monitor"
)

var (
	launchFollow bool
	launchBundle string
)

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Start a cluster deployment",
	Long: `Check prerequisites and start the deployment through the orchestrator.
The launch runs in the background by default; --follow watches it to
completion and records the resulting fleet in local state.`,
	RunE: runLaunch,
}

func init() {
	launchCmd.Flags().BoolVar(&launchFollow, "follow", false, "Watch the deployment to completion")
	launchCmd.Flags().StringVar(&launchBundle, "bundle", "", "Deployment bundle: local tarball or http(s)/s3/gs URL")
	rootCmd.AddCommand(launchCmd)
}

func runLaunch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	fmt.Println(style.Banner.Render("LAUNCH"))
	fmt.Printf("%s", style.DimText.Render("Checking prerequisites...\n"))
	if err := skyc.CheckPrerequisites(ctx); err != nil {
		return err
	}
	fmt.Printf("  %s prerequisites ok\n", style.DotGood)

	if launchBundle != "" {
		ref, err := resolveBundle(cmd)
		if err != nil {
			return err
		}
		fmt.Printf("  %s bundle %s\n", style.DotGood, style.DimText.Render(ref))
	}

	deploymentID := uuid.NewString()
	logger.Info("launching deployment",
		zap.String("deployment_id", deploymentID),
		zap.String("task_file", cfg.Cluster.TaskFile),
		zap.String("name", cfg.Cluster.Name),
	)

	if !launchFollow {
		if err := skyc.LaunchDetached(ctx, cfg.Cluster.TaskFile, cfg.Cluster.Name, deploymentID); err != nil {
			return err
		}
		fmt.Printf("\nDeployment %s started in the background.\n", style.Bold.Render(deploymentID[:8]))
		fmt.Println(style.DimText.Render("Run 'strato monitor' to watch it."))
		return nil
	}

	// Follow mode: the launch call and the monitor run concurrently. The
	// monitor owns the terminal; the launch result only matters if it
	// fails before the monitor reaches a terminal phase.
	launchErr := make(chan error, 1)
	go func() {
		res := skyc.Launch(ctx, cfg.Cluster.TaskFile, cfg.Cluster.Name, deploymentID)
		if !res.OK {
			launchErr <- fmt.Errorf("sky launch: %s", strings.TrimSpace(res.Stderr))
			return
		}
		launchErr <- nil
	}()

	m := monitor.New(skyc, nil, logger, monitorConfig())
	if err := runMonitorProgram(ctx, m); err != nil {
		select {
		case lerr := <-launchErr:
			if lerr != nil {
				return fmt.Errorf("%w (launch: %v)", err, lerr)
			}
		default:
		}
		return err
	}

	if err := recordFleet(cmd); err != nil {
		fmt.Printf("  %s fleet not recorded: %v\n", style.DotWarning, err)
		logger.Warn("fleet recording failed", zap.Error(err))
	}
	return nil
}

func resolveBundle(cmd *cobra.Command) (string, error) {
	if bundle.IsRemote(launchBundle) {
		return launchBundle, bundle.Validate(launchBundle)
	}
	store, err := bundle.NewStore(cfg.Bundle, logger)
	if err != nil {
		return "", err
	}
	return store.Resolve(cmd.Context(), launchBundle)
}

// recordFleet scans the configured regions after a successful deployment
// and records the spot instances found, so destroy and list can work from
// local state.
func recordFleet(cmd *cobra.Command) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	scanner := &fleet.Scanner{Cloud: &fleet.AWSCLI{Runner: runner}}
	records, regionErrs := scanner.ScanAll(cmd.Context(), cfg.Regions, cfg.Parallelism)
	for _, re := range regionErrs {
		logger.Warn("record scan failed", zap.String("region", re.Region), zap.Error(re.Err))
	}
	if len(records) == 0 {
		return fmt.Errorf("no instances found to record")
	}
	if err := store.Put(records...); err != nil {
		return err
	}
	fmt.Printf("  %s recorded %d instances\n", style.DotGood, len(records))
	return nil
}
