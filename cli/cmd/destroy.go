package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"strato/cli/style"
	"strato/fleet"
)

var destroyForce bool

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Terminate the instances this tool launched",
	Long: `Terminate only the instances recorded in the local state, leaving any
other spot instances in the account untouched. Instances that fail to
terminate stay recorded so a later destroy can retry them.`,
	RunE: runDestroy,
}

func init() {
	destroyCmd.Flags().BoolVarP(&destroyForce, "force", "f", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(destroyCmd)
}

func runDestroy(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctrl := &fleet.Controller{
		Cloud:       &fleet.AWSCLI{Runner: runner},
		Store:       store,
		Log:         logger,
		Parallelism: cfg.Parallelism,
	}

	report, err := ctrl.Destroy(cmd.Context(), fleet.DestroyOptions{
		Force: destroyForce,
		Confirm: func(found []fleet.InstanceRecord) bool {
			fmt.Println(style.Banner.Render("DESTROY RECORDED FLEET"))
			printInstanceTable(found)
			fmt.Printf("\nTerminate these %d instances? Type 'yes' to confirm: ", len(found))
			return readLine() == "yes"
		},
		Events: consoleEvents{},
	})
	if err != nil {
		return err
	}

	printReport(report)
	logger.Info("destroy complete",
		zap.Int("terminated", report.Terminated),
		zap.Int("failed", report.Failed),
		zap.Bool("aborted", report.Aborted),
	)
	if report.Failed > 0 {
		return fmt.Errorf("%d instances failed to terminate, still recorded", report.Failed)
	}
	return nil
}
