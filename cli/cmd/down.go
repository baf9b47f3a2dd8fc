package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"strato/cli/style"
)

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Tear down the active cluster through the orchestrator",
	Long: `Ask the orchestrator to take the cluster down. This releases the cluster
cleanly; any spot instances left behind are handled by destroy or nuke.`,
	RunE: runDown,
}

func init() {
	rootCmd.AddCommand(downCmd)
}

func runDown(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := skyc.EnsureContainer(ctx); err != nil {
		return err
	}

	cluster, err := skyc.ClusterName(ctx, cfg.Cluster.Prefix)
	if err != nil {
		fmt.Println(style.DimText.Render("No cluster up."))
		return nil
	}

	fmt.Printf("Taking down %s...\n", style.Bold.Render(cluster))
	res := skyc.Down(ctx, cluster)
	if !res.OK {
		return fmt.Errorf("sky down: %s", strings.TrimSpace(res.Stderr))
	}
	fmt.Println(style.SuccessBox.Render("Cluster down"))
	return nil
}
