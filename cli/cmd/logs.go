package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"strato/cli/style"
)

var logsTail int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the deployment log tail",
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of log lines to show")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := skyc.EnsureContainer(ctx); err != nil {
		return err
	}

	cluster, err := skyc.ClusterName(ctx, cfg.Cluster.Prefix)
	if err != nil {
		fmt.Println(style.DimText.Render("No cluster up."))
		return nil
	}

	res := skyc.Logs(ctx, cluster, logsTail)
	if !res.OK {
		return fmt.Errorf("sky logs: %s", strings.TrimSpace(res.Stderr))
	}
	fmt.Print(res.Stdout)
	return nil
}
