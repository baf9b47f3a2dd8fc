package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"strato/cli/style"
	"strato/monitor"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cluster and job status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := skyc.EnsureContainer(ctx); err != nil {
		return err
	}

	res := skyc.Status(ctx)
	if !res.OK {
		return fmt.Errorf("sky status: %s", strings.TrimSpace(res.Stderr))
	}

	name, state, found := monitor.FindCluster(res.Stdout, cfg.Cluster.Prefix)
	if !found {
		fmt.Println(style.DimText.Render("No cluster up."))
		return nil
	}

	dot := style.DotWarning
	if state == "UP" {
		dot = style.DotGood
	}
	fmt.Printf("%s %s %s\n\n", dot, style.Bold.Render(name), style.DimText.Render(state))

	queue := skyc.Queue(ctx, name)
	if !queue.OK {
		fmt.Println(style.DimText.Render("Job queue unavailable."))
		return nil
	}
	if row, ok := monitor.FindJobRow(queue.Stdout, cfg.Cluster.Name); ok {
		fmt.Printf("%s%s\n", style.Key.Render("Job"), style.Val.Render(row.Name))
		fmt.Printf("%s%s\n", style.Key.Render("Status"), style.Val.Render(row.Status))
		fmt.Printf("%s%s\n", style.Key.Render("Duration"), style.Val.Render(row.Duration))
	} else {
		fmt.Println(style.DimText.Render("No deployment job in the queue."))
	}
	return nil
}
