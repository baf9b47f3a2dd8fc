package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"strato/cli/style"
	"strato/deploylog"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Show per-node deployment progress",
	Long: `Derive a per-node progress table from the deployment log. Nodes appear
as soon as they print their first line; status comes from each node's most
recent message.`,
	RunE: runNodes,
}

func init() {
	rootCmd.AddCommand(nodesCmd)
}

func runNodes(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := skyc.EnsureContainer(ctx); err != nil {
		return err
	}

	cluster, err := skyc.ClusterName(ctx, cfg.Cluster.Prefix)
	if err != nil {
		fmt.Println(style.DimText.Render("No cluster up."))
		return nil
	}

	res := skyc.Logs(ctx, cluster, 100)
	if !res.OK {
		return fmt.Errorf("sky logs: %s", strings.TrimSpace(res.Stderr))
	}

	table := deploylog.NewTable()
	for _, line := range strings.Split(res.Stdout, "\n") {
		table.ApplyLine(line)
	}
	if table.Len() == 0 {
		fmt.Println(style.DimText.Render("No node activity in the log yet."))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tRANK\tIP\tSTATUS\tLAST MESSAGE")
	for _, n := range table.Nodes() {
		latest := ""
		if len(n.Recent) > 0 {
			latest = n.Recent[len(n.Recent)-1]
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", n.Name, n.Rank, n.IP, n.Status(), latest)
	}
	return w.Flush()
}
