package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"strato/cli/style"
	"strato/fleet"
)

var listLive bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the recorded instance fleet",
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listLive, "live", false, "Refresh instance state from the cloud before printing")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Load()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println(style.DimText.Render("No recorded instances."))
		return nil
	}

	if listLive {
		records = refreshLive(cmd, records)
	}

	fmt.Println(style.Banner.Render("RECORDED FLEET"))
	printInstanceTable(records)
	fmt.Printf("\n%d instances\n", len(records))
	return nil
}

// refreshLive re-scans only the regions present in the recorded set and
// overlays current cloud state onto the records. Instances the cloud no
// longer reports keep their recorded row with a dimmed state.
func refreshLive(cmd *cobra.Command, records []fleet.InstanceRecord) []fleet.InstanceRecord {
	regions := make([]string, 0)
	seen := map[string]bool{}
	for _, r := range records {
		if !seen[r.Region] {
			seen[r.Region] = true
			regions = append(regions, r.Region)
		}
	}

	scanner := &fleet.Scanner{Cloud: &fleet.AWSCLI{Runner: runner}}
	live, regionErrs := scanner.ScanAll(cmd.Context(), regions, cfg.Parallelism)
	for _, re := range regionErrs {
		fmt.Printf("  %s refresh failed in %s: %v\n", style.DotWarning, re.Region, re.Err)
	}

	byID := map[string]fleet.InstanceRecord{}
	for _, l := range live {
		byID[l.ID] = l
	}
	for i, r := range records {
		if l, ok := byID[r.ID]; ok {
			records[i].State = l.State
			records[i].PublicIP = l.PublicIP
		} else {
			records[i].State = "gone"
		}
	}
	return records
}
