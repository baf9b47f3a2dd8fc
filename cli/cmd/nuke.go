package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"strato/cli/style"
	"strato/fleet"
)

var nukeForce bool

var nukeCmd = &cobra.Command{
	Use:   "nuke",
	Short: "Terminate every spot instance in every configured region",
	Long: `Scan all configured regions for spot instances and terminate everything
found, including instances this tool never launched. Two separate
confirmations are required unless --force is given.`,
	RunE: runNuke,
}

func init() {
	nukeCmd.Flags().BoolVar(&nukeForce, "force", false, "Skip both confirmation prompts")
	rootCmd.AddCommand(nukeCmd)
}

func runNuke(cmd *cobra.Command, args []string) error {
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

	fmt.Println(style.Banner.Render("NUKE ALL SPOT INSTANCES"))
	fmt.Printf("Scanning %d regions...\n\n", len(cfg.Regions))

	report, err := ctrl.Nuke(cmd.Context(), fleet.NukeOptions{
		Regions: cfg.Regions,
		Force:   nukeForce,
		ConfirmScan: func(found []fleet.InstanceRecord) bool {
			printInstanceTable(found)
			fmt.Print("\nType 'DESTROY ALL SPOTS' to continue: ")
			return readLine() == "DESTROY ALL SPOTS"
		},
		ConfirmTerminate: func(count int) bool {
			fmt.Printf("\nAbout to terminate %d instances. Type 'YES' to confirm: ", count)
			return readLine() == "YES"
		},
		Events: consoleEvents{},
	})
	if err != nil {
		return err
	}

	printReport(report)
	logger.Info("nuke complete",
		zap.Int("terminated", report.Terminated),
		zap.Int("failed", report.Failed),
		zap.Bool("aborted", report.Aborted),
	)
	if report.Failed > 0 {
		return fmt.Errorf("%d instances failed to terminate", report.Failed)
	}
	return nil
}

// consoleEvents renders per-region progress as it arrives, in completion
// order.
type consoleEvents struct{}

func (consoleEvents) RegionScanned(region string, found int, err error) {
	switch {
	case err != nil:
		fmt.Printf("  %s %s  %s\n", style.DotBad, style.Region.Render(padRight(region, 18)), style.Warning.Render(err.Error()))
	case found == 0:
		fmt.Printf("  %s %s  clear\n", style.DotDim, style.Region.Render(padRight(region, 18)))
	default:
		fmt.Printf("  %s %s  %d spot instances\n", style.DotWarning, style.Region.Render(padRight(region, 18)), found)
	}
}

func (consoleEvents) RegionTerminated(region string, outcomes map[string]fleet.TerminationOutcome) {
	terminated, failed := 0, 0
	for _, o := range outcomes {
		if o.Failed() {
			failed++
		} else {
			terminated++
		}
	}
	dot := style.DotGood
	if failed > 0 {
		dot = style.DotBad
	}
	fmt.Printf("  %s %s  terminated %d", dot, style.Region.Render(padRight(region, 18)), terminated)
	if failed > 0 {
		fmt.Printf(", %s", style.Bad.Render(fmt.Sprintf("%d failed", failed)))
	}
	fmt.Println()
}

func printInstanceTable(records []fleet.InstanceRecord) {
	fmt.Println()
	fmt.Printf("  %s %s %s %s %s\n",
		padRight("INSTANCE", 22), padRight("REGION", 16), padRight("STATE", 10),
		padRight("TYPE", 14), "NAME")
	for _, r := range records {
		fmt.Printf("%s %s %s %s %s %s\n",
			style.InstanceDot(r.State),
			style.Bold.Render(padRight(r.ID, 22)),
			style.Region.Render(padRight(r.Region, 16)),
			padRight(r.State, 10),
			padRight(r.Type, 14),
			style.DimText.Render(r.Name()),
		)
	}
}

func printReport(report *fleet.Report) {
	switch {
	case len(report.Found) == 0 && len(report.RegionErrors) == 0:
		fmt.Println(style.DimText.Render("\nNo spot instances anywhere."))
	case report.Aborted:
		fmt.Println(style.DimText.Render("\nAborted, nothing terminated."))
	case report.Failed > 0:
		fmt.Println(style.ErrorBox.Render(fmt.Sprintf("Terminated %d, failed %d", report.Terminated, report.Failed)))
		for id, o := range report.Outcomes {
			if o.Failed() {
				fmt.Printf("  %s %s\n", style.Bad.Render(id), strings.TrimPrefix(o.Status, "error:"))
			}
		}
	default:
		fmt.Println(style.SuccessBox.Render(fmt.Sprintf("Terminated %d instances", report.Terminated)))
	}
	for _, re := range report.RegionErrors {
		fmt.Printf("  %s scan failed in %s: %v\n", style.DotWarning, re.Region, re.Err)
	}
}

func readLine() string {
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}
