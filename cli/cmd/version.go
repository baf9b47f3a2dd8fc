package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"strato/cli/style"
)

var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		logo := lipgloss.NewStyle().
			Bold(true).
			Foreground(style.Primary).
			Render(`
  ┌─┐┌┬┐┬─┐┌─┐┌┬┐┌─┐
  └─┐ │ ├┬┘├─┤ │ │ │
  └─┘ ┴ ┴└─┴ ┴ ┴ └─┘`)

		fmt.Println(logo)
		fmt.Println()
		fmt.Printf("  %s %s\n", style.Key.Render("Version"), style.Val.Render(Version))
		fmt.Printf("  %s %s\n", style.Key.Render("Image"), style.Val.Render(cfg.Container.Image))
		fmt.Println()
		fmt.Println(style.DimText.Render("  Fleets that vanish as fast as they appear."))
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
