package style

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary = lipgloss.Color("#F59E0B")
	Green   = lipgloss.Color("#10B981")
	Red     = lipgloss.Color("#EF4444")
	Yellow  = lipgloss.Color("#FBBF24")
	Cyan    = lipgloss.Color("#06B6D4")
	Dim     = lipgloss.Color("#6B7280")
	White   = lipgloss.Color("#F9FAFB")

	// Text styles
	Banner = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Bold = lipgloss.NewStyle().Bold(true).Foreground(White)

	Good    = lipgloss.NewStyle().Foreground(Green).Bold(true)
	Bad     = lipgloss.NewStyle().Foreground(Red).Bold(true)
	Warning = lipgloss.NewStyle().Foreground(Yellow)
	Region  = lipgloss.NewStyle().Foreground(Cyan)

	DimText = lipgloss.NewStyle().Foreground(Dim)

	// Status indicators
	DotGood    = Good.Render("●")
	DotBad     = Bad.Render("●")
	DotWarning = Warning.Render("●")
	DotDim     = DimText.Render("●")

	// Boxes
	ErrorBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Red).
			Foreground(Red).
			Padding(0, 1).
			MarginTop(1)

	SuccessBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Green).
			Foreground(Green).
			Padding(0, 1).
			MarginTop(1)

	WarnBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Yellow).
		Foreground(Yellow).
		Padding(0, 1).
		MarginTop(1)

	// Key-value
	Key = lipgloss.NewStyle().Foreground(Dim).Width(14)
	Val = lipgloss.NewStyle().Foreground(White)
)

// InstanceDot colors by cloud instance state.
func InstanceDot(state string) string {
	switch state {
	case "running":
		return DotGood
	case "pending", "stopping":
		return DotWarning
	case "stopped":
		return DotDim
	default:
		return DotBad
	}
}

// PhaseDot colors by deployment phase name.
func PhaseDot(terminal bool, failed bool) string {
	switch {
	case failed:
		return DotBad
	case terminal:
		return DotGood
	default:
		return DotWarning
	}
}
