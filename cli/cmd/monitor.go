package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"strato/cli/style"
	"strato/monitor"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the running deployment to completion",
	Long: `Poll cluster status, the job queue, and the deployment log until the
deployment succeeds, fails, or exceeds the time ceiling. Per-node progress
is derived from the log stream.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if err := skyc.EnsureContainer(cmd.Context()); err != nil {
		return err
	}
	m := monitor.New(skyc, nil, logger, monitorConfig())
	return runMonitorProgram(cmd.Context(), m)
}

func monitorConfig() monitor.Config {
	return monitor.Config{
		Job:           cfg.Cluster.Name,
		ClusterPrefix: cfg.Cluster.Prefix,
		Tick:          cfg.Monitor.Tick.Std(),
		Ceiling:       cfg.Monitor.Ceiling.Std(),
		RunningGrace:  cfg.Monitor.RunningGrace.Std(),
	}
}

// runMonitorProgram drives the watch loop under a terminal UI and maps the
// final phase to the process exit status.
func runMonitorProgram(ctx context.Context, m *monitor.Monitor) error {
	model := newMonitorModel(ctx, m)
	p := tea.NewProgram(model)
	final, err := p.Run()
	if err != nil {
		return err
	}

	mm := final.(monitorModel)
	if mm.err != nil && mm.err != context.Canceled {
		return mm.err
	}
	switch mm.outcome.Phase {
	case monitor.JobFailed:
		return fmt.Errorf("deployment failed")
	case monitor.TimedOut:
		return fmt.Errorf("deployment did not finish within %s", m.Config.Ceiling)
	}
	return nil
}

// --- Messages ---

type monitorStarted struct{ ch chan tea.Msg }
type monitorSnapshot struct{ snap monitor.Snapshot }
type monitorDone struct {
	outcome monitor.Outcome
	err     error
}

// chanSink forwards snapshots into the bubbletea message loop.
type chanSink struct{ ch chan tea.Msg }

func (s chanSink) Render(snap monitor.Snapshot) { s.ch <- monitorSnapshot{snap: snap} }

// --- Model ---

type monitorModel struct {
	mon       *monitor.Monitor
	ctx       context.Context
	cancel    context.CancelFunc
	spinner   spinner.Model
	snap      monitor.Snapshot
	outcome   monitor.Outcome
	err       error
	done      bool
	startTime time.Time
	eventCh   chan tea.Msg
}

func newMonitorModel(ctx context.Context, m *monitor.Monitor) monitorModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(style.Primary)

	ctx, cancel := context.WithCancel(ctx)
	return monitorModel{
		mon:       m,
		ctx:       ctx,
		cancel:    cancel,
		spinner:   s,
		startTime: time.Now(),
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, startMonitor(m.ctx, m.mon))
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.cancel()
			return m, nil
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case monitorStarted:
		m.eventCh = msg.ch
		return m, waitForMonitorEvent(m.eventCh)

	case monitorSnapshot:
		m.snap = msg.snap
		return m, waitForMonitorEvent(m.eventCh)

	case monitorDone:
		m.outcome = msg.outcome
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m monitorModel) View() string {
	var b strings.Builder

	b.WriteString(style.Banner.Render("DEPLOYMENT MONITOR"))
	b.WriteString("\n")

	phase := m.snap.Phase
	b.WriteString(fmt.Sprintf("%s %s\n",
		style.PhaseDot(phase.Terminal(), phase == monitor.JobFailed || phase == monitor.TimedOut),
		style.Bold.Render(phase.String())))

	if m.snap.Cluster != "" {
		b.WriteString(style.Key.Render("Cluster") + style.Val.Render(m.snap.Cluster))
		if m.snap.ClusterState != "" {
			b.WriteString(style.DimText.Render("  " + m.snap.ClusterState))
		}
		b.WriteString("\n")
	}
	if m.snap.JobStatus != "" {
		b.WriteString(style.Key.Render("Job") + style.Val.Render(m.snap.Job))
		b.WriteString(style.DimText.Render(fmt.Sprintf("  %s (%ds)", m.snap.JobStatus, m.snap.JobDuration)))
		b.WriteString("\n")
	}
	b.WriteString(style.Key.Render("Elapsed") + style.Val.Render(m.snap.Elapsed.Round(time.Second).String()))
	b.WriteString("\n")

	if len(m.snap.Nodes) > 0 {
		b.WriteString("\n")
		for _, n := range m.snap.Nodes {
			status := n.Status()
			dot := style.DotWarning
			switch status {
			case "deployed":
				dot = style.DotGood
			case "error":
				dot = style.DotBad
			case "initializing":
				dot = style.DotDim
			}
			latest := ""
			if len(n.Recent) > 0 {
				latest = n.Recent[len(n.Recent)-1]
			}
			b.WriteString(fmt.Sprintf("  %s %s %s %s\n",
				dot,
				style.Bold.Render(padRight(n.Name, 12)),
				padRight(status, 18),
				style.DimText.Render(latest)))
		}
	}

	if m.snap.Warning != "" {
		b.WriteString(style.WarnBox.Render(m.snap.Warning))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.done && m.outcome.Phase == monitor.JobSucceeded:
		b.WriteString(style.SuccessBox.Render(fmt.Sprintf("Deployment complete in %s", m.outcome.Elapsed.Round(time.Second))))
	case m.done && m.outcome.Phase == monitor.JobFailed:
		b.WriteString(style.ErrorBox.Render("Deployment failed"))
	case m.done && m.outcome.Phase == monitor.TimedOut:
		b.WriteString(style.ErrorBox.Render("Deployment timed out"))
	case m.done:
		b.WriteString(style.DimText.Render("Stopped."))
	default:
		msg := m.snap.Message
		if msg == "" {
			msg = "Watching deployment..."
		}
		b.WriteString(m.spinner.View() + style.DimText.Render(" "+msg+" (q to quit)"))
	}
	b.WriteString("\n")
	return b.String()
}

// --- Commands ---

func startMonitor(ctx context.Context, m *monitor.Monitor) tea.Cmd {
	return func() tea.Msg {
		ch := make(chan tea.Msg, 32)
		m.Sink = chanSink{ch: ch}

		go func() {
			defer close(ch)
			outcome, err := m.Run(ctx)
			ch <- monitorDone{outcome: outcome, err: err}
		}()

		return monitorStarted{ch: ch}
	}
}

func waitForMonitorEvent(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return monitorDone{}
		}
		return msg
	}
}
