// Package watch implements the live single-host dashboard behind
// 'hostpulse watch'. It polls the telemetry gatherer on an interval and
// renders CPU, RAM, and network metrics with short-term history graphs.
package watch

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hostpulse/hostpulse/internal/telemetry"
)

// DefaultInterval is the refresh cadence when the config doesn't set one.
const DefaultInterval = 3 * time.Second

// Gatherer is the slice of the telemetry API the dashboard needs.
type Gatherer interface {
	GatherStats(ctx context.Context, creds telemetry.Credentials) (*telemetry.StatsResult, error)
}

// Model is the Bubble Tea model for the watch dashboard.
type Model struct {
	target   string // display name (alias or host)
	creds    telemetry.Credentials
	gatherer Gatherer
	history  *History
	interval time.Duration
	timeout  time.Duration

	spinner    spinner.Model
	latest     *telemetry.StatsResult
	lastErr    string
	lastUpdate time.Time
	samples    int
	width      int
	height     int
	gathering  bool
	quitting   bool
}

// tickMsg signals a periodic refresh.
type tickMsg time.Time

// statsMsg carries the result of one gather cycle.
type statsMsg struct {
	result *telemetry.StatsResult
	err    error
	time   time.Time
}

// Options configures a watch Model.
type Options struct {
	// Target is the name shown in the header (alias or host).
	Target string

	// Interval between gathers. Defaults to DefaultInterval.
	Interval time.Duration

	// Timeout bounds each gather. Defaults to the gatherer's own default
	// behavior via a 15s context.
	Timeout time.Duration
}

// NewModel builds the dashboard model for one host.
func NewModel(g Gatherer, creds telemetry.Credentials, opts Options) Model {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	target := opts.Target
	if target == "" {
		target = creds.Host
	}

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(ColorAccent)),
	)

	return Model{
		target:   target,
		creds:    creds,
		gatherer: g,
		history:  NewHistory(DefaultHistorySize),
		interval: interval,
		timeout:  timeout,
		spinner:  sp,
	}
}

// Init starts the spinner, the first gather, and the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.gatherCmd(), m.tickCmd())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			if !m.gathering {
				m.gathering = true
				return m, m.gatherCmd()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		cmds := []tea.Cmd{m.tickCmd()}
		if !m.gathering {
			m.gathering = true
			cmds = append(cmds, m.gatherCmd())
		}
		return m, tea.Batch(cmds...)

	case statsMsg:
		m.gathering = false
		m.lastUpdate = msg.time
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		} else {
			m.lastErr = ""
			m.latest = msg.result
			m.samples++
			m.history.Push(msg.result)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// gatherCmd runs one gather cycle off the UI goroutine.
func (m Model) gatherCmd() tea.Cmd {
	g, creds, timeout := m.gatherer, m.creds, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		res, err := g.GatherStats(ctx, creds)
		return statsMsg{result: res, err: err, time: time.Now()}
	}
}

// tickCmd schedules the next refresh.
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run starts the dashboard and blocks until the user quits.
func Run(g Gatherer, creds telemetry.Credentials, opts Options) error {
	p := tea.NewProgram(NewModel(g, creds, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
