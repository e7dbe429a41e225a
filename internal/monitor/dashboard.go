package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	historySize     = 30
	fetchTimeout    = 10 * time.Second

	// maxStatuses limits the status breakdown to the busiest states.
	maxStatuses = 5
	// stalePending is the age after which the queue badge turns red.
	stalePending = 24 * time.Hour
)

// Model is the bubbletea dashboard model.
type Model struct {
	collector  *Collector
	interval   time.Duration
	lastUpdate time.Time
	snapshot   Snapshot
	err        error
	quitting   bool

	pendingHistory []float64
	doneHistory    []float64

	doneProgress progress.Model
}

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	valueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	healthyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	footerKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true)
	sparklineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

// NewModel creates a dashboard that polls c every interval.
func NewModel(c *Collector, interval time.Duration) Model {
	return Model{
		collector:      c,
		interval:       interval,
		pendingHistory: make([]float64, 0, historySize),
		doneHistory:    make([]float64, 0, historySize),
		doneProgress: progress.New(
			progress.WithGradient("#ff0000", "#00ff00"),
			progress.WithWidth(40),
		),
	}
}

func queueBadge(s Snapshot) string {
	switch {
	case s.Pending == 0:
		return healthyStyle.Render("[✓]")
	case s.HasOldest && s.Oldest >= stalePending:
		return errorStyle.Render("[✗]")
	default:
		return warningStyle.Render("[⚠]")
	}
}

func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}

func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}
	spark := sparkline.New(sparklineWidth, sparklineHeight)
	spark.PushAll(data)
	spark.Draw()
	return sparklineStyle.Render(spark.View())
}

type tickMsg time.Time
type snapshotMsg Snapshot
type errMsg struct{ err error }

// Init starts polling.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(m.interval), m.fetch())
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetch() tea.Cmd {
	c := m.collector
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		s, err := c.Collect(ctx)
		if err != nil {
			return errMsg{err}
		}
		return snapshotMsg(s)
	}
}

// Update handles key presses, ticks and poll results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.fetch()
		}

	case tickMsg:
		return m, tea.Batch(tick(m.interval), m.fetch())

	case snapshotMsg:
		s := Snapshot(msg)
		m.pendingHistory = appendToHistory(m.pendingHistory, float64(s.Pending))
		if s.TrackerErr == nil {
			m.doneHistory = appendToHistory(m.doneHistory, s.PercentDone)
		}
		m.snapshot = s
		m.lastUpdate = time.Now()
		m.err = nil
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return m.renderError()
	}
	return m.renderDashboard()
}

func (m Model) renderError() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("standupd monitor") + "\n\n")
	b.WriteString(errorStyle.Render("⚠ Cannot read the pending store") + "\n")
	b.WriteString(dimStyle.Render("Error: ") + errorStyle.Render(m.err.Error()) + "\n\n")
	b.WriteString(footerStyle.Render("[q] quit  [r] retry"))
	return containerStyle.Render(b.String())
}

func (m Model) renderDashboard() string {
	s := m.snapshot
	var b strings.Builder

	lastUpdate := "never"
	if !m.lastUpdate.IsZero() {
		lastUpdate = m.lastUpdate.Format("15:04:05")
	}
	b.WriteString(headerStyle.Render("standupd monitor") + "  " + dimStyle.Render("updated "+lastUpdate) + "\n")

	b.WriteString("\n" + sectionStyle.Render("┃ Approval queue") + "\n")
	b.WriteString(labelStyle.Render("  Pending: ") +
		valueStyle.Render(fmt.Sprintf("%d", s.Pending)) + " " + queueBadge(s) +
		"   " + createSparkline(m.pendingHistory) + "\n")
	b.WriteString(labelStyle.Render("  Updates: ") + valueStyle.Render(fmt.Sprintf("%d", s.Updates)) +
		labelStyle.Render("  Unmatched: ") + valueStyle.Render(fmt.Sprintf("%d", s.Unmatched)) +
		labelStyle.Render("  Oldest: ") + valueStyle.Render(FormatAge(s.Oldest, s.HasOldest)) + "\n")

	b.WriteString("\n" + sectionStyle.Render("┃ Linear") + "\n")
	if s.TrackerErr != nil {
		b.WriteString(errorStyle.Render("  tracker unavailable: ") + dimStyle.Render(s.TrackerErr.Error()) + "\n")
	} else {
		b.WriteString(labelStyle.Render("  Done: ") +
			valueStyle.Render(fmt.Sprintf("%d/%d", s.Done, s.Issues)) + " " +
			valueStyle.Render(FormatPercent(s.PercentDone)) +
			"   " + createSparkline(m.doneHistory) + "\n")
		b.WriteString(labelStyle.Render("  Progress: ") + m.doneProgress.ViewAs(s.PercentDone/100) + "\n")
		for i, sc := range s.ByStatus {
			if i == maxStatuses {
				b.WriteString(dimStyle.Render(fmt.Sprintf("  ...and %d more states", len(s.ByStatus)-maxStatuses)) + "\n")
				break
			}
			b.WriteString(labelStyle.Render(fmt.Sprintf("  %-14s", sc.Status)) + valueStyle.Render(fmt.Sprintf("%d", sc.Count)) + "\n")
		}
	}

	b.WriteString("\n" +
		footerKeyStyle.Render("[q]") + footerStyle.Render(" quit  ") +
		footerKeyStyle.Render("[r]") + footerStyle.Render(" refresh  ") +
		footerStyle.Render(fmt.Sprintf("auto: %v", m.interval)))
	return containerStyle.Render(b.String())
}
