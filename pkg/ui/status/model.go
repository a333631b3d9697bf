// Package status is the terminal view behind `mintfeed watch`. It polls a
// running pipeline's /status endpoint and renders the snapshot.
package status

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mintfeed/pkg/gateway"
)

// FetchFunc returns the latest pipeline snapshot.
type FetchFunc func(ctx context.Context) (gateway.Status, error)

type statusMsg struct {
	status gateway.Status
	err    error
	at     time.Time
}

type pollTickMsg struct{}

type model struct {
	ctx      context.Context
	fetch    FetchFunc
	interval time.Duration
	source   string

	theme     theme
	spinner   spinner.Model
	width     int
	status    gateway.Status
	hasStatus bool
	lastErr   string
	updatedAt time.Time
}

func newModel(ctx context.Context, fetch FetchFunc, interval time.Duration, source string) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Points
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	if interval <= 0 {
		interval = time.Second
	}

	return &model{
		ctx:      ctx,
		fetch:    fetch,
		interval: interval,
		source:   source,
		theme:    defaultTheme(),
		spinner:  spin,
		width:    72,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, fetchCmd(m.ctx, m.fetch))
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(40, typed.Width)
		return m, nil
	case tea.KeyMsg:
		switch typed.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		case "r":
			return m, fetchCmd(m.ctx, m.fetch)
		}
		return m, nil
	case statusMsg:
		m.updatedAt = typed.at
		if typed.err != nil {
			m.lastErr = typed.err.Error()
		} else {
			m.lastErr = ""
			m.status = typed.status
			m.hasStatus = true
		}
		return m, pollTickCmd(m.interval)
	case pollTickMsg:
		return m, fetchCmd(m.ctx, m.fetch)
	case spinner.TickMsg:
		if m.hasStatus {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	}

	return m, nil
}

func (m *model) View() string {
	header := m.theme.header.Width(m.width - 2).Render("mintfeed pipeline")
	meta := m.theme.headerMeta.Render(m.source)
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("═", max(8, m.width-2)))

	parts := []string{header, meta, line}
	if !m.hasStatus {
		parts = append(parts, m.spinner.View()+" waiting for status...")
	} else {
		parts = append(parts, m.theme.panel.Width(m.width-2).Render(m.statusBody()))
	}

	if m.lastErr != "" {
		parts = append(parts, m.theme.errorBox.Width(m.width-2).Render("poll failed: "+m.lastErr))
	}

	parts = append(parts, m.theme.hint.Render("q quit · r refresh"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

func (m *model) statusBody() string {
	s := m.status

	readiness := m.theme.notReady.Render(s.Status)
	if s.Status == "ready" {
		readiness = m.theme.ready.Render(s.Status)
	}

	rows := []string{
		m.row("status", readiness),
		m.row("connection", m.theme.value.Render(s.State)),
		m.row("uptime", m.theme.value.Render((time.Duration(s.UptimeSeconds) * time.Second).String())),
		m.row("queue", m.queueBar(s.Queue.Len, s.Queue.Cap)+m.theme.value.Render(fmt.Sprintf(" %d/%d", s.Queue.Len, s.Queue.Cap))),
		m.row("queued", m.theme.value.Render(fmt.Sprint(s.Counters.Queued))),
		m.row("rejected", m.theme.value.Render(fmt.Sprint(s.Counters.Rejected))),
		m.row("fetch failed", m.theme.value.Render(fmt.Sprint(s.Counters.FetchFailed))),
		m.row("discarded", m.theme.value.Render(fmt.Sprint(s.Counters.Discarded))),
		m.row("consumed", m.theme.value.Render(fmt.Sprint(s.Counters.Consumed))),
		m.row("reconnects", m.theme.value.Render(fmt.Sprint(s.Counters.Reconnects))),
	}
	if s.LastError != "" {
		rows = append(rows, m.row("last error", m.theme.value.Render(s.LastError)))
	}

	return strings.Join(rows, "\n")
}

func (m *model) row(label string, value string) string {
	return m.theme.label.Render(label) + value
}

func (m *model) queueBar(length int, capacity int) string {
	if capacity <= 0 {
		return ""
	}

	filled := min(length, capacity)
	return m.theme.barFull.Render(strings.Repeat("■", filled)) +
		m.theme.barEmpty.Render(strings.Repeat("□", capacity-filled))
}

func fetchCmd(ctx context.Context, fetch FetchFunc) tea.Cmd {
	return func() tea.Msg {
		status, err := fetch(ctx)
		return statusMsg{status: status, err: err, at: time.Now()}
	}
}

func pollTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(_ time.Time) tea.Msg {
		return pollTickMsg{}
	})
}
