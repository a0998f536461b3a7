package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/lyapsim/internal/consumer"
	"github.com/san-kum/lyapsim/internal/controller"
	"github.com/san-kum/lyapsim/internal/lyapunov"
)

const (
	frameInterval = time.Second / 30
	plotWidth     = 60
	plotHeight    = 10
	// plotCapacity bounds the points kept for drawing; the adapter keeps the
	// full series.
	plotCapacity = 2000
)

// Commander is the part of the controller the view drives.
type Commander interface {
	Start(p lyapunov.Params) error
	Pause() error
	Resume() error
	Abort() error
}

type tickMsg time.Time

type noteMsg controller.Notification

// closedMsg means the notification channel is closed.
type closedMsg struct{}

// Model is a bubbletea view of one controller. It must be the only client
// starting runs: it numbers them from one in start order, the same way the
// controller does.
type Model struct {
	ctrl   Commander
	notes  <-chan controller.Notification
	params lyapunov.Params
	title  string

	adapter *consumer.Adapter
	runs    uint64
	err     error

	lnd    []float64
	lambda []float64

	showHelp bool
	quitting bool
}

// NewModel adopts run one up front so no notification of the first run is
// dropped; Init issues its start.
func NewModel(ctrl Commander, notes <-chan controller.Notification, p lyapunov.Params, opts ...consumer.Option) Model {
	p = p.Sanitize()
	m := Model{
		ctrl:    ctrl,
		notes:   notes,
		params:  p,
		title:   fmt.Sprintf("lyapunov exponent: %s", p.System),
		adapter: consumer.New(opts...),
	}
	m.begin()
	return m
}

func (m *Model) begin() {
	m.runs++
	m.adapter.Begin(m.runs)
	m.lnd, m.lambda = m.lnd[:0], m.lambda[:0]
	m.err = nil
}

// Adapter exposes the state of the last run.
func (m Model) Adapter() *consumer.Adapter { return m.adapter }

func (m Model) Params() lyapunov.Params { return m.params }

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.startCmd(), m.wait(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) wait() tea.Cmd {
	notes := m.notes
	return func() tea.Msg {
		n, ok := <-notes
		if !ok {
			return closedMsg{}
		}
		return noteMsg(n)
	}
}

func (m Model) startCmd() tea.Cmd {
	ctrl, p := m.ctrl, m.params
	return func() tea.Msg {
		return startedMsg{err: ctrl.Start(p)}
	}
}

type startedMsg struct{ err error }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case startedMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		return m, nil

	case noteMsg:
		m.adapter.Handle(controller.Notification(msg))
		return m, m.wait()

	case closedMsg:
		m.quitting = true
		return m, tea.Quit

	case tickMsg:
		m.collect(m.adapter.Drain())
		return m, tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	status := m.adapter.Status()
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if status.Active() {
			m.err = m.ctrl.Abort()
		}
		return m, tea.Quit
	case " ", "p":
		switch status {
		case controller.StatusRunning:
			m.err = m.ctrl.Pause()
			m.adapter.SetPaused(true)
		case controller.StatusPaused:
			m.err = m.ctrl.Resume()
			m.adapter.SetPaused(false)
		}
	case "a":
		if status.Active() {
			m.err = m.ctrl.Abort()
		}
	case "r":
		if !status.Active() {
			m.begin()
			return m, m.startCmd()
		}
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m *Model) collect(points []lyapunov.Sample) {
	for _, pt := range points {
		m.lnd = appendBounded(m.lnd, pt.LnDistance)
		if pt.HasRunningLambda() {
			m.lambda = appendBounded(m.lambda, pt.RunningLambda)
		}
	}
}

func appendBounded(buf []float64, v float64) []float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return buf
	}
	buf = append(buf, v)
	if len(buf) > plotCapacity {
		buf = buf[len(buf)-plotCapacity:]
	}
	return buf
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	a := m.adapter

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n\n")

	status := a.Status()
	s.WriteString(statusStyle(status).Render(strings.ToUpper(status.String())))
	if msg, class := a.Err(); msg != "" {
		s.WriteString("  " + subtle.Render(fmt.Sprintf("%s: %s", class, msg)))
	}
	s.WriteString("\n\n")

	s.WriteString(ProgressBar(a.Progress(), 40) + fmt.Sprintf(" %5.1f%%", 100*a.Progress()))
	if eta, ok := a.ETA(); ok {
		s.WriteString(subtle.Render(fmt.Sprintf("  eta %s", eta.Round(100*time.Millisecond))))
	}
	s.WriteString("\n")

	if len(m.lnd) > 1 {
		chart := asciigraph.Plot(m.lnd,
			asciigraph.Height(plotHeight),
			asciigraph.Width(plotWidth),
			asciigraph.Caption("ln d(t)"))
		s.WriteString(graph.Render(chart) + "\n")
	}

	s.WriteString(metricLabel.Render("samples") + metricValue.Render(fmt.Sprintf("%d", a.Series().Len())) + "\n")
	if l, ok := a.LastRunningLambda(); ok {
		s.WriteString(metricLabel.Render("running λ") + metricValue.Render(fmt.Sprintf("%.6f", l)) + "\n")
		s.WriteString(metricLabel.Render("") + Sparkline(m.lambda, plotWidth) + "\n")
	}
	if fit, ok := a.Fit(); ok {
		s.WriteString(metricLabel.Render("fit slope") +
			metricValue.Render(fmt.Sprintf("%.6f", fit.Slope)) +
			subtle.Render(fmt.Sprintf("  R²=%.4f", fit.RSquared)) + "\n")
	}
	if res, ok := a.Result(); ok {
		s.WriteString(metricLabel.Render("λ") + metricValue.Render(formatLambda(res.Lambda)) +
			subtle.Render(fmt.Sprintf("  %d renormalizations", res.RenormEvents)) + "\n")
		s.WriteString(metricLabel.Render("") + consumer.Interpret(a.FinalLambda()) + "\n")
	}
	if m.err != nil {
		s.WriteString(statusFailed.Render(m.err.Error()) + "\n")
	}

	s.WriteString("\n" + keyHint.Render("space:pause/resume  a:abort  r:restart  q:quit  ?:help"))

	view := panelStyle.Render(s.String())
	if m.showHelp {
		return lipgloss.JoinVertical(lipgloss.Left, helpText, view)
	}
	return view
}

const helpText = `
  space / p  pause or resume the run
  a          abort the run
  r          start again once the run has ended
  q          abort and quit
  ?          toggle this help
`

func formatLambda(l float64) string {
	if math.IsNaN(l) {
		return "n/a"
	}
	return fmt.Sprintf("%.6f", l)
}

// Run shows the view until the user quits or ctx ends.
func Run(ctx context.Context, ctrl Commander, notes <-chan controller.Notification, p lyapunov.Params) (Model, error) {
	prog := tea.NewProgram(NewModel(ctrl, notes, p), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := prog.Run()
	if m, ok := final.(Model); ok {
		return m, err
	}
	return Model{}, err
}
