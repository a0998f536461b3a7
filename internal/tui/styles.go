package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/lyapsim/internal/controller"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#444466"))

	subtle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))

	statusRunning = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	statusPaused  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00"))
	statusFailed  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444"))
	statusDone    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ccff"))

	metricValue = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ccff")).Bold(true)
	metricLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899")).Width(14)

	keyHint = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688")).Italic(true)
	graph   = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)

	sparkHigh = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	sparkMid  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00"))
	sparkLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

func statusStyle(s controller.Status) lipgloss.Style {
	switch s {
	case controller.StatusRunning:
		return statusRunning
	case controller.StatusPaused:
		return statusPaused
	case controller.StatusAborted, controller.StatusFailed:
		return statusFailed
	case controller.StatusCompleted:
		return statusDone
	}
	return subtle
}

// ProgressBar renders percent in [0, 1] as a bar of the given width.
func ProgressBar(percent float64, width int) string {
	filled := min(max(int(percent*float64(width)), 0), width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	if percent > 0.8 {
		return sparkHigh.Render(bar)
	} else if percent > 0.4 {
		return sparkMid.Render(bar)
	}
	return sparkLow.Render(bar)
}

// Sparkline renders the last width values, scaled to their own range.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	var b strings.Builder
	for _, v := range values {
		norm := (v - lo) / rng
		c := string(chars[min(max(int(norm*float64(len(chars)-1)), 0), len(chars)-1)])
		switch {
		case norm > 0.7:
			b.WriteString(sparkHigh.Render(c))
		case norm > 0.3:
			b.WriteString(sparkMid.Render(c))
		default:
			b.WriteString(sparkLow.Render(c))
		}
	}
	return b.String()
}
