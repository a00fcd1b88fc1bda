package watch

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hostpulse/hostpulse/internal/telemetry"
)

const (
	defaultCardWidth = 56
	sparklineWidth   = 24
)

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	switch {
	case m.latest == nil && m.lastErr != "":
		b.WriteString(m.renderError())
	case m.latest == nil:
		b.WriteString(MutedStyle.Render("  waiting for first sample..."))
	default:
		b.WriteString(m.renderCard())
		if m.lastErr != "" {
			b.WriteString("\n")
			b.WriteString(ErrorStyle.Render("  last refresh failed: " + firstLine(m.lastErr)))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderFooter())
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderHeader() string {
	title := TitleStyle.Render("hostpulse")
	target := LabelStyle.Render(m.target)

	status := ""
	if m.gathering {
		status = " " + m.spinner.View() + MutedStyle.Render("sampling")
	} else if !m.lastUpdate.IsZero() {
		status = " " + MutedStyle.Render("updated "+m.lastUpdate.Format("15:04:05"))
	}

	return fmt.Sprintf("%s %s%s", title, target, status)
}

func (m Model) renderCard() string {
	width := m.cardWidth()
	res := m.latest

	lines := []string{
		metricLine("CPU", fmt.Sprintf("%.1f%%", res.CPU.UsagePercent),
			fmt.Sprintf("%d cores", res.CPU.Cores),
			percentSparkline(m.history.CPU(), sparklineWidth),
			res.CPU.UsagePercent),
		metricLine("RAM", fmt.Sprintf("%.1f%%", res.RAM.Percent),
			fmt.Sprintf("%.2f / %.2f GB", res.RAM.UsedGB, res.RAM.TotalGB),
			percentSparkline(m.history.RAM(), sparklineWidth),
			res.RAM.Percent),
		netLine("RX", res.Network.RxRate, m.history.Rx()),
		netLine("TX", res.Network.TxRate, m.history.Tx()),
	}

	return CardStyle.Width(width).Render(strings.Join(lines, "\n"))
}

// metricLine renders "LABEL  value  detail  sparkline" with the value
// colored by severity.
func metricLine(label, value, detail, graph string, percent float64) string {
	valueStyle := lipgloss.NewStyle().Foreground(severityColor(percent)).Bold(true)
	return fmt.Sprintf("%s %s %s\n    %s",
		LabelStyle.Render(fmt.Sprintf("%-4s", label)),
		valueStyle.Render(fmt.Sprintf("%7s", value)),
		MutedStyle.Render(detail),
		graph)
}

func netLine(label, rate string, series []float64) string {
	return fmt.Sprintf("%s %s\n    %s",
		LabelStyle.Render(fmt.Sprintf("%-4s", label)),
		ValueStyle.Render(fmt.Sprintf("%12s", rate)),
		renderSparkline(series, sparklineWidth, ColorGraph))
}

func (m Model) renderError() string {
	return CardStyle.Width(m.cardWidth()).
		BorderForeground(ColorCritical).
		Render(ErrorStyle.Render(m.lastErr))
}

func (m Model) renderFooter() string {
	parts := []string{"q quit", "r refresh"}
	if m.samples > 0 {
		parts = append(parts, fmt.Sprintf("%d samples", m.samples))
	}
	parts = append(parts, "every "+m.interval.String())
	return FooterStyle.Render("  " + strings.Join(parts, "  ·  "))
}

func (m Model) cardWidth() int {
	width := defaultCardWidth
	if m.width > 0 && m.width-4 < width {
		width = m.width - 4
	}
	if width < 24 {
		width = 24
	}
	return width
}

// firstLine trims a multi-line error down to its first meaningful line.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "✗"))
		if line != "" {
			return line
		}
	}
	return s
}

// RenderOnce renders a static card for one result, used by the stats
// command's human output.
func RenderOnce(target string, res *telemetry.StatsResult) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(target))
	b.WriteString("\n")

	lines := []string{
		staticLine("CPU", fmt.Sprintf("%.1f%%", res.CPU.UsagePercent),
			fmt.Sprintf("%d cores", res.CPU.Cores), res.CPU.UsagePercent),
		staticLine("RAM", fmt.Sprintf("%.1f%%", res.RAM.Percent),
			fmt.Sprintf("%.2f / %.2f GB", res.RAM.UsedGB, res.RAM.TotalGB), res.RAM.Percent),
		fmt.Sprintf("%s %s",
			LabelStyle.Render("NET "),
			ValueStyle.Render(fmt.Sprintf("↓ %s  ↑ %s", res.Network.RxRate, res.Network.TxRate))),
	}

	b.WriteString(CardStyle.Width(defaultCardWidth).Render(strings.Join(lines, "\n")))
	return b.String()
}

func staticLine(label, value, detail string, percent float64) string {
	valueStyle := lipgloss.NewStyle().Foreground(severityColor(percent)).Bold(true)
	return fmt.Sprintf("%s %s %s",
		LabelStyle.Render(fmt.Sprintf("%-4s", label)),
		valueStyle.Render(fmt.Sprintf("%7s", value)),
		MutedStyle.Render(detail))
}
