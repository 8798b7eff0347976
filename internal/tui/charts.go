package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"zonetrends/internal/analysis"
	"zonetrends/internal/service"
)

const (
	barWidth   = 40
	chartWidth = 60
	weekLabel  = "Jan 02"
)

// RenderSummary lays out every view of a summary. The dashboard scrolls it
// and the report command prints it.
func RenderSummary(sum *service.Summary) string {
	v := sum.Views
	sections := []string{
		renderZoneBars(v.ZonePercentages),
		renderZoneTrend(v.ZoneTrend),
		renderActivityCounts(v.ActivityCounts),
		renderTrainingTime(v.TrainingTime),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderZoneBars(zones []analysis.ZonePercentage) string {
	title := cardTitleStyle.Render("Time in Heart Rate Zones")

	lines := make([]string, 0, len(zones))
	for _, z := range zones {
		label := zoneStyle(z.ZoneNumber).Render(fmt.Sprintf("Z%d", z.ZoneNumber))
		bar := RenderProgressBar(z.Percentage/100, barWidth)
		lines = append(lines, fmt.Sprintf("%s  %s  %6.2f%%", label, bar, z.Percentage))
	}
	if len(lines) == 0 {
		lines = append(lines, mutedStyle.Render("No zone data"))
	}

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n")))
}

// renderZoneTrend shows one row per week with each zone's share of that week.
// Zones a week has no data for are shown as "-".
func renderZoneTrend(trend []analysis.WeeklyZoneTrend) string {
	title := cardTitleStyle.Render("Weekly Zone Distribution")
	if len(trend) == 0 {
		return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, mutedStyle.Render("No weeks")))
	}

	zoneSet := make(map[int]struct{})
	type weekRow struct {
		label string
		pct   map[int]float64
	}
	var weeks []*weekRow
	byWeek := make(map[string]*weekRow)
	for _, t := range trend {
		zoneSet[t.ZoneNumber] = struct{}{}
		key := t.WeekStart.Format(service.DateLayout)
		row, ok := byWeek[key]
		if !ok {
			row = &weekRow{label: t.WeekStart.Format(weekLabel), pct: make(map[int]float64)}
			byWeek[key] = row
			weeks = append(weeks, row)
		}
		row.pct[t.ZoneNumber] = t.Percentage
	}
	zoneNums := make([]int, 0, len(zoneSet))
	for z := range zoneSet {
		zoneNums = append(zoneNums, z)
	}
	sort.Ints(zoneNums)

	var header strings.Builder
	fmt.Fprintf(&header, "%-8s", "Week")
	for _, z := range zoneNums {
		fmt.Fprintf(&header, "  %7s", fmt.Sprintf("Z%d", z))
	}
	rows := []string{tableHeaderStyle.Render(header.String())}

	for _, w := range weeks {
		var line strings.Builder
		fmt.Fprintf(&line, "%-8s", w.label)
		for _, z := range zoneNums {
			if p, ok := w.pct[z]; ok {
				fmt.Fprintf(&line, "  %6.2f%%", p)
			} else {
				fmt.Fprintf(&line, "  %7s", "-")
			}
		}
		rows = append(rows, tableRowStyle.Render(line.String()))
	}

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, rows...)))
}

func renderActivityCounts(counts []analysis.WeeklyActivityCount) string {
	values := make([]float64, len(counts))
	labels := make([]string, len(counts))
	for i, c := range counts {
		values[i] = float64(c.Count)
		labels[i] = c.WeekStart.Format(weekLabel)
	}
	return renderWeeklyChart("Trainings per Week", values, labels, 0)
}

func renderTrainingTime(hours []analysis.WeeklyTrainingTime) string {
	values := make([]float64, len(hours))
	labels := make([]string, len(hours))
	for i, h := range hours {
		values[i] = h.Hours
		labels[i] = h.WeekStart.Format(weekLabel)
	}
	return renderWeeklyChart("Training Time per Week (h)", values, labels, 1)
}

// renderWeeklyChart plots values when there are enough points for a line and
// always lists the per-week numbers underneath.
func renderWeeklyChart(title string, values []float64, labels []string, precision uint) string {
	parts := []string{cardTitleStyle.Render(title)}

	if len(values) > 1 {
		graph := asciigraph.Plot(values,
			asciigraph.Height(6),
			asciigraph.Width(chartWidth),
			asciigraph.Precision(precision),
		)
		parts = append(parts, graph, "")
	}

	format := fmt.Sprintf("%%-8s  %%6.%df", precision)
	rows := make([]string, 0, len(values))
	for i, v := range values {
		rows = append(rows, fmt.Sprintf(format, labels[i], v))
	}
	if len(rows) == 0 {
		rows = append(rows, mutedStyle.Render("No weeks"))
	}
	parts = append(parts, strings.Join(rows, "\n"))

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
