package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpModel is the help screen model
type HelpModel struct{}

// NewHelpModel creates a new help model
func NewHelpModel() HelpModel {
	return HelpModel{}
}

// Init initializes the help screen
func (m HelpModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m HelpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

// View renders the help screen
func (m HelpModel) View() string {
	sections := []string{
		cardTitleStyle.Render("Keyboard Shortcuts"),
		renderHelpSection("Navigation", []keyHelp{
			{"1", "Dashboard"},
			{"2", "Accounts"},
			{"?", "Help (this screen)"},
			{"q", "Quit"},
			{"esc", "Back / close help"},
		}),
		renderHelpSection("Dashboard", []keyHelp{
			{"tab / shift+tab", "Next / previous account"},
			{"e", "Edit start and end dates"},
			{"r", "Refresh"},
			{"j k / pgup pgdn", "Scroll"},
		}),
		renderHelpSection("Editing dates", []keyHelp{
			{"tab", "Switch between start and end"},
			{"enter", "Apply and refresh"},
			{"esc", "Cancel"},
		}),
		renderHelpSection("Accounts", []keyHelp{
			{"j / down", "Move cursor down"},
			{"k / up", "Move cursor up"},
			{"enter", "Show account on dashboard"},
			{"r", "Reload accounts"},
		}),
		renderZonesHelp(),
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

type keyHelp struct {
	key  string
	desc string
}

func renderHelpSection(title string, keys []keyHelp) string {
	lines := []string{"", helpSectionStyle.Render(title)}
	for _, k := range keys {
		lines = append(lines, "  "+RenderKeyHelp(k.key, k.desc))
	}
	return strings.Join(lines, "\n")
}

func renderZonesHelp() string {
	lines := []string{"", helpSectionStyle.Render("Views"), ""}

	views := []struct {
		name string
		desc string
	}{
		{"Time in zones", "Share of all heart rate time spent in each zone over the range."},
		{"Weekly distribution", "Each zone's share within a 7-day bucket starting at the range start."},
		{"Trainings per week", "Distinct activities in each bucket."},
		{"Training time", "Moving time per bucket, in hours."},
	}
	for _, v := range views {
		lines = append(lines, "  "+helpKeyStyle.Render(v.name))
		lines = append(lines, "  "+mutedStyle.Render(v.desc))
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
