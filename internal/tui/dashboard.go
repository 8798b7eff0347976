package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"zonetrends/internal/service"
)

// chromeHeight is the number of rows above and below the scrollable body
const chromeHeight = 12

type dateField int

const (
	fieldNone dateField = iota
	fieldStart
	fieldEnd
)

// DashboardModel shows the zone summary for one account and date range
type DashboardModel struct {
	zones      Summarizer
	windowDays int
	now        func() time.Time

	accounts []string
	selected int

	start   textinput.Model
	end     textinput.Model
	editing dateField

	body    viewport.Model
	spinner spinner.Model

	summary     *service.Summary
	requests    int // id of the latest summary request
	loading     bool
	err         error
	refreshedAt time.Time
}

// summaryMsg carries a finished summary back to the dashboard
type summaryMsg struct {
	request int
	account string
	summary *service.Summary
	err     error
}

// NewDashboardModel creates a dashboard with the default window prefilled
func NewDashboardModel(zones Summarizer, windowDays int, width, height int) DashboardModel {
	now := time.Now
	start, end := service.DefaultWindow(now(), windowDays)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := DashboardModel{
		zones:      zones,
		windowDays: windowDays,
		now:        now,
		start:      newDateInput(start),
		end:        newDateInput(end),
		body:       viewport.New(80, 20),
		spinner:    sp,
	}
	m.resize(width, height)
	return m
}

func newDateInput(t time.Time) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "YYYY-MM-DD"
	ti.Prompt = ""
	ti.CharLimit = len(service.DateLayout)
	ti.Width = len(service.DateLayout) + 1
	ti.SetValue(t.Format(service.DateLayout))
	return ti
}

// Init initializes the dashboard
func (m DashboardModel) Init() tea.Cmd {
	return nil
}

// Editing reports whether a date field has keyboard focus
func (m DashboardModel) Editing() bool {
	return m.editing != fieldNone
}

// Account returns the selected account name, or "" when none are stored
func (m DashboardModel) Account() string {
	if len(m.accounts) == 0 {
		return ""
	}
	return m.accounts[m.selected]
}

// SetAccounts replaces the account list, keeping the selection when possible,
// and reloads the summary.
func (m DashboardModel) SetAccounts(names []string) (DashboardModel, tea.Cmd) {
	current := m.Account()
	m.accounts = names
	m.selected = 0
	for i, n := range names {
		if n == current {
			m.selected = i
		}
	}
	return m.reload()
}

// Select shows account if it is known
func (m DashboardModel) Select(account string) (DashboardModel, tea.Cmd) {
	for i, n := range m.accounts {
		if n == account {
			m.selected = i
			return m.reload()
		}
	}
	return m, nil
}

func (m *DashboardModel) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.body.Width = width - 2
	m.body.Height = max(height-chromeHeight, 5)
}

func (m DashboardModel) reload() (DashboardModel, tea.Cmd) {
	account := m.Account()
	if account == "" {
		m.summary = nil
		m.loading = false
		return m, nil
	}

	start, end, err := service.ParseWindow(m.start.Value(), m.end.Value(), m.now(), m.windowDays)
	if err != nil {
		m.err = err
		m.loading = false
		return m, nil
	}

	m.requests++
	m.loading = true
	m.err = nil
	zones := m.zones
	request := m.requests
	load := func() tea.Msg {
		sum, err := zones.Summarize(context.Background(), account, start, end)
		return summaryMsg{request: request, account: account, summary: sum, err: err}
	}
	return m, tea.Batch(load, m.spinner.Tick)
}

// Update handles messages
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case summaryMsg:
		if msg.request != m.requests {
			// superseded by a later account or date range
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.summary = msg.summary
			m.refreshedAt = m.now()
			m.body.SetContent(RenderSummary(msg.summary))
			m.body.GotoTop()
		}
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if m.Editing() {
			return m.updateEditing(msg)
		}
		switch msg.String() {
		case "tab":
			if len(m.accounts) > 1 {
				m.selected = (m.selected + 1) % len(m.accounts)
				return m.reload()
			}
			return m, nil
		case "shift+tab":
			if len(m.accounts) > 1 {
				m.selected = (m.selected + len(m.accounts) - 1) % len(m.accounts)
				return m.reload()
			}
			return m, nil
		case "e":
			m.editing = fieldStart
			return m, m.start.Focus()
		case "r":
			return m.reload()
		}
	}

	var cmd tea.Cmd
	m.body, cmd = m.body.Update(msg)
	return m, cmd
}

func (m DashboardModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.start.Blur()
		m.end.Blur()
		m.editing = fieldNone
		return m, nil
	case "enter":
		m.start.Blur()
		m.end.Blur()
		m.editing = fieldNone
		return m.reload()
	case "tab", "shift+tab":
		if m.editing == fieldStart {
			m.start.Blur()
			m.editing = fieldEnd
			return m, m.end.Focus()
		}
		m.end.Blur()
		m.editing = fieldStart
		return m, m.start.Focus()
	}

	var cmd tea.Cmd
	if m.editing == fieldStart {
		m.start, cmd = m.start.Update(msg)
	} else {
		m.end, cmd = m.end.Update(msg)
	}
	return m, cmd
}

// View renders the dashboard
func (m DashboardModel) View() string {
	if len(m.accounts) == 0 {
		return "\n  No accounts linked. Run `zonetrends login <name>` to add one."
	}

	sections := []string{
		m.renderAccounts(),
		m.renderRange(),
		m.renderStatus(),
	}

	if m.summary != nil {
		sections = append(sections, m.body.View())
	}

	help := statusStyle.Render("tab: account  e: dates  r: refresh  j/k: scroll")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) renderAccounts() string {
	parts := make([]string, 0, len(m.accounts))
	for i, name := range m.accounts {
		if i == m.selected {
			parts = append(parts, navActiveStyle.Render("["+name+"]"))
		} else {
			parts = append(parts, navInactiveStyle.Render(" "+name+" "))
		}
	}
	return fieldLabelStyle.Render("Account  ") + strings.Join(parts, " ")
}

func (m DashboardModel) renderRange() string {
	label := func(text string, f dateField) string {
		if m.editing == f {
			return fieldActiveStyle.Render(text)
		}
		return fieldLabelStyle.Render(text)
	}
	return label("From  ", fieldStart) + m.start.View() + "  " + label("To  ", fieldEnd) + m.end.View()
}

func (m DashboardModel) renderStatus() string {
	switch {
	case m.loading:
		return m.spinner.View() + " Loading zones..."
	case m.err != nil:
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	case m.summary == nil:
		return mutedStyle.Render("Press 'r' to load")
	}

	label := successStyle.Render(m.summary.Label())
	refreshed := mutedStyle.Render("  refreshed " + humanize.RelTime(m.refreshedAt, m.now(), "ago", "from now"))
	return label + refreshed
}
