package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"zonetrends/internal/service"
	"zonetrends/internal/store"
)

// Summarizer builds zone summaries
type Summarizer interface {
	Summarize(ctx context.Context, account string, start, end time.Time) (*service.Summary, error)
}

// AccountStore lists linked accounts
type AccountStore interface {
	ListAccounts() ([]store.Account, error)
}

// Screen identifiers
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenAccounts
	ScreenHelp
)

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	// Screen models
	dashboard DashboardModel
	accounts  AccountsModel
	help      HelpModel

	// Window dimensions
	width  int
	height int
}

// NewApp creates a new App with all dependencies
func NewApp(zones Summarizer, accounts AccountStore, windowDays int) *App {
	return &App{
		screen:    ScreenDashboard,
		dashboard: NewDashboardModel(zones, windowDays, 0, 0),
		accounts:  NewAccountsModel(accounts),
		help:      NewHelpModel(),
	}
}

// Init loads the account list
func (a *App) Init() tea.Cmd {
	return a.accounts.Init()
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global keybindings are off while a date field has focus
		if !(a.screen == ScreenDashboard && a.dashboard.Editing()) {
			switch msg.String() {
			case "q", "ctrl+c":
				return a, tea.Quit
			case "1":
				a.screen = ScreenDashboard
				return a, nil
			case "2":
				a.screen = ScreenAccounts
				return a, nil
			case "?":
				if a.screen != ScreenHelp {
					a.prevScreen = a.screen
					a.screen = ScreenHelp
				}
				return a, nil
			case "esc":
				if a.screen == ScreenHelp {
					a.screen = a.prevScreen
					return a, nil
				}
			}
		} else if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		m, _ := a.dashboard.Update(msg)
		a.dashboard = m.(DashboardModel)
		return a, nil

	case accountsLoadedMsg:
		m, _ := a.accounts.Update(msg)
		a.accounts = m.(AccountsModel)
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.SetAccounts(a.accounts.Names())
		return a, cmd

	case accountChosenMsg:
		a.screen = ScreenDashboard
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.Select(msg.name)
		return a, cmd

	case summaryMsg, spinner.TickMsg:
		// async replies belong to the dashboard whatever screen is showing
		m, cmd := a.dashboard.Update(msg)
		a.dashboard = m.(DashboardModel)
		return a, cmd
	}

	// Delegate to current screen
	var cmd tea.Cmd
	switch a.screen {
	case ScreenDashboard:
		var m tea.Model
		m, cmd = a.dashboard.Update(msg)
		a.dashboard = m.(DashboardModel)
	case ScreenAccounts:
		var m tea.Model
		m, cmd = a.accounts.Update(msg)
		a.accounts = m.(AccountsModel)
	case ScreenHelp:
		var m tea.Model
		m, cmd = a.help.Update(msg)
		a.help = m.(HelpModel)
	}

	return a, cmd
}

// View renders the app
func (a *App) View() string {
	var content string
	switch a.screen {
	case ScreenDashboard:
		content = a.dashboard.View()
	case ScreenAccounts:
		content = a.accounts.View()
	case ScreenHelp:
		content = a.help.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, a.renderHeader(), a.renderNav(), content)
}

func (a *App) renderHeader() string {
	return headerStyle.Render("Heart Rate Zone Trends")
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Dashboard", ScreenDashboard},
		{"2", "Accounts", ScreenAccounts},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}

		label := "[" + item.key + "] " + item.label
		if a.screen == item.screen {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}

	nav += "  " + navInactiveStyle.Render("[q] Quit")

	return navStyle.Render(nav)
}
