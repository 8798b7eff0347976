package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"zonetrends/internal/store"
)

// AccountsModel lists the linked Strava accounts
type AccountsModel struct {
	store    AccountStore
	accounts []store.Account
	cursor   int
	loading  bool
	err      error
}

// NewAccountsModel creates a new accounts model
func NewAccountsModel(s AccountStore) AccountsModel {
	return AccountsModel{store: s, loading: true}
}

// accountsLoadedMsg is handled by the App so the dashboard sees the same list
type accountsLoadedMsg struct {
	accounts []store.Account
	err      error
}

// accountChosenMsg asks the App to show an account on the dashboard
type accountChosenMsg struct {
	name string
}

// Init initializes the accounts screen
func (m AccountsModel) Init() tea.Cmd {
	return m.load
}

func (m AccountsModel) load() tea.Msg {
	accounts, err := m.store.ListAccounts()
	return accountsLoadedMsg{accounts: accounts, err: err}
}

// Names returns the account names in display order
func (m AccountsModel) Names() []string {
	names := make([]string, len(m.accounts))
	for i, a := range m.accounts {
		names[i] = a.Name
	}
	return names
}

// Update handles messages
func (m AccountsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case accountsLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.accounts = msg.accounts
		if m.cursor >= len(m.accounts) {
			m.cursor = max(len(m.accounts)-1, 0)
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			if m.cursor < len(m.accounts)-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "enter":
			if len(m.accounts) > 0 {
				name := m.accounts[m.cursor].Name
				return m, func() tea.Msg { return accountChosenMsg{name: name} }
			}
		case "r":
			m.loading = true
			return m, m.load
		}
	}
	return m, nil
}

// View renders the accounts screen
func (m AccountsModel) View() string {
	if m.loading {
		return "\n  Loading accounts..."
	}
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	title := cardTitleStyle.Render(fmt.Sprintf("Linked Accounts (%d)", len(m.accounts)))
	if len(m.accounts) == 0 {
		return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title,
			"No accounts yet. Run `zonetrends login <name>`."))
	}

	header := tableHeaderStyle.Render(fmt.Sprintf("%-20s  %12s  %-20s", "Name", "Athlete", "Token"))
	rows := []string{header}
	now := time.Now()
	for i, a := range m.accounts {
		token := "expires " + humanize.RelTime(a.ExpiresAt, now, "ago", "from now")
		if !a.ExpiresAt.After(now) {
			token = "refresh due"
		}
		line := fmt.Sprintf("%-20s  %12d  %-20s", a.Name, a.AthleteID, token)
		if i == m.cursor {
			rows = append(rows, tableSelectedStyle.Render(line))
		} else {
			rows = append(rows, tableRowStyle.Render(line))
		}
	}

	table := lipgloss.JoinVertical(lipgloss.Left, rows...)
	help := statusStyle.Render("enter: show on dashboard  r: reload")
	return lipgloss.JoinVertical(lipgloss.Left, cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, table)), help)
}
