package historyui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/blastrain/internal/stats"
)

// Model runs the history panel as a standalone program.
type Model struct {
	panel    *Panel
	username string
	width    int
	height   int
}

// NewModel constructs the standalone history UI for username.
func NewModel(src stats.Source, username string) *Model {
	return &Model{panel: NewPanel(src), username: username}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	m.panel.Focus()
	return m.panel.SetUser(m.username)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.panel.SetSize(m.width, m.bodyHeight())
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "r":
			return m, m.panel.Refresh()
		}
	}
	return m, m.panel.Update(msg)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	header := FitLines(m.renderHeader(), m.width, 2)
	body := FitLines(m.panel.View(), m.width, m.bodyHeight())
	footer := FitLines(headerStyle.Render("up/down: scroll  r: refresh  q: quit"), m.width, 1)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) bodyHeight() int {
	return max(1, m.height-3)
}

func (m *Model) renderHeader() string {
	title := titleStyle.Render("Blast training history") + headerStyle.Render("  "+m.panel.Username())
	results := m.panel.Report().History.Results
	if len(results) > 0 {
		title += headerStyle.Render("  last: ") + verdict(results[0].Passed)
	}
	return title
}
