// Package historyui renders a user's saved simulator results and progress.
package historyui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/verte-zerg/blastrain/internal/stats"
)

const trendWindow = 3

// loadedMsg carries a finished history read. seq identifies the request so
// answers for a previous user or refresh are dropped.
type loadedMsg struct {
	seq    int
	report stats.Report
	err    error
}

// Panel is the history view embedded in the dashboard. It does not cache:
// every SetUser or Refresh issues one read.
type Panel struct {
	src stats.Source

	username string
	seq      int
	loading  bool
	err      error
	report   stats.Report

	table  table.Model
	width  int
	height int
}

// NewPanel returns an empty panel reading from src.
func NewPanel(src stats.Source) *Panel {
	p := &Panel{src: src}
	p.table = table.New(
		table.WithColumns(resultColumns()),
		table.WithHeight(1),
	)
	p.table.SetStyles(resultTableStyles())
	return p
}

// Username returns the user whose history is shown.
func (p *Panel) Username() string {
	return p.username
}

// Loading reports whether a read is in flight.
func (p *Panel) Loading() bool {
	return p.loading
}

// Err returns the error of the last read, if any.
func (p *Panel) Err() error {
	return p.err
}

// Report returns the last successfully loaded report.
func (p *Panel) Report() stats.Report {
	return p.report
}

// SetUser switches to username and starts a read. An empty username clears
// the panel and reads nothing.
func (p *Panel) SetUser(username string) tea.Cmd {
	p.username = strings.TrimSpace(username)
	p.report = stats.Report{}
	p.err = nil
	p.table.SetRows(nil)
	if p.username == "" {
		p.seq++
		p.loading = false
		return nil
	}
	return p.Refresh()
}

// Refresh re-reads the current user's history.
func (p *Panel) Refresh() tea.Cmd {
	if p.username == "" || p.src == nil {
		return nil
	}
	p.seq++
	p.loading = true
	seq, src, username := p.seq, p.src, p.username
	return func() tea.Msg {
		report, err := stats.BuildReport(context.Background(), src, username, trendWindow)
		return loadedMsg{seq: seq, report: report, err: err}
	}
}

// Update handles read results and table navigation keys.
func (p *Panel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.seq != p.seq {
			return nil
		}
		p.loading = false
		if msg.err != nil {
			log.Error().Err(msg.err).Str("username", p.username).Msg("failed to load history")
			p.err = msg.err
			p.report = stats.Report{Username: p.username}
			p.table.SetRows(nil)
			return nil
		}
		p.err = nil
		p.report = msg.report
		p.table.SetRows(resultRows(msg.report))
		p.table.GotoTop()
		return nil
	case tea.KeyMsg:
		var cmd tea.Cmd
		p.table, cmd = p.table.Update(msg)
		return cmd
	}
	return nil
}

// Focus gives the results table keyboard focus.
func (p *Panel) Focus() {
	p.table.Focus()
}

// Blur removes keyboard focus from the results table.
func (p *Panel) Blur() {
	p.table.Blur()
}

// SetSize sets the area the panel renders into.
func (p *Panel) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.table.SetWidth(width)
	cardsHeight := lipgloss.Height(p.renderCards())
	p.table.SetHeight(max(3, height-cardsHeight-4))
}

// View renders the panel.
func (p *Panel) View() string {
	if p.username == "" {
		return ""
	}
	if p.loading && len(p.report.History.Results) == 0 {
		return headerStyle.Render("Loading results...")
	}

	lines := []string{titleStyle.Render("Overall progress")}
	if p.err != nil {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("Failed to load results: %v", p.err)))
	} else {
		lines = append(lines, p.renderCards())
	}
	lines = append(lines, "", titleStyle.Render(p.resultsTitle()))

	results := p.report.History.Results
	switch {
	case len(results) == 0 && p.err == nil:
		lines = append(lines,
			headerStyle.Render("No saved results yet."),
			headerStyle.Render("Complete the simulator to see them here."))
	case len(results) > 0:
		lines = append(lines, tableMutedStyle.Render(p.table.View()))
		trend := stats.Sparkline(p.report.Trend)
		lines = append(lines, headerStyle.Render("Trend: ")+trend)
	}
	return strings.Join(lines, "\n")
}

func (p *Panel) resultsTitle() string {
	n := len(p.report.History.Results)
	if n == 0 {
		return "Results history"
	}
	return fmt.Sprintf("Results history (last %d attempts)", n)
}

func (p *Panel) renderCards() string {
	progress := p.report.History.Progress
	if progress == nil {
		return headerStyle.Render("No progress recorded yet.")
	}
	sum := p.report.Summary
	cards := []string{
		metricCard("Practice", fmt.Sprintf("%d", progress.PracticeCompleted)),
		metricCard("Tests", fmt.Sprintf("%d", progress.TestsCompleted)),
		metricCard("Total score", fmt.Sprintf("%d", progress.TotalScore)),
		metricCard("Avg score", fmt.Sprintf("%d", stats.AverageScore(progress))),
		metricCard("Pass rate", fmt.Sprintf("%.0f%%", sum.PassRate()*100)),
	}
	if p.width > 0 && p.width < 70 {
		return lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2]),
			lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4]))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func resultColumns() []table.Column {
	return []table.Column{
		{Title: stats.ResultHeaders[0], Width: 14},
		{Title: stats.ResultHeaders[1], Width: 10},
		{Title: stats.ResultHeaders[2], Width: 6},
		{Title: stats.ResultHeaders[3], Width: 6},
	}
}

func resultRows(r stats.Report) []table.Row {
	cells := stats.ResultRows(r.History.Results)
	rows := make([]table.Row, 0, len(cells))
	for _, c := range cells {
		rows = append(rows, table.Row(c))
	}
	return rows
}

// verdict styles a PASS/FAIL cell for places outside the table.
func verdict(passed bool) string {
	if passed {
		return passStyle.Render("PASS")
	}
	return failStyle.Render("FAIL")
}
