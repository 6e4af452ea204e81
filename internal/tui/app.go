// Package tui provides the Bubble Tea training dashboard.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/verte-zerg/blastrain/internal/historyui"
	"github.com/verte-zerg/blastrain/internal/model"
	"github.com/verte-zerg/blastrain/internal/session"
	"github.com/verte-zerg/blastrain/internal/simulator"
	"github.com/verte-zerg/blastrain/internal/stats"
)

const (
	tabTheory = iota
	tabPractice
	tabTests
	tabHistory
)

var tabNames = []string{"Theory", "Practice", "Tests", "History"}

const (
	sessionTickInterval = time.Second
	defaultWidth        = 100
	defaultHeight       = 30
)

// ScoreService stores attempts and reads history.
type ScoreService interface {
	SubmitResult(ctx context.Context, attempt model.AttemptResult) error
	FetchHistory(ctx context.Context, username string) (model.History, error)
}

// Options configures an App. Zero values select the defaults.
type Options struct {
	Gate    *session.Gate
	Machine *simulator.Machine
	// Service may be nil, in which case nothing is saved or read.
	Service ScoreService
	Clock   clockwork.Clock
	NewID   func() string

	StepInterval   time.Duration
	SettleInterval time.Duration
}

type sessionTickMsg struct {
	gen int
}

type scheduleFunc func(d time.Duration, msg tea.Msg) tea.Cmd

// App is the dashboard model.
type App struct {
	gate     *session.Gate
	machine  *simulator.Machine
	service  ScoreService
	clock    clockwork.Clock
	newID    func() string
	schedule scheduleFunc

	stepInterval   time.Duration
	settleInterval time.Duration

	login     loginForm
	loggedIn  bool
	remaining time.Duration
	// tickGen invalidates the session tick chain of a previous login.
	tickGen int

	activeTab int
	practice  practice
	history   *historyui.Panel
	lessons   viewport.Model
	tests     viewport.Model
	toasts    toasts

	width  int
	height int
}

// NewApp constructs the dashboard.
func NewApp(opts Options) *App {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Gate == nil {
		opts.Gate = session.NewGate("", 0, opts.Clock)
	}
	if opts.Machine == nil {
		opts.Machine = simulator.NewMachine(nil)
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.StepInterval <= 0 {
		opts.StepInterval = simulator.StepInterval
	}
	if opts.SettleInterval <= 0 {
		opts.SettleInterval = simulator.SettleInterval
	}
	var src stats.Source
	if opts.Service != nil {
		src = opts.Service
	}
	a := &App{
		gate:           opts.Gate,
		machine:        opts.Machine,
		service:        opts.Service,
		clock:          opts.Clock,
		newID:          opts.NewID,
		schedule:       tick,
		stepInterval:   opts.StepInterval,
		settleInterval: opts.SettleInterval,
		login:          newLoginForm(),
		activeTab:      tabPractice,
		practice:       newPractice(),
		history:        historyui.NewPanel(src),
		lessons:        viewport.New(0, 0),
		tests:          viewport.New(0, 0),
	}
	a.resize(defaultWidth, defaultHeight)
	return a
}

func tick(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
		if !a.loggedIn {
			return a, a.updateLogin(msg)
		}
		return a, a.updateDashboard(msg)
	case sessionTickMsg:
		return a, a.handleSessionTick(msg)
	case fireStepMsg:
		return a, a.handleFireStep(msg)
	case evaluateMsg:
		return a, a.handleEvaluate(msg)
	case submittedMsg:
		return a, a.handleSubmitted(msg)
	case toastExpiredMsg:
		a.toasts.expire(msg.id)
		return a, nil
	}
	return a, a.history.Update(msg)
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.loggedIn {
		form := a.login.view()
		if notes := a.toasts.view(lipgloss.Width(form)); notes != "" {
			form = lipgloss.JoinVertical(lipgloss.Left, form, notes)
		}
		return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, form)
	}

	header := a.renderHeader()
	tabs := a.renderTabs()
	notes := a.toasts.view(a.width / 2)
	footer := historyui.FitLines(footerStyle.Render(clipLine(a.help(), a.width)), a.width, 1)
	bodyHeight := max(1, a.height-lipgloss.Height(header)-lipgloss.Height(tabs)-1)
	body := a.renderBody()
	if notes != "" {
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(a.width-lipgloss.Width(notes)-1).Render(body), " ", notes)
	}
	body = historyui.FitLines(body, a.width, bodyHeight)
	return strings.Join([]string{header, tabs, body, footer}, "\n")
}

func (a *App) updateLogin(msg tea.KeyMsg) tea.Cmd {
	cmd, submit := a.login.update(msg)
	if !submit {
		return cmd
	}
	username, code := a.login.values()
	sess, err := a.gate.Login(username, code)
	if err != nil {
		log.Info().Str("username", username).Msg("login rejected")
		return a.notify(toastError, "Login failed", "Invalid access code or login")
	}
	log.Info().Str("username", sess.Username).Time("expires_at", sess.ExpiresAt).Msg("session opened")
	a.loggedIn = true
	a.remaining = a.gate.Remaining()
	a.tickGen++
	a.activeTab = tabPractice
	a.syncFocus()
	return tea.Batch(
		a.notify(toastInfo, "Access granted",
			fmt.Sprintf("Welcome, %s! Session time: %s.", sess.Username, session.FormatRemaining(a.gate.TTL()))),
		a.schedule(sessionTickInterval, sessionTickMsg{gen: a.tickGen}),
		a.history.SetUser(sess.Username),
	)
}

func (a *App) updateDashboard(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+l":
		a.logout()
		return nil
	case "right", "tab":
		a.moveTab(1)
		return nil
	case "left", "shift+tab":
		a.moveTab(-1)
		return nil
	}
	switch a.activeTab {
	case tabPractice:
		return a.updatePractice(msg)
	case tabHistory:
		if msg.String() == "r" {
			return a.history.Refresh()
		}
		return a.history.Update(msg)
	case tabTheory:
		var cmd tea.Cmd
		a.lessons, cmd = a.lessons.Update(msg)
		return cmd
	case tabTests:
		var cmd tea.Cmd
		a.tests, cmd = a.tests.Update(msg)
		return cmd
	}
	return nil
}

func (a *App) handleSessionTick(msg sessionTickMsg) tea.Cmd {
	if msg.gen != a.tickGen || !a.loggedIn {
		return nil
	}
	t := a.gate.Tick()
	if t.Expired {
		log.Info().Msg("session expired")
		a.logout()
		return a.notify(toastError, "Session expired", "Access time is over. Log in again.")
	}
	if !t.Active {
		return nil
	}
	a.remaining = t.Remaining
	return a.schedule(sessionTickInterval, sessionTickMsg{gen: a.tickGen})
}

func (a *App) logout() {
	a.gate.Logout()
	a.loggedIn = false
	a.remaining = 0
	a.tickGen++
	a.resetPractice()
	a.history.SetUser("")
	a.login.clear()
}

func (a *App) username() string {
	sess, ok := a.gate.Current()
	if !ok {
		return ""
	}
	return sess.Username
}

func (a *App) submit(attempt model.AttemptResult) tea.Cmd {
	svc := a.service
	return func() tea.Msg {
		err := svc.SubmitResult(context.Background(), attempt)
		return submittedMsg{attemptID: attempt.ID, err: err}
	}
}

func (a *App) notify(kind toastKind, title, body string) tea.Cmd {
	id := a.toasts.push(kind, title, body)
	return a.schedule(toastTTL, toastExpiredMsg{id: id})
}

func (a *App) moveTab(delta int) {
	count := len(tabNames)
	a.activeTab = (a.activeTab + delta + count) % count
	a.syncFocus()
}

func (a *App) syncFocus() {
	if a.activeTab == tabHistory {
		a.history.Focus()
	} else {
		a.history.Blur()
	}
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height
	bodyHeight := max(3, height-8)
	a.login.setWidth(min(width, 60))
	a.history.SetSize(width, bodyHeight)
	a.lessons.Width, a.lessons.Height = width, bodyHeight
	a.tests.Width, a.tests.Height = width, bodyHeight
	a.lessons.SetContent(renderTheory(width))
	a.tests.SetContent(renderTests(width))
}

func (a *App) renderHeader() string {
	countdown := session.FormatRemaining(a.remaining)
	if a.remaining < session.WarnThreshold {
		countdown = warnStyle.Render(countdown)
	} else {
		countdown = textStyle.Render(countdown)
	}
	left := brandStyle.Render("BLAST TRAINING") + mutedStyle.Render("  operator: ") + textStyle.Render(a.username())
	right := mutedStyle.Render("session ") + countdown
	if p := a.history.Report().History.Progress; p != nil {
		right = mutedStyle.Render(fmt.Sprintf("tests %d  score %d  avg %d   ", p.TestsCompleted, p.TotalScore, stats.AverageScore(p))) + right
	}
	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

func (a *App) renderTabs() string {
	parts := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		if i == a.activeTab {
			parts = append(parts, activeNavStyle.Render(name))
		} else {
			parts = append(parts, inactiveNavStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (a *App) renderBody() string {
	switch a.activeTab {
	case tabTheory:
		return a.lessons.View()
	case tabTests:
		return a.tests.View()
	case tabHistory:
		if a.service == nil {
			return mutedStyle.Render("No scoring service configured.")
		}
		return a.history.View()
	default:
		return a.viewPractice(a.width)
	}
}

func (a *App) help() string {
	common := "left/right: tabs  ctrl+l: log out  ctrl+c: quit"
	switch a.activeTab {
	case tabPractice:
		return practiceHelp(a.practice.state) + "  " + common
	case tabHistory:
		return "up/down: scroll  r: refresh  " + common
	default:
		return "up/down: scroll  " + common
	}
}
