package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/verte-zerg/blastrain/internal/model"
	"github.com/verte-zerg/blastrain/internal/simulator"
)

type saveStatus int

const (
	saveNone saveStatus = iota
	saveInFlight
	saveDone
	saveFailed
)

type fireStepMsg struct {
	run int
}

type evaluateMsg struct {
	run int
}

type submittedMsg struct {
	attemptID string
	err       error
}

// practice is the simulator tab: the machine state plus editing cursor.
type practice struct {
	state    simulator.State
	selected int
	save     saveStatus
	// attemptID is the id of the attempt being saved.
	attemptID string
}

func newPractice() practice {
	return practice{state: simulator.NewState()}
}

// updatePractice handles simulator keys. Precondition failures are dropped
// without notification.
func (a *App) updatePractice(msg tea.KeyMsg) tea.Cmd {
	p := &a.practice
	switch key := msg.String(); key {
	case "up", "k":
		p.selected = (p.selected + simulator.DetonatorCount - 1) % simulator.DetonatorCount
		return nil
	case "down", "j":
		p.selected = (p.selected + 1) % simulator.DetonatorCount
		return nil
	case "backspace":
		det := p.state.Detonators[p.selected]
		return a.applyDelay(det.ID, det.Delay/10)
	case "a":
		return a.arm()
	case "f", "enter":
		return a.fire()
	case "r":
		a.resetPractice()
		return nil
	default:
		if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
			det := p.state.Detonators[p.selected]
			digit, _ := strconv.Atoi(key)
			return a.applyDelay(det.ID, det.Delay*10+digit)
		}
	}
	return nil
}

func (a *App) applyDelay(id, value int) tea.Cmd {
	next, err := a.machine.Apply(a.practice.state, simulator.SetDelay{ID: id, Value: value})
	switch {
	case err == nil:
		a.practice.state = next
		return nil
	case errors.Is(err, simulator.ErrDelayOutOfRange):
		return a.notify(toastError, "Invalid delay",
			fmt.Sprintf("Delay must be between %d and %d ms", simulator.MinDelay, simulator.MaxDelay))
	default:
		return nil
	}
}

func (a *App) arm() tea.Cmd {
	next, err := a.machine.Apply(a.practice.state, simulator.Arm{})
	switch {
	case err == nil:
		a.practice.state = next
		return a.notify(toastInfo, "System armed", "All detonators are ready to fire")
	case errors.Is(err, simulator.ErrInvalidDelays):
		return a.notify(toastError, "Error", "Check the delays")
	default:
		return nil
	}
}

func (a *App) fire() tea.Cmd {
	next, err := a.machine.Apply(a.practice.state, simulator.Fire{})
	if err != nil {
		return nil
	}
	a.practice.state = next
	a.practice.save = saveNone
	log.Debug().Int("run", next.Run).Ints("order", next.Order).Msg("fire sequence started")
	return a.schedule(a.stepInterval, fireStepMsg{run: next.Run})
}

func (a *App) resetPractice() {
	next, _ := a.machine.Apply(a.practice.state, simulator.Reset{})
	a.practice.state = next
	a.practice.save = saveNone
	a.practice.attemptID = ""
}

func (a *App) handleFireStep(msg fireStepMsg) tea.Cmd {
	next, err := a.machine.Apply(a.practice.state, simulator.Step{Run: msg.run})
	if err != nil {
		return nil
	}
	a.practice.state = next
	if next.Done() {
		return a.schedule(a.settleInterval, evaluateMsg{run: msg.run})
	}
	return a.schedule(a.stepInterval, fireStepMsg{run: msg.run})
}

func (a *App) handleEvaluate(msg evaluateMsg) tea.Cmd {
	next, err := a.machine.Apply(a.practice.state, simulator.Evaluate{Run: msg.run})
	if err != nil {
		return nil
	}
	a.practice.state = next
	out := next.Outcome
	log.Info().
		Int("score", out.Score).
		Bool("passed", out.Passed).
		Ints("delays", out.Delays).
		Msg("fire sequence evaluated")

	title := "Try again"
	if out.Passed {
		title = "Excellent!"
	}
	cmds := []tea.Cmd{a.notify(toastInfo, title, fmt.Sprintf("Result: %d%%", out.Score))}

	username := a.username()
	if username == "" || a.service == nil {
		return tea.Batch(cmds...)
	}
	attempt := out.Attempt(a.newID(), username, a.clock.Now())
	a.practice.save = saveInFlight
	a.practice.attemptID = attempt.ID
	cmds = append(cmds, a.submit(attempt))
	return tea.Batch(cmds...)
}

func (a *App) handleSubmitted(msg submittedMsg) tea.Cmd {
	if msg.attemptID != a.practice.attemptID {
		return nil
	}
	if msg.err != nil {
		log.Error().Err(msg.err).Str("attempt_id", msg.attemptID).Msg("failed to save result")
		a.practice.save = saveFailed
		return nil
	}
	a.practice.save = saveDone
	return a.history.Refresh()
}

func (a *App) viewPractice(width int) string {
	p := a.practice
	s := p.state

	cards := make([]string, 0, len(s.Detonators))
	for i, det := range s.Detonators {
		cards = append(cards, detonatorCard(det, i == p.selected && s.Editable()))
	}
	var row string
	if width > 0 && width < 4*lipgloss.Width(cards[0]) {
		row = lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1]),
			lipgloss.JoinHorizontal(lipgloss.Top, cards[2], cards[3]))
	} else {
		row = lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	}

	lines := []string{
		brandStyle.Render("Electronic detonator simulator") + "  " + phaseBadge(s),
		mutedStyle.Render("Set a delay for each detonator and run the sequence"),
		row,
	}
	if order := s.FiredOrder(); len(order) > 0 {
		lines = append(lines, mutedStyle.Render("Fired order: ")+textStyle.Render(joinInts(order, " -> ")))
	}
	if status := saveLabel(p.save); status != "" {
		lines = append(lines, status)
	}
	lines = append(lines, "", mutedStyle.Render(wrapText(simulatorTask, max(20, width-2))), "", renderExercises(width))
	return strings.Join(lines, "\n")
}

func detonatorCard(det model.Detonator, selected bool) string {
	style := cardStyle
	if selected {
		style = selectedCardStyle
	}
	delay := fmt.Sprintf("%4d ms", det.Delay)
	if selected {
		delay = brandStyle.Render(delay)
	} else {
		delay = textStyle.Render(delay)
	}
	content := strings.Join([]string{
		textStyle.Render(fmt.Sprintf("Detonator #%d", det.ID)),
		statusStyle(det.Status).Render(statusLabel(det.Status)),
		delay,
	}, "\n")
	return style.Width(16).Render(content)
}

func phaseBadge(s simulator.State) string {
	switch s.Phase {
	case simulator.PhaseArmed:
		return warnStyle.Render("ARMED")
	case simulator.PhaseFiring:
		return warnStyle.Render(fmt.Sprintf("FIRING %d/%d", s.Next, len(s.Order)))
	case simulator.PhaseComplete:
		if s.Outcome != nil && s.Outcome.Passed {
			return okStyle.Render(fmt.Sprintf("%d%% PASSED", s.Outcome.Score))
		}
		if s.Outcome != nil {
			return warnStyle.Render(fmt.Sprintf("%d%% FAILED", s.Outcome.Score))
		}
	}
	return mutedStyle.Render("IDLE")
}

func saveLabel(s saveStatus) string {
	switch s {
	case saveInFlight:
		return mutedStyle.Render("Saving result...")
	case saveDone:
		return okStyle.Render("Result saved")
	case saveFailed:
		return errorStyle.Render("Result not saved")
	default:
		return ""
	}
}

func practiceHelp(s simulator.State) string {
	parts := []string{"up/down: select"}
	if s.Editable() {
		parts = append(parts, "0-9/backspace: delay", "a: arm")
	}
	if s.Phase == simulator.PhaseArmed {
		parts = append(parts, "f/enter: fire")
	}
	parts = append(parts, "r: reset")
	return strings.Join(parts, "  ")
}

func joinInts(values []int, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}
