package tui

import (
	"fmt"
	"strings"
)

type lessonStatus int

const (
	lessonCompleted lessonStatus = iota
	lessonInProgress
	lessonLocked
)

type lesson struct {
	title    string
	duration string
	status   lessonStatus
}

type exercise struct {
	title      string
	difficulty string
	attempts   int
	bestScore  int
}

type exam struct {
	title     string
	questions int
	passed    bool
	score     int
	date      string
}

// The catalogue is static display content.
var (
	lessons = []lesson{
		{"1. Introduction to electronic detonators", "15 min", lessonCompleted},
		{"2. Principles of programmable delay", "20 min", lessonCompleted},
		{"3. Safety procedures", "25 min", lessonInProgress},
		{"4. Line testing protocols", "30 min", lessonLocked},
		{"5. Calculating blast patterns", "40 min", lessonLocked},
	}
	exercises = []exercise{
		{"Connecting detonators to the control unit", "Intermediate", 3, 72},
		{"Diagnosing circuit faults", "Advanced", 0, 0},
	}
	exams = []exam{
		{"Basic certification", 20, true, 92, "15.01.2026"},
		{"Advanced level", 30, true, 78, "10.01.2026"},
		{"Final certification", 50, false, 0, ""},
	}
)

const simulatorTask = "Task: set the delays so that the detonators fire in the right order. " +
	"Detonator #1 must fire first and #4 last. Recommended spacing: 100-500 ms."

func renderTheory(width int) string {
	lines := []string{
		brandStyle.Render("Electronic detonator fundamentals"),
		mutedStyle.Render("Theory material and operating principles"),
		"",
	}
	for _, l := range lessons {
		var mark string
		switch l.status {
		case lessonCompleted:
			mark = okStyle.Render("[done]")
		case lessonInProgress:
			mark = warnStyle.Render("[open]")
		default:
			mark = mutedStyle.Render("[lock]")
		}
		lines = append(lines, fmt.Sprintf("%s %s  %s", mark, clipLine(l.title, max(10, width-20)), mutedStyle.Render(l.duration)))
	}
	return strings.Join(lines, "\n")
}

func renderExercises(width int) string {
	lines := []string{brandStyle.Render("Other simulations")}
	for _, e := range exercises {
		detail := fmt.Sprintf("%s  attempts: %d  best: %d%%", e.difficulty, e.attempts, e.bestScore)
		lines = append(lines, "  "+clipLine(e.title, max(10, width-4)), "  "+mutedStyle.Render(detail))
	}
	return strings.Join(lines, "\n")
}

func renderTests(width int) string {
	lines := []string{
		brandStyle.Render("Certification and knowledge checks"),
		mutedStyle.Render("Testing and competence assessment"),
		"",
	}
	for _, e := range exams {
		result := mutedStyle.Render("not taken")
		if e.date != "" {
			verdict := okStyle.Render("passed")
			if !e.passed {
				verdict = errorStyle.Render("failed")
			}
			result = fmt.Sprintf("%s %d%%  %s", verdict, e.score, mutedStyle.Render(e.date))
		}
		title := clipLine(e.title, max(10, width-30))
		lines = append(lines, fmt.Sprintf("%s  %s  %s", textStyle.Render(title), mutedStyle.Render(fmt.Sprintf("%d questions", e.questions)), result))
	}
	return strings.Join(lines, "\n")
}
