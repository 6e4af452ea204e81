package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	fieldUsername = iota
	fieldCode
)

type loginForm struct {
	inputs []textinput.Model
	focus  int
}

func newLoginForm() loginForm {
	username := newInput("Operator login: ", "enter your login")
	code := newInput("Access code:    ", "one-time code")
	code.EchoMode = textinput.EchoPassword
	code.EchoCharacter = '*'
	f := loginForm{inputs: []textinput.Model{username, code}}
	f.setFocus(fieldUsername)
	return f
}

func newInput(prompt, placeholder string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.Placeholder = placeholder
	input.CharLimit = 64
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (f *loginForm) setFocus(idx int) tea.Cmd {
	f.focus = idx
	var cmd tea.Cmd
	for i := range f.inputs {
		if i == idx {
			cmd = f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
	return cmd
}

func (f *loginForm) values() (username, code string) {
	return strings.TrimSpace(f.inputs[fieldUsername].Value()), f.inputs[fieldCode].Value()
}

func (f *loginForm) clear() tea.Cmd {
	for i := range f.inputs {
		f.inputs[i].SetValue("")
	}
	return f.setFocus(fieldUsername)
}

// update handles a key on the form. submit is true when enter is pressed
// on the last field.
func (f *loginForm) update(msg tea.KeyMsg) (cmd tea.Cmd, submit bool) {
	switch msg.String() {
	case "tab", "down":
		return f.setFocus((f.focus + 1) % len(f.inputs)), false
	case "shift+tab", "up":
		return f.setFocus((f.focus + len(f.inputs) - 1) % len(f.inputs)), false
	case "enter":
		if f.focus < len(f.inputs)-1 {
			return f.setFocus(f.focus + 1), false
		}
		return nil, true
	}
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd, false
}

func (f *loginForm) setWidth(width int) {
	for i := range f.inputs {
		promptWidth := lipgloss.Width(f.inputs[i].Prompt)
		f.inputs[i].Width = max(10, width-promptWidth-2)
	}
}

func (f loginForm) view() string {
	lines := []string{
		brandStyle.Render("BLAST TRAINING"),
		mutedStyle.Render("Electronic detonator operator training"),
		"",
		f.inputs[fieldUsername].View(),
		f.inputs[fieldCode].View(),
		"",
		footerStyle.Render("tab: next field  enter: log in  ctrl+c: quit"),
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}
