package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// toastTTL is how long a notification stays on screen.
const toastTTL = 4 * time.Second

const maxToasts = 3

type toastKind int

const (
	toastInfo toastKind = iota
	toastError
)

type toast struct {
	id    int
	kind  toastKind
	title string
	body  string
}

type toastExpiredMsg struct {
	id int
}

type toasts struct {
	nextID int
	items  []toast
}

func (t *toasts) push(kind toastKind, title, body string) int {
	t.nextID++
	t.items = append(t.items, toast{id: t.nextID, kind: kind, title: title, body: body})
	if len(t.items) > maxToasts {
		t.items = t.items[len(t.items)-maxToasts:]
	}
	return t.nextID
}

func (t *toasts) expire(id int) {
	for i, item := range t.items {
		if item.id == id {
			t.items = append(t.items[:i], t.items[i+1:]...)
			return
		}
	}
}

func (t *toasts) titles() []string {
	out := make([]string, 0, len(t.items))
	for _, item := range t.items {
		out = append(out, item.title)
	}
	return out
}

func (t *toasts) view(width int) string {
	if len(t.items) == 0 {
		return ""
	}
	boxes := make([]string, 0, len(t.items))
	for _, item := range t.items {
		style := toastInfoStyle
		if item.kind == toastError {
			style = toastErrorStyle
		}
		content := lipgloss.NewStyle().Bold(true).Render(item.title)
		if item.body != "" {
			content += "\n" + wrapText(item.body, max(10, width-4))
		}
		boxes = append(boxes, style.Render(content))
	}
	return strings.Join(boxes, "\n")
}
