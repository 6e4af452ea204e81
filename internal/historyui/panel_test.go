package historyui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/blastrain/internal/model"
)

type fakeSource struct {
	history model.History
	err     error
	calls   []string
}

func (f *fakeSource) FetchHistory(_ context.Context, username string) (model.History, error) {
	f.calls = append(f.calls, username)
	return f.history, f.err
}

func sampleHistory() model.History {
	return model.History{
		Results: []model.ResultRecord{
			{ID: 2, TestType: model.TestTypeDetonatorSimulator, Score: 100, Passed: true, MaxDelay: 400, CompletedAt: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)},
			{ID: 1, TestType: model.TestTypeDetonatorSimulator, Score: 58, MaxDelay: 750, CompletedAt: time.Date(2026, 6, 1, 11, 0, 0, 0, time.UTC)},
		},
		Progress: &model.UserProgress{PracticeCompleted: 2, TestsCompleted: 2, TotalScore: 158},
	}
}

func run(t *testing.T, p *Panel, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command")
	}
	p.Update(cmd())
}

func TestEmptyUsernameRendersNothing(t *testing.T) {
	src := &fakeSource{history: sampleHistory()}
	p := NewPanel(src)
	if cmd := p.SetUser("   "); cmd != nil {
		t.Fatalf("expected no read without a username")
	}
	if p.View() != "" {
		t.Fatalf("expected empty view, got %q", p.View())
	}
	if len(src.calls) != 0 {
		t.Fatalf("expected no fetches, got %v", src.calls)
	}
}

func TestLoadRendersProgressAndResults(t *testing.T) {
	src := &fakeSource{history: sampleHistory()}
	p := NewPanel(src)
	p.SetSize(100, 30)
	cmd := p.SetUser("operator")
	if !p.Loading() {
		t.Fatalf("expected loading after SetUser")
	}
	if !strings.Contains(p.View(), "Loading") {
		t.Fatalf("expected loading view, got %q", p.View())
	}
	run(t, p, cmd)
	if p.Loading() {
		t.Fatalf("expected loading to finish")
	}
	if len(src.calls) != 1 || src.calls[0] != "operator" {
		t.Fatalf("expected exactly one read, got %v", src.calls)
	}
	view := p.View()
	for _, want := range []string{"Overall progress", "158", "79", "last 2 attempts", "750 ms", "58%", "PASS", "FAIL"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
}

func TestFailedLoadShowsErrorAndEmptyList(t *testing.T) {
	p := NewPanel(&fakeSource{err: errors.New("connection refused")})
	run(t, p, p.SetUser("operator"))
	if p.Err() == nil {
		t.Fatalf("expected error to be kept")
	}
	view := p.View()
	if !strings.Contains(view, "Failed to load results") {
		t.Fatalf("expected error line, got:\n%s", view)
	}
	if len(p.Report().History.Results) != 0 {
		t.Fatalf("expected empty result list")
	}
}

func TestRefreshAfterFailureRecovers(t *testing.T) {
	src := &fakeSource{err: errors.New("timeout")}
	p := NewPanel(src)
	run(t, p, p.SetUser("operator"))
	src.err = nil
	src.history = sampleHistory()
	run(t, p, p.Refresh())
	if p.Err() != nil {
		t.Fatalf("expected error to clear, got %v", p.Err())
	}
	if len(p.Report().History.Results) != 2 {
		t.Fatalf("expected results after refresh")
	}
}

func TestStaleLoadIsDropped(t *testing.T) {
	src := &fakeSource{history: sampleHistory()}
	p := NewPanel(src)
	first := p.SetUser("alice")
	stale := first()
	src.history = model.History{Results: []model.ResultRecord{}}
	run(t, p, p.SetUser("bob"))
	p.Update(stale)
	if got := len(p.Report().History.Results); got != 0 {
		t.Fatalf("stale answer for alice replaced bob's history (%d results)", got)
	}
	if p.Username() != "bob" {
		t.Fatalf("unexpected username %q", p.Username())
	}
}

func TestStandaloneModel(t *testing.T) {
	m := NewModel(&fakeSource{history: sampleHistory()}, "operator")
	cmd := m.Init()
	if cmd == nil {
		t.Fatalf("expected initial read")
	}
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m.Update(cmd())
	view := m.View()
	if !strings.Contains(view, "operator") || !strings.Contains(view, "last: ") {
		t.Fatalf("unexpected header:\n%s", view)
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}); cmd == nil {
		t.Fatalf("expected quit command")
	}
}
