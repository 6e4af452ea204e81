package session

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestLoginRequiresCodeAndUsername(t *testing.T) {
	g := NewGate("", 0, clockwork.NewFakeClock())
	if _, err := g.Login("operator", "WRONG"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied for wrong code, got %v", err)
	}
	if _, err := g.Login("   ", DefaultAccessCode); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied for blank username, got %v", err)
	}
	if _, ok := g.Current(); ok {
		t.Fatalf("expected no session after failed logins")
	}
}

func TestLoginCreatesTwoHourSession(t *testing.T) {
	clock := clockwork.NewFakeClock()
	g := NewGate("", 0, clock)
	s, err := g.Login(" operator ", DefaultAccessCode)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if s.Username != "operator" {
		t.Fatalf("expected trimmed username, got %q", s.Username)
	}
	if !s.ExpiresAt.Equal(clock.Now().Add(2 * time.Hour)) {
		t.Fatalf("unexpected expiry %v", s.ExpiresAt)
	}
	if got := g.Remaining(); got != 2*time.Hour {
		t.Fatalf("expected 2h remaining, got %v", got)
	}
}

func TestTickExpiresExactlyOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	g := NewGate("", 0, clock)
	if _, err := g.Login("operator", DefaultAccessCode); err != nil {
		t.Fatalf("login: %v", err)
	}

	expirations := 0
	for elapsed := time.Duration(0); elapsed < 2*time.Hour+5*time.Second; elapsed += time.Second {
		tick := g.Tick()
		if tick.Expired {
			expirations++
			if elapsed != 2*time.Hour {
				t.Fatalf("expired after %v, want 2h", elapsed)
			}
		}
		if elapsed < 2*time.Hour && (!tick.Active || tick.Remaining != 2*time.Hour-elapsed) {
			t.Fatalf("unexpected tick at %v: %+v", elapsed, tick)
		}
		clock.Advance(time.Second)
	}
	if expirations != 1 {
		t.Fatalf("expected exactly one forced logout, got %d", expirations)
	}
	if _, ok := g.Current(); ok {
		t.Fatalf("expected session cleared after expiry")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	g := NewGate("CODE", time.Minute, clockwork.NewFakeClock())
	if _, err := g.Login("operator", "CODE"); err != nil {
		t.Fatalf("login: %v", err)
	}
	g.Logout()
	if _, ok := g.Current(); ok {
		t.Fatalf("expected no session after logout")
	}
	if tick := g.Tick(); tick.Expired || tick.Active {
		t.Fatalf("expected inert tick after logout, got %+v", tick)
	}
	if g.Remaining() != 0 {
		t.Fatalf("expected zero remaining after logout")
	}
}

func TestFormatRemaining(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00:00"},
		{-time.Second, "0:00:00"},
		{2 * time.Hour, "2:00:00"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
		{59*time.Second + 999*time.Millisecond, "0:00:59"},
	}
	for _, tc := range cases {
		if got := FormatRemaining(tc.d); got != tc.want {
			t.Fatalf("FormatRemaining(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
