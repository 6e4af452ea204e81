// Package session implements the access-code login gate and session countdown.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/verte-zerg/blastrain/internal/model"
)

// Defaults of the login gate.
const (
	DefaultAccessCode = "BLAST2024"
	DefaultTTL        = 2 * time.Hour
	// WarnThreshold is the remaining time under which the countdown is highlighted.
	WarnThreshold = 10 * time.Minute
)

// ErrAccessDenied is returned for a wrong access code or an empty username.
var ErrAccessDenied = errors.New("invalid access code or username")

// Tick is the result of one countdown tick.
type Tick struct {
	Remaining time.Duration
	// Expired is true only on the tick that ended the session.
	Expired bool
	// Active reports whether a session is still open after the tick.
	Active bool
}

// Gate owns the current session. The access code is a fixed string and is
// not meant as a credential system.
type Gate struct {
	accessCode string
	ttl        time.Duration
	clock      clockwork.Clock
	current    *model.Session
}

// NewGate returns a Gate. Empty code and non-positive ttl use the defaults;
// a nil clock uses the real clock.
func NewGate(accessCode string, ttl time.Duration, clock clockwork.Clock) *Gate {
	if accessCode == "" {
		accessCode = DefaultAccessCode
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Gate{accessCode: accessCode, ttl: ttl, clock: clock}
}

// TTL returns the session lifetime.
func (g *Gate) TTL() time.Duration {
	return g.ttl
}

// Login opens a session when code matches and username is not blank.
func (g *Gate) Login(username, code string) (model.Session, error) {
	username = strings.TrimSpace(username)
	if code != g.accessCode || username == "" {
		return model.Session{}, ErrAccessDenied
	}
	s := model.Session{Username: username, ExpiresAt: g.clock.Now().Add(g.ttl)}
	g.current = &s
	return s, nil
}

// Logout closes the session unconditionally.
func (g *Gate) Logout() {
	g.current = nil
}

// Current returns the open session, if any.
func (g *Gate) Current() (model.Session, bool) {
	if g.current == nil {
		return model.Session{}, false
	}
	return *g.current, true
}

// Remaining returns the time left in the open session, never negative.
func (g *Gate) Remaining() time.Duration {
	if g.current == nil {
		return 0
	}
	left := g.current.ExpiresAt.Sub(g.clock.Now())
	if left < 0 {
		return 0
	}
	return left
}

// Tick recomputes the countdown and closes the session once it reaches zero.
func (g *Gate) Tick() Tick {
	if g.current == nil {
		return Tick{}
	}
	left := g.Remaining()
	if left > 0 {
		return Tick{Remaining: left, Active: true}
	}
	g.current = nil
	return Tick{Expired: true}
}

// FormatRemaining renders a duration as H:MM:SS.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}
