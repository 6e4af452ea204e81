// Package model defines shared data structures.
package model

import "time"

// TestTypeDetonatorSimulator identifies simulator attempts on the scoring service.
const TestTypeDetonatorSimulator = "detonator_simulator"

// Config defines trainer settings resolved from flags and the config file.
type Config struct {
	ServiceURL     string
	ServiceTimeout time.Duration
	AccessCode     string
	SessionTTL     time.Duration
	Scoring        string
	Seed           int64
}

// DetonatorStatus is the firing status of a single detonator.
type DetonatorStatus string

// Detonator statuses.
const (
	StatusIdle  DetonatorStatus = "idle"
	StatusArmed DetonatorStatus = "armed"
	StatusFired DetonatorStatus = "fired"
	StatusError DetonatorStatus = "error"
)

// Detonator is one simulated unit with a configured delay in milliseconds.
type Detonator struct {
	ID     int
	Delay  int
	Status DetonatorStatus
}

// Session is a time-boxed authenticated client state.
type Session struct {
	Username  string
	ExpiresAt time.Time
}

// AttemptResult captures one completed fire sequence. It is never mutated
// after creation.
type AttemptResult struct {
	ID          string
	Username    string
	TestType    string
	Score       int
	Passed      bool
	MaxDelay    int
	Delays      []int
	CompletedAt time.Time
}

// ResultRecord is a stored attempt as returned by the scoring service.
type ResultRecord struct {
	ID          int64
	TestType    string
	Score       int
	Passed      bool
	MaxDelay    int
	CompletedAt time.Time
}

// UserProgress is the aggregate kept by the scoring service.
type UserProgress struct {
	TheoryCompleted   int
	PracticeCompleted int
	TestsCompleted    int
	TotalScore        int
}

// History is a user's recent results and progress. Progress is nil when the
// service has no record of the user.
type History struct {
	Results  []ResultRecord
	Progress *UserProgress
}
