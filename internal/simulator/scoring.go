package simulator

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Score bounds for sequences that are not non-decreasing.
const (
	MinFailScore = 40
	MaxFailScore = 99
)

// Scorer names accepted by ScorerByName.
const (
	ScoringInversions = "inversions"
	ScoringRandom     = "random"
)

// Scorer scores a delay sequence that is known to be out of order.
type Scorer interface {
	Score(delays []int) int
}

// IsNonDecreasing reports whether every delay is >= the one before it.
func IsNonDecreasing(delays []int) bool {
	for i := 1; i < len(delays); i++ {
		if delays[i] < delays[i-1] {
			return false
		}
	}
	return true
}

// Inversions counts pairs i<j with delays[i] > delays[j].
func Inversions(delays []int) int {
	n := 0
	for i := 0; i < len(delays); i++ {
		for j := i + 1; j < len(delays); j++ {
			if delays[i] > delays[j] {
				n++
			}
		}
	}
	return n
}

// InversionScorer gives partial credit by how far the sequence is from
// sorted: one inversion scores MaxFailScore, a fully reversed sequence
// scores MinFailScore.
type InversionScorer struct{}

// Score implements Scorer.
func (InversionScorer) Score(delays []int) int {
	n := len(delays)
	maxInv := n * (n - 1) / 2
	inv := Inversions(delays)
	if maxInv <= 1 || inv <= 0 {
		return MaxFailScore
	}
	if inv > maxInv {
		inv = maxInv
	}
	return MinFailScore + (MaxFailScore-MinFailScore)*(maxInv-inv)/(maxInv-1)
}

// RandomScorer draws a uniform score in [MinFailScore, MaxFailScore]
// regardless of the sequence.
type RandomScorer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomScorer returns a RandomScorer. A zero seed uses the current time.
func NewRandomScorer(seed int64) *RandomScorer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomScorer{rnd: rand.New(rand.NewSource(seed))}
}

// Score implements Scorer.
func (r *RandomScorer) Score(_ []int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(MaxFailScore-MinFailScore+1) + MinFailScore
}

// ScorerByName resolves a configured scorer name.
func ScorerByName(name string, seed int64) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ScoringInversions:
		return InversionScorer{}, nil
	case ScoringRandom:
		return NewRandomScorer(seed), nil
	default:
		return nil, fmt.Errorf("unknown scoring %q (use %s or %s)", name, ScoringInversions, ScoringRandom)
	}
}
