// Package stats contains attempt statistics and plain-text reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/blastrain/internal/model"
)

const sparkChars = " .:-=+*#%@"

// DateLayout is how completion times are shown.
const DateLayout = "02 Jan 15:04"

// Summary aggregates a list of results.
type Summary struct {
	Attempts     int
	Passed       int
	AverageScore float64
	BestScore    int
	LastScore    int
}

// PassRate returns the passed share in [0, 1].
func (s Summary) PassRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Attempts)
}

// Summarize aggregates results given newest first.
func Summarize(results []model.ResultRecord) Summary {
	var s Summary
	if len(results) == 0 {
		return s
	}
	total := 0
	for _, r := range results {
		total += r.Score
		if r.Passed {
			s.Passed++
		}
		if r.Score > s.BestScore {
			s.BestScore = r.Score
		}
	}
	s.Attempts = len(results)
	s.AverageScore = float64(total) / float64(len(results))
	s.LastScore = results[0].Score
	return s
}

// AverageScore returns the rounded all-time average from progress.
func AverageScore(p *model.UserProgress) int {
	if p == nil || p.TestsCompleted <= 0 {
		return 0
	}
	return int(math.Round(float64(p.TotalScore) / float64(p.TestsCompleted)))
}

// ScoreSeries returns scores oldest first from results given newest first.
func ScoreSeries(results []model.ResultRecord) []float64 {
	out := make([]float64, len(results))
	for i, r := range results {
		out[len(results)-1-i] = float64(r.Score)
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// FormatDate renders a completion time in local time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(DateLayout)
}

// ResultRows renders results as table cells: when, delay, score, verdict.
func ResultRows(results []model.ResultRecord) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		verdict := "FAIL"
		if r.Passed {
			verdict = "PASS"
		}
		rows = append(rows, []string{
			FormatDate(r.CompletedAt),
			fmt.Sprintf("%d ms", r.MaxDelay),
			fmt.Sprintf("%d%%", r.Score),
			verdict,
		})
	}
	return rows
}

// ResultHeaders are the column titles matching ResultRows.
var ResultHeaders = []string{"Completed", "Max delay", "Score", "Result"}

// RenderProgress prints the all-time progress of a user.
func RenderProgress(w io.Writer, p *model.UserProgress) error {
	if p == nil {
		_, err := fmt.Fprintln(w, "No progress recorded yet.")
		return err
	}
	lines := []string{
		"Progress",
		fmt.Sprintf("Practice completed: %d", p.PracticeCompleted),
		fmt.Sprintf("Tests completed: %d", p.TestsCompleted),
		fmt.Sprintf("Total score: %d", p.TotalScore),
		fmt.Sprintf("Average score: %d", AverageScore(p)),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderResults prints the recent results table with a score trend.
func RenderResults(w io.Writer, results []model.ResultRecord) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No saved results yet. Complete the simulator to see them here.")
		return err
	}
	sum := Summarize(results)
	header := []string{
		fmt.Sprintf("Last %d attempts", len(results)),
		fmt.Sprintf("Passed: %d (%.0f%%)  Avg: %.1f  Best: %d", sum.Passed, sum.PassRate()*100, sum.AverageScore, sum.BestScore),
		fmt.Sprintf("Trend: %s", Sparkline(ScoreSeries(results))),
		"",
	}
	for _, line := range header {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	rightAlign := map[int]bool{1: true, 2: true}
	for _, line := range formatTable(ResultHeaders, ResultRows(results), rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
