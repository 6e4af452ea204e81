// Package scoreapi speaks the JSON contract of the scoring service.
package scoreapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/blastrain/internal/model"
)

// AttemptIDHeader carries the client-side attempt id on submissions.
const AttemptIDHeader = "X-Attempt-ID"

// SubmitRequest is the POST body for a completed attempt.
type SubmitRequest struct {
	Username     string       `json:"username"`
	TestType     string       `json:"test_type"`
	Score        int          `json:"score"`
	Passed       bool         `json:"passed"`
	MaxDelay     int          `json:"max_delay"`
	SequenceData SequenceData `json:"sequence_data"`
}

// SequenceData holds the delays in detonator id order.
type SequenceData struct {
	Delays []int `json:"delays"`
}

// SubmitResponse is the POST response.
type SubmitResponse struct {
	Success  bool   `json:"success"`
	ResultID int64  `json:"result_id,omitempty"`
	UserID   int64  `json:"user_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HistoryResponse is the GET response.
type HistoryResponse struct {
	Results  []ResultRecord  `json:"results"`
	Progress *ProgressRecord `json:"progress"`
}

// ResultRecord is one stored attempt.
type ResultRecord struct {
	ID          int64  `json:"id"`
	TestType    string `json:"test_type"`
	Score       int    `json:"score"`
	Passed      bool   `json:"passed"`
	MaxDelay    int    `json:"max_delay"`
	CompletedAt string `json:"completed_at"`
}

// ProgressRecord is the per-user aggregate.
type ProgressRecord struct {
	TheoryCompleted   int `json:"theory_completed"`
	PracticeCompleted int `json:"practice_completed"`
	TestsCompleted    int `json:"tests_completed"`
	TotalScore        int `json:"total_score"`
}

// ErrorResponse is the body of non-2xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewSubmitRequest converts an attempt into its wire form.
func NewSubmitRequest(a model.AttemptResult) SubmitRequest {
	testType := a.TestType
	if testType == "" {
		testType = model.TestTypeDetonatorSimulator
	}
	delays := a.Delays
	if delays == nil {
		delays = []int{}
	}
	return SubmitRequest{
		Username:     a.Username,
		TestType:     testType,
		Score:        a.Score,
		Passed:       a.Passed,
		MaxDelay:     a.MaxDelay,
		SequenceData: SequenceData{Delays: delays},
	}
}

// Attempt converts a decoded request back into an attempt.
func (r SubmitRequest) Attempt() model.AttemptResult {
	return model.AttemptResult{
		Username: r.Username,
		TestType: r.TestType,
		Score:    r.Score,
		Passed:   r.Passed,
		MaxDelay: r.MaxDelay,
		Delays:   append([]int(nil), r.SequenceData.Delays...),
	}
}

// NewResultRecord converts a stored record into its wire form.
func NewResultRecord(r model.ResultRecord) ResultRecord {
	return ResultRecord{
		ID:          r.ID,
		TestType:    r.TestType,
		Score:       r.Score,
		Passed:      r.Passed,
		MaxDelay:    r.MaxDelay,
		CompletedAt: r.CompletedAt.UTC().Format(time.RFC3339),
	}
}

// NewProgressRecord converts progress into its wire form. Nil stays nil.
func NewProgressRecord(p *model.UserProgress) *ProgressRecord {
	if p == nil {
		return nil
	}
	return &ProgressRecord{
		TheoryCompleted:   p.TheoryCompleted,
		PracticeCompleted: p.PracticeCompleted,
		TestsCompleted:    p.TestsCompleted,
		TotalScore:        p.TotalScore,
	}
}

// History converts a decoded response into the model form.
func (r HistoryResponse) History() model.History {
	h := model.History{Results: make([]model.ResultRecord, 0, len(r.Results))}
	for _, rec := range r.Results {
		completedAt, err := ParseTimestamp(rec.CompletedAt)
		if err != nil {
			completedAt = time.Time{}
		}
		h.Results = append(h.Results, model.ResultRecord{
			ID:          rec.ID,
			TestType:    rec.TestType,
			Score:       rec.Score,
			Passed:      rec.Passed,
			MaxDelay:    rec.MaxDelay,
			CompletedAt: completedAt,
		})
	}
	if r.Progress != nil {
		h.Progress = &model.UserProgress{
			TheoryCompleted:   r.Progress.TheoryCompleted,
			PracticeCompleted: r.Progress.PracticeCompleted,
			TestsCompleted:    r.Progress.TestsCompleted,
			TotalScore:        r.Progress.TotalScore,
		}
	}
	return h
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// ParseTimestamp accepts RFC 3339 and the "YYYY-MM-DD HH:MM:SS[.ffffff]"
// form emitted by services that stringify database timestamps.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}
