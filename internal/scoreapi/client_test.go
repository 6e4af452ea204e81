package scoreapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/verte-zerg/blastrain/internal/model"
)

func TestSubmitResultSendsContract(t *testing.T) {
	var got SubmitRequest
	var attemptID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		attemptID = r.Header.Get(AttemptIDHeader)
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"success": true, "result_id": 7, "user_id": 3}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.SubmitResult(context.Background(), model.AttemptResult{
		ID:       "attempt-1",
		Username: "operator",
		TestType: model.TestTypeDetonatorSimulator,
		Score:    100,
		Passed:   true,
		MaxDelay: 400,
		Delays:   []int{100, 200, 300, 400},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if attemptID != "attempt-1" {
		t.Fatalf("expected attempt id header, got %q", attemptID)
	}
	if got.Username != "operator" || got.TestType != "detonator_simulator" || got.Score != 100 || !got.Passed || got.MaxDelay != 400 {
		t.Fatalf("unexpected body %+v", got)
	}
	if len(got.SequenceData.Delays) != 4 || got.SequenceData.Delays[3] != 400 {
		t.Fatalf("unexpected delays %v", got.SequenceData.Delays)
	}
}

func TestSubmitResultRawBody(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, 0).SubmitResult(context.Background(), model.AttemptResult{Username: "u", Delays: []int{1, 2, 3, 4}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	for _, key := range []string{"username", "test_type", "score", "passed", "max_delay", "sequence_data"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("missing key %q in %v", key, raw)
		}
	}
	seq, ok := raw["sequence_data"].(map[string]any)
	if !ok {
		t.Fatalf("sequence_data is not an object: %v", raw["sequence_data"])
	}
	if _, ok := seq["delays"].([]any); !ok {
		t.Fatalf("sequence_data.delays is not an array: %v", seq)
	}
	if raw["test_type"] != "detonator_simulator" {
		t.Fatalf("expected default test type, got %v", raw["test_type"])
	}
}

func TestSubmitResultFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error": "boom"}`},
		{"bad request", http.StatusBadRequest, `nope`},
		{"malformed", http.StatusOK, `{"success": tru`},
		{"not accepted", http.StatusOK, `{"success": false}`},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		err := NewClient(srv.URL, time.Second).SubmitResult(context.Background(), model.AttemptResult{Username: "u"})
		srv.Close()
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestSubmitResultStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error": "upstream down"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).SubmitResult(context.Background(), model.AttemptResult{Username: "u"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected status error, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway || statusErr.Message != "upstream down" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
}

func TestClientWithoutURL(t *testing.T) {
	c := NewClient("  ", 0)
	if err := c.SubmitResult(context.Background(), model.AttemptResult{}); !errors.Is(err, ErrNoService) {
		t.Fatalf("expected ErrNoService, got %v", err)
	}
	if _, err := c.FetchHistory(context.Background(), "u"); !errors.Is(err, ErrNoService) {
		t.Fatalf("expected ErrNoService, got %v", err)
	}
}

func TestFetchHistoryDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.URL.Query().Get("username"); got != "op erator" {
			t.Errorf("unexpected username query %q", got)
		}
		_, _ = w.Write([]byte(`{
			"results": [
				{"id": 2, "test_type": "detonator_simulator", "score": 75, "passed": false, "max_delay": 400, "completed_at": "2026-01-15 10:30:00.123456"},
				{"id": 1, "test_type": "detonator_simulator", "score": 100, "passed": true, "max_delay": 300, "completed_at": "2026-01-14T09:00:00Z"}
			],
			"progress": {"theory_completed": 0, "practice_completed": 2, "tests_completed": 2, "total_score": 175}
		}`))
	}))
	defer srv.Close()

	h, err := NewClient(srv.URL, time.Second).FetchHistory(context.Background(), "op erator")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(h.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(h.Results))
	}
	first := h.Results[0]
	if first.ID != 2 || first.Score != 75 || first.Passed || first.MaxDelay != 400 {
		t.Fatalf("unexpected first result %+v", first)
	}
	if first.CompletedAt.Year() != 2026 || first.CompletedAt.Hour() != 10 || first.CompletedAt.Minute() != 30 {
		t.Fatalf("unexpected timestamp %v", first.CompletedAt)
	}
	if !h.Results[1].CompletedAt.Equal(time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected RFC 3339 timestamp %v", h.Results[1].CompletedAt)
	}
	if h.Progress == nil || h.Progress.TotalScore != 175 || h.Progress.TestsCompleted != 2 {
		t.Fatalf("unexpected progress %+v", h.Progress)
	}
}

func TestFetchHistoryNullProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results": [], "progress": null}`))
	}))
	defer srv.Close()

	h, err := NewClient(srv.URL, time.Second).FetchHistory(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(h.Results) != 0 || h.Progress != nil {
		t.Fatalf("expected empty history, got %+v", h)
	}
}

func TestFetchHistoryKeepsExistingQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tenant") != "mine" || r.URL.Query().Get("username") != "u" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL+"/?tenant=mine", time.Second).FetchHistory(context.Background(), "u"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	for _, value := range []string{
		"2026-01-15T10:30:00Z",
		"2026-01-15T10:30:00.5+03:00",
		"2026-01-15 10:30:00",
		"2026-01-15 10:30:00.123456",
	} {
		if _, err := ParseTimestamp(value); err != nil {
			t.Fatalf("expected %q to parse: %v", value, err)
		}
	}
	for _, value := range []string{"", "yesterday", "15.01.2026"} {
		if _, err := ParseTimestamp(value); err == nil {
			t.Fatalf("expected %q to be rejected", value)
		}
	}
}
