package scoreserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/verte-zerg/blastrain/internal/model"
	"github.com/verte-zerg/blastrain/internal/scoreapi"
	"github.com/verte-zerg/blastrain/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *clockwork.FakeClock) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	clock := clockwork.NewFakeClockAt(time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC))
	srv := httptest.NewServer(New(st, clock).Handler())
	t.Cleanup(srv.Close)
	return srv, clock
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestSaveAndFetchRoundTrip(t *testing.T) {
	srv, clock := newTestServer(t)
	client := scoreapi.NewClient(srv.URL, time.Second)
	ctx := context.Background()

	if err := client.SubmitResult(ctx, model.AttemptResult{
		ID:       "a-1",
		Username: "operator",
		Score:    100,
		Passed:   true,
		MaxDelay: 400,
		Delays:   []int{100, 200, 300, 400},
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	clock.Advance(time.Minute)
	if err := client.SubmitResult(ctx, model.AttemptResult{
		ID:       "a-2",
		Username: "operator",
		Score:    40,
		MaxDelay: 400,
		Delays:   []int{400, 300, 200, 100},
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	h, err := client.FetchHistory(ctx, "operator")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(h.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(h.Results))
	}
	if h.Results[0].Score != 40 || h.Results[1].Score != 100 {
		t.Fatalf("expected newest first, got %+v", h.Results)
	}
	if h.Results[0].TestType != model.TestTypeDetonatorSimulator {
		t.Fatalf("expected default test type, got %q", h.Results[0].TestType)
	}
	if !h.Results[0].CompletedAt.Equal(clock.Now()) {
		t.Fatalf("expected completed_at from server clock, got %v", h.Results[0].CompletedAt)
	}
	if h.Progress == nil || h.Progress.PracticeCompleted != 2 || h.Progress.TestsCompleted != 2 || h.Progress.TotalScore != 140 {
		t.Fatalf("unexpected progress %+v", h.Progress)
	}
}

func TestSaveResponseShape(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/results", "application/json", strings.NewReader(
		`{"username":"op","test_type":"detonator_simulator","score":100,"passed":true,"max_delay":4,"sequence_data":{"delays":[1,2,3,4]}}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body scoreapi.SubmitResponse
	decodeBody(t, resp, &body)
	if !body.Success || body.ResultID == 0 || body.UserID == 0 {
		t.Fatalf("unexpected response %+v", body)
	}
}

func TestSaveRequiresUsername(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, payload := range []string{`{"score": 10}`, `{"username": "   "}`, `not json`} {
		resp, err := http.Post(srv.URL, "application/json", strings.NewReader(payload))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("payload %q: expected 400, got %d", payload, resp.StatusCode)
		}
		var body scoreapi.ErrorResponse
		decodeBody(t, resp, &body)
		if body.Error == "" {
			t.Fatalf("payload %q: expected error message", payload)
		}
	}
}

func TestHistoryUnknownUser(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/?username=ghost")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(body["results"]) != "[]" || string(body["progress"]) != "null" {
		t.Fatalf("unexpected body %s", raw)
	}
}

func TestHistoryRequiresUsername(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestOtherMethodsRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		req, err := http.NewRequest(method, srv.URL+"/", nil)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("do: %v", err)
		}
		var body scoreapi.ErrorResponse
		decodeBody(t, resp, &body)
		if resp.StatusCode != http.StatusMethodNotAllowed || body.Error != "method not allowed" {
			t.Fatalf("%s: expected 405, got %d %+v", method, resp.StatusCode, body)
		}
	}
}

func TestCORSAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	_ = resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}

	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(raw) != "OK" {
		t.Fatalf("unexpected health %d %q", resp.StatusCode, raw)
	}
}

type failingRepo struct{}

func (failingRepo) Ping(context.Context) error {
	return errors.New("disk full")
}

func (failingRepo) InsertResult(context.Context, model.AttemptResult) (int64, int64, error) {
	return 0, 0, errors.New("disk full")
}

func (failingRepo) History(context.Context, string, int) (model.History, error) {
	return model.History{}, errors.New("disk full")
}

func TestStorageFailureIs500(t *testing.T) {
	srv := httptest.NewServer(New(failingRepo{}, clockwork.NewFakeClock()).Handler())
	defer srv.Close()

	err := scoreapi.NewClient(srv.URL, time.Second).SubmitResult(context.Background(), model.AttemptResult{Username: "op"})
	var statusErr *scoreapi.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 status error, got %v", err)
	}
	if _, err := scoreapi.NewClient(srv.URL, time.Second).FetchHistory(context.Background(), "op"); err == nil {
		t.Fatalf("expected fetch failure")
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(failingRepo{}, nil).ListenAndServe(ctx, "127.0.0.1:0")
	}()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}

func TestHealthReportsStorageFailure(t *testing.T) {
	srv := httptest.NewServer(New(failingRepo{}, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}
