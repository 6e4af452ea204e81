package scoreapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/verte-zerg/blastrain/internal/model"
)

// DefaultTimeout bounds a single request to the scoring service.
const DefaultTimeout = 10 * time.Second

const maxBodyBytes = 1 << 20

// Errors returned by the client.
var (
	ErrNoService   = errors.New("scoring service url is not configured")
	ErrNotAccepted = errors.New("scoring service did not accept the result")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("scoring service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("scoring service returned status %d: %s", e.StatusCode, e.Message)
}

// Client talks to the scoring service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for baseURL. A non-positive timeout uses
// DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSpace(baseURL),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SubmitResult posts one attempt. The attempt id, when set, is sent in
// AttemptIDHeader.
func (c *Client) SubmitResult(ctx context.Context, attempt model.AttemptResult) error {
	if c.baseURL == "" {
		return ErrNoService
	}
	body, err := json.Marshal(NewSubmitRequest(attempt))
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if attempt.ID != "" {
		req.Header.Set(AttemptIDHeader, attempt.ID)
	}

	var resp SubmitResponse
	if err := c.do(req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		if resp.Error != "" {
			return fmt.Errorf("%w: %s", ErrNotAccepted, resp.Error)
		}
		return ErrNotAccepted
	}
	log.Debug().
		Str("attempt_id", attempt.ID).
		Int64("result_id", resp.ResultID).
		Msg("result saved")
	return nil
}

// FetchHistory reads the recent results and progress of username.
func (c *Client) FetchHistory(ctx context.Context, username string) (model.History, error) {
	if c.baseURL == "" {
		return model.History{}, ErrNoService
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return model.History{}, fmt.Errorf("invalid service url: %w", err)
	}
	q := u.Query()
	q.Set("username", username)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.History{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var resp HistoryResponse
	if err := c.do(req, &resp); err != nil {
		return model.History{}, err
	}
	return resp.History(), nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Debug().Err(cerr).Msg("failed to close response body")
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr ErrorResponse
		if jerr := json.Unmarshal(data, &apiErr); jerr == nil && apiErr.Error != "" {
			return &StatusError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}
