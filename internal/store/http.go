package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/venturelab/compass/internal/pipeline"
)

// HTTPStore talks to a remote plan service:
//
//	GET    /v1/plans           -> {"plan_ids": [...]}
//	GET    /v1/plans/{id}      -> pipeline JSON
//	PUT    /v1/plans/{id}      -> 204
//	DELETE /v1/plans/{id}      -> 204
//
// Saves are retried with exponential backoff because they run after
// every user action; reads fail fast so session start can fall back to
// the template.
type HTTPStore struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client

	// MaxRetries bounds save retries. Zero means a single attempt.
	MaxRetries int
	// RetryBase is the first backoff delay, doubled per attempt.
	RetryBase time.Duration
}

// NewHTTPStore creates a remote store client
func NewHTTPStore(baseURL, apiKey string) *HTTPStore {
	return &HTTPStore{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTP:       &http.Client{Timeout: 30 * time.Second},
		MaxRetries: 3,
		RetryBase:  250 * time.Millisecond,
	}
}

func (s *HTTPStore) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	return s.HTTP.Do(req)
}

// Load implements Store.Load
func (s *HTTPStore) Load(ctx context.Context, planID string) (*pipeline.Pipeline, error) {
	resp, err := s.do(ctx, http.MethodGet, "/v1/plans/"+planID, nil)
	if err != nil {
		return nil, fmt.Errorf("load plan %s: %w", planID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("load plan %s: http %d: %s", planID, resp.StatusCode, string(body))
	}

	var p pipeline.Pipeline
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode plan %s: %w", planID, err)
	}
	return &p, nil
}

// Save implements Store.Save
func (s *HTTPStore) Save(ctx context.Context, planID string, p *pipeline.Pipeline) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal plan %s: %w", planID, err)
	}

	delay := s.RetryBase
	var lastErr error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		resp, err := s.do(ctx, http.MethodPut, "/v1/plans/"+planID, data)
		if err != nil {
			lastErr = err
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent:
			return nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("http %d", resp.StatusCode)
			continue
		default:
			return fmt.Errorf("save plan %s: http %d", planID, resp.StatusCode)
		}
	}
	return fmt.Errorf("save plan %s after %d attempts: %w", planID, s.MaxRetries+1, lastErr)
}

// Delete implements Store.Delete
func (s *HTTPStore) Delete(ctx context.Context, planID string) error {
	resp, err := s.do(ctx, http.MethodDelete, "/v1/plans/"+planID, nil)
	if err != nil {
		return fmt.Errorf("delete plan %s: %w", planID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete plan %s: http %d", planID, resp.StatusCode)
	}
	return nil
}

// List implements Store.List
func (s *HTTPStore) List(ctx context.Context) ([]string, error) {
	resp, err := s.do(ctx, http.MethodGet, "/v1/plans", nil)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list plans: http %d", resp.StatusCode)
	}

	var payload struct {
		PlanIDs []string `json:"plan_ids"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode plan list: %w", err)
	}
	return payload.PlanIDs, nil
}
