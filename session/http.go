package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	standup "github.com/chimerakang/standup-go"
)

// StatusError is a non-2xx response from the who-am-I endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("who-am-I returned %d: %s", e.StatusCode, e.Body)
}

// HTTPBackend calls GET <baseURL><path> with a bearer credential.
type HTTPBackend struct {
	url        string
	httpClient *http.Client
}

var _ Backend = (*HTTPBackend)(nil)

// NewHTTPBackend creates a backend for baseURL + path (default standup.DefaultWhoAmIPath).
func NewHTTPBackend(baseURL, path string, client *http.Client) *HTTPBackend {
	if path == "" {
		path = standup.DefaultWhoAmIPath
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPBackend{url: strings.TrimRight(baseURL, "/") + path, httpClient: client}
}

// WhoAmI implements Backend.
func (b *HTTPBackend) WhoAmI(ctx context.Context, credential string) (*standup.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url, nil)
	if err != nil {
		return nil, fmt.Errorf("standup/session: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("standup/session: who-am-I request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("standup/session: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	id := &standup.Identity{}
	if len(body) > 0 {
		// The endpoint's success is what matters; an unexpected body is tolerated.
		_ = json.Unmarshal(body, id)
	}
	return id, nil
}
