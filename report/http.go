package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	standup "github.com/chimerakang/standup-go"
)

// HTTPSource implements standup.ReportSource against the report backend.
type HTTPSource struct {
	generateURL string
	taskURL     string
	httpClient  *http.Client
}

var _ standup.ReportSource = (*HTTPSource)(nil)

// NewHTTPSource creates a source for cfg.BaseURL using cfg's endpoint paths.
func NewHTTPSource(cfg standup.Config, client *http.Client) *HTTPSource {
	cfg = cfg.WithDefaults()
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &HTTPSource{
		generateURL: base + cfg.GeneratePath,
		taskURL:     base + cfg.TaskPath,
		httpClient:  client,
	}
}

type generateResponse struct {
	TaskID string `json:"taskId"`
}

// Generate implements standup.ReportSource. HTTP 204 maps to standup.ErrNoActivity.
func (s *HTTPSource) Generate(ctx context.Context, credential string, req standup.ReportRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("standup/report: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.generateURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("standup/report: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.do(httpReq, credential)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNoContent {
		return "", standup.ErrNoActivity
	}
	data, err := readBody(resp)
	if err != nil {
		return "", err
	}
	if !success(resp.StatusCode) {
		return "", fmt.Errorf("standup/report: report generation failed with status %d: %s", resp.StatusCode, data)
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("standup/report: decode generation response: %w", err)
	}
	if out.TaskID == "" {
		return "", fmt.Errorf("standup/report: empty taskId in generation response")
	}
	return out.TaskID, nil
}

// Task implements standup.ReportSource.
func (s *HTTPSource) Task(ctx context.Context, credential, taskID string) (*standup.Task, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.taskURL+url.PathEscape(taskID), nil)
	if err != nil {
		return nil, fmt.Errorf("standup/report: create request: %w", err)
	}

	resp, err := s.do(httpReq, credential)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if !success(resp.StatusCode) {
		return nil, fmt.Errorf("standup/report: task status %s failed with status %d: %s", taskID, resp.StatusCode, data)
	}

	var task standup.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("standup/report: decode task status: %w", err)
	}
	if task.ID == "" {
		task.ID = taskID
	}
	return &task, nil
}

func (s *HTTPSource) do(req *http.Request, credential string) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("standup/report: request failed: %w", err)
	}
	return resp, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("standup/report: read response: %w", err)
	}
	return bytes.TrimSpace(b), nil
}

func success(code int) bool { return code >= 200 && code <= 299 }
