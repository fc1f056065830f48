package orchboardsdk

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
)

// Client is a minimal Orchboard HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Timeout: 10 * time.Second,
	}
}

// Task represents the API task model (partial).
type Task struct {
	ID        int64  `json:"id"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Priority  string `json:"priority"`
	CreatedAt string `json:"created_at"`
}

type Suggestion struct {
	ID          int64  `json:"id"`
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Source      string `json:"source"`
	IsSelected  bool   `json:"is_selected"`
}

// RunningRun is a running run with its elapsed time.
type RunningRun struct {
	ID              int64  `json:"id"`
	TaskID          *int64 `json:"task_id,omitempty"`
	ProjectID       string `json:"project_id"`
	Instruction     string `json:"instruction"`
	StartedAt       string `json:"started_at"`
	DurationSeconds int64  `json:"duration_seconds"`
	DurationDisplay string `json:"duration_display"`
}

type RunningTasks struct {
	Running        []RunningRun `json:"running"`
	PendingCount   int          `json:"pending_count"`
	MaxConcurrent  int          `json:"max_concurrent"`
	AvailableSlots int          `json:"available_slots"`
	CanStart       bool         `json:"can_start"`
}

type Promotion struct {
	Success   bool   `json:"success"`
	Tasks     []Task `json:"tasks"`
	Count     int    `json:"count"`
	MarkError string `json:"mark_error,omitempty"`
}

type ScorePoint struct {
	Date         string  `json:"date"`
	AverageScore float64 `json:"average_score"`
}

type FailureCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type ToolUsage struct {
	Tool        string  `json:"tool"`
	Total       int     `json:"total"`
	Success     int     `json:"success"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

type Analytics struct {
	ScoreTrend        []ScorePoint   `json:"score_trend"`
	FailureCategories []FailureCount `json:"failure_categories"`
	ToolUsage         []ToolUsage    `json:"tool_usage"`
	Degraded          []string       `json:"degraded"`
	WindowDays        int            `json:"window_days"`
	Since             string         `json:"since"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// RunningTasks reports running runs and remaining capacity.
func (c *Client) RunningTasks(ctx context.Context) (RunningTasks, error) {
	var resp RunningTasks
	err := c.do(ctx, http.MethodGet, "v0/running-tasks", nil, &resp)
	return resp, err
}

// PromoteSuggestions turns suggestions into pending tasks.
func (c *Client) PromoteSuggestions(ctx context.Context, ids []int64) (Promotion, error) {
	body := map[string]any{"suggestion_ids": ids}
	var resp Promotion
	err := c.do(ctx, http.MethodPost, "v0/suggestions/execute", body, &resp)
	return resp, err
}

// Analytics returns the trailing-window analytics; days <= 0 uses the server default.
func (c *Client) Analytics(ctx context.Context, days int, projectID string) (Analytics, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", fmt.Sprintf("%d", days))
	}
	if projectID != "" {
		q.Set("project_id", projectID)
	}
	endpoint := "v0/analytics"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp Analytics
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// SubmitInstruction queues an instruction as a pending task.
func (c *Client) SubmitInstruction(ctx context.Context, projectID, instruction string) (Task, error) {
	body := map[string]any{
		"project_id":  projectID,
		"instruction": instruction,
	}
	var resp struct {
		Task Task `json:"task"`
	}
	err := c.do(ctx, http.MethodPost, "v0/instructions", body, &resp)
	return resp.Task, err
}

// Suggestions lists suggestions not yet promoted.
func (c *Client) Suggestions(ctx context.Context, projectID string) ([]Suggestion, error) {
	endpoint := "v0/suggestions"
	if projectID != "" {
		endpoint += "?project_id=" + url.QueryEscape(projectID)
	}
	var resp struct {
		Suggestions []Suggestion `json:"suggestions"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Suggestions, err
}

// CreateSuggestion adds a custom suggestion.
func (c *Client) CreateSuggestion(ctx context.Context, projectID, title, description string) (Suggestion, error) {
	body := map[string]any{
		"project_id":  projectID,
		"title":       title,
		"description": description,
	}
	var resp Suggestion
	err := c.do(ctx, http.MethodPost, "v0/suggestions", body, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
