package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/nextask/internal/models"
	"github.com/fentz26/nextask/internal/selector"
	"github.com/fentz26/nextask/internal/store"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// APIError is a non-2xx response from the daemon.
type APIError struct {
	StatusCode int
	Message    string
	Field      string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Client wraps HTTP calls to the nextask API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client with timeout. Calls that take an empty
// tag let the daemon pick its default.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
	}
}

// Health fetches /health. The payload is returned alongside the error on
// non-200 responses.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, nil, &health)
	if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusServiceUnavailable {
		return &health, err
	}
	if err != nil {
		return nil, err
	}
	return &health, nil
}

// Next asks the daemon for the unit at offset skip.
func (c *Client) Next(ctx context.Context, tag string, skip int) (*selector.Outcome, error) {
	q := url.Values{}
	setTag(q, tag)
	q.Set("skip", strconv.Itoa(skip))

	var out selector.Outcome
	if err := c.do(ctx, http.MethodGet, "/next", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Queue fetches the eligible sequence with offsets.
func (c *Client) Queue(ctx context.Context, tag string) ([]selector.Entry, error) {
	q := url.Values{}
	setTag(q, tag)

	var entries []selector.Entry
	if err := c.do(ctx, http.MethodGet, "/queue", q, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListTasks fetches the tasks of a tag, optionally filtered by status.
func (c *Client) ListTasks(ctx context.Context, tag, status string) ([]models.Task, error) {
	q := url.Values{}
	setTag(q, tag)
	if status != "" {
		q.Set("status", status)
	}

	var tasks []models.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", q, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask fetches a single task with its subtasks.
func (c *Client) GetTask(ctx context.Context, tag, id string) (*models.Task, error) {
	q := url.Values{}
	setTag(q, tag)

	var task models.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), q, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask adds a top-level task.
func (c *Client) CreateTask(ctx context.Context, in store.NewTask) (*models.Task, error) {
	body := createTaskRequest{
		Tag:          in.Tag,
		Title:        in.Title,
		Description:  in.Description,
		Priority:     string(in.Priority),
		Dependencies: in.Dependencies,
	}
	var task models.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", nil, body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// AddSubtask appends a subtask to parentID.
func (c *Client) AddSubtask(ctx context.Context, tag, parentID string, in store.NewSubtask) (*models.Subtask, error) {
	q := url.Values{}
	setTag(q, tag)
	body := subtaskRequest{
		Title:        in.Title,
		Description:  in.Description,
		Priority:     string(in.Priority),
		Dependencies: in.Dependencies,
	}

	var st models.Subtask
	if err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(parentID)+"/subtasks", q, body, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// SetStatus changes the status of a task or subtask.
func (c *Client) SetStatus(ctx context.Context, tag, ref, status string) error {
	q := url.Values{}
	setTag(q, tag)
	return c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(ref)+"/status", q, statusRequest{Status: status}, nil)
}

// AddDependency records that ref waits for dependsOn.
func (c *Client) AddDependency(ctx context.Context, tag, ref, dependsOn string) error {
	q := url.Values{}
	setTag(q, tag)
	return c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(ref)+"/dependencies", q, dependencyRequest{DependsOn: dependsOn}, nil)
}

// RemoveDependency deletes a dependency edge.
func (c *Client) RemoveDependency(ctx context.Context, tag, ref, dependsOn string) error {
	q := url.Values{}
	setTag(q, tag)
	q.Set("depends_on", dependsOn)
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(ref)+"/dependencies", q, nil, nil)
}

// DeleteTask removes a task or subtask.
func (c *Client) DeleteTask(ctx context.Context, tag, ref string) error {
	q := url.Values{}
	setTag(q, tag)
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(ref), q, nil, nil)
}

// ListTags fetches every tag holding tasks.
func (c *Client) ListTags(ctx context.Context) ([]store.TagSummary, error) {
	var tags []store.TagSummary
	if err := c.do(ctx, http.MethodGet, "/tags", nil, nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// Decisions returns the most recent decision records. A zero limit uses the
// server default.
func (c *Client) Decisions(ctx context.Context, limit int) ([]models.PDREntry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var entries []models.PDREntry
	if err := c.do(ctx, http.MethodGet, "/decisions", q, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Import replaces the tasks of tag.
func (c *Client) Import(ctx context.Context, tag string, tasks []models.Task) (int, error) {
	if tag == "" {
		tag = models.DefaultTag
	}
	var resp struct {
		Imported int `json:"imported"`
	}
	body := map[string]interface{}{"tasks": tasks}
	if err := c.do(ctx, http.MethodPost, "/tags/"+url.PathEscape(tag)+"/import", nil, body, &resp); err != nil {
		return 0, err
	}
	return resp.Imported, nil
}

func setTag(q url.Values, tag string) {
	if tag != "" {
		q.Set("tag", tag)
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var er errorResponse
		if json.Unmarshal(data, &er) == nil && er.Error != "" {
			apiErr.Message = er.Error
			apiErr.Field = er.Field
		}
		if out != nil && resp.StatusCode == http.StatusServiceUnavailable {
			json.Unmarshal(data, out)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
