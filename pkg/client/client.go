package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/terra-clan/roadmap-engine/internal/models"
)

// Client is a Go SDK for roadmap-engine API
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithToken authenticates requests with an existing token
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// NewClient creates a new roadmap-engine client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a failed API call
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d: %s - %s", e.StatusCode, e.Code, e.Message)
}

// Session is returned by Register and Login
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// ToggleSkillRequest marks one checklist skill
type ToggleSkillRequest struct {
	SkillName string `json:"skillName"`
	Completed bool   `json:"completed"`
}

// SaveResult is returned by SaveRoadmap and InitializeProgress
type SaveResult struct {
	Message string          `json:"message"`
	Roadmap *models.Roadmap `json:"roadmap"`
}

// Token returns the token requests are sent with
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the token requests are sent with
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Register creates an account. The returned token is used for later calls.
func (c *Client) Register(ctx context.Context, name, email, password string) (*Session, error) {
	session, err := call[*Session](ctx, c, "POST", "/api/v1/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	c.SetToken(session.Token)
	return session, nil
}

// Login signs in. The returned token is used for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	session, err := call[*Session](ctx, c, "POST", "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	c.SetToken(session.Token)
	return session, nil
}

// CurrentUser returns the signed-in user
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	return call[*models.User](ctx, c, "GET", "/api/v1/auth/user", nil)
}

// Generate produces a roadmap for a profile without saving it
func (c *Client) Generate(ctx context.Context, profile models.Profile) (*models.GenerateResult, error) {
	return call[*models.GenerateResult](ctx, c, "POST", "/api/v1/roadmaps/generate", profile)
}

// SaveRoadmap persists a generated roadmap
func (c *Client) SaveRoadmap(ctx context.Context, artifact *models.Artifact) (*SaveResult, error) {
	return call[*SaveResult](ctx, c, "POST", "/api/v1/roadmaps", artifact)
}

// ListRoadmaps lists saved roadmaps, most recently progressed first
func (c *Client) ListRoadmaps(ctx context.Context) ([]*models.Roadmap, error) {
	return c.listRoadmaps(ctx, "/api/v1/roadmaps")
}

// RoadmapHistory lists the most recently created roadmaps
func (c *Client) RoadmapHistory(ctx context.Context) ([]*models.Roadmap, error) {
	return c.listRoadmaps(ctx, "/api/v1/roadmaps/history")
}

func (c *Client) listRoadmaps(ctx context.Context, path string) ([]*models.Roadmap, error) {
	data, err := call[struct {
		Roadmaps []*models.Roadmap `json:"roadmaps"`
		Total    int               `json:"total"`
	}](ctx, c, "GET", path, nil)
	if err != nil {
		return nil, err
	}
	return data.Roadmaps, nil
}

// GetRoadmap retrieves a saved roadmap by ID
func (c *Client) GetRoadmap(ctx context.Context, id string) (*models.Roadmap, error) {
	return call[*models.Roadmap](ctx, c, "GET", "/api/v1/roadmaps/"+url.PathEscape(id), nil)
}

// InitializeProgress makes sure a roadmap has a progress record
func (c *Client) InitializeProgress(ctx context.Context, id string) (*SaveResult, error) {
	return call[*SaveResult](ctx, c, "POST", "/api/v1/roadmaps/"+url.PathEscape(id)+"/initialize-progress", nil)
}

// ToggleSkill marks one skill of a roadmap completed or not
func (c *Client) ToggleSkill(ctx context.Context, id string, req ToggleSkillRequest) (*models.Roadmap, error) {
	return call[*models.Roadmap](ctx, c, "PATCH", "/api/v1/roadmaps/"+url.PathEscape(id)+"/progress", req)
}

// Evaluate recomputes the evaluation of a roadmap
func (c *Client) Evaluate(ctx context.Context, roadmapID string) (*models.Evaluation, error) {
	return call[*models.Evaluation](ctx, c, "GET", "/api/v1/evaluation/"+url.PathEscape(roadmapID), nil)
}

// ExportDataset returns one row per evaluated roadmap
func (c *Client) ExportDataset(ctx context.Context) ([]*models.DatasetRow, error) {
	data, err := call[struct {
		Rows []*models.DatasetRow `json:"rows"`
	}](ctx, c, "GET", "/api/v1/evaluation/export", nil)
	if err != nil {
		return nil, err
	}
	return data.Rows, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, "GET", "/health", nil)
	return err
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// call sends payload as JSON and unwraps the response envelope
func call[T any](ctx context.Context, c *Client, method, path string, payload interface{}) (T, error) {
	var zero T

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return zero, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return zero, err
	}

	var result envelope[T]
	if err := json.Unmarshal(resp, &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		apiErr := &APIError{StatusCode: http.StatusOK, Message: "request was not successful"}
		if result.Error != nil {
			apiErr.Code = result.Error.Code
			apiErr.Message = result.Error.Message
		}
		return zero, apiErr
	}

	return result.Data, nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	endpoint := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

func newAPIError(status int, body []byte) *APIError {
	var result envelope[json.RawMessage]
	if err := json.Unmarshal(body, &result); err == nil && result.Error != nil {
		return &APIError{StatusCode: status, Code: result.Error.Code, Message: result.Error.Message}
	}
	return &APIError{StatusCode: status, Message: string(body)}
}
