// Package recommender talks to the career recommendation service.
package recommender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/terra-clan/roadmap-engine/internal/models"
)

// Recommender suggests careers for a profile
type Recommender interface {
	Recommend(ctx context.Context, p models.Profile) (*Response, error)
}

// Response is the recommendation service payload
type Response struct {
	RecommendedCareers []models.Recommendation `json:"recommendedCareers"`
	Meta               map[string]any          `json:"meta,omitempty"`
}

type predictRequest struct {
	Education string   `json:"education"`
	Skills    []string `json:"skills"`
	Interests string   `json:"interests"`
}

// HTTPClient calls the recommendation service over HTTP
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client
type Option func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

// NewHTTPClient creates a client with a bounded request timeout
func NewHTTPClient(baseURL string, timeout time.Duration, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Recommend posts the profile to /predict-career
func (c *HTTPClient) Recommend(ctx context.Context, p models.Profile) (*Response, error) {
	skills := p.Skills
	if skills == nil {
		skills = []string{}
	}

	body, err := json.Marshal(predictRequest{
		Education: p.Education,
		Skills:    skills,
		Interests: p.Interests,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, "/predict-career", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if resp.RecommendedCareers == nil {
		resp.RecommendedCareers = []models.Recommendation{}
	}

	return &resp, nil
}

// HealthCheck calls the service health endpoint
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	return err
}

// doRequest performs an HTTP request
func (c *HTTPClient) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
