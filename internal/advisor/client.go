package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client handles communication with the AI advisor engine. The engine owns
// the recommendation algorithms; this side only speaks its HTTP surface.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// RecommendationRequest mirrors the engine's POST /recommendations payload.
type RecommendationRequest struct {
	UserProfile        map[string]interface{} `json:"user_profile"`
	RecommendationType string                 `json:"recommendation_type"`
}

// RecommendationResponse is the engine's recommendation envelope.
type RecommendationResponse struct {
	Recommendations []map[string]interface{} `json:"recommendations"`
	GeneratedAt     string                   `json:"generated_at"`
}

// GetRecommendations requests stream/career/college recommendations.
func (c *Client) GetRecommendations(ctx context.Context, req RecommendationRequest) (*RecommendationResponse, error) {
	var resp RecommendationResponse
	if err := c.post(ctx, "/recommendations", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AnalyzeInterests scores a raw interest list.
func (c *Client) AnalyzeInterests(ctx context.Context, interests []string) (map[string]interface{}, error) {
	var resp map[string]interface{}
	if err := c.post(ctx, "/analyze-interests", interests, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// CareerPathways fetches the engine's static pathway catalog.
func (c *Client) CareerPathways(ctx context.Context) (map[string]interface{}, error) {
	var resp map[string]interface{}
	if err := c.get(ctx, "/career-pathways", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Colleges fetches the engine's college catalog.
func (c *Client) Colleges(ctx context.Context) (map[string]interface{}, error) {
	var resp map[string]interface{}
	if err := c.get(ctx, "/colleges", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Healthy reports whether the engine answers its health endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	var resp map[string]interface{}
	return c.get(ctx, "/health", &resp) == nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call advisor engine: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("advisor engine returned status %d: %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
