package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPClient calls a remote model service that exposes virality and
// schedule endpoints.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

type HTTPOption func(*HTTPClient)

func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithTimeout(timeout time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func NewHTTPClient(baseURL string, opts ...HTTPOption) (*HTTPClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("predictor base url is required")
	}
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *HTTPClient) ScoreVirality(ctx context.Context, draft string, features Features) (float64, error) {
	payload := struct {
		Draft    string   `json:"draft"`
		Features Features `json:"features"`
	}{Draft: draft, Features: features}

	var out struct {
		Score float64 `json:"score"`
	}
	if err := c.post(ctx, "/predict/virality", payload, &out); err != nil {
		return 0, err
	}
	if out.Score < 0 || out.Score > 1 {
		return 0, fmt.Errorf("model returned score %f outside [0, 1]", out.Score)
	}
	return out.Score, nil
}

func (c *HTTPClient) RecommendSchedule(ctx context.Context, features Features) ([]Slot, error) {
	payload := struct {
		Features Features `json:"features"`
	}{Features: features}

	var out struct {
		Slots []Slot `json:"slots"`
	}
	if err := c.post(ctx, "/recommend/schedule", payload, &out); err != nil {
		return nil, err
	}
	return out.Slots, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode predictor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build predictor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("predictor request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read predictor response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("predictor returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode predictor response: %w", err)
	}
	return nil
}
