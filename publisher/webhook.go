package publisher

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

const defaultWebhookTimeout = 30 * time.Second

// Webhook posts publish requests to an external delivery service and
// relays its confirmation token.
type Webhook struct {
	url        string
	authToken  string
	httpClient *http.Client
}

type WebhookOption func(*Webhook)

func WithAuthToken(token string) WebhookOption {
	return func(w *Webhook) {
		w.authToken = token
	}
}

func WithWebhookHTTPClient(client *http.Client) WebhookOption {
	return func(w *Webhook) {
		if client != nil {
			w.httpClient = client
		}
	}
}

func NewWebhook(url string, opts ...WebhookOption) (*Webhook, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	w := &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: defaultWebhookTimeout},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func (w *Webhook) Publish(ctx context.Context, post Post) (Result, error) {
	if strings.TrimSpace(post.Content) == "" {
		return Result{}, fmt.Errorf("post content is required")
	}

	body, err := json.Marshal(post)
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode publish request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+w.authToken)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("publish request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read publish response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("publisher returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, fmt.Errorf("failed to decode publish response: %w", err)
	}
	if result.Confirmation == "" {
		return Result{}, fmt.Errorf("publisher response missing confirmation token")
	}
	return result, nil
}
