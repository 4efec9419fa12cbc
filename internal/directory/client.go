// Package directory implements the admin side's view of who can be
// chatted with: an HTTP client for the visitor directory and a roster
// tracking per-room histories, unread counts and the selection.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tejasmk/doorbell/internal/models"
)

// Client fetches the visitor directory over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a directory client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ListVisitors fetches all known visitors, in the directory's order.
func (c *Client) ListVisitors(ctx context.Context) ([]models.Visitor, error) {
	url := fmt.Sprintf("%s/users", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("directory error (status %d): %s", resp.StatusCode, string(body))
	}

	var visitors []models.Visitor
	if err := json.Unmarshal(body, &visitors); err != nil {
		return nil, fmt.Errorf("failed to parse visitors: %w", err)
	}
	return visitors, nil
}
