// Package fetch retrieves booking pages, either as raw HTML over plain
// HTTP or through a headless browser session that executes page scripts.
package fetch

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// UserAgent identifies the scraper to the upstream site.
	UserAgent = "harborcal/1.0"

	maxRetries = 2
)

// Client fetches raw HTML over plain HTTP.
type Client struct {
	client *http.Client
}

// NewClient creates a static-fetch client with the given per-request
// timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get fetches a page and returns its body as a string. Transient failures
// (network errors, 5xx, 429) are retried with exponential backoff; other
// HTTP errors fail immediately.
func (c *Client) Get(url string) (string, error) {
	var body string

	op := func() error {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("User-Agent", UserAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetching page: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return err
			}
			return backoff.Permanent(err)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}
		body = string(data)
		return nil
	}

	if err := backoff.Retry(op, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries)); err != nil {
		return "", err
	}
	return body, nil
}
