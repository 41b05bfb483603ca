package joke

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dkeye/chatrelay/internal/core"
)

var ErrUpstream = errors.New("joke upstream error")

const maxBody = 4 << 10

// Client fetches one plain-text joke per call. No retries, no caching.
type Client struct {
	url  string
	http *http.Client
}

var _ core.JokeSource = (*Client)(nil)

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("build joke request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("User-Agent", "chatrelay (https://github.com/dkeye/chatrelay)")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("joke request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("read joke: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}
