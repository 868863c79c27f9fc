// Package raindrop reads the newest bookmark from the Raindrop.io REST API.
package raindrop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrSnakeDoc/dropwatch/internal/domain"
	"github.com/MrSnakeDoc/dropwatch/internal/utils"
	"github.com/MrSnakeDoc/dropwatch/internal/version"
)

const (
	DefaultBaseURL = "https://api.raindrop.io/rest/v1"

	// allCollections is the pseudo collection id covering every bookmark.
	allCollections = "0"
	maxBodyBytes   = 4 << 20
)

// FetchError wraps any failure to obtain the newest item.
// StatusCode is 0 when no HTTP response was received.
type FetchError struct {
	StatusCode int
	Cause      error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch latest bookmark: status %d: %v", e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("fetch latest bookmark: %v", e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// New builds a client. A zero timeout falls back to 15s.
func New(baseURL, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	q := url.Values{}
	q.Set("sort", "-created")
	q.Set("perpage", "1")

	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/raindrops/" + allCollections + "?" + q.Encode(),
		token:    token,
		http:     &http.Client{Timeout: timeout},
	}
}

// FetchLatest returns the newest bookmark, or (nil, nil) when the account
// has none. It never retries.
func (c *Client) FetchLatest(ctx context.Context) (*domain.Bookmark, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, &FetchError{Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Cause: err}
	}
	defer utils.Close(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Cause: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{StatusCode: resp.StatusCode, Cause: fmt.Errorf("unexpected status: %s", snippet(body))}
	}

	var payload raindropsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Cause: fmt.Errorf("decode body: %w", err)}
	}

	if len(payload.Items) == 0 {
		return nil, nil
	}

	b := toBookmark(payload.Items[0])
	if b.ID == "" {
		return nil, &FetchError{StatusCode: resp.StatusCode, Cause: fmt.Errorf("newest item has an empty _id")}
	}
	return b, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		return "<empty body>"
	}
	return s
}
