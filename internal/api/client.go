package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golddust/internal/router"
)

// HTTPError is a non-2xx reply from the decision API.
type HTTPError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Status == "" {
		return "request failed: " + e.Message
	}
	if e.Message != "" {
		return fmt.Sprintf("request failed: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("request failed: %s", e.Status)
}

// Client is a thin HTTP client for the decision API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL (e.g. http://host:port).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: NormalizeBaseURL(baseURL),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NormalizeBaseURL adds an http:// scheme to bare host:port values.
func NormalizeBaseURL(addr string) string {
	addr = strings.TrimRight(addr, "/")
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	return "http://" + addr
}

// Decide asks the server for a routing decision. A server-side
// no-backends-available outcome is returned as router.ErrNoBackendsAvailable.
func (c *Client) Decide(ctx context.Context, target string) (router.Decision, DecisionResponse, error) {
	var resp DecisionResponse
	endpoint := "/decide?target=" + url.QueryEscape(target)
	err := c.getJSON(ctx, endpoint, &resp)

	var herr *HTTPError
	if errors.As(err, &herr) && herr.StatusCode == http.StatusServiceUnavailable && herr.Message == router.ErrNoBackendsAvailable.Error() {
		return router.Decision{}, resp, router.ErrNoBackendsAvailable
	}
	if err != nil {
		return router.Decision{}, resp, err
	}
	d, err := resp.Decision()
	return d, resp, err
}

// Status fetches the current snapshots and preferred decision.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var resp StatusResponse
	if err := c.getJSON(ctx, "/status", &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		herr := &HTTPError{StatusCode: res.StatusCode, Status: res.Status}
		var payload ErrorResponse
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			herr.Message = payload.Error
		} else {
			herr.Message = strings.TrimSpace(string(body))
		}
		return herr
	}

	decoder := json.NewDecoder(res.Body)
	return decoder.Decode(out)
}
