// Package remote is the HTTP client for the scheduling service's
// internal agency endpoint. The auth service uses it to resolve the
// agency a manager belongs to without holding agency data itself.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"innotour.org/internal/scheduling"
)

const defaultTimeout = 5 * time.Second

// Client calls the scheduling service over its internal surface,
// authenticating with the pre-shared X-Internal-Token header.
type Client struct {
	baseURL       string
	internalToken string
	httpClient    *http.Client
}

// ClientOption configures Client behavior.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client (useful for tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient builds a client for the scheduling service at baseURL.
func NewClient(baseURL, internalToken string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("remote: base URL is required")
	}
	if internalToken == "" {
		return nil, fmt.Errorf("remote: internal token is required")
	}
	c := &Client{
		baseURL:       baseURL,
		internalToken: internalToken,
		httpClient:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Agency fetches an agency by id. A 404 maps to
// scheduling.ErrAgencyNotFound so callers can branch on the sentinel.
func (c *Client) Agency(ctx context.Context, id int64) (*scheduling.Agency, error) {
	endpoint := c.baseURL + "/agency/get?" + url.Values{"id": {strconv.FormatInt(id, 10)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Internal-Token", c.internalToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var a scheduling.Agency
		if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
			return nil, fmt.Errorf("remote: decode agency: %w", err)
		}
		return &a, nil
	case http.StatusNotFound:
		return nil, scheduling.ErrAgencyNotFound
	default:
		return nil, fmt.Errorf("remote: agency lookup returned %d", resp.StatusCode)
	}
}
