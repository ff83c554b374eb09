// Package radiobrowser searches the community radio-browser.info directory
// for stations to add to the local list.
package radiobrowser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const userAgent = "airwave/1.0 (https://github.com/airwave/airwave)"

// Station is one directory entry.
type Station struct {
	Name     string `json:"name"`
	URL      string `json:"url_resolved"`
	Homepage string `json:"homepage"`
	Favicon  string `json:"favicon"`
	Country  string `json:"country"`
	Codec    string `json:"codec"`
	Bitrate  int    `json:"bitrate"`
}

// Client queries a radio-browser API mirror.
type Client struct {
	endpoint   string
	limit      int
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a directory client against the given search endpoint.
func New(endpoint string, limit int, timeout time.Duration, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("radio-browser endpoint required")
	}
	if limit <= 0 {
		limit = 20
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &Client{
		endpoint:   endpoint,
		limit:      limit,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search returns directory stations whose names match the given term.
func (c *Client) Search(ctx context.Context, name string) ([]Station, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("search term must not be empty")
	}

	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse search url: %w", err)
	}
	params := url.Values{}
	params.Set("name", name)
	params.Set("limit", strconv.Itoa(c.limit))
	params.Set("hidebroken", "true")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("station search returned %d", resp.StatusCode)
	}

	var stations []Station
	if err := json.NewDecoder(resp.Body).Decode(&stations); err != nil {
		return nil, fmt.Errorf("decode station search response: %w", err)
	}
	return stations, nil
}
