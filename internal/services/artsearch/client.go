// Package artsearch looks up cover art for a track via the iTunes search
// API.
package artsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultEndpoint = "https://itunes.apple.com/search"

type response struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		ArtworkURL100 string `json:"artworkUrl100"`
	} `json:"results"`
}

// Client queries the iTunes search API for song artwork.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the search endpoint (used in tests).
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if strings.TrimSpace(endpoint) != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates an art search client.
func New(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := &Client{
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// FindArtURL returns a high-resolution artwork URL for the given
// "Artist - Title" query, or "" when nothing matches. The API serves
// 100x100 thumbnails; the path is rewritten to the 600x600 rendition the
// CDN also hosts.
func (c *Client) FindArtURL(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.New("query must not be empty")
	}

	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse search url: %w", err)
	}
	params := url.Values{}
	params.Set("term", query)
	params.Set("entity", "song")
	params.Set("limit", "1")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("art search returned %d", resp.StatusCode)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode art search response: %w", err)
	}
	if payload.ResultCount == 0 || len(payload.Results) == 0 {
		return "", nil
	}
	art := payload.Results[0].ArtworkURL100
	if art == "" {
		return "", nil
	}
	return strings.Replace(art, "100x100", "600x600", 1), nil
}
