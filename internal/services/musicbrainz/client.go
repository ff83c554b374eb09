// Package musicbrainz resolves identified tracks to MusicBrainz recording
// pages.
package musicbrainz

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

const (
	defaultEndpoint = "https://musicbrainz.org/ws/2/recording"
	userAgent       = "airwave/1.0 (https://github.com/airwave/airwave)"
)

type response struct {
	Recordings []struct {
		ID string `json:"id"`
	} `json:"recordings"`
}

// Client queries the MusicBrainz web service.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the recording search endpoint (used in tests).
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

// New creates a MusicBrainz client.
func New(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
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

// RecordingURL searches for a recording by artist and title and returns the
// canonical MusicBrainz page for the best match, or "" when nothing matches.
func (c *Client) RecordingURL(ctx context.Context, artist, title string) (string, error) {
	artist = strings.TrimSpace(artist)
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errors.New("title must not be empty")
	}

	query := fmt.Sprintf("recording:%q", title)
	if artist != "" {
		query += fmt.Sprintf(" AND artist:%q", artist)
	}

	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse recording url: %w", err)
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("fmt", "json")
	params.Set("limit", "1")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("recording search returned %d", resp.StatusCode)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode recording response: %w", err)
	}
	if len(payload.Recordings) == 0 || payload.Recordings[0].ID == "" {
		return "", nil
	}
	return "https://musicbrainz.org/recording/" + payload.Recordings[0].ID, nil
}
