// Package azuracast fetches the out-of-band now-playing feed exposed by
// AzuraCast-hosted stations.
package azuracast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// NowPlaying is one station's entry in the feed.
type NowPlaying struct {
	StationID   int64
	StationName string
	Title       string
	ArtURL      string
}

type envelope struct {
	Station struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"station"`
	NowPlaying struct {
		Song struct {
			Text string `json:"text"`
			Art  string `json:"art"`
		} `json:"song"`
	} `json:"now_playing"`
}

// Client provides access to an AzuraCast now-playing endpoint.
type Client struct {
	endpoint   string
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

// New creates an AzuraCast client for the given endpoint.
func New(endpoint string, timeout time.Duration, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("azuracast endpoint required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Fetch retrieves the now-playing entries for every station in the feed.
func (c *Client) Fetch(ctx context.Context) ([]NowPlaying, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("now-playing fetch returned %d", resp.StatusCode)
	}

	var payload []envelope
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode now-playing response: %w", err)
	}

	entries := make([]NowPlaying, 0, len(payload))
	for _, entry := range payload {
		entries = append(entries, NowPlaying{
			StationID:   entry.Station.ID,
			StationName: entry.Station.Name,
			Title:       entry.NowPlaying.Song.Text,
			ArtURL:      entry.NowPlaying.Song.Art,
		})
	}
	return entries, nil
}
