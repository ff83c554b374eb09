package azuracast_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"airwave/internal/services/azuracast"
)

const feed = `[
  {"station":{"id":3,"name":"Night City Radio"},
   "now_playing":{"song":{"text":"Artist - Track","art":"https://cdn.example/art.png"}}},
  {"station":{"id":7,"name":"Nostalgia OST"},
   "now_playing":{"song":{"text":"Other - Song","art":""}}}
]`

func TestFetchParsesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	client, err := azuracast.New(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].StationID != 3 || entries[0].Title != "Artist - Track" {
		t.Fatalf("entry 0 = %+v", entries[0])
	}
	if entries[0].ArtURL != "https://cdn.example/art.png" {
		t.Fatalf("art url = %q", entries[0].ArtURL)
	}
}

func TestFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := azuracast.New(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Fetch(context.Background()); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestNewRequiresEndpoint(t *testing.T) {
	if _, err := azuracast.New("  ", time.Second); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}
