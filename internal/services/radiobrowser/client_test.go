package radiobrowser_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"airwave/internal/services/radiobrowser"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("name"); got != "soma" {
			t.Errorf("name = %q, want soma", got)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q, want 5", got)
		}
		_, _ = w.Write([]byte(`[
			{"name":"SomaFM Groove Salad","url_resolved":"https://ice.somafm.com/groovesalad","country":"USA","codec":"MP3","bitrate":128}
		]`))
	}))
	defer srv.Close()

	client, err := radiobrowser.New(srv.URL, 5, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stations, err := client.Search(context.Background(), "soma")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(stations) != 1 {
		t.Fatalf("len = %d, want 1", len(stations))
	}
	if stations[0].URL != "https://ice.somafm.com/groovesalad" {
		t.Fatalf("url = %q", stations[0].URL)
	}
	if stations[0].Bitrate != 128 {
		t.Fatalf("bitrate = %d", stations[0].Bitrate)
	}
}

func TestSearchRejectsEmptyTerm(t *testing.T) {
	client, err := radiobrowser.New("https://example.invalid/search", 5, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Search(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty term")
	}
}

func TestNewRequiresEndpoint(t *testing.T) {
	if _, err := radiobrowser.New("", 5, time.Second); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}
