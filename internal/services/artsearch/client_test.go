package artsearch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"airwave/internal/services/artsearch"
)

func TestFindArtURLRewritesResolution(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("entity"); got != "song" {
			t.Errorf("entity = %q, want song", got)
		}
		if got := r.URL.Query().Get("limit"); got != "1" {
			t.Errorf("limit = %q, want 1", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"resultCount":1,"results":[{"artworkUrl100":"https://cdn.example/a/100x100bb.jpg"}]}`))
	}))
	defer srv.Close()

	client := artsearch.New(time.Second, artsearch.WithEndpoint(srv.URL))
	art, err := client.FindArtURL(context.Background(), "Artist - Track")
	if err != nil {
		t.Fatalf("FindArtURL: %v", err)
	}
	if want := "https://cdn.example/a/600x600bb.jpg"; art != want {
		t.Fatalf("art = %q, want %q", art, want)
	}
}

func TestFindArtURLNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"resultCount":0,"results":[]}`))
	}))
	defer srv.Close()

	client := artsearch.New(time.Second, artsearch.WithEndpoint(srv.URL))
	art, err := client.FindArtURL(context.Background(), "Unknown - Song")
	if err != nil {
		t.Fatalf("FindArtURL: %v", err)
	}
	if art != "" {
		t.Fatalf("art = %q, want empty", art)
	}
}

func TestFindArtURLRejectsEmptyQuery(t *testing.T) {
	client := artsearch.New(time.Second)
	if _, err := client.FindArtURL(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty query")
	}
}
