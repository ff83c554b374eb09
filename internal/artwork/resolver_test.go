package artwork_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"airwave/internal/artwork"
	"airwave/internal/testsupport"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x40, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func decodeFile(t *testing.T, path string) image.Image {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read cached art: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode cached art: %v", err)
	}
	return img
}

func TestResolveCachesFetchedArt(t *testing.T) {
	art := encodePNG(t, 64, 64)
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(art)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	resolver, err := artwork.NewResolver(cfg, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	first := resolver.Resolve(context.Background(), srv.URL+"/cover.png")
	if first == "" {
		t.Fatal("expected cached path on first resolve")
	}
	second := resolver.Resolve(context.Background(), srv.URL+"/cover.png")
	if second != first {
		t.Fatalf("second resolve = %q, want %q", second, first)
	}
	if got := fetches.Load(); got != 1 {
		t.Fatalf("fetch count = %d, want 1 (cache hit must not refetch)", got)
	}
}

func TestResolveDownscalesLargeArt(t *testing.T) {
	art := encodePNG(t, 1200, 900)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(art)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Artwork.ThumbSize = 600
	resolver, err := artwork.NewResolver(cfg, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	path := resolver.Resolve(context.Background(), srv.URL+"/big.png")
	if path == "" {
		t.Fatal("expected cached path")
	}
	img := decodeFile(t, path)
	bounds := img.Bounds()
	if bounds.Dx() != 600 || bounds.Dy() != 450 {
		t.Fatalf("cached size = %dx%d, want 600x450", bounds.Dx(), bounds.Dy())
	}
}

func TestResolveDecodesLocalFile(t *testing.T) {
	art := encodePNG(t, 800, 800)
	local := filepath.Join(t.TempDir(), "station.png")
	if err := os.WriteFile(local, art, 0o644); err != nil {
		t.Fatalf("write local art: %v", err)
	}

	cfg := testsupport.NewConfig(t)
	cfg.Artwork.ThumbSize = 600
	resolver, err := artwork.NewResolver(cfg, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	path := resolver.Resolve(context.Background(), local)
	if path == "" {
		t.Fatal("expected local file to resolve")
	}
	bounds := decodeFile(t, path).Bounds()
	if bounds.Dx() != 600 || bounds.Dy() != 600 {
		t.Fatalf("cached size = %dx%d, want 600x600", bounds.Dx(), bounds.Dy())
	}

	if got := resolver.Resolve(context.Background(), filepath.Join(t.TempDir(), "absent.png")); got != "" {
		t.Fatalf("resolve of missing local file = %q, want none", got)
	}
}

func TestResolveFollowsOneRedirect(t *testing.T) {
	art := encodePNG(t, 32, 32)
	var mux http.ServeMux
	srv := httptest.NewServer(&mux)
	defer srv.Close()
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(art)
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/loop", http.StatusFound)
	})

	cfg := testsupport.NewConfig(t)
	resolver, err := artwork.NewResolver(cfg, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	if path := resolver.Resolve(context.Background(), srv.URL+"/moved"); path == "" {
		t.Fatal("single redirect should resolve")
	}
	if path := resolver.Resolve(context.Background(), srv.URL+"/loop"); path != "" {
		t.Fatalf("redirect chain resolved to %q, want none", path)
	}
}

func TestResolveFailuresYieldNone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	resolver, err := artwork.NewResolver(cfg, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	if path := resolver.Resolve(context.Background(), srv.URL+"/missing.png"); path != "" {
		t.Fatalf("resolve of 404 = %q, want none", path)
	}
	if path := resolver.Resolve(context.Background(), ""); path != "" {
		t.Fatalf("resolve of empty URL = %q, want none", path)
	}
}
