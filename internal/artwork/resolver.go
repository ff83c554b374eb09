// Package artwork resolves cover-art URLs into downscaled images cached on
// disk.
package artwork

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	xdraw "golang.org/x/image/draw"

	"airwave/internal/config"
	"airwave/internal/logging"
)

// maxArtBytes caps how much of a response body is read. Station art is a
// few hundred KB at most; anything larger is not worth caching.
const maxArtBytes = 8 << 20

// Resolver fetches, downscales and caches cover art. Every lookup is
// best-effort: a failure yields no artwork rather than an error surfaced to
// the listener.
type Resolver struct {
	cacheDir   string
	thumbSize  int
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient overrides the default HTTP client. The client must not
// follow redirects on its own; the resolver handles one hop itself.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// NewResolver creates a resolver caching under the config's data directory.
func NewResolver(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Resolver, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	cacheDir := filepath.Join(cfg.Paths.DataDir, "artwork")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artwork cache dir: %w", err)
	}
	timeout := time.Duration(cfg.Artwork.FetchTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	thumbSize := cfg.Artwork.ThumbSize
	if thumbSize <= 0 {
		thumbSize = 600
	}
	resolver := &Resolver{
		cacheDir:  cacheDir,
		thumbSize: thumbSize,
		timeout:   timeout,
		httpClient: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logging.NewComponentLogger(logger, "artwork"),
	}
	for _, opt := range opts {
		opt(resolver)
	}
	return resolver, nil
}

// CacheDir returns the directory holding cached thumbnails.
func (r *Resolver) CacheDir() string {
	return r.cacheDir
}

// Resolve returns the local path of the cached thumbnail for artURL,
// fetching and downscaling it on a cache miss. It returns "" when the art
// cannot be obtained; the caller shows no artwork in that case.
func (r *Resolver) Resolve(ctx context.Context, artURL string) string {
	artURL = strings.TrimSpace(artURL)
	if artURL == "" {
		return ""
	}

	cachePath := r.cachePath(artURL)
	if _, err := os.Stat(cachePath); err == nil {
		return cachePath
	}

	// A key naming an existing local file is decoded directly; anything
	// else is treated as a URL.
	img, err := r.load(ctx, artURL)
	if err != nil {
		r.logger.Debug("artwork fetch failed",
			logging.String("url", artURL),
			logging.Error(err))
		return ""
	}

	img = r.downscale(img)
	if err := r.writeCache(cachePath, img); err != nil {
		r.logger.Debug("artwork cache write failed",
			logging.String("path", cachePath),
			logging.Error(err))
		return ""
	}
	return cachePath
}

// cachePath keys cache entries on the original URL, so a redirected fetch is
// still found on the next lookup for the same URL.
func (r *Resolver) cachePath(artURL string) string {
	sum := sha256.Sum256([]byte(artURL))
	return filepath.Join(r.cacheDir, hex.EncodeToString(sum[:16])+".png")
}

func (r *Resolver) load(ctx context.Context, artURL string) (image.Image, error) {
	if info, err := os.Stat(artURL); err == nil && info.Mode().IsRegular() {
		return r.decodeFile(artURL)
	}
	return r.fetch(ctx, artURL)
}

func (r *Resolver) decodeFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artwork file: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(io.LimitReader(file, maxArtBytes))
	if err != nil {
		return nil, fmt.Errorf("decode artwork file: %w", err)
	}
	return img, nil
}

func (r *Resolver) fetch(ctx context.Context, artURL string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.get(ctx, artURL)
	if err != nil {
		return nil, err
	}
	if isRedirect(resp.StatusCode) {
		location := resp.Header.Get("Location")
		_ = resp.Body.Close()
		if location == "" {
			return nil, errors.New("redirect without location")
		}
		// One hop only. Art CDNs commonly bounce to a mirror; deeper
		// chains are treated as a failure.
		resp, err = r.get(ctx, location)
		if err != nil {
			return nil, err
		}
		if isRedirect(resp.StatusCode) {
			_ = resp.Body.Close()
			return nil, errors.New("too many redirects")
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("art fetch returned %d", resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxArtBytes))
	if err != nil {
		return nil, fmt.Errorf("decode artwork: %w", err)
	}
	return img, nil
}

func (r *Resolver) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// downscale shrinks img so its longest side is at most the configured thumb
// size, preserving aspect ratio. Smaller images pass through untouched.
func (r *Resolver) downscale(img image.Image) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	longest := width
	if height > longest {
		longest = height
	}
	if longest <= r.thumbSize {
		return img
	}

	scale := float64(r.thumbSize) / float64(longest)
	dstW := int(float64(width) * scale)
	dstH := int(float64(height) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}

func (r *Resolver) writeCache(path string, img image.Image) error {
	tmp, err := os.CreateTemp(r.cacheDir, ".art-*.png")
	if err != nil {
		return fmt.Errorf("create temp art file: %w", err)
	}
	tmpName := tmp.Name()
	if err := png.Encode(tmp, img); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("encode artwork: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp art file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("move art into cache: %w", err)
	}
	return nil
}
