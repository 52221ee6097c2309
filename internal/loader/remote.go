package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"imageviewer/internal/logging"
)

// MaxRemoteSize caps the size of a downloaded image
const MaxRemoteSize = 256 << 20

// IsRemote reports whether path is an http(s) URL
func IsRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// Fetcher downloads remote images and caches them on disk
type Fetcher struct {
	cacheDir   string
	client     *http.Client
	inFlight   map[string]chan struct{}
	inFlightMu sync.Mutex
}

// NewFetcher creates a fetcher caching into cacheDir
func NewFetcher(cacheDir string) (*Fetcher, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Fetcher{
		cacheDir: cacheDir,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		inFlight: make(map[string]chan struct{}),
	}, nil
}

var defaultFetcher = sync.OnceValues(func() (*Fetcher, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return NewFetcher(filepath.Join(dir, "imageviewer", "remote"))
})

// cachePath returns the file path for a cached URL
func (f *Fetcher) cachePath(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:16]))
}

// IsCached checks if url is already on disk
func (f *Fetcher) IsCached(url string) bool {
	_, err := os.Stat(f.cachePath(url))
	return err == nil
}

// Fetch returns the bytes behind url, downloading and caching them if needed.
// Concurrent fetches of the same URL share one download.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	path := f.cachePath(url)

	// Check cache first
	if data, err := os.ReadFile(path); err == nil {
		return data, nil
	}

	// Check if fetch is already in progress
	f.inFlightMu.Lock()
	if ch, exists := f.inFlight[url]; exists {
		f.inFlightMu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if data, err := os.ReadFile(path); err == nil {
			return data, nil
		}
		return nil, fmt.Errorf("fetching %s: concurrent download failed", url)
	}

	// Mark as in-flight
	ch := make(chan struct{})
	f.inFlight[url] = ch
	f.inFlightMu.Unlock()

	defer func() {
		f.inFlightMu.Lock()
		delete(f.inFlight, url)
		close(ch)
		f.inFlightMu.Unlock()
	}()

	data, err := f.download(ctx, url)
	if err != nil {
		return nil, err
	}

	// Write through a temp file so a partial write is never mistaken for a
	// cached image.
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0644); err == nil {
		err = os.Rename(tmp, path)
		if err != nil {
			logging.Logger().Warn("failed to cache download", "url", url, "err", err)
		}
	} else {
		logging.Logger().Warn("failed to cache download", "url", url, "err", err)
	}

	return data, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "ImageViewer/1.0")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: server returned status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxRemoteSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if len(data) > MaxRemoteSize {
		return nil, fmt.Errorf("fetching %s: larger than %d bytes", url, MaxRemoteSize)
	}

	logging.Logger().Debug("downloaded image", "url", url, "bytes", len(data), "elapsed", time.Since(start))
	return data, nil
}

// readSource returns the file bytes for a local path or a URL
func readSource(ctx context.Context, path string) ([]byte, error) {
	if !IsRemote(path) {
		return os.ReadFile(path)
	}
	f, err := defaultFetcher()
	if err != nil {
		return nil, err
	}
	return f.Fetch(ctx, path)
}
