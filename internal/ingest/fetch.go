package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// maxFetchBytes bounds a single source.
const maxFetchBytes = 64 << 20

// Fetcher reads the raw bytes of a source.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

// SourceFetcher reads local paths, file:// URLs and http(s):// URLs.
type SourceFetcher struct {
	client *http.Client
}

// NewFetcher creates a SourceFetcher whose HTTP requests time out after
// timeout. A non-positive timeout means 30 seconds.
func NewFetcher(timeout time.Duration) *SourceFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SourceFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *SourceFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return f.fetchHTTP(ctx, source)
	case strings.HasPrefix(source, "file://"):
		u, err := url.Parse(source)
		if err != nil {
			return nil, fmt.Errorf("invalid file url %s: %w", source, err)
		}
		return readFile(u.Path)
	default:
		return readFile(source)
	}
}

func (f *SourceFetcher) fetchHTTP(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to fetch %s: status %d", source, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}
	if len(data) > maxFetchBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", source, maxFetchBytes)
	}
	return data, nil
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() > maxFetchBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", path, maxFetchBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
