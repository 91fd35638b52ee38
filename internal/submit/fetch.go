package submit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"
)

const (
	fetchTimeout  = 10 * time.Second
	maxFetchBytes = 10 << 20
	userAgent     = "localtv/1.0 (+video submission)"
)

var (
	ErrBrokenLink = errors.New("broken link")
	ErrTooLarge   = errors.New("remote resource too large")
)

// Fetcher performs the outbound requests made while validating a
// submission. Requests are not retried.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: fetchTimeout},
		maxBytes: maxFetchBytes,
	}
}

// Verify checks that rawURL answers with a status below 400 and returns its
// media type. Servers that refuse HEAD are retried with GET.
func (f *Fetcher) Verify(ctx context.Context, rawURL string) (string, error) {
	resp, err := f.do(ctx, http.MethodHead, rawURL)
	if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		_ = resp.Body.Close()
		resp, err = f.do(ctx, http.MethodGet, rawURL)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBrokenLink, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: status %d", ErrBrokenLink, resp.StatusCode)
	}
	return mediaType(resp.Header.Get("Content-Type")), nil
}

// Fetch downloads rawURL, refusing bodies larger than the fetch limit.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	resp, err := f.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("fetch %s: %w: status %d", rawURL, ErrBrokenLink, resp.StatusCode)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, "", fmt.Errorf("fetch %s: %w", rawURL, ErrTooLarge)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", rawURL, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("fetch %s: %w", rawURL, ErrTooLarge)
	}
	return data, mediaType(resp.Header.Get("Content-Type")), nil
}

func (f *Fetcher) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return f.client.Do(req)
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return mt
}
