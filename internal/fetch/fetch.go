// Package fetch downloads upload sources from remote URLs.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/nixground/nixground-server/internal/errors"
)

const (
	// defaultMaxBytes limits download size to prevent memory exhaustion.
	defaultMaxBytes = 50 * 1024 * 1024 // 50MB

	// defaultTimeout is the maximum time for a source download.
	defaultTimeout = 30 * time.Second
)

// Result is a downloaded upload source.
type Result struct {
	Data        []byte
	ContentType string
	// Filename is the last URL path segment, used as an extension hint.
	Filename string
}

// Fetcher downloads image bytes from remote URLs.
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
	logger     *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMaxBytes overrides the download size cap.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithTimeout overrides the per-download timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.httpClient.Timeout = d
		}
	}
}

// New creates a source fetcher.
func New(logger *slog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		maxBytes: defaultMaxBytes,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the source at rawURL.
//
// A 4xx response means the source itself is bad and the caller should not
// retry; 5xx and transport errors are upstream failures.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, errors.Validationf("Invalid source URL: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "create request for %s", rawURL)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Error("Source download failed", "url", rawURL, "error", err)
		return nil, errors.Wrapf(err, errors.CodeSourceFetch, "fetch source %s", rawURL)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		f.logger.Warn("Source rejected by origin",
			"url", rawURL,
			"status", resp.StatusCode,
		)
		return nil, errors.SourceRejectedf("Source returned status %d: %s", resp.StatusCode, rawURL)
	default:
		f.logger.Error("Source origin failed",
			"url", rawURL,
			"status", resp.StatusCode,
		)
		return nil, errors.SourceFetchf("Source returned status %d: %s", resp.StatusCode, rawURL)
	}

	// Read one byte past the cap to distinguish "exactly at cap" from
	// "over cap".
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeSourceFetch, "read source %s", rawURL)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, errors.SourceRejectedf("Source exceeds maximum size of %d bytes: %s", f.maxBytes, rawURL)
	}
	if len(data) == 0 {
		return nil, errors.SourceRejectedf("Source is empty: %s", rawURL)
	}

	result := &Result{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    path.Base(parsed.Path),
	}
	if result.Filename == "/" || result.Filename == "." {
		result.Filename = ""
	}

	f.logger.Info("Fetched upload source",
		"url", rawURL,
		"size_bytes", len(data),
		"content_type", result.ContentType,
	)
	return result, nil
}

// String implements fmt.Stringer for logging without dumping bytes.
func (r *Result) String() string {
	return fmt.Sprintf("source(%d bytes, %s)", len(r.Data), r.ContentType)
}
