// Package fetcher downloads attachment data with bounded time and size.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/robalyx/sentinel/internal/settings"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var (
	// ErrTooLarge is returned when the payload exceeds the configured image size.
	ErrTooLarge = errors.New("payload exceeds size limit")
	// ErrUnexpectedStatus is returned for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

// Fetcher downloads attachments. Concurrent fetches of the same URL share one request.
type Fetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	group    singleflight.Group
	settings settings.Source
	logger   *zap.Logger
}

// New creates a Fetcher using the download limits in source.
func New(client *http.Client, source settings.Source, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}

	cfg := source.Current().Images

	return &Fetcher{
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(cfg.DownloadRate), cfg.DownloadBurst),
		settings: source,
		logger:   logger.Named("fetcher"),
	}
}

// Fetch downloads url. It returns ErrTooLarge as soon as the payload is known to exceed the limit.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	result, err, shared := f.group.Do(url, func() (any, error) {
		return f.fetch(ctx, url)
	})
	if err != nil {
		return nil, err
	}

	if shared {
		f.logger.Debug("Shared in-flight download", zap.String("url", url))
	}

	return result.([]byte), nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	cfg := f.settings.Current().Images
	maxBytes := cfg.MaxImageBytes()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.DownloadTimeout)*time.Millisecond)
	defer cancel()

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for download slot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if resp.ContentLength > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}

	return data, nil
}
