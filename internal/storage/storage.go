package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Downloader fetches a stored document's bytes.
type Downloader interface {
	Download(ctx context.Context, bucket, path string) ([]byte, error)
}

// Config for the object-storage client.
type Config struct {
	BaseURL        string        // project URL, e.g. https://xyz.supabase.co
	ServiceRoleKey string        // bearer credential for private buckets
	Timeout        time.Duration // http client timeout
}

// Client downloads objects from the storage service over HTTP.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

// Download returns the object's bytes. A backend error or an empty body
// is a hard failure; there is no zero-length success.
func (c *Client) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	start := time.Now()
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), bucket, strings.TrimLeft(path, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build storage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.ServiceRoleKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage download failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Warn("storage response body close error", "error", cerr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("storage download failed: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("storage download failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("storage download returned no data")
	}

	c.log.Info("storage.download.ok",
		"bucket", bucket,
		"path", path,
		"bytes", len(body),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return body, nil
}
