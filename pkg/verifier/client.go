package verifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	errs "imgaudit/pkg/errors"
	"imgaudit/pkg/logger"
)

// Client downloads image bodies
type Client struct {
	httpClient   *http.Client
	headers      map[string]string
	maxBodyBytes int64
	logger       logger.Logger
}

// NewClient creates an image download client
func NewClient(timeout time.Duration, userAgent string, maxBodyBytes int64, log logger.Logger) *Client {
	if userAgent == "" {
		userAgent = "imgaudit/1.0"
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "image/avif,image/webp,image/apng,image/*,*/*;q=0.8",
		},
		maxBodyBytes: maxBodyBytes,
		logger:       logger.OrNop(log),
	}
}

// Download fetches url and returns its body. Transport failures are
// ErrorTypeNetwork and non-2xx responses ErrorTypeHTTPStatus.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNetwork, "failed to create request", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.DebugWithFields("image request failed", map[string]interface{}{
			"url":         url,
			"duration_ms": duration.Milliseconds(),
			"error":       err.Error(),
		})
		return nil, errs.New(errs.ErrorTypeNetwork, "request failed", err)
	}
	defer resp.Body.Close()

	if err := checkResponseStatus(resp); err != nil {
		// Drain a little so the connection can be reused
		io.CopyN(io.Discard, resp.Body, 4096)
		return nil, err
	}

	reader := io.Reader(resp.Body)
	if c.maxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, c.maxBodyBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNetwork, "failed to read image body", err)
	}
	if c.maxBodyBytes > 0 && int64(len(data)) > c.maxBodyBytes {
		return nil, errs.New(errs.ErrorTypeDecode, fmt.Sprintf("image body exceeds %d bytes", c.maxBodyBytes), nil)
	}

	c.logger.DebugWithFields("image downloaded", map[string]interface{}{
		"url":         url,
		"size":        len(data),
		"duration_ms": duration.Milliseconds(),
	})

	return data, nil
}

// checkResponseStatus converts non-2xx responses into typed errors
func checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &errs.Error{
		Type:    errs.ErrorTypeHTTPStatus,
		Message: strings.TrimSpace(fmt.Sprintf("unexpected status %s", resp.Status)),
		Code:    resp.StatusCode,
	}
}
