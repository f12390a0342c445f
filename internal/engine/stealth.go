package engine

import (
	"context"
	"io"
	"net/http"
	"strings"

	stealth "github.com/anatolykoptev/go-stealth"
)

// Re-export stealth types and helpers for engine consumers.
type BrowserClient = stealth.BrowserClient

var DefaultRetryConfig = stealth.DefaultRetryConfig

func ChromeHeaders() map[string]string { return stealth.ChromeHeaders() }

// RetryHTTP retries fn with backoff on transport errors and retryable statuses.
func RetryHTTP(ctx context.Context, rc stealth.RetryConfig, fn func() (*http.Response, error)) (*http.Response, error) {
	return stealth.RetryHTTP(ctx, rc, fn)
}

// FetchPage GETs a page through the browser client when configured, plain HTTP otherwise.
func FetchPage(ctx context.Context, cfg Config, pageURL string, headers map[string]string) ([]byte, int, error) {
	if cfg.BrowserClient != nil {
		data, _, status, err := cfg.BrowserClient.Do(http.MethodGet, pageURL, headers, nil)
		return data, status, err
	}
	resp, err := RetryHTTP(ctx, DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			if strings.EqualFold(k, "accept-encoding") {
				continue // let the transport negotiate gzip and decode it
			}
			req.Header.Set(k, v)
		}
		return cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 6*1024*1024))
	return data, resp.StatusCode, err
}
