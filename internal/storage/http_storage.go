package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPMediaFetcher downloads media over HTTP(S) with a small retry budget for
// transient failures of the origin server.
type HTTPMediaFetcher struct {
	client   *http.Client
	maxBytes int64
	backoff  time.Duration
}

// NewHTTPMediaFetcher creates an HTTP fetcher; maxBytes <= 0 disables the size cap.
func NewHTTPMediaFetcher(timeout time.Duration, maxBytes int64) *HTTPMediaFetcher {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPMediaFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxBytes: maxBytes,
		backoff:  time.Second,
	}
}

func (h *HTTPMediaFetcher) Fetch(ctx context.Context, mediaURL string) (*Blob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/*, video/*, audio/*, text/*, */*")
	req.Header.Set("User-Agent", "Media-Inspector/1.0")

	// Up to 3 attempts; only network errors and 5xx are retried
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		resp, err = h.client.Do(req)
		if err != nil {
			lastErr = err
			resp = nil
		} else if resp.StatusCode == http.StatusOK {
			break
		} else {
			resp.Body.Close()
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return nil, fmt.Errorf("failed to fetch media: client error: status code %d", resp.StatusCode)
			}
			lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
			resp = nil
		}

		if attempt < 2 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * h.backoff):
			}
		}
	}

	if resp == nil {
		if lastErr == nil {
			lastErr = fmt.Errorf("unknown error")
		}
		return nil, fmt.Errorf("failed to fetch media after 3 attempts: %w", lastErr)
	}
	defer resp.Body.Close()

	data, err := readLimited(resp.Body, h.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read media: %w", err)
	}

	return &Blob{
		Name:        baseName(resp.Request.URL.Path),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
