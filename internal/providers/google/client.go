// Package google adapts the pipeline to Google's REST annotation APIs (Vision,
// Video Intelligence, Speech-to-Text, Natural Language), all authenticated
// with a single API key.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/media-inspector-go/internal/analysis"
	"github.com/anime-shed/media-inspector-go/internal/logger"
)

const maxResponseBytes = 32 << 20

// APIError is the error envelope every Google REST API returns.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("google api error %d (%s): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("google api error %d: %s", e.Code, e.Message)
}

// Client sends provider requests with the API key attached as the key query
// parameter. It does not retry.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a client; timeout bounds a single HTTP exchange.
func NewClient(timeout time.Duration) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   10,
	}
	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// NewClientWithHTTP wraps an existing http.Client, used with httptest servers.
func NewClientWithHTTP(c *http.Client) *Client {
	return &Client{httpClient: c}
}

// Send performs req and returns the response body of a 2xx answer.
func (c *Client) Send(ctx context.Context, req *analysis.ProviderRequest, token string) ([]byte, error) {
	target, err := withKey(req.URL, token)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"method":   method,
		"endpoint": redact(target),
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("Provider call finished")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp.StatusCode, data)
	}
	return data, nil
}

func withKey(rawURL, token string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid provider URL: %w", err)
	}
	q := u.Query()
	q.Set("key", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// redact strips the query string so the key never reaches the logs.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

func decodeError(status int, data []byte) error {
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error != nil {
		if envelope.Error.Code == 0 {
			envelope.Error.Code = status
		}
		return envelope.Error
	}
	return &APIError{Code: status, Message: http.StatusText(status)}
}

// Prober validates an API key with a cheap authenticated listing call.
type Prober struct {
	client  *Client
	baseURL string
}

func NewProber(client *Client, speechBaseURL string) *Prober {
	return &Prober{client: client, baseURL: strings.TrimRight(speechBaseURL, "/")}
}

// Probe returns nil when the provider accepted the key.
func (p *Prober) Probe(ctx context.Context, token string) error {
	req := &analysis.ProviderRequest{
		Method: http.MethodGet,
		URL:    p.baseURL + "/v1/operations?pageSize=1",
	}
	_, err := p.client.Send(ctx, req, token)
	return err
}
