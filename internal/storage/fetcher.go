package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

// Blob is remote media pulled into memory so it can be inlined in a provider request.
type Blob struct {
	Name        string
	ContentType string
	Data        []byte
}

// MediaFetcher downloads the object behind a URL.
type MediaFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Blob, error)
}

// HostBound is implemented by fetchers tied to a single endpoint host.
type HostBound interface {
	ServesHost(host string) bool
}

// Router dispatches to a fetcher by URL scheme and host. Azure and S3 fetchers
// are optional; without them those URLs fall back to plain HTTP or are refused.
// Only the configured Azure account's host goes to the Azure fetcher; blobs of
// other accounts are fetched anonymously.
type Router struct {
	HTTP  MediaFetcher
	Azure MediaFetcher
	S3    MediaFetcher
}

func (r *Router) azureServes(host string) bool {
	bound, ok := r.Azure.(HostBound)
	return ok && bound.ServesHost(host)
}

func (r *Router) Fetch(ctx context.Context, rawURL string) (*Blob, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "s3":
		if r.S3 == nil {
			return nil, fmt.Errorf("s3 storage is not configured")
		}
		return r.S3.Fetch(ctx, rawURL)
	case "http", "https":
		if r.azureServes(u.Host) {
			return r.Azure.Fetch(ctx, rawURL)
		}
		if r.HTTP == nil {
			return nil, fmt.Errorf("http fetching is not configured")
		}
		return r.HTTP.Fetch(ctx, rawURL)
	default:
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
}

// Owns reports whether rawURL needs a configured storage client (s3://, or the
// configured Azure account's blob host) rather than anonymous access.
func (r *Router) Owns(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "s3":
		return true
	case "http", "https":
		return r.azureServes(u.Host)
	}
	return false
}

// readLimited reads at most limit bytes and fails if the body is larger.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("media exceeds %d bytes", limit)
	}
	return data, nil
}

func baseName(p string) string {
	name := path.Base(p)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
