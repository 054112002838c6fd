// Package analysis runs the credential-gated request/response pipeline shared by
// every media type. Provider specifics live behind Adapter.
package analysis

import (
	"context"

	"github.com/anime-shed/media-inspector-go/internal/features"
	"github.com/anime-shed/media-inspector-go/internal/storage"
)

// Payload is the encoded input handed to an adapter. Exactly one of Encoded or
// URI is set.
type Payload struct {
	Name        string
	ContentType string
	Data        []byte
	Encoded     string // base64 of Data
	URI         string // passed to the provider by reference
}

// ByReference reports whether the provider should fetch the media itself.
func (p Payload) ByReference() bool {
	return p.URI != ""
}

// ProviderRequest is the ephemeral outbound call. The credential is attached by
// the Sender, never stored here.
type ProviderRequest struct {
	Method string
	URL    string
	Body   []byte
}

// Adapter shapes requests and extracts results for one media type.
type Adapter interface {
	MediaType() features.MediaType
	// AcceptsURI reports whether the provider can read uri on its own.
	AcceptsURI(uri string) bool
	// Build returns a request carrying only the enabled features.
	Build(p Payload, fs *features.Set) (*ProviderRequest, error)
	// Map extracts the enabled features from a provider response.
	Map(raw []byte, fs *features.Set) (Result, error)
}

// Awaiter is implemented by adapters whose provider answers with a long-running
// operation; Await resolves it to the final response body.
type Awaiter interface {
	Await(ctx context.Context, sender Sender, token string, initial []byte) ([]byte, error)
}

// Sender performs one authenticated provider call.
type Sender interface {
	Send(ctx context.Context, req *ProviderRequest, token string) ([]byte, error)
}

// Credentials is the read side of the credential store.
type Credentials interface {
	Get() string
	IsConfigured() bool
}

// Fetcher downloads remote media that the provider cannot read by reference.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*storage.Blob, error)
}

// owner is implemented by fetchers that must handle certain URLs themselves,
// such as private blob storage.
type owner interface {
	Owns(rawURL string) bool
}
