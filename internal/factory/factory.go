package factory

import (
	"context"
	"fmt"

	"github.com/anime-shed/media-inspector-go/internal/analysis"
	"github.com/anime-shed/media-inspector-go/internal/config"
	"github.com/anime-shed/media-inspector-go/internal/features"
	"github.com/anime-shed/media-inspector-go/internal/logger"
	"github.com/anime-shed/media-inspector-go/internal/providers/google"
	"github.com/anime-shed/media-inspector-go/internal/storage"
)

// StorageType represents the storage backends a media URL can be fetched from
type StorageType string

const (
	// HTTPStorage fetches public http(s) URLs
	HTTPStorage StorageType = "http"
	// AzureStorage fetches private Azure blobs with account credentials
	AzureStorage StorageType = "azure"
	// S3Storage fetches s3:// objects
	S3Storage StorageType = "s3"
)

// AdapterFactory creates provider adapters
type AdapterFactory interface {
	CreateAdapter(mediaType features.MediaType) (analysis.Adapter, error)
	CreateAll() ([]analysis.Adapter, error)
}

// StorageFactory creates media fetchers
type StorageFactory interface {
	CreateStorage(ctx context.Context, storageType StorageType) (storage.MediaFetcher, error)
	CreateRouter(ctx context.Context) (*storage.Router, error)
}

type adapterFactory struct {
	google config.GoogleConfig
}

// NewAdapterFactory creates adapters pointed at the configured Google endpoints
func NewAdapterFactory(cfg config.GoogleConfig) AdapterFactory {
	return &adapterFactory{google: cfg}
}

// CreateAdapter creates the adapter for one media type
func (f *adapterFactory) CreateAdapter(mediaType features.MediaType) (analysis.Adapter, error) {
	switch mediaType {
	case features.Image:
		return google.NewVisionAdapter(f.google.VisionBaseURL), nil
	case features.Video:
		return google.NewVideoAdapter(f.google.VideoBaseURL, f.google.VideoPollInterval), nil
	case features.Audio:
		return google.NewSpeechAdapter(f.google.SpeechBaseURL, f.google.SpeechLanguageCode), nil
	case features.Text:
		return google.NewLanguageAdapter(f.google.LanguageBaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported media type: %s", mediaType)
	}
}

// CreateAll creates one adapter per supported media type
func (f *adapterFactory) CreateAll() ([]analysis.Adapter, error) {
	var adapters []analysis.Adapter
	for _, mt := range features.MediaTypes() {
		a, err := f.CreateAdapter(mt)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates a fetcher for the given backend. Azure and S3 return
// (nil, nil) when they are not configured.
func (f *storageFactory) CreateStorage(ctx context.Context, storageType StorageType) (storage.MediaFetcher, error) {
	maxBytes := f.cfg.MaxRequestBodySize
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPMediaFetcher(f.cfg.MediaFetchTimeout, maxBytes), nil
	case AzureStorage:
		if !f.cfg.AzureEnabled() {
			return nil, nil
		}
		return storage.NewAzureStorage(f.cfg.Azure.AccountName, f.cfg.Azure.AccountKey, maxBytes)
	case S3Storage:
		if !f.cfg.S3Enabled() {
			return nil, nil
		}
		return storage.NewS3Storage(ctx, storage.S3Config{
			Region:          f.cfg.S3.Region,
			Endpoint:        f.cfg.S3.Endpoint,
			AccessKeyID:     f.cfg.S3.AccessKeyID,
			SecretAccessKey: f.cfg.S3.SecretAccessKey,
			UsePathStyle:    f.cfg.S3.UsePathStyle,
			MaxBytes:        maxBytes,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// CreateRouter assembles every configured backend behind one fetcher
func (f *storageFactory) CreateRouter(ctx context.Context) (*storage.Router, error) {
	router := &storage.Router{}
	for _, st := range []StorageType{HTTPStorage, AzureStorage, S3Storage} {
		fetcher, err := f.CreateStorage(ctx, st)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s storage: %w", st, err)
		}
		if fetcher == nil {
			logger.WithField("storage", st).Debug("Storage backend not configured")
			continue
		}
		switch st {
		case HTTPStorage:
			router.HTTP = fetcher
		case AzureStorage:
			router.Azure = fetcher
		case S3Storage:
			router.S3 = fetcher
		}
	}
	return router, nil
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	AdapterFactory AdapterFactory
	StorageFactory StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		AdapterFactory: NewAdapterFactory(cfg.Google),
		StorageFactory: NewStorageFactory(cfg),
	}
}
