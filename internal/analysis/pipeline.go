package analysis

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/anime-shed/media-inspector-go/internal/errors"
	"github.com/anime-shed/media-inspector-go/internal/features"
	"github.com/anime-shed/media-inspector-go/internal/logger"
	"github.com/anime-shed/media-inspector-go/internal/media"
	"github.com/anime-shed/media-inspector-go/internal/observer"
	"github.com/anime-shed/media-inspector-go/pkg/validation"
)

// SettingsPath is where callers are sent when no API key is configured.
const SettingsPath = "/settings"

const (
	msgConfigurationRequired = "Please configure your Google Cloud API key in Settings"
	msgAnalysisFailed        = "analysis failed"
)

// Pipeline is the single guard/encode/build/send/map sequence shared by every
// media type.
type Pipeline struct {
	creds     Credentials
	sender    Sender
	fetcher   Fetcher
	validator *validation.URLValidator
	events    observer.Subject
	adapters  map[features.MediaType]Adapter
}

// NewPipeline wires a pipeline. fetcher and events may be nil.
func NewPipeline(creds Credentials, sender Sender, fetcher Fetcher, events observer.Subject, adapters ...Adapter) *Pipeline {
	p := &Pipeline{
		creds:     creds,
		sender:    sender,
		fetcher:   fetcher,
		validator: validation.NewURLValidator(),
		events:    events,
		adapters:  make(map[features.MediaType]Adapter, len(adapters)),
	}
	for _, a := range adapters {
		p.adapters[a.MediaType()] = a
	}
	return p
}

// UseURLValidator replaces the default validator, e.g. with a host allow-list.
func (p *Pipeline) UseURLValidator(v *validation.URLValidator) {
	p.validator = v
}

// Supports reports whether an adapter is registered for mt.
func (p *Pipeline) Supports(mt features.MediaType) bool {
	_, ok := p.adapters[mt]
	return ok
}

// Run analyzes in with the features enabled in fs. Guard failures never touch
// the network. Any failure after the guard is reported as a provider error.
func (p *Pipeline) Run(ctx context.Context, in media.Input, fs *features.Set) (Result, error) {
	mt := fs.MediaType()
	adapter, ok := p.adapters[mt]
	if !ok {
		return nil, apperrors.NewInternalError(fmt.Sprintf("no adapter registered for %s", mt), nil)
	}

	if err := p.guard(ctx, mt, in); err != nil {
		return nil, err
	}

	enabled := fs.EnabledNames()
	if len(enabled) == 0 {
		return Result{}, nil
	}

	start := time.Now()
	p.publish(ctx, observer.AnalysisEvent{
		EventType: observer.AnalysisStarted,
		MediaType: string(mt),
		Source:    in.Describe(),
		Metadata:  map[string]interface{}{"features": strings.Join(enabled, ",")},
	})

	result, err := p.execute(ctx, adapter, in, fs)
	elapsed := time.Since(start)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"media_type": mt,
			"source":     in.Describe(),
		}).WithError(err).Error("Analysis failed")
		p.publish(ctx, observer.AnalysisEvent{
			EventType:      observer.AnalysisFailed,
			MediaType:      string(mt),
			Source:         in.Describe(),
			ProcessingTime: elapsed,
			ErrorMessage:   err.Error(),
		})
		return nil, apperrors.NewProviderError(msgAnalysisFailed, err)
	}

	p.publish(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		MediaType:      string(mt),
		Source:         in.Describe(),
		ProcessingTime: elapsed,
		Success:        true,
		Metadata:       map[string]interface{}{"result_keys": len(result)},
	})
	return result, nil
}

func (p *Pipeline) guard(ctx context.Context, mt features.MediaType, in media.Input) error {
	if p.creds == nil || !p.creds.IsConfigured() {
		p.publish(ctx, observer.AnalysisEvent{EventType: observer.ConfigurationRequired, MediaType: string(mt)})
		appErr := apperrors.NewConfigurationError(msgConfigurationRequired)
		appErr.Details = SettingsPath
		return appErr
	}
	if in.IsEmpty() {
		p.publish(ctx, observer.AnalysisEvent{EventType: observer.InputRequired, MediaType: string(mt)})
		return apperrors.NewInputRequiredError(fmt.Sprintf("Please provide a %s file or URL", mt))
	}
	if in.Kind() == media.KindURL {
		if err := p.validator.ValidateMediaURL(in.URL()); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) execute(ctx context.Context, adapter Adapter, in media.Input, fs *features.Set) (Result, error) {
	payload, err := p.encode(ctx, adapter, in)
	if err != nil {
		return nil, err
	}

	req, err := adapter.Build(payload, fs)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	token := p.creds.Get()
	raw, err := p.sender.Send(ctx, req, token)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if awaiter, ok := adapter.(Awaiter); ok {
		raw, err = awaiter.Await(ctx, p.sender, token, raw)
		if err != nil {
			return nil, fmt.Errorf("await operation: %w", err)
		}
	}

	result, err := adapter.Map(raw, fs)
	if err != nil {
		return nil, fmt.Errorf("map response: %w", err)
	}

	for key := range result {
		if !fs.Enabled(key) {
			delete(result, key)
		}
	}
	return result, nil
}

// encode turns the input into a payload. Files are inlined. URLs go by
// reference when the provider can read them and no configured storage client
// claims them; otherwise they are downloaded and inlined.
func (p *Pipeline) encode(ctx context.Context, adapter Adapter, in media.Input) (Payload, error) {
	if in.Kind() == media.KindFile {
		f := in.File()
		return Payload{
			Name:        f.Name,
			ContentType: f.ContentType,
			Data:        f.Data,
			Encoded:     base64.StdEncoding.EncodeToString(f.Data),
		}, nil
	}

	rawURL := in.URL()
	owned := false
	if o, ok := p.fetcher.(owner); ok {
		owned = o.Owns(rawURL)
	}
	if !owned && adapter.AcceptsURI(rawURL) {
		return Payload{URI: rawURL}, nil
	}
	if p.fetcher == nil {
		return Payload{}, fmt.Errorf("no media fetcher configured for %s", rawURL)
	}

	mt := adapter.MediaType()
	blob, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		p.publish(ctx, observer.AnalysisEvent{
			EventType:    observer.MediaFetchFailed,
			MediaType:    string(mt),
			Source:       rawURL,
			ErrorMessage: err.Error(),
		})
		return Payload{}, fmt.Errorf("fetch media: %w", err)
	}

	f := &media.File{Name: blob.Name, ContentType: blob.ContentType, Data: blob.Data}
	f.ContentType = media.DetectContentType(f)
	p.publish(ctx, observer.AnalysisEvent{
		EventType: observer.MediaFetched,
		MediaType: string(mt),
		Source:    rawURL,
		Success:   true,
		Metadata:  map[string]interface{}{"bytes": f.Size(), "content_type": f.ContentType},
	})

	return Payload{
		Name:        f.Name,
		ContentType: f.ContentType,
		Data:        f.Data,
		Encoded:     base64.StdEncoding.EncodeToString(f.Data),
	}, nil
}

func (p *Pipeline) publish(ctx context.Context, event observer.AnalysisEvent) {
	if p.events == nil {
		return
	}
	p.events.NotifyObservers(ctx, event)
}
