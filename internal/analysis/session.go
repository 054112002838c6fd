package analysis

import (
	"context"
	"sync"

	apperrors "github.com/anime-shed/media-inspector-go/internal/errors"
	"github.com/anime-shed/media-inspector-go/internal/features"
	"github.com/anime-shed/media-inspector-go/internal/media"
)

// Status is a snapshot of a session's flags.
type Status struct {
	MediaType  features.MediaType `json:"media_type"`
	Analyzing  bool               `json:"analyzing"`
	RunningAll bool               `json:"running_all"`
	HasResult  bool               `json:"has_result"`
	Input      string             `json:"input"`
	Features   map[string]bool    `json:"features"`
}

// Session owns the input, feature selection and latest result of one analysis
// flow. Only one analysis runs at a time.
type Session struct {
	mu         sync.Mutex
	pipeline   *Pipeline
	resolver   *media.Resolver
	features   *features.Set
	result     Result
	analyzing  bool
	runningAll bool
}

// NewSession starts a flow for mt with that media type's default features.
func NewSession(p *Pipeline, mt features.MediaType) (*Session, error) {
	fs, err := features.New(mt)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), err)
	}
	return &Session{
		pipeline: p,
		resolver: media.NewResolver(mt),
		features: fs,
	}, nil
}

func (s *Session) MediaType() features.MediaType {
	return s.resolver.MediaType()
}

// SetFile replaces the input with an uploaded file. A MIME mismatch leaves the
// previous input in place.
func (s *Session) SetFile(f media.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.SetFile(f)
}

func (s *Session) SetText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.SetText(text)
}

func (s *Session) SetURL(u string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolver.SetURL(u)
}

// ToggleFeature flips one flag of the current selection.
func (s *Session) ToggleFeature(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.features.Toggle(name); err != nil {
		return apperrors.NewValidationError(err.Error(), err)
	}
	return nil
}

// SelectFeatures replaces the whole selection. Unknown names are rejected and
// leave the selection unchanged.
func (s *Session) SelectFeatures(selection map[string]bool) error {
	fs, err := features.FromMap(s.MediaType(), selection)
	if err != nil {
		return apperrors.NewValidationError(err.Error(), err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features = fs
	return nil
}

// Features returns a copy of the current selection.
func (s *Session) Features() *features.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.features.Clone()
}

// Result returns the latest successful result, or nil.
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		MediaType:  s.resolver.MediaType(),
		Analyzing:  s.analyzing,
		RunningAll: s.runningAll,
		HasResult:  s.result != nil,
		Input:      s.resolver.Input().Describe(),
		Features:   s.features.Map(),
	}
}

// Analyze runs the pipeline with the features enabled right now.
func (s *Session) Analyze(ctx context.Context) (Result, error) {
	return s.run(ctx, false)
}

// RunAll enables every feature and then runs the same single request.
func (s *Session) RunAll(ctx context.Context) (Result, error) {
	return s.run(ctx, true)
}

func (s *Session) run(ctx context.Context, all bool) (Result, error) {
	s.mu.Lock()
	if s.analyzing {
		s.mu.Unlock()
		return nil, apperrors.NewBusyError("an analysis is already running")
	}
	s.analyzing = true
	if all {
		s.runningAll = true
		s.features.SelectAll()
	}
	in := s.resolver.Input()
	fs := s.features.Clone()
	s.mu.Unlock()

	result, err := s.pipeline.Run(ctx, in, fs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyzing = false
	s.runningAll = false
	switch {
	case err == nil:
		s.result = result
	case apperrors.IsType(err, apperrors.ErrorTypeProvider):
		s.result = nil
	}
	return result, err
}
