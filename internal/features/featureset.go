// Package features holds the per-media-type capability flags a caller can toggle
// before running an analysis.
package features

import (
	"fmt"
	"strings"
)

// MediaType identifies one of the analysis flows.
type MediaType string

const (
	Image MediaType = "image"
	Video MediaType = "video"
	Audio MediaType = "audio"
	Text  MediaType = "text"
)

// Feature names. Image and video share the visual detectors.
const (
	Labels    = "labels"
	Objects   = "objects"
	Texts     = "texts"
	Explicit  = "explicit"
	Faces     = "faces"
	Landmarks = "landmarks"

	Transcription      = "transcription"
	SpeakerDiarization = "speakerDiarization"
	WordTimestamps     = "wordTimestamps"
	LanguageDetection  = "languageDetection"

	Entities   = "entities"
	Sentiment  = "sentiment"
	Syntax     = "syntax"
	Categories = "categories"
	Language   = "language"
)

var catalog = map[MediaType][]string{
	Video: {Labels, Objects, Texts, Explicit, Faces},
	Audio: {Transcription, SpeakerDiarization, WordTimestamps, LanguageDetection},
	Text:  {Entities, Sentiment, Syntax, Categories, Language},
	Image: {Labels, Objects, Texts, Explicit, Faces, Landmarks},
}

// MediaTypes lists every supported media type.
func MediaTypes() []MediaType {
	return []MediaType{Image, Video, Audio, Text}
}

// ParseMediaType accepts the lower-case media type name.
func ParseMediaType(s string) (MediaType, error) {
	mt := MediaType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := catalog[mt]; !ok {
		return "", fmt.Errorf("unsupported media type %q", s)
	}
	return mt, nil
}

// Names returns the fixed feature keys of a media type in declaration order.
func Names(mt MediaType) []string {
	names := catalog[mt]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Set is a fixed mapping of feature name to enabled flag for one media type.
// It is not safe for concurrent use; each session owns its own Set.
type Set struct {
	media MediaType
	flags map[string]bool
}

// New returns the default selection: the first feature enabled, the rest off.
func New(mt MediaType) (*Set, error) {
	names, ok := catalog[mt]
	if !ok {
		return nil, fmt.Errorf("unsupported media type %q", mt)
	}
	s := &Set{media: mt, flags: make(map[string]bool, len(names))}
	for i, n := range names {
		s.flags[n] = i == 0
	}
	return s, nil
}

// FromMap builds a Set with every flag off, then applies the given selection.
// Unknown keys are rejected.
func FromMap(mt MediaType, selection map[string]bool) (*Set, error) {
	s, err := New(mt)
	if err != nil {
		return nil, err
	}
	for n := range s.flags {
		s.flags[n] = false
	}
	for n, v := range selection {
		if err := s.Set(n, v); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// FromList enables exactly the named features.
func FromList(mt MediaType, names []string) (*Set, error) {
	selection := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		selection[n] = true
	}
	return FromMap(mt, selection)
}

func (s *Set) MediaType() MediaType { return s.media }

// Has reports whether name is a valid key for this media type.
func (s *Set) Has(name string) bool {
	_, ok := s.flags[name]
	return ok
}

// Set assigns one flag.
func (s *Set) Set(name string, enabled bool) error {
	if !s.Has(name) {
		return fmt.Errorf("unknown %s feature %q", s.media, name)
	}
	s.flags[name] = enabled
	return nil
}

// Toggle flips one flag.
func (s *Set) Toggle(name string) error {
	if !s.Has(name) {
		return fmt.Errorf("unknown %s feature %q", s.media, name)
	}
	s.flags[name] = !s.flags[name]
	return nil
}

// SelectAll enables every flag, as used by "run all".
func (s *Set) SelectAll() {
	for n := range s.flags {
		s.flags[n] = true
	}
}

func (s *Set) Enabled(name string) bool {
	return s.flags[name]
}

// AllEnabled reports whether every flag is on.
func (s *Set) AllEnabled() bool {
	for _, v := range s.flags {
		if !v {
			return false
		}
	}
	return true
}

// EnabledNames lists the enabled flags in declaration order.
func (s *Set) EnabledNames() []string {
	var out []string
	for _, n := range catalog[s.media] {
		if s.flags[n] {
			out = append(out, n)
		}
	}
	return out
}

// Map returns a copy of the flags.
func (s *Set) Map() map[string]bool {
	out := make(map[string]bool, len(s.flags))
	for k, v := range s.flags {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy, used to snapshot the selection at call time.
func (s *Set) Clone() *Set {
	return &Set{media: s.media, flags: s.Map()}
}
