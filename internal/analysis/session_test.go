package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/anime-shed/media-inspector-go/internal/errors"
	"github.com/anime-shed/media-inspector-go/internal/features"
	"github.com/anime-shed/media-inspector-go/internal/media"
)

func newTestSession(t *testing.T, mt features.MediaType, sender Sender) (*Session, *fakeAdapter) {
	t.Helper()
	adapter := &fakeAdapter{mt: mt}
	p := NewPipeline(staticCreds("key"), sender, nil, nil, adapter)
	s, err := NewSession(p, mt)
	require.NoError(t, err)
	return s, adapter
}

func TestSession_DefaultFeatures(t *testing.T) {
	s, _ := newTestSession(t, features.Audio, &fakeSender{})
	assert.Equal(t, []string{features.Transcription}, s.Features().EnabledNames())
	assert.Equal(t, features.Audio, s.Status().MediaType)
}

func TestSession_RunAllEnablesEveryFlagBeforeBuild(t *testing.T) {
	s, adapter := newTestSession(t, features.Image, &fakeSender{})
	require.NoError(t, s.SetFile(sampleFiles[features.Image]))
	require.NoError(t, s.SelectFeatures(map[string]bool{features.Faces: true}))

	result, err := s.RunAll(context.Background())
	require.NoError(t, err)

	for name, enabled := range adapter.lastFlags() {
		assert.True(t, enabled, "feature %s enabled at build time", name)
	}
	assert.Len(t, result, len(features.Names(features.Image)))
	assert.True(t, s.Features().AllEnabled())

	st := s.Status()
	assert.False(t, st.Analyzing)
	assert.False(t, st.RunningAll)
	assert.True(t, st.HasResult)
}

func TestSession_FeaturesSnapshottedAtCallTime(t *testing.T) {
	s, adapter := newTestSession(t, features.Text, &fakeSender{})
	require.NoError(t, s.SetText("The quick brown fox"))
	require.NoError(t, s.SelectFeatures(map[string]bool{features.Entities: true}))

	result, err := s.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{features.Entities}, result.Keys())
	assert.Equal(t, map[string]bool{
		features.Entities:   true,
		features.Sentiment:  false,
		features.Syntax:     false,
		features.Categories: false,
		features.Language:   false,
	}, adapter.lastFlags())
}

func TestSession_ResultReplacedThenClearedOnFailure(t *testing.T) {
	sender := &fakeSender{}
	s, _ := newTestSession(t, features.Video, sender)
	require.NoError(t, s.SetFile(sampleFiles[features.Video]))

	first, err := s.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, s.Result())

	require.NoError(t, s.ToggleFeature(features.Objects))
	second, err := s.Analyze(context.Background())
	require.NoError(t, err)
	assert.Len(t, second, 2)
	assert.Equal(t, second, s.Result(), "a new result replaces the old one")

	sender.err = errors.New("connection reset")
	_, err = s.Analyze(context.Background())
	require.Error(t, err)
	assert.Nil(t, s.Result(), "no partial result survives a failure")
	assert.False(t, s.Status().Analyzing)
}

func TestSession_GuardFailureKeepsResult(t *testing.T) {
	s, _ := newTestSession(t, features.Image, &fakeSender{})
	require.NoError(t, s.SetFile(sampleFiles[features.Image]))
	_, err := s.Analyze(context.Background())
	require.NoError(t, err)

	s.SetURL("")
	_, err = s.Analyze(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInputRequired))
	assert.NotNil(t, s.Result())
}

func TestSession_MIMEMismatchLeavesInputUnchanged(t *testing.T) {
	s, _ := newTestSession(t, features.Image, &fakeSender{})
	s.SetURL("https://example.com/cat.png")

	err := s.SetFile(media.File{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hello")})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	assert.Equal(t, "https://example.com/cat.png", s.Status().Input)
}

func TestSession_SingleFlight(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	s, _ := newTestSession(t, features.Audio, sender)
	require.NoError(t, s.SetFile(sampleFiles[features.Audio]))

	done := make(chan error, 1)
	go func() {
		_, err := s.Analyze(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return s.Status().Analyzing }, time.Second, 5*time.Millisecond)

	_, err := s.RunAll(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeBusy))
	assert.Equal(t, []string{features.Transcription}, s.Features().EnabledNames(), "a rejected run-all does not touch the selection")

	close(sender.block)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("analysis did not finish")
	}
	assert.False(t, s.Status().Analyzing)
}

func TestSession_ToggleFeature(t *testing.T) {
	s, _ := newTestSession(t, features.Text, &fakeSender{})

	require.NoError(t, s.ToggleFeature(features.Sentiment))
	assert.Equal(t, []string{features.Entities, features.Sentiment}, s.Features().EnabledNames())
	require.NoError(t, s.ToggleFeature(features.Entities))
	assert.Equal(t, []string{features.Sentiment}, s.Features().EnabledNames())

	err := s.ToggleFeature(features.Labels)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Equal(t, []string{features.Sentiment}, s.Features().EnabledNames())
	assert.Equal(t, map[string]bool{
		features.Entities:   false,
		features.Sentiment:  true,
		features.Syntax:     false,
		features.Categories: false,
		features.Language:   false,
	}, s.Status().Features)
}

func TestSession_SelectFeaturesRejectsUnknown(t *testing.T) {
	s, _ := newTestSession(t, features.Text, &fakeSender{})
	err := s.SelectFeatures(map[string]bool{"landmarks": true})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Equal(t, []string{features.Entities}, s.Features().EnabledNames())
}
