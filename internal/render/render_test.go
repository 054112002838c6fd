package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/media-inspector-go/internal/analysis"
	"github.com/anime-shed/media-inspector-go/internal/features"
)

func TestString(t *testing.T) {
	r := analysis.Result{
		features.Explicit: "VERY_UNLIKELY",
		features.Labels:   []string{"Cat", "Whiskers"},
		features.Faces:    []string{},
	}

	want := "Labels\n" +
		"  • Cat\n" +
		"  • Whiskers\n" +
		"\n" +
		"Explicit\n" +
		"  VERY_UNLIKELY\n" +
		"\n" +
		"Faces\n" +
		"  (none)\n"
	assert.Equal(t, want, String(features.Image, r))
}

func TestSections_OrderAndUnexpectedShapes(t *testing.T) {
	r := analysis.Result{
		"zeta":             map[string]interface{}{"nested": 1},
		features.Language:  "en",
		features.Entities:  []string{"fox (OTHER, 81% relevance)"},
		"alpha":            3.5,
		features.Sentiment: "Score: 0.1 (Positive), Magnitude: 0.1",
	}

	sections := Sections(features.Text, r)
	var keys []string
	for _, s := range sections {
		keys = append(keys, s.Key)
	}
	assert.Equal(t, []string{features.Entities, features.Sentiment, features.Language, "alpha", "zeta"}, keys)

	assert.True(t, sections[0].IsList())
	assert.False(t, sections[1].IsList())
	assert.Equal(t, "3.5", sections[3].Text)
	assert.Equal(t, "map[nested:1]", sections[4].Text)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Speaker Diarization", Label(features.SpeakerDiarization))
	assert.Equal(t, "Word Timestamps", Label(features.WordTimestamps))
	assert.Equal(t, "Labels", Label(features.Labels))
	assert.Equal(t, "", Label(""))
}

func TestJSONRoundTrip(t *testing.T) {
	results := []analysis.Result{
		{
			features.Entities:  []string{"fox (OTHER, 81% relevance)", "dog (ANIMAL, 19% relevance)"},
			features.Sentiment: "Score: -0.6 (Negative), Magnitude: 1.3",
		},
		{
			features.Transcription:      "hello there",
			features.SpeakerDiarization: []string{},
			features.WordTimestamps:     []string{"hello: 0.00s - 0.50s", "there: 0.50s - 1.00s"},
		},
		{},
	}

	for _, original := range results {
		data, err := ExportJSON(original)
		require.NoError(t, err)

		parsed, err := ParseJSON(data)
		require.NoError(t, err)
		assert.Equal(t, original, parsed)
	}
}

func TestJSONRoundTrip_NullValue(t *testing.T) {
	original := analysis.Result{
		features.Transcription: nil,
		features.Sentiment:     "Score: 0.1 (Neutral), Magnitude: 0.2",
	}

	data, err := ExportJSON(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), "null")

	parsed, err := ParseJSON(data)
	require.NoError(t, err)
	assert.Equal(t, original, parsed)

	sections := Sections(features.Audio, parsed)
	require.Len(t, sections, 2)
	assert.Equal(t, features.Transcription, sections[0].Key)
	assert.Empty(t, sections[0].Text)
	assert.False(t, sections[0].IsList())
}

func TestParseJSON_Invalid(t *testing.T) {
	_, err := ParseJSON([]byte(`["not","an","object"]`))
	assert.Error(t, err)
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "analysis-42.json", ExportFilename("42"))
}
