package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/media-inspector-go/internal/analysis"
	"github.com/anime-shed/media-inspector-go/internal/features"
	"github.com/anime-shed/media-inspector-go/internal/media"
)

type apiKey string

func (k apiKey) Get() string        { return string(k) }
func (k apiKey) IsConfigured() bool { return k != "" }

func selection(t *testing.T, mt features.MediaType, names ...string) *features.Set {
	t.Helper()
	fs, err := features.FromList(mt, names)
	require.NoError(t, err)
	return fs
}

func decodeBody(t *testing.T, req *analysis.ProviderRequest) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(req.Body, &body))
	return body
}

func sortedKeys(r analysis.Result) []string {
	keys := r.Keys()
	sort.Strings(keys)
	return keys
}

func TestVisionAdapter_BuildOnlyEnabledFeatures(t *testing.T) {
	a := NewVisionAdapter("https://vision.example/")
	fs := selection(t, features.Image, features.Labels, features.Landmarks)

	req, err := a.Build(analysis.Payload{Encoded: "aGVsbG8="}, fs)
	require.NoError(t, err)
	assert.Equal(t, "https://vision.example/v1/images:annotate", req.URL)
	assert.Equal(t, http.MethodPost, req.Method)

	var body visionBatchRequest
	require.NoError(t, json.Unmarshal(req.Body, &body))
	require.Len(t, body.Requests, 1)
	assert.Equal(t, "aGVsbG8=", body.Requests[0].Image.Content)
	assert.Nil(t, body.Requests[0].Image.Source)

	var types []string
	for _, f := range body.Requests[0].Features {
		types = append(types, f.Type)
	}
	assert.Equal(t, []string{"LABEL_DETECTION", "LANDMARK_DETECTION"}, types)

	req, err = a.Build(analysis.Payload{URI: "https://example.com/cat.png"}, fs)
	require.NoError(t, err)
	var byRef visionBatchRequest
	require.NoError(t, json.Unmarshal(req.Body, &byRef))
	require.NotNil(t, byRef.Requests[0].Image.Source)
	assert.Equal(t, "https://example.com/cat.png", byRef.Requests[0].Image.Source.ImageURI)
	assert.Empty(t, byRef.Requests[0].Image.Content)
}

func TestVisionAdapter_AcceptsURI(t *testing.T) {
	a := NewVisionAdapter("https://vision.example")
	assert.True(t, a.AcceptsURI("https://example.com/a.png"))
	assert.True(t, a.AcceptsURI("gs://bucket/a.png"))
	assert.False(t, a.AcceptsURI("s3://bucket/a.png"))
}

const visionResponse = `{
  "responses": [{
    "labelAnnotations": [{"description": "Cat", "score": 0.98}, {"description": "Whiskers", "score": 0.91}],
    "localizedObjectAnnotations": [{"name": "Cat", "score": 0.9}],
    "textAnnotations": [{"description": "HELLO WORLD"}, {"description": "HELLO"}, {"description": "WORLD"}],
    "safeSearchAnnotation": {"adult": "VERY_UNLIKELY", "violence": "UNLIKELY"},
    "faceAnnotations": [{"joyLikelihood": "LIKELY", "detectionConfidence": 0.953}],
    "landmarkAnnotations": [{"description": "Eiffel Tower"}]
  }]
}`

func TestVisionAdapter_MapLabelsOnly(t *testing.T) {
	a := NewVisionAdapter("https://vision.example")
	result, err := a.Map([]byte(visionResponse), selection(t, features.Image, features.Labels))
	require.NoError(t, err)

	assert.Equal(t, []string{features.Labels}, result.Keys())
	assert.Equal(t, []string{"Cat", "Whiskers"}, result[features.Labels])
}

func TestVisionAdapter_MapAll(t *testing.T) {
	a := NewVisionAdapter("https://vision.example")
	fs, err := features.New(features.Image)
	require.NoError(t, err)
	fs.SelectAll()

	result, err := a.Map([]byte(visionResponse), fs)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cat"}, result[features.Objects])
	assert.Equal(t, []string{"HELLO", "WORLD"}, result[features.Texts])
	assert.Equal(t, "VERY_UNLIKELY", result[features.Explicit])
	assert.Equal(t, []string{"joy: LIKELY, confidence: 0.95"}, result[features.Faces])
	assert.Equal(t, []string{"Eiffel Tower"}, result[features.Landmarks])
}

func TestVisionAdapter_MapEmptyAndErrors(t *testing.T) {
	a := NewVisionAdapter("https://vision.example")
	fs := selection(t, features.Image, features.Labels, features.Explicit, features.Texts)

	result, err := a.Map([]byte(`{"responses":[{}]}`), fs)
	require.NoError(t, err)
	assert.Equal(t, []string{}, result[features.Labels])
	assert.Equal(t, []string{}, result[features.Texts])
	assert.Equal(t, "UNKNOWN", result[features.Explicit])

	result, err = a.Map([]byte(`{}`), fs)
	require.NoError(t, err)
	assert.Equal(t, "UNKNOWN", result[features.Explicit])

	_, err = a.Map([]byte(`{"responses":[{"error":{"code":3,"message":"Bad image data."}}]}`), fs)
	assert.Error(t, err)
}

func TestVideoAdapter_PipelineWithOperationPolling(t *testing.T) {
	var polls int32
	var annotateBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/videos:annotate":
			body, _ := io.ReadAll(r.Body)
			json.Unmarshal(body, &annotateBody)
			w.Write([]byte(`{"name":"projects/p/locations/us-east1/operations/42"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/projects/p/locations/us-east1/operations/42":
			if atomic.AddInt32(&polls, 1) < 2 {
				w.Write([]byte(`{"name":"projects/p/locations/us-east1/operations/42","done":false}`))
				return
			}
			w.Write([]byte(`{
			  "name": "projects/p/locations/us-east1/operations/42",
			  "done": true,
			  "response": {
			    "@type": "type.googleapis.com/google.cloud.videointelligence.v1.AnnotateVideoResponse",
			    "annotationResults": [
			      {"segmentLabelAnnotations": [{"entity": {"description": "dog"}}, {"entity": {"description": "park"}}],
			       "shotLabelAnnotations": [{"entity": {"description": "dog"}}],
			       "explicitAnnotation": {"frames": [{"pornographyLikelihood": "VERY_UNLIKELY"}, {"pornographyLikelihood": "POSSIBLE"}]}},
			      {"objectAnnotations": [{"entity": {"description": "ball"}, "confidence": 0.8}],
			       "faceDetectionAnnotations": [{"tracks": [{"confidence": 0.876}]}]}
			    ]
			  }
			}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	adapter := NewVideoAdapter(server.URL, time.Millisecond)
	p := analysis.NewPipeline(apiKey("k"), NewClient(5*time.Second), nil, nil, adapter)

	r := media.NewResolver(features.Video)
	require.NoError(t, r.SetFile(media.File{Name: "clip.mp4", ContentType: "video/mp4", Data: []byte("frames")}))
	fs := selection(t, features.Video, features.Labels, features.Explicit, features.Faces)

	result, err := p.Run(context.Background(), r.Input(), fs)
	require.NoError(t, err)

	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("frames")), annotateBody["inputContent"])
	assert.Equal(t, []interface{}{"LABEL_DETECTION", "EXPLICIT_CONTENT_DETECTION", "FACE_DETECTION"}, annotateBody["features"])
	assert.GreaterOrEqual(t, atomic.LoadInt32(&polls), int32(2))

	assert.Equal(t, []string{features.Explicit, features.Faces, features.Labels}, sortedKeys(result))
	assert.Equal(t, []string{"dog", "park"}, result[features.Labels])
	assert.Equal(t, "POSSIBLE", result[features.Explicit])
	assert.Equal(t, []string{"Confidence: 0.88"}, result[features.Faces])
}

func TestVideoAdapter_AwaitHonoursContext(t *testing.T) {
	a := NewVideoAdapter("https://video.example", time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Await(ctx, nil, "k", []byte(`{"name":"operations/1"}`))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVideoAdapter_AwaitOperationError(t *testing.T) {
	a := NewVideoAdapter("https://video.example", time.Millisecond)
	_, err := a.Await(context.Background(), nil, "k", []byte(`{"name":"operations/1","done":true,"error":{"code":3,"message":"unsupported codec"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported codec")
}

func TestVideoAdapter_URIOnlyForGCS(t *testing.T) {
	a := NewVideoAdapter("https://video.example", time.Second)
	assert.True(t, a.AcceptsURI("gs://bucket/clip.mp4"))
	assert.False(t, a.AcceptsURI("https://example.com/clip.mp4"))

	req, err := a.Build(analysis.Payload{URI: "gs://bucket/clip.mp4"}, selection(t, features.Video, features.Objects))
	require.NoError(t, err)
	body := decodeBody(t, req)
	assert.Equal(t, "gs://bucket/clip.mp4", body["inputUri"])
	assert.Equal(t, []interface{}{"OBJECT_TRACKING"}, body["features"])
}

func TestSpeechAdapter_Build(t *testing.T) {
	a := NewSpeechAdapter("https://speech.example", "en-US")
	fs := selection(t, features.Audio, features.Transcription, features.SpeakerDiarization, features.WordTimestamps)

	req, err := a.Build(analysis.Payload{ContentType: "audio/flac", Data: []byte("flac-bytes")}, fs)
	require.NoError(t, err)
	assert.Equal(t, "https://speech.example/v1/speech:recognize", req.URL)

	body := decodeBody(t, req)
	config := body["config"].(map[string]interface{})
	assert.Equal(t, "FLAC", config["encoding"])
	assert.Equal(t, "en-US", config["languageCode"])
	assert.Equal(t, true, config["enableWordTimeOffsets"])
	assert.Equal(t, true, config["enableAutomaticPunctuation"])
	assert.Equal(t, true, config["diarizationConfig"].(map[string]interface{})["enableSpeakerDiarization"])
	assert.NotContains(t, config, "alternativeLanguageCodes")

	audio := body["audio"].(map[string]interface{})
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("flac-bytes")), audio["content"])

	req, err = a.Build(analysis.Payload{URI: "gs://bucket/a.wav"}, selection(t, features.Audio, features.LanguageDetection))
	require.NoError(t, err)
	body = decodeBody(t, req)
	assert.Equal(t, "gs://bucket/a.wav", body["audio"].(map[string]interface{})["uri"])
	config = body["config"].(map[string]interface{})
	assert.NotEmpty(t, config["alternativeLanguageCodes"])
	assert.NotContains(t, config, "diarizationConfig")
}

const speechResponse = `{
  "results": [
    {"alternatives": [{"transcript": "hello there", "confidence": 0.92,
       "words": [{"startTime": "0s", "endTime": "0.500s", "word": "hello"}, {"startTime": "0.500s", "endTime": "1s", "word": "there"}]}],
     "languageCode": "en-us"},
    {"alternatives": [{"transcript": " general kenobi", "confidence": 0.88,
       "words": [{"startTime": "1.200s", "endTime": "1.700s", "word": "general"}, {"startTime": "1.700s", "endTime": "2.300s", "word": "kenobi"}]}],
     "languageCode": "en-us"}
  ],
  "totalBilledTime": "3s",
  "requestId": "8831"
}`

const diarizedResponse = `{
  "results": [
    {"alternatives": [{"transcript": "hello there general kenobi"}], "languageCode": "en-us"},
    {"alternatives": [{"words": [
      {"startTime": "0s", "endTime": "0.500s", "word": "hello", "speakerTag": 1},
      {"startTime": "0.500s", "endTime": "1s", "word": "there", "speakerTag": 1},
      {"startTime": "1.200s", "endTime": "1.700s", "word": "general", "speakerTag": 2},
      {"startTime": "1.700s", "endTime": "2.300s", "word": "kenobi", "speakerTag": 2}
    ]}]}
  ]
}`

func TestSpeechAdapter_Map(t *testing.T) {
	a := NewSpeechAdapter("https://speech.example", "")

	result, err := a.Map([]byte(speechResponse), selection(t, features.Audio, features.Transcription, features.WordTimestamps, features.LanguageDetection))
	require.NoError(t, err)
	assert.Equal(t, "hello there general kenobi", result[features.Transcription])
	assert.Equal(t, []string{
		"hello: 0.00s - 0.50s",
		"there: 0.50s - 1.00s",
		"general: 1.20s - 1.70s",
		"kenobi: 1.70s - 2.30s",
	}, result[features.WordTimestamps])
	assert.Equal(t, "en-us", result[features.LanguageDetection])
	assert.NotContains(t, result, features.SpeakerDiarization)

	result, err = a.Map([]byte(diarizedResponse), selection(t, features.Audio, features.SpeakerDiarization, features.WordTimestamps))
	require.NoError(t, err)
	assert.Equal(t, []string{"Speaker 1: hello there", "Speaker 2: general kenobi"}, result[features.SpeakerDiarization])
	assert.Len(t, result[features.WordTimestamps], 4, "diarized words are not counted twice")
}

func TestSpeechAdapter_MapEmpty(t *testing.T) {
	a := NewSpeechAdapter("https://speech.example", "en-US")
	fs, err := features.New(features.Audio)
	require.NoError(t, err)
	fs.SelectAll()

	result, err := a.Map([]byte(`{}`), fs)
	require.NoError(t, err)
	assert.Equal(t, "", result[features.Transcription])
	assert.Equal(t, []string{}, result[features.SpeakerDiarization])
	assert.Equal(t, []string{}, result[features.WordTimestamps])
	assert.Equal(t, "Unknown", result[features.LanguageDetection])
}

func TestLanguageAdapter_QuickBrownFoxEntitiesOnly(t *testing.T) {
	var requestBody annotateTextRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/documents:annotateText", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &requestBody))
		// The provider may volunteer more than was asked for.
		w.Write([]byte(`{
		  "entities": [
		    {"name": "fox", "type": "OTHER", "salience": 0.8123},
		    {"name": "quick brown", "type": "OTHER", "salience": 0.1877}
		  ],
		  "documentSentiment": {"magnitude": 0.1, "score": 0.1},
		  "language": "en"
		}`))
	}))
	defer server.Close()

	p := analysis.NewPipeline(apiKey("k"), NewClient(5*time.Second), nil, nil, NewLanguageAdapter(server.URL))
	r := media.NewResolver(features.Text)
	require.NoError(t, r.SetText("The quick brown fox"))
	fs, err := features.FromMap(features.Text, map[string]bool{
		features.Entities:   true,
		features.Sentiment:  false,
		features.Syntax:     false,
		features.Categories: false,
		features.Language:   false,
	})
	require.NoError(t, err)

	result, err := p.Run(context.Background(), r.Input(), fs)
	require.NoError(t, err)

	assert.Equal(t, "The quick brown fox", requestBody.Document.Content)
	assert.Equal(t, "PLAIN_TEXT", requestBody.Document.Type)
	assert.Equal(t, languageFeatures{ExtractEntities: true}, requestBody.Features)

	assert.Equal(t, []string{features.Entities}, result.Keys())
	assert.Equal(t, []string{"fox (OTHER, 81% relevance)", "quick brown (OTHER, 19% relevance)"}, result[features.Entities])
	assert.NotContains(t, result, features.Sentiment)
}

func TestLanguageAdapter_MapFormats(t *testing.T) {
	a := NewLanguageAdapter("https://language.example")
	fs, err := features.New(features.Text)
	require.NoError(t, err)
	fs.SelectAll()

	raw := []byte(`{
	  "documentSentiment": {"magnitude": 1.3, "score": -0.6},
	  "tokens": [{"text": {"content": "Foxes"}, "partOfSpeech": {"tag": "NOUN"}}, {"text": {"content": "run"}, "partOfSpeech": {"tag": "VERB"}}],
	  "categories": [{"name": "/Pets & Animals/Wildlife", "confidence": 0.734}]
	}`)
	result, err := a.Map(raw, fs)
	require.NoError(t, err)
	assert.Equal(t, "Score: -0.6 (Negative), Magnitude: 1.3", result[features.Sentiment])
	assert.Equal(t, []string{"Foxes (NOUN)", "run (VERB)"}, result[features.Syntax])
	assert.Equal(t, []string{"/Pets & Animals/Wildlife (73%)"}, result[features.Categories])
	assert.Equal(t, []string{}, result[features.Entities])
	assert.Equal(t, "Unknown", result[features.Language])

	result, err = a.Map([]byte(`{}`), selection(t, features.Text, features.Sentiment))
	require.NoError(t, err)
	assert.Equal(t, "Score: 0 (Neutral), Magnitude: 0", result[features.Sentiment])
}

func TestLanguageAdapter_LanguageOnlyStillRequestsAnAnnotation(t *testing.T) {
	a := NewLanguageAdapter("https://language.example")
	req, err := a.Build(analysis.Payload{ContentType: "text/html", Data: []byte("<p>Bonjour</p>")}, selection(t, features.Text, features.Language))
	require.NoError(t, err)

	var body annotateTextRequest
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, "HTML", body.Document.Type)
	assert.Equal(t, languageFeatures{ExtractDocumentSentiment: true}, body.Features)
	assert.Equal(t, "UTF8", body.EncodingType)

	result, err := a.Map([]byte(`{"documentSentiment":{"score":0.2},"language":"fr"}`), selection(t, features.Text, features.Language))
	require.NoError(t, err)
	assert.Equal(t, analysis.Result{features.Language: "fr"}, result)
}
