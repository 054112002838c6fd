package google

import (
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/anime-shed/media-inspector-go/internal/analysis"
	"github.com/anime-shed/media-inspector-go/internal/features"
)

const unknownLanguage = "Unknown"

// Languages offered to automatic language detection besides the primary one.
var alternativeLanguages = []string{"es-ES", "fr-FR", "de-DE", "hi-IN", "ja-JP"}

// SpeechAdapter targets Speech-to-Text speech:recognize. Request and response
// bodies are the speechpb messages in their JSON form.
type SpeechAdapter struct {
	baseURL      string
	languageCode string
}

func NewSpeechAdapter(baseURL, languageCode string) *SpeechAdapter {
	if languageCode == "" {
		languageCode = "en-US"
	}
	return &SpeechAdapter{baseURL: strings.TrimRight(baseURL, "/"), languageCode: languageCode}
}

func (a *SpeechAdapter) MediaType() features.MediaType { return features.Audio }

// AcceptsURI is true only for Cloud Storage objects.
func (a *SpeechAdapter) AcceptsURI(uri string) bool {
	return isGCS(uri)
}

func (a *SpeechAdapter) Build(p analysis.Payload, fs *features.Set) (*analysis.ProviderRequest, error) {
	if len(fs.EnabledNames()) == 0 {
		return nil, fmt.Errorf("no audio features enabled")
	}

	encoding, sampleRate := audioEncoding(p.ContentType)
	config := &speechpb.RecognitionConfig{
		Encoding:                   encoding,
		SampleRateHertz:            sampleRate,
		LanguageCode:               a.languageCode,
		EnableAutomaticPunctuation: true,
		EnableWordTimeOffsets:      fs.Enabled(features.WordTimestamps),
	}
	if fs.Enabled(features.SpeakerDiarization) {
		config.DiarizationConfig = &speechpb.SpeakerDiarizationConfig{
			EnableSpeakerDiarization: true,
			MinSpeakerCount:          2,
			MaxSpeakerCount:          6,
		}
	}
	if fs.Enabled(features.LanguageDetection) {
		config.AlternativeLanguageCodes = alternativeLanguages
	}

	audio := &speechpb.RecognitionAudio{}
	if p.ByReference() {
		audio.AudioSource = &speechpb.RecognitionAudio_Uri{Uri: p.URI}
	} else {
		audio.AudioSource = &speechpb.RecognitionAudio_Content{Content: p.Data}
	}

	body, err := protojson.Marshal(&speechpb.RecognizeRequest{Config: config, Audio: audio})
	if err != nil {
		return nil, fmt.Errorf("encode recognize request: %w", err)
	}
	return &analysis.ProviderRequest{
		Method: http.MethodPost,
		URL:    a.baseURL + "/v1/speech:recognize",
		Body:   body,
	}, nil
}

func (a *SpeechAdapter) Map(raw []byte, fs *features.Set) (analysis.Result, error) {
	var resp speechpb.RecognizeResponse
	if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode recognize response: %w", err)
	}

	result := analysis.Result{}
	if fs.Enabled(features.Transcription) {
		result[features.Transcription] = transcript(resp.GetResults())
	}
	if fs.Enabled(features.SpeakerDiarization) {
		result[features.SpeakerDiarization] = speakerTurns(resp.GetResults())
	}
	if fs.Enabled(features.WordTimestamps) {
		result[features.WordTimestamps] = wordTimings(resp.GetResults(), fs.Enabled(features.SpeakerDiarization))
	}
	if fs.Enabled(features.LanguageDetection) {
		lang := unknownLanguage
		for _, r := range resp.GetResults() {
			if r.GetLanguageCode() != "" {
				lang = r.GetLanguageCode()
				break
			}
		}
		result[features.LanguageDetection] = lang
	}
	return result, nil
}

func transcript(results []*speechpb.SpeechRecognitionResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// speakerTurns groups consecutive words by speaker tag. With diarization on,
// the provider repeats every word with its tag in the final result only.
func speakerTurns(results []*speechpb.SpeechRecognitionResult) []string {
	var words []*speechpb.WordInfo
	for i := len(results) - 1; i >= 0; i-- {
		alts := results[i].GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if ws := alts[0].GetWords(); len(ws) > 0 && ws[0].GetSpeakerTag() != 0 {
			words = ws
			break
		}
	}

	turns := []string{}
	var current []string
	tag := int32(-1)
	flush := func() {
		if len(current) > 0 {
			turns = append(turns, fmt.Sprintf("Speaker %d: %s", tag, strings.Join(current, " ")))
		}
		current = nil
	}
	for _, w := range words {
		if w.GetSpeakerTag() != tag {
			flush()
			tag = w.GetSpeakerTag()
		}
		current = append(current, w.GetWord())
	}
	flush()
	return turns
}

func wordTimings(results []*speechpb.SpeechRecognitionResult, diarized bool) []string {
	if diarized && len(results) > 1 {
		results = results[len(results)-1:]
	}
	out := []string{}
	for _, r := range results {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		for _, w := range alts[0].GetWords() {
			out = append(out, fmt.Sprintf("%s: %.2fs - %.2fs",
				w.GetWord(),
				w.GetStartTime().AsDuration().Seconds(),
				w.GetEndTime().AsDuration().Seconds(),
			))
		}
	}
	return out
}

// audioEncoding picks the recognize encoding from a MIME type. Containers with
// a header (WAV, FLAC) carry their own sample rate.
func audioEncoding(contentType string) (speechpb.RecognitionConfig_AudioEncoding, int32) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "flac"):
		return speechpb.RecognitionConfig_FLAC, 0
	case strings.Contains(ct, "wav"):
		return speechpb.RecognitionConfig_LINEAR16, 0
	case strings.Contains(ct, "ogg"), strings.Contains(ct, "opus"):
		return speechpb.RecognitionConfig_OGG_OPUS, 48000
	case strings.Contains(ct, "webm"):
		return speechpb.RecognitionConfig_WEBM_OPUS, 48000
	case strings.Contains(ct, "mpeg"), strings.Contains(ct, "mp3"):
		return speechpb.RecognitionConfig_MP3, 44100
	case strings.Contains(ct, "amr-wb"):
		return speechpb.RecognitionConfig_AMR_WB, 16000
	case strings.Contains(ct, "amr"):
		return speechpb.RecognitionConfig_AMR, 8000
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, 0
	}
}
