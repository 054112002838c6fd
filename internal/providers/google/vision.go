package google

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/anime-shed/media-inspector-go/internal/analysis"
	"github.com/anime-shed/media-inspector-go/internal/features"
)

const unknownLikelihood = "UNKNOWN"

var visionFeatureTypes = map[string]string{
	features.Labels:    "LABEL_DETECTION",
	features.Objects:   "OBJECT_LOCALIZATION",
	features.Texts:     "TEXT_DETECTION",
	features.Explicit:  "SAFE_SEARCH_DETECTION",
	features.Faces:     "FACE_DETECTION",
	features.Landmarks: "LANDMARK_DETECTION",
}

type visionFeature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults,omitempty"`
}

type visionImageSource struct {
	ImageURI string `json:"imageUri,omitempty"`
}

type visionImage struct {
	Content string             `json:"content,omitempty"`
	Source  *visionImageSource `json:"source,omitempty"`
}

type visionAnnotateImageRequest struct {
	Image    visionImage     `json:"image"`
	Features []visionFeature `json:"features"`
}

type visionBatchRequest struct {
	Requests []visionAnnotateImageRequest `json:"requests"`
}

type entityAnnotation struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

type localizedObject struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type safeSearch struct {
	Adult    string `json:"adult"`
	Violence string `json:"violence"`
	Racy     string `json:"racy"`
}

type faceAnnotation struct {
	JoyLikelihood       string  `json:"joyLikelihood"`
	DetectionConfidence float64 `json:"detectionConfidence"`
}

type visionAnnotateImageResponse struct {
	LabelAnnotations           []entityAnnotation `json:"labelAnnotations"`
	LocalizedObjectAnnotations []localizedObject  `json:"localizedObjectAnnotations"`
	TextAnnotations            []entityAnnotation `json:"textAnnotations"`
	SafeSearchAnnotation       *safeSearch        `json:"safeSearchAnnotation"`
	FaceAnnotations            []faceAnnotation   `json:"faceAnnotations"`
	LandmarkAnnotations        []entityAnnotation `json:"landmarkAnnotations"`
	Error                      *APIError          `json:"error"`
}

type visionBatchResponse struct {
	Responses []visionAnnotateImageResponse `json:"responses"`
}

// VisionAdapter targets Cloud Vision images:annotate.
type VisionAdapter struct {
	baseURL    string
	maxResults int
}

func NewVisionAdapter(baseURL string) *VisionAdapter {
	return &VisionAdapter{baseURL: strings.TrimRight(baseURL, "/"), maxResults: 10}
}

func (a *VisionAdapter) MediaType() features.MediaType { return features.Image }

// AcceptsURI is true for gs:// objects and public http(s) images, which Vision
// downloads itself.
func (a *VisionAdapter) AcceptsURI(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "gs", "http", "https":
		return true
	}
	return false
}

func (a *VisionAdapter) Build(p analysis.Payload, fs *features.Set) (*analysis.ProviderRequest, error) {
	img := visionImage{Content: p.Encoded}
	if p.ByReference() {
		img = visionImage{Source: &visionImageSource{ImageURI: p.URI}}
	}

	var feats []visionFeature
	for _, name := range fs.EnabledNames() {
		feats = append(feats, visionFeature{Type: visionFeatureTypes[name], MaxResults: a.maxResults})
	}
	if len(feats) == 0 {
		return nil, fmt.Errorf("no image features enabled")
	}

	body, err := json.Marshal(visionBatchRequest{
		Requests: []visionAnnotateImageRequest{{Image: img, Features: feats}},
	})
	if err != nil {
		return nil, err
	}
	return &analysis.ProviderRequest{
		Method: http.MethodPost,
		URL:    a.baseURL + "/v1/images:annotate",
		Body:   body,
	}, nil
}

func (a *VisionAdapter) Map(raw []byte, fs *features.Set) (analysis.Result, error) {
	var resp visionBatchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode vision response: %w", err)
	}

	var merged visionAnnotateImageResponse
	for _, r := range resp.Responses {
		if r.Error != nil && r.Error.Message != "" {
			return nil, r.Error
		}
		merged.LabelAnnotations = append(merged.LabelAnnotations, r.LabelAnnotations...)
		merged.LocalizedObjectAnnotations = append(merged.LocalizedObjectAnnotations, r.LocalizedObjectAnnotations...)
		merged.TextAnnotations = append(merged.TextAnnotations, r.TextAnnotations...)
		merged.FaceAnnotations = append(merged.FaceAnnotations, r.FaceAnnotations...)
		merged.LandmarkAnnotations = append(merged.LandmarkAnnotations, r.LandmarkAnnotations...)
		if merged.SafeSearchAnnotation == nil {
			merged.SafeSearchAnnotation = r.SafeSearchAnnotation
		}
	}

	result := analysis.Result{}
	if fs.Enabled(features.Labels) {
		result[features.Labels] = descriptions(merged.LabelAnnotations)
	}
	if fs.Enabled(features.Objects) {
		objects := make([]string, 0, len(merged.LocalizedObjectAnnotations))
		for _, o := range merged.LocalizedObjectAnnotations {
			objects = append(objects, o.Name)
		}
		result[features.Objects] = objects
	}
	if fs.Enabled(features.Texts) {
		result[features.Texts] = words(merged.TextAnnotations)
	}
	if fs.Enabled(features.Explicit) {
		explicit := unknownLikelihood
		if ss := merged.SafeSearchAnnotation; ss != nil && ss.Adult != "" {
			explicit = ss.Adult
		}
		result[features.Explicit] = explicit
	}
	if fs.Enabled(features.Faces) {
		faces := make([]string, 0, len(merged.FaceAnnotations))
		for _, f := range merged.FaceAnnotations {
			joy := f.JoyLikelihood
			if joy == "" {
				joy = unknownLikelihood
			}
			faces = append(faces, fmt.Sprintf("joy: %s, confidence: %.2f", joy, f.DetectionConfidence))
		}
		result[features.Faces] = faces
	}
	if fs.Enabled(features.Landmarks) {
		result[features.Landmarks] = descriptions(merged.LandmarkAnnotations)
	}
	return result, nil
}

func descriptions(in []entityAnnotation) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		out = append(out, e.Description)
	}
	return out
}

// words drops the first text annotation, which holds the whole block, when
// per-word annotations follow it.
func words(in []entityAnnotation) []string {
	if len(in) > 1 {
		in = in[1:]
	}
	out := make([]string, 0, len(in))
	for _, e := range in {
		out = append(out, strings.TrimSpace(e.Description))
	}
	return out
}
