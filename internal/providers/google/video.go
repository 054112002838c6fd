package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anime-shed/media-inspector-go/internal/analysis"
	"github.com/anime-shed/media-inspector-go/internal/features"
)

var videoFeatureTypes = map[string]string{
	features.Labels:   "LABEL_DETECTION",
	features.Objects:  "OBJECT_TRACKING",
	features.Texts:    "TEXT_DETECTION",
	features.Explicit: "EXPLICIT_CONTENT_DETECTION",
	features.Faces:    "FACE_DETECTION",
}

// likelihoodRank orders the Likelihood enum so the most likely frame wins.
var likelihoodRank = map[string]int{
	"LIKELIHOOD_UNSPECIFIED": 0,
	"VERY_UNLIKELY":          1,
	"UNLIKELY":               2,
	"POSSIBLE":               3,
	"LIKELY":                 4,
	"VERY_LIKELY":            5,
}

type videoAnnotateRequest struct {
	InputContent string   `json:"inputContent,omitempty"`
	InputURI     string   `json:"inputUri,omitempty"`
	Features     []string `json:"features"`
}

type operation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    *APIError       `json:"error"`
	Response json.RawMessage `json:"response"`
}

type videoEntity struct {
	Description string `json:"description"`
}

type labelAnnotation struct {
	Entity videoEntity `json:"entity"`
}

type objectTrackingAnnotation struct {
	Entity     videoEntity `json:"entity"`
	Confidence float64     `json:"confidence"`
}

type textAnnotation struct {
	Text string `json:"text"`
}

type explicitFrame struct {
	PornographyLikelihood string `json:"pornographyLikelihood"`
}

type explicitAnnotation struct {
	Frames []explicitFrame `json:"frames"`
}

type faceTrack struct {
	Confidence float64 `json:"confidence"`
}

type faceDetectionAnnotation struct {
	Tracks []faceTrack `json:"tracks"`
}

type videoAnnotationResults struct {
	SegmentLabelAnnotations  []labelAnnotation          `json:"segmentLabelAnnotations"`
	ShotLabelAnnotations     []labelAnnotation          `json:"shotLabelAnnotations"`
	ObjectAnnotations        []objectTrackingAnnotation `json:"objectAnnotations"`
	TextAnnotations          []textAnnotation           `json:"textAnnotations"`
	ExplicitAnnotation       *explicitAnnotation        `json:"explicitAnnotation"`
	FaceDetectionAnnotations []faceDetectionAnnotation  `json:"faceDetectionAnnotations"`
	Error                    *APIError                  `json:"error"`
}

type videoAnnotateResponse struct {
	AnnotationResults []videoAnnotationResults `json:"annotationResults"`
}

// VideoAdapter targets Video Intelligence videos:annotate. The provider answers
// with a long-running operation that Await polls to completion.
type VideoAdapter struct {
	baseURL      string
	pollInterval time.Duration
}

func NewVideoAdapter(baseURL string, pollInterval time.Duration) *VideoAdapter {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &VideoAdapter{baseURL: strings.TrimRight(baseURL, "/"), pollInterval: pollInterval}
}

func (a *VideoAdapter) MediaType() features.MediaType { return features.Video }

// AcceptsURI is true only for Cloud Storage objects.
func (a *VideoAdapter) AcceptsURI(uri string) bool {
	return isGCS(uri)
}

func (a *VideoAdapter) Build(p analysis.Payload, fs *features.Set) (*analysis.ProviderRequest, error) {
	req := videoAnnotateRequest{}
	if p.ByReference() {
		req.InputURI = p.URI
	} else {
		req.InputContent = p.Encoded
	}
	for _, name := range fs.EnabledNames() {
		req.Features = append(req.Features, videoFeatureTypes[name])
	}
	if len(req.Features) == 0 {
		return nil, fmt.Errorf("no video features enabled")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return &analysis.ProviderRequest{
		Method: http.MethodPost,
		URL:    a.baseURL + "/v1/videos:annotate",
		Body:   body,
	}, nil
}

// Await polls the operation until it is done or ctx ends.
func (a *VideoAdapter) Await(ctx context.Context, sender analysis.Sender, token string, initial []byte) ([]byte, error) {
	var op operation
	if err := json.Unmarshal(initial, &op); err != nil {
		return nil, fmt.Errorf("decode operation: %w", err)
	}

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for !op.Done {
		if op.Name == "" {
			return nil, fmt.Errorf("operation has no name")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		raw, err := sender.Send(ctx, &analysis.ProviderRequest{
			Method: http.MethodGet,
			URL:    a.baseURL + "/v1/" + op.Name,
		}, token)
		if err != nil {
			return nil, fmt.Errorf("poll operation %s: %w", op.Name, err)
		}
		op = operation{Name: op.Name}
		if err := json.Unmarshal(raw, &op); err != nil {
			return nil, fmt.Errorf("decode operation: %w", err)
		}
	}

	if op.Error != nil {
		return nil, op.Error
	}
	if len(op.Response) == 0 {
		return []byte(`{}`), nil
	}
	return op.Response, nil
}

func (a *VideoAdapter) Map(raw []byte, fs *features.Set) (analysis.Result, error) {
	var resp videoAnnotateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode video response: %w", err)
	}

	labels := newOrderedSet()
	objects := newOrderedSet()
	var texts, faces []string
	explicit := unknownLikelihood

	for _, r := range resp.AnnotationResults {
		if r.Error != nil && r.Error.Message != "" {
			return nil, r.Error
		}
		for _, l := range r.SegmentLabelAnnotations {
			labels.add(l.Entity.Description)
		}
		for _, l := range r.ShotLabelAnnotations {
			labels.add(l.Entity.Description)
		}
		for _, o := range r.ObjectAnnotations {
			objects.add(o.Entity.Description)
		}
		for _, t := range r.TextAnnotations {
			texts = append(texts, t.Text)
		}
		if r.ExplicitAnnotation != nil {
			for _, f := range r.ExplicitAnnotation.Frames {
				if likelihoodRank[f.PornographyLikelihood] > likelihoodRank[explicit] {
					explicit = f.PornographyLikelihood
				}
			}
		}
		for _, fa := range r.FaceDetectionAnnotations {
			for _, track := range fa.Tracks {
				faces = append(faces, fmt.Sprintf("Confidence: %.2f", track.Confidence))
			}
		}
	}

	result := analysis.Result{}
	if fs.Enabled(features.Labels) {
		result[features.Labels] = labels.items
	}
	if fs.Enabled(features.Objects) {
		result[features.Objects] = objects.items
	}
	if fs.Enabled(features.Texts) {
		result[features.Texts] = nonNil(texts)
	}
	if fs.Enabled(features.Explicit) {
		result[features.Explicit] = explicit
	}
	if fs.Enabled(features.Faces) {
		result[features.Faces] = nonNil(faces)
	}
	return result, nil
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]struct{}{}, items: []string{}}
}

func (s *orderedSet) add(v string) {
	if v == "" {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func isGCS(uri string) bool {
	u, err := url.Parse(uri)
	return err == nil && strings.EqualFold(u.Scheme, "gs")
}
