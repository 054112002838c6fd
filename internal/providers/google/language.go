package google

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/anime-shed/media-inspector-go/internal/analysis"
	"github.com/anime-shed/media-inspector-go/internal/features"
)

type languageDocument struct {
	Type          string `json:"type"`
	Content       string `json:"content,omitempty"`
	GcsContentURI string `json:"gcsContentUri,omitempty"`
}

type languageFeatures struct {
	ExtractSyntax            bool `json:"extractSyntax,omitempty"`
	ExtractEntities          bool `json:"extractEntities,omitempty"`
	ExtractDocumentSentiment bool `json:"extractDocumentSentiment,omitempty"`
	ClassifyText             bool `json:"classifyText,omitempty"`
}

type annotateTextRequest struct {
	Document     languageDocument `json:"document"`
	Features     languageFeatures `json:"features"`
	EncodingType string           `json:"encodingType"`
}

type languageEntity struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Salience float64 `json:"salience"`
}

type languageSentiment struct {
	Score     float64 `json:"score"`
	Magnitude float64 `json:"magnitude"`
}

type languageToken struct {
	Text struct {
		Content string `json:"content"`
	} `json:"text"`
	PartOfSpeech struct {
		Tag string `json:"tag"`
	} `json:"partOfSpeech"`
}

type languageCategory struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type annotateTextResponse struct {
	Entities          []languageEntity   `json:"entities"`
	DocumentSentiment *languageSentiment `json:"documentSentiment"`
	Tokens            []languageToken    `json:"tokens"`
	Categories        []languageCategory `json:"categories"`
	Language          string             `json:"language"`
}

// LanguageAdapter targets Natural Language documents:annotateText.
type LanguageAdapter struct {
	baseURL string
}

func NewLanguageAdapter(baseURL string) *LanguageAdapter {
	return &LanguageAdapter{baseURL: strings.TrimRight(baseURL, "/")}
}

func (a *LanguageAdapter) MediaType() features.MediaType { return features.Text }

// AcceptsURI is true only for Cloud Storage objects.
func (a *LanguageAdapter) AcceptsURI(uri string) bool {
	return isGCS(uri)
}

func (a *LanguageAdapter) Build(p analysis.Payload, fs *features.Set) (*analysis.ProviderRequest, error) {
	if len(fs.EnabledNames()) == 0 {
		return nil, fmt.Errorf("no text features enabled")
	}

	doc := languageDocument{Type: "PLAIN_TEXT"}
	if strings.HasPrefix(strings.ToLower(p.ContentType), "text/html") {
		doc.Type = "HTML"
	}
	if p.ByReference() {
		doc.GcsContentURI = p.URI
	} else {
		doc.Content = string(p.Data)
	}

	feats := languageFeatures{
		ExtractSyntax:            fs.Enabled(features.Syntax),
		ExtractEntities:          fs.Enabled(features.Entities),
		ExtractDocumentSentiment: fs.Enabled(features.Sentiment),
		ClassifyText:             fs.Enabled(features.Categories),
	}
	// The detected language comes back with any annotation, but the API
	// refuses a request with no feature set.
	if feats == (languageFeatures{}) {
		feats.ExtractDocumentSentiment = true
	}

	body, err := json.Marshal(annotateTextRequest{Document: doc, Features: feats, EncodingType: "UTF8"})
	if err != nil {
		return nil, err
	}
	return &analysis.ProviderRequest{
		Method: http.MethodPost,
		URL:    a.baseURL + "/v1/documents:annotateText",
		Body:   body,
	}, nil
}

func (a *LanguageAdapter) Map(raw []byte, fs *features.Set) (analysis.Result, error) {
	var resp annotateTextResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode annotateText response: %w", err)
	}

	result := analysis.Result{}
	if fs.Enabled(features.Entities) {
		entities := make([]string, 0, len(resp.Entities))
		for _, e := range resp.Entities {
			entities = append(entities, fmt.Sprintf("%s (%s, %d%% relevance)", e.Name, e.Type, percent(e.Salience)))
		}
		result[features.Entities] = entities
	}
	if fs.Enabled(features.Sentiment) {
		var s languageSentiment
		if resp.DocumentSentiment != nil {
			s = *resp.DocumentSentiment
		}
		result[features.Sentiment] = fmt.Sprintf("Score: %s (%s), Magnitude: %s",
			formatFloat(s.Score), polarity(s.Score), formatFloat(s.Magnitude))
	}
	if fs.Enabled(features.Syntax) {
		tokens := make([]string, 0, len(resp.Tokens))
		for _, t := range resp.Tokens {
			tokens = append(tokens, fmt.Sprintf("%s (%s)", t.Text.Content, t.PartOfSpeech.Tag))
		}
		result[features.Syntax] = tokens
	}
	if fs.Enabled(features.Categories) {
		categories := make([]string, 0, len(resp.Categories))
		for _, c := range resp.Categories {
			categories = append(categories, fmt.Sprintf("%s (%d%%)", c.Name, percent(c.Confidence)))
		}
		result[features.Categories] = categories
	}
	if fs.Enabled(features.Language) {
		lang := resp.Language
		if lang == "" {
			lang = unknownLanguage
		}
		result[features.Language] = lang
	}
	return result, nil
}

func percent(f float64) int {
	return int(math.Round(f * 100))
}

func polarity(score float64) string {
	switch {
	case score > 0:
		return "Positive"
	case score < 0:
		return "Negative"
	default:
		return "Neutral"
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
