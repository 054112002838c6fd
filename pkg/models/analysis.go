package models

import (
	"time"

	"github.com/anime-shed/media-inspector-go/internal/analysis"
	"github.com/anime-shed/media-inspector-go/internal/features"
)

// AnalysisResponse is the outcome of one analysis
type AnalysisResponse struct {
	// ID is the history record id; empty when the record could not be stored
	ID                string             `json:"id,omitempty"`
	MediaType         features.MediaType `json:"media_type"`
	Timestamp         time.Time          `json:"timestamp"`
	ProcessingTimeSec float64            `json:"processing_time_sec"`
	Input             string             `json:"input"`
	Features          []string           `json:"features"`
	Results           analysis.Result    `json:"results"`
}

// BatchItemResponse is one entry of a batch response, in request order
type BatchItemResponse struct {
	Index  int               `json:"index"`
	Result *AnalysisResponse `json:"result,omitempty"`
	Error  *ErrorResponse    `json:"error,omitempty"`
}

// BatchResponse lists every item of a batch
type BatchResponse struct {
	Items     []BatchItemResponse `json:"items"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}

// HistoryListResponse wraps a history listing
type HistoryListResponse struct {
	Records []HistoryRecord `json:"records"`
	Count   int             `json:"count"`
}

// HistoryRecord is the wire form of a stored analysis
type HistoryRecord struct {
	ID        string             `json:"id"`
	MediaType features.MediaType `json:"media_type"`
	Timestamp time.Time          `json:"timestamp"`
	Content   string             `json:"content"`
	Features  []string           `json:"features"`
	Results   analysis.Result    `json:"results"`
}
