package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/anime-shed/media-inspector-go/internal/analysis"
	"github.com/anime-shed/media-inspector-go/internal/features"
)

// HistoryRepository stores completed analyses
type HistoryRepository interface {
	// Save stores a record, assigning an ID and timestamp when missing
	Save(ctx context.Context, record *Record) error

	// Get retrieves one record
	Get(ctx context.Context, id uuid.UUID) (*Record, error)

	// List returns records newest first
	List(ctx context.Context, filter Filter) ([]*Record, error)

	// Delete removes one record
	Delete(ctx context.Context, id uuid.UUID) error
}

// Record is one entry of the analysis history
type Record struct {
	ID        uuid.UUID          `json:"id"`
	MediaType features.MediaType `json:"media_type"`
	Timestamp time.Time          `json:"timestamp"`
	// Content is the file name, URL or text snippet that was analyzed
	Content  string          `json:"content"`
	Features []string        `json:"features"`
	Results  analysis.Result `json:"results"`
}

// Filter narrows a history listing. Zero values match everything.
type Filter struct {
	// Query is a case-insensitive substring of Content
	Query     string
	MediaType features.MediaType
	Limit     int
}

// DefaultListLimit caps listings that do not set Limit
const DefaultListLimit = 100

func (f Filter) limit() int {
	if f.Limit <= 0 || f.Limit > DefaultListLimit {
		return DefaultListLimit
	}
	return f.Limit
}

// prepare fills the ID and timestamp of a new record
func prepare(record *Record) error {
	if record == nil {
		return ErrInvalidRecord
	}
	if record.MediaType == "" {
		return ErrInvalidRecord
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	if record.Features == nil {
		record.Features = []string{}
	}
	if record.Results == nil {
		record.Results = analysis.Result{}
	}
	return nil
}
