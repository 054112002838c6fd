package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/anime-shed/media-inspector-go/internal/analysis"
)

// MemoryHistoryRepository keeps history in process memory
type MemoryHistoryRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
}

// NewMemoryHistoryRepository creates an empty in-memory repository
func NewMemoryHistoryRepository() *MemoryHistoryRepository {
	return &MemoryHistoryRepository{records: make(map[uuid.UUID]*Record)}
}

func (r *MemoryHistoryRepository) Save(ctx context.Context, record *Record) error {
	if err := prepare(record); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = clone(record)
	return nil
}

func (r *MemoryHistoryRepository) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return clone(rec), nil
}

func (r *MemoryHistoryRepository) List(ctx context.Context, filter Filter) ([]*Record, error) {
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	r.mu.RLock()
	out := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		if filter.MediaType != "" && rec.MediaType != filter.MediaType {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(rec.Content), query) {
			continue
		}
		out = append(out, clone(rec))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit := filter.limit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryHistoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	delete(r.records, id)
	return nil
}

// clone copies a record so callers never share the stored slices.
func clone(rec *Record) *Record {
	cp := *rec
	cp.Features = append([]string{}, rec.Features...)
	cp.Results = make(analysis.Result, len(rec.Results))
	for k, v := range rec.Results {
		if list, ok := v.([]string); ok {
			v = append([]string{}, list...)
		}
		cp.Results[k] = v
	}
	return &cp
}
