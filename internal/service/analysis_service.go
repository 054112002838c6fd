package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/media-inspector-go/internal/analysis"
	apperrors "github.com/anime-shed/media-inspector-go/internal/errors"
	"github.com/anime-shed/media-inspector-go/internal/features"
	"github.com/anime-shed/media-inspector-go/internal/logger"
	"github.com/anime-shed/media-inspector-go/internal/media"
	"github.com/anime-shed/media-inspector-go/internal/render"
	"github.com/anime-shed/media-inspector-go/internal/repository"
	"github.com/anime-shed/media-inspector-go/internal/scoring"
	"github.com/anime-shed/media-inspector-go/internal/worker"
	"github.com/anime-shed/media-inspector-go/pkg/models"
)

// Request describes one analysis. At most one of File, URL or Text may be set.
type Request struct {
	MediaType features.MediaType
	File      *media.File
	URL       string
	Text      string
	// Features replaces the default selection when non-nil
	Features []string
	// Toggle flips each named flag after Features is applied
	Toggle []string
	RunAll bool
}

// AnalysisService runs analyses and manages their history
type AnalysisService interface {
	Analyze(ctx context.Context, req Request) (*models.AnalysisResponse, error)
	AnalyzeBatch(ctx context.Context, reqs []Request) *models.BatchResponse

	ListHistory(ctx context.Context, filter repository.Filter) ([]*repository.Record, error)
	GetHistory(ctx context.Context, id string) (*repository.Record, error)
	DeleteHistory(ctx context.Context, id string) error
	ExportHistory(ctx context.Context, id string) (filename string, data []byte, err error)
	RenderHistory(ctx context.Context, id string) (string, error)

	ScoreTranscript(reference, hypothesis string) scoring.Score
}

type analysisService struct {
	pipeline *analysis.Pipeline
	history  repository.HistoryRepository
	pool     *worker.WorkerPool
}

// NewAnalysisService creates a new analysis service. The pool must be started.
func NewAnalysisService(
	pipeline *analysis.Pipeline,
	history repository.HistoryRepository,
	pool *worker.WorkerPool,
) AnalysisService {
	return &analysisService{
		pipeline: pipeline,
		history:  history,
		pool:     pool,
	}
}

// Analyze builds a fresh session for req, runs it and stores the result
func (s *analysisService) Analyze(ctx context.Context, req Request) (*models.AnalysisResponse, error) {
	start := time.Now()

	sess, err := analysis.NewSession(s.pipeline, req.MediaType)
	if err != nil {
		return nil, err
	}
	if err := applyInput(sess, req); err != nil {
		return nil, err
	}
	if req.Features != nil {
		if err := sess.SelectFeatures(selection(req.Features)); err != nil {
			return nil, err
		}
	}
	for _, name := range req.Toggle {
		if err := sess.ToggleFeature(strings.TrimSpace(name)); err != nil {
			return nil, err
		}
	}

	run := sess.Analyze
	if req.RunAll {
		run = sess.RunAll
	}
	if _, err := run(ctx); err != nil {
		return nil, err
	}

	status := sess.Status()
	resp := &models.AnalysisResponse{
		MediaType:         status.MediaType,
		Timestamp:         time.Now().UTC(),
		ProcessingTimeSec: time.Since(start).Seconds(),
		Input:             status.Input,
		Features:          sess.Features().EnabledNames(),
		Results:           sess.Result(),
	}

	record := &repository.Record{
		MediaType: resp.MediaType,
		Timestamp: resp.Timestamp,
		Content:   resp.Input,
		Features:  resp.Features,
		Results:   resp.Results,
	}
	if err := s.history.Save(ctx, record); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"media_type": req.MediaType,
		}).Warn("Failed to store analysis history")
	} else {
		resp.ID = record.ID.String()
	}

	return resp, nil
}

func applyInput(sess *analysis.Session, req Request) error {
	supplied := 0
	for _, set := range []bool{req.File != nil, req.URL != "", req.Text != ""} {
		if set {
			supplied++
		}
	}
	if supplied > 1 {
		return apperrors.NewValidationError("provide only one of file, url or text", nil)
	}

	switch {
	case req.File != nil:
		return sess.SetFile(*req.File)
	case req.URL != "":
		sess.SetURL(strings.TrimSpace(req.URL))
	case req.Text != "":
		if req.MediaType != features.Text {
			return apperrors.NewValidationError("inline text is only accepted for text analysis", nil)
		}
		return sess.SetText(req.Text)
	}
	return nil
}

func selection(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			m[n] = true
		}
	}
	return m
}

// AnalyzeBatch runs every request as its own session on the worker pool.
// Items fail independently; the response keeps request order.
func (s *analysisService) AnalyzeBatch(ctx context.Context, reqs []Request) *models.BatchResponse {
	resp := &models.BatchResponse{Items: make([]models.BatchItemResponse, len(reqs))}

	var wg sync.WaitGroup
	for i, req := range reqs {
		i, req := i, req
		wg.Add(1)
		s.pool.Submit(func() {
			defer wg.Done()
			item := models.BatchItemResponse{Index: i}
			if err := ctx.Err(); err != nil {
				item.Error = models.NewErrorResponse(apperrors.NewTimeoutError("batch cancelled", err))
			} else if result, err := s.Analyze(ctx, req); err != nil {
				item.Error = models.NewErrorResponse(err)
			} else {
				item.Result = result
			}
			resp.Items[i] = item
		})
	}
	wg.Wait()

	for _, item := range resp.Items {
		if item.Error != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}

	logger.WithFields(logrus.Fields{
		"items":     len(reqs),
		"succeeded": resp.Succeeded,
		"failed":    resp.Failed,
	}).Info("Batch analysis completed")

	return resp
}

func (s *analysisService) ListHistory(ctx context.Context, filter repository.Filter) ([]*repository.Record, error) {
	if filter.MediaType != "" {
		if _, err := features.ParseMediaType(string(filter.MediaType)); err != nil {
			return nil, apperrors.NewValidationError(err.Error(), err)
		}
	}
	records, err := s.history.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list history", err)
	}
	return records, nil
}

func (s *analysisService) GetHistory(ctx context.Context, id string) (*repository.Record, error) {
	recordID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, apperrors.NewValidationError("invalid history id", err)
	}
	rec, err := s.history.Get(ctx, recordID)
	if err != nil {
		return nil, historyError(err)
	}
	return rec, nil
}

func (s *analysisService) DeleteHistory(ctx context.Context, id string) error {
	recordID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return apperrors.NewValidationError("invalid history id", err)
	}
	if err := s.history.Delete(ctx, recordID); err != nil {
		return historyError(err)
	}
	return nil
}

// ExportHistory returns the record's results as an indented JSON document
func (s *analysisService) ExportHistory(ctx context.Context, id string) (string, []byte, error) {
	rec, err := s.GetHistory(ctx, id)
	if err != nil {
		return "", nil, err
	}
	data, err := render.ExportJSON(rec.Results)
	if err != nil {
		return "", nil, apperrors.NewInternalError("failed to export results", err)
	}
	return render.ExportFilename(rec.ID.String()), data, nil
}

func (s *analysisService) RenderHistory(ctx context.Context, id string) (string, error) {
	rec, err := s.GetHistory(ctx, id)
	if err != nil {
		return "", err
	}
	return render.String(rec.MediaType, rec.Results), nil
}

func (s *analysisService) ScoreTranscript(reference, hypothesis string) scoring.Score {
	return scoring.Compare(reference, hypothesis)
}

func historyError(err error) error {
	if errors.Is(err, repository.ErrRecordNotFound) {
		return apperrors.NewNotFoundError("history record not found", err)
	}
	return apperrors.NewInternalError("history lookup failed", err)
}
