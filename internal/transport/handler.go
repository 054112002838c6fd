package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/media-inspector-go/internal/config"
	apperrors "github.com/anime-shed/media-inspector-go/internal/errors"
	"github.com/anime-shed/media-inspector-go/internal/features"
	"github.com/anime-shed/media-inspector-go/internal/logger"
	"github.com/anime-shed/media-inspector-go/internal/media"
	"github.com/anime-shed/media-inspector-go/internal/repository"
	"github.com/anime-shed/media-inspector-go/internal/service"
	"github.com/anime-shed/media-inspector-go/pkg/models"
)

// MetricsSource exposes aggregated analysis counters
type MetricsSource interface {
	GetMetrics() map[string]interface{}
}

type handler struct {
	analysis    service.AnalysisService
	credentials service.CredentialService
	metrics     MetricsSource
	cfg         *config.Config
}

func NewHandler(
	analysis service.AnalysisService,
	credentials service.CredentialService,
	metrics MetricsSource,
	cfg *config.Config,
) http.Handler {
	h := &handler{
		analysis:    analysis,
		credentials: credentials,
		metrics:     metrics,
		cfg:         cfg,
	}

	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck)
	r.GET("/metrics", h.getMetrics)

	settings := r.Group("/settings")
	settings.GET("/credential", h.getCredential)
	settings.PUT("/credential", h.putCredential)

	r.POST("/analyze/:media", h.analyze)
	r.POST("/analyze/:media/batch", h.analyzeBatch)

	history := r.Group("/history")
	history.GET("", h.listHistory)
	history.GET("/:id", h.getHistory)
	history.DELETE("/:id", h.deleteHistory)
	history.GET("/:id/export", h.exportHistory)
	history.GET("/:id/render", h.renderHistory)

	r.POST("/score/transcript", h.scoreTranscript)

	return r
}

func (h *handler) analyze(c *gin.Context) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	// Log request start
	logger.WithFields(logrus.Fields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"ip":         c.ClientIP(),
	}).Info("Processing analysis request")

	req, err := h.bindAnalyzeRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.analysis.Analyze(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}

	// Log successful completion
	logger.WithFields(logrus.Fields{
		"media_type":         req.MediaType,
		"input":              resp.Input,
		"features":           strings.Join(resp.Features, ","),
		"processing_time_ms": time.Since(startTime).Milliseconds(),
	}).Info("Analysis completed successfully")

	c.JSON(http.StatusOK, resp)
}

// bindAnalyzeRequest accepts a JSON body or a multipart form with a file part.
func (h *handler) bindAnalyzeRequest(c *gin.Context) (service.Request, error) {
	mt, err := features.ParseMediaType(c.Param("media"))
	if err != nil {
		return service.Request{}, apperrors.NewValidationError(err.Error(), err)
	}
	req := service.Request{MediaType: mt}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if names := strings.TrimSpace(c.PostForm("features")); names != "" {
			req.Features = strings.Split(names, ",")
		}
		if names := strings.TrimSpace(c.PostForm("toggle")); names != "" {
			req.Toggle = strings.Split(names, ",")
		}
		req.URL = c.PostForm("url")
		req.Text = c.PostForm("text")
		req.RunAll, _ = strconv.ParseBool(c.PostForm("run_all"))

		header, err := c.FormFile("file")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			return req, bodyError(err)
		default:
			file, err := readUpload(header)
			if err != nil {
				return req, bodyError(err)
			}
			req.File = file
		}
		return req, nil
	}

	var body models.AnalyzeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		return req, bodyError(err)
	}
	return toServiceRequest(mt, body), nil
}

func toServiceRequest(mt features.MediaType, body models.AnalyzeRequest) service.Request {
	return service.Request{
		MediaType: mt,
		URL:       body.URL,
		Text:      body.Text,
		Features:  body.Features,
		Toggle:    body.Toggle,
		RunAll:    body.RunAll,
	}
}

func readUpload(header *multipart.FileHeader) (*media.File, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &media.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (h *handler) analyzeBatch(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	mt, err := features.ParseMediaType(c.Param("media"))
	if err != nil {
		respondError(c, apperrors.NewValidationError(err.Error(), err))
		return
	}
	var body models.BatchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, bodyError(err))
		return
	}

	reqs := make([]service.Request, len(body.Items))
	for i, item := range body.Items {
		reqs[i] = toServiceRequest(mt, item)
	}
	c.JSON(http.StatusOK, h.analysis.AnalyzeBatch(ctx, reqs))
}

func (h *handler) getCredential(c *gin.Context) {
	probe, _ := strconv.ParseBool(c.Query("validate"))
	c.JSON(http.StatusOK, h.credentials.Status(c.Request.Context(), probe))
}

func (h *handler) putCredential(c *gin.Context) {
	var body models.CredentialRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, bodyError(err))
		return
	}
	if err := h.credentials.Save(c.Request.Context(), body.APIKey, body.Validate); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.credentials.Status(c.Request.Context(), false))
}

func (h *handler) listHistory(c *gin.Context) {
	filter := repository.Filter{
		Query:     c.Query("q"),
		MediaType: features.MediaType(c.Query("media")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(c, apperrors.NewValidationError("limit must be a non-negative integer", err))
			return
		}
		filter.Limit = limit
	}

	records, err := h.analysis.ListHistory(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := models.HistoryListResponse{Records: make([]models.HistoryRecord, 0, len(records))}
	for _, rec := range records {
		resp.Records = append(resp.Records, toHistoryRecord(rec))
	}
	resp.Count = len(resp.Records)
	c.JSON(http.StatusOK, resp)
}

func (h *handler) getHistory(c *gin.Context) {
	rec, err := h.analysis.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toHistoryRecord(rec))
}

func (h *handler) deleteHistory(c *gin.Context) {
	if err := h.analysis.DeleteHistory(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) exportHistory(c *gin.Context) {
	name, data, err := h.analysis.ExportHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/json", data)
}

func (h *handler) renderHistory(c *gin.Context) {
	text, err := h.analysis.RenderHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusOK, text)
}

func (h *handler) scoreTranscript(c *gin.Context) {
	var body models.ScoreRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, bodyError(err))
		return
	}
	c.JSON(http.StatusOK, models.ScoreResponse{Score: h.analysis.ScoreTranscript(body.Reference, body.Hypothesis)})
}

func (h *handler) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.GetMetrics())
}

func toHistoryRecord(rec *repository.Record) models.HistoryRecord {
	return models.HistoryRecord{
		ID:        rec.ID.String(),
		MediaType: rec.MediaType,
		Timestamp: rec.Timestamp,
		Content:   rec.Content,
		Features:  rec.Features,
		Results:   rec.Results,
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, c.Errors.Last().Err)
		}
	}
}

// bodyError classifies a failure to read or decode the request body.
func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &apperrors.AppError{
			Type:       apperrors.ErrorTypeValidation,
			Message:    fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			StatusCode: http.StatusRequestEntityTooLarge,
			Cause:      err,
		}
	}
	return apperrors.NewValidationError("invalid request format", err)
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := determineStatusCode(err)

	// Log the error with context
	fields := logrus.Fields{
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}
	if code >= http.StatusInternalServerError {
		logger.WithError(err).WithFields(fields).Error("Request failed")
	} else {
		logger.WithError(err).WithFields(fields).Warn("Request rejected")
	}

	body := models.NewErrorResponse(err)
	body.Error = http.StatusText(code)
	c.AbortWithStatusJSON(code, body)
}
