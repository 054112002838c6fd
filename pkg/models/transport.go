package models

import (
	"errors"
	"net/http"

	apperrors "github.com/anime-shed/media-inspector-go/internal/errors"
	"github.com/anime-shed/media-inspector-go/internal/scoring"
)

// AnalyzeRequest is the JSON body of POST /analyze/:media.
// Exactly one of URL or Text is expected; multipart uploads send a file instead.
type AnalyzeRequest struct {
	URL  string `json:"url,omitempty"`
	Text string `json:"text,omitempty"`
	// Features replaces the default selection when present
	Features []string `json:"features,omitempty"`
	// Toggle flips the named features after Features is applied
	Toggle []string `json:"toggle,omitempty"`
	RunAll bool     `json:"run_all,omitempty"`
}

// BatchRequest analyzes several independent inputs of one media type
type BatchRequest struct {
	Items []AnalyzeRequest `json:"items" binding:"required,min=1,dive"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
	// Details points at the place a missing setting can be supplied
	Details string `json:"details,omitempty"`
}

// NewErrorResponse describes err; application errors keep their type and details
func NewErrorResponse(err error) *ErrorResponse {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return &ErrorResponse{
			Error:   http.StatusText(appErr.StatusCode),
			Type:    string(appErr.Type),
			Message: appErr.Message,
			Details: appErr.Details,
		}
	}
	return &ErrorResponse{
		Error:   http.StatusText(http.StatusInternalServerError),
		Type:    string(apperrors.ErrorTypeInternal),
		Message: err.Error(),
	}
}

// CredentialRequest is the body of PUT /settings/credential
type CredentialRequest struct {
	APIKey string `json:"api_key"`
	// Validate checks the key against the provider before storing it
	Validate bool `json:"validate"`
}

// CredentialStatus never carries the key itself
type CredentialStatus struct {
	Configured bool  `json:"configured"`
	Valid      *bool `json:"valid,omitempty"`
}

// ScoreRequest is the body of POST /score/transcript
type ScoreRequest struct {
	Reference  string `json:"reference" binding:"required"`
	Hypothesis string `json:"hypothesis"`
}

// ScoreResponse reports transcript error rates
type ScoreResponse struct {
	scoring.Score
}
