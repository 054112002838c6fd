package service

import (
	"context"
	"strings"
	"time"

	"github.com/anime-shed/media-inspector-go/internal/credential"
	apperrors "github.com/anime-shed/media-inspector-go/internal/errors"
	"github.com/anime-shed/media-inspector-go/pkg/models"
)

// CredentialService manages the API key that gates every analysis
type CredentialService interface {
	Status(ctx context.Context, probe bool) models.CredentialStatus
	// Save stores token. With validate set, a key the provider rejects is
	// reported as credential_rejected and not stored.
	Save(ctx context.Context, token string, validate bool) error
	Validate(ctx context.Context, token string) bool
}

type credentialService struct {
	store   *credential.Store
	timeout time.Duration
}

// NewCredentialService bounds every provider probe by timeout
func NewCredentialService(store *credential.Store, timeout time.Duration) CredentialService {
	return &credentialService{store: store, timeout: timeout}
}

func (s *credentialService) Status(ctx context.Context, probe bool) models.CredentialStatus {
	status := models.CredentialStatus{Configured: s.store.IsConfigured()}
	if probe && status.Configured {
		valid := s.Validate(ctx, s.store.Get())
		status.Valid = &valid
	}
	return status
}

func (s *credentialService) Save(ctx context.Context, token string, validate bool) error {
	token = strings.TrimSpace(token)
	if validate && token != "" && !s.Validate(ctx, token) {
		return apperrors.NewCredentialRejectedError("the provider rejected the API key")
	}
	if err := s.store.Set(token); err != nil {
		return apperrors.NewInternalError("failed to save API key", err)
	}
	return nil
}

func (s *credentialService) Validate(ctx context.Context, token string) bool {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.store.Validate(ctx, token)
}
