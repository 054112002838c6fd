package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/media-inspector-go/internal/credential"
	apperrors "github.com/anime-shed/media-inspector-go/internal/errors"
)

type keyProber struct {
	valid    string
	deadline bool
	calls    int
}

func (p *keyProber) Probe(ctx context.Context, token string) error {
	p.calls++
	_, p.deadline = ctx.Deadline()
	if token != p.valid {
		return errors.New("API key not valid")
	}
	return nil
}

func newCredentialService(t *testing.T, prober credential.Prober) (CredentialService, *credential.MemoryBackend) {
	t.Helper()
	backend := credential.NewMemoryBackend(nil)
	store, err := credential.Open(backend, prober)
	require.NoError(t, err)
	return NewCredentialService(store, time.Second), backend
}

func TestCredentialService_SaveValidKey(t *testing.T) {
	prober := &keyProber{valid: "good"}
	svc, backend := newCredentialService(t, prober)
	ctx := context.Background()

	assert.False(t, svc.Status(ctx, false).Configured)

	require.NoError(t, svc.Save(ctx, " good ", true))
	assert.True(t, prober.deadline)

	values, err := backend.Load()
	require.NoError(t, err)
	assert.Equal(t, "good", values[credential.StorageKey])

	status := svc.Status(ctx, true)
	assert.True(t, status.Configured)
	require.NotNil(t, status.Valid)
	assert.True(t, *status.Valid)
}

func TestCredentialService_RejectedKeyIsNotSaved(t *testing.T) {
	svc, backend := newCredentialService(t, &keyProber{valid: "good"})
	ctx := context.Background()

	err := svc.Save(ctx, "bad", true)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCredentialRejected))
	assert.Equal(t, 401, apperrors.GetStatusCode(err))

	values, err := backend.Load()
	require.NoError(t, err)
	assert.Empty(t, values[credential.StorageKey])
	assert.False(t, svc.Status(ctx, false).Configured)
}

func TestCredentialService_SaveWithoutValidation(t *testing.T) {
	prober := &keyProber{valid: "good"}
	svc, _ := newCredentialService(t, prober)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, "unchecked", false))
	assert.Zero(t, prober.calls, "the provider is not contacted")
	status := svc.Status(ctx, true)
	assert.True(t, status.Configured)
	require.NotNil(t, status.Valid)
	assert.False(t, *status.Valid)

	// an empty key clears the setting without a provider call
	calls := prober.calls
	require.NoError(t, svc.Save(ctx, "", true))
	assert.Equal(t, calls, prober.calls)
	assert.False(t, svc.Status(ctx, false).Configured)
}
