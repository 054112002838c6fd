// Package credential owns the single API key that gates every analysis call.
package credential

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/media-inspector-go/internal/logger"
)

// StorageKey is the fixed key the token is persisted under.
const StorageKey = "google_api_key"

// Backend persists key-value settings.
type Backend interface {
	Load() (map[string]string, error)
	Save(values map[string]string) error
}

// Prober performs a lightweight authenticated call against the provider.
type Prober interface {
	Probe(ctx context.Context, token string) error
}

// Listener is notified with the new token after every successful Set.
type Listener func(token string)

// Store is loaded once at startup and shared by every analysis flow.
type Store struct {
	mu        sync.RWMutex
	token     string
	backend   Backend
	prober    Prober
	listeners map[int]Listener
	nextID    int
}

// Open loads the persisted token. A nil prober makes Validate always fail.
func Open(backend Backend, prober Prober) (*Store, error) {
	values, err := backend.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	return &Store{
		token:     strings.TrimSpace(values[StorageKey]),
		backend:   backend,
		prober:    prober,
		listeners: make(map[int]Listener),
	}, nil
}

// Get returns the token, or "" when none is configured.
func (s *Store) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsConfigured reports whether a non-empty token is present.
func (s *Store) IsConfigured() bool {
	return s.Get() != ""
}

// Set persists and replaces the token, then notifies subscribers.
func (s *Store) Set(token string) error {
	token = strings.TrimSpace(token)

	s.mu.Lock()
	values, err := s.backend.Load()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if values == nil {
		values = make(map[string]string)
	}
	values[StorageKey] = token
	if err := s.backend.Save(values); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to save credential: %w", err)
	}
	s.token = token
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	logger.WithField("configured", token != "").Info("API key saved")
	for _, l := range listeners {
		l(token)
	}
	return nil
}

// Validate probes the provider with token. Failures are logged and reported as
// false, never returned to the caller.
func (s *Store) Validate(ctx context.Context, token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	if s.prober == nil {
		logger.Warn("No credential prober configured")
		return false
	}
	if err := s.prober.Probe(ctx, token); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"operation": "validate_credential",
		}).Warn("API key validation failed")
		return false
	}
	return true
}

// Subscribe registers l for token updates and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}
