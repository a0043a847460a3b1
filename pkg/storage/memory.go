// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lanternid/lantern/pkg/logger"
	"github.com/lanternid/lantern/pkg/oauth"
)

// timedEntry wraps a value with its expiry for TTL tracking.
type timedEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e *timedEntry[T]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore implements Store with in-memory maps. It is thread-safe and
// suitable for development and testing; production deployments should use
// the sqlite backend.
type MemoryStore struct {
	mu sync.RWMutex

	// providers maps client_id -> provider.
	providers map[string]*oauth.Provider

	// applications maps the owning provider's client_id -> application.
	applications map[string]*oauth.Application

	// authCodes maps code value -> code. Entries expire with the code.
	authCodes map[string]*timedEntry[*oauth.AuthorizationCode]

	// accessTokens maps token value -> token. Entries expire with the token.
	accessTokens map[string]*timedEntry[*oauth.AccessToken]

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	cleanupDone     chan struct{}
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets a custom interval for the background expiry sweep.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.cleanupInterval = interval
	}
}

// NewMemoryStore creates a MemoryStore and starts its background cleanup
// goroutine.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		providers:       make(map[string]*oauth.Provider),
		applications:    make(map[string]*oauth.Application),
		authCodes:       make(map[string]*timedEntry[*oauth.AuthorizationCode]),
		accessTokens:    make(map[string]*timedEntry[*oauth.AccessToken]),
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
		cleanupDone:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.cleanupLoop()
	return s
}

var _ Store = (*MemoryStore)(nil)

// ProviderByClientID implements Store. The returned provider is a copy;
// mutating it does not affect the stored record.
func (s *MemoryStore) ProviderByClientID(_ context.Context, clientID string) (*oauth.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[clientID]
	if !ok {
		return nil, fmt.Errorf("provider %q: %w", clientID, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

// AddProvider implements Store.
func (s *MemoryStore) AddProvider(_ context.Context, provider *oauth.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *provider
	s.providers[provider.ClientID] = &cp
	return nil
}

// UpdateProviderRedirectURIs implements Store.
func (s *MemoryStore) UpdateProviderRedirectURIs(
	_ context.Context, clientID string, uris []oauth.RedirectURI,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.providers[clientID]
	if !ok {
		return fmt.Errorf("provider %q: %w", clientID, ErrNotFound)
	}
	p.RedirectURIs = uris
	return nil
}

// ApplicationByClientID implements Store.
func (s *MemoryStore) ApplicationByClientID(_ context.Context, clientID string) (*oauth.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.applications[clientID]
	if !ok {
		return nil, fmt.Errorf("application for provider %q: %w", clientID, ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

// AddApplication implements Store.
func (s *MemoryStore) AddApplication(_ context.Context, app *oauth.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *app
	s.applications[app.ClientID] = &cp
	return nil
}

// StoreAuthorizationCode implements Store.
func (s *MemoryStore) StoreAuthorizationCode(_ context.Context, code *oauth.AuthorizationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *code
	s.authCodes[code.Code] = &timedEntry[*oauth.AuthorizationCode]{
		value:     &cp,
		expiresAt: code.Expires,
	}
	return nil
}

// AuthorizationCodeByCode implements Store.
func (s *MemoryStore) AuthorizationCodeByCode(_ context.Context, code string) (*oauth.AuthorizationCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.authCodes[code]
	if !ok || entry.expired(time.Now()) {
		return nil, fmt.Errorf("authorization code: %w", ErrNotFound)
	}
	cp := *entry.value
	return &cp, nil
}

// StoreAccessToken implements Store.
func (s *MemoryStore) StoreAccessToken(_ context.Context, token *oauth.AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *token
	s.accessTokens[token.Token] = &timedEntry[*oauth.AccessToken]{
		value:     &cp,
		expiresAt: token.Expires,
	}
	return nil
}

// AccessTokenByToken implements Store.
func (s *MemoryStore) AccessTokenByToken(_ context.Context, token string) (*oauth.AccessToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.accessTokens[token]
	if !ok || entry.expired(time.Now()) {
		return nil, fmt.Errorf("access token: %w", ErrNotFound)
	}
	cp := *entry.value
	return &cp, nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	close(s.stopCleanup)
	<-s.cleanupDone
	return nil
}

func (s *MemoryStore) cleanupLoop() {
	defer close(s.cleanupDone)
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			s.cleanupExpired()
		}
	}
}

func (s *MemoryStore) cleanupExpired() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, e := range s.authCodes {
		if e.expired(now) {
			delete(s.authCodes, k)
			removed++
		}
	}
	for k, e := range s.accessTokens {
		if e.expired(now) {
			delete(s.accessTokens, k)
			removed++
		}
	}
	if removed > 0 {
		logger.Debugw("cleaned up expired records", "count", removed)
	}
}
