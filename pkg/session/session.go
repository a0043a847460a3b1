// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

// Package session provides the browser session the authorization endpoint
// reads login state from and writes flow plans and re-authentication
// tracking into.
package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// ErrNotFound is returned when no session exists for an ID.
var ErrNotFound = errors.New("session not found")

// DefaultTTL is how long a session lives without activity.
const DefaultTTL = 24 * time.Hour

// CookieName is the browser cookie carrying the session ID.
const CookieName = "lantern_session"

// KeyLastLoginUID is the session key tracking the most recent login event
// seen by the authorization endpoint, used to detect whether the
// re-authentication requested by prompt=login has completed.
const KeyLastLoginUID = "last_login_uid"

// Session is the per-browser state. A single browser session is assumed not
// to execute the same flow concurrently; the user drives it.
type Session struct {
	ID string `json:"id"`

	// UserID and Username identify the authenticated user; empty when the
	// session is anonymous.
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`

	// LoginUID is the identifier of the login event that authenticated
	// this session; empty when no login event exists.
	LoginUID string `json:"login_uid,omitempty"`

	// LoginTime is when the login event happened, for max_age checks.
	LoginTime time.Time `json:"login_time,omitzero"`

	// Values carries opaque string state such as KeyLastLoginUID.
	Values map[string]string `json:"values,omitempty"`

	// Plans maps flow slug -> serialized flow plan.
	Plans map[string]json.RawMessage `json:"plans,omitempty"`
}

// Authenticated reports whether the session belongs to a logged-in user.
func (s *Session) Authenticated() bool {
	return s.UserID != ""
}

// Get returns the value stored under key, or the empty string.
func (s *Session) Get(key string) string {
	return s.Values[key]
}

// Has reports whether a value is stored under key.
func (s *Session) Has(key string) bool {
	_, ok := s.Values[key]
	return ok
}

// Set stores a value under key.
func (s *Session) Set(key, value string) {
	if s.Values == nil {
		s.Values = make(map[string]string)
	}
	s.Values[key] = value
}

// SetPlan stores a serialized flow plan under the flow's slug.
func (s *Session) SetPlan(slug string, plan json.RawMessage) {
	if s.Plans == nil {
		s.Plans = make(map[string]json.RawMessage)
	}
	s.Plans[slug] = plan
}

// Plan returns the serialized flow plan for slug, if any.
func (s *Session) Plan(slug string) (json.RawMessage, bool) {
	p, ok := s.Plans[slug]
	return p, ok
}

// DeletePlan removes the flow plan for slug.
func (s *Session) DeletePlan(slug string) {
	delete(s.Plans, slug)
}

// Store persists sessions.
type Store interface {
	// Load returns the session with the given ID, or ErrNotFound.
	Load(ctx context.Context, id string) (*Session, error)

	// Save persists the session, refreshing its TTL.
	Save(ctx context.Context, s *Session) error

	// Delete removes the session.
	Delete(ctx context.Context, id string) error

	// Close releases the store's resources.
	Close() error
}

// Manager binds sessions to browser cookies.
type Manager struct {
	store Store
}

// NewManager creates a Manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Load returns the session referenced by the request's cookie, or a fresh
// unsaved session when the cookie is absent or stale.
func (m *Manager) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(CookieName)
	if err == nil && cookie.Value != "" {
		s, err := m.store.Load(r.Context(), cookie.Value)
		if err == nil {
			return s
		}
	}
	return &Session{ID: rand.Text()}
}

// Save persists the session and sets the cookie on the response.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if err := m.store.Save(ctx, s); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
