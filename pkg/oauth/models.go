// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"crypto/rand"
	"encoding/hex"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/lanternid/lantern/pkg/logger"
)

// Default validity periods, used when a provider carries no or an unparsable
// duration string.
const (
	DefaultAccessCodeValidity  = time.Minute
	DefaultAccessTokenValidity = 5 * time.Minute
)

// ScopeMapping binds a scope name a provider accepts to a human-readable
// description shown on the consent prompt.
type ScopeMapping struct {
	ScopeName   string `json:"scope_name" yaml:"scope_name"`
	Description string `json:"description" yaml:"description"`
}

// Provider is a registered OAuth 2.0 / OIDC relying party.
type Provider struct {
	ClientID            string         `json:"client_id" yaml:"client_id"`
	Name                string         `json:"name" yaml:"name"`
	RedirectURIs        []RedirectURI  `json:"redirect_uris" yaml:"redirect_uris"`
	AuthorizationFlow   string         `json:"authorization_flow" yaml:"authorization_flow"`
	AccessCodeValidity  string         `json:"access_code_validity" yaml:"access_code_validity"`
	AccessTokenValidity string         `json:"access_token_validity" yaml:"access_token_validity"`
	SigningKeyID        string         `json:"signing_key" yaml:"signing_key"`
	ScopeMappings       []ScopeMapping `json:"scope_mappings" yaml:"scope_mappings"`
}

// ScopeNames returns the scope identifiers configured on the provider.
func (p *Provider) ScopeNames() []string {
	names := make([]string, 0, len(p.ScopeMappings))
	for _, m := range p.ScopeMappings {
		if !slices.Contains(names, m.ScopeName) {
			names = append(names, m.ScopeName)
		}
	}
	slices.Sort(names)
	return names
}

// ScopeDescriptions resolves the human-readable descriptions of the given
// scopes for consent display. Scopes without a mapping are skipped.
func (p *Provider) ScopeDescriptions(scopes []string) []ScopeMapping {
	var out []ScopeMapping
	for _, m := range p.ScopeMappings {
		if slices.Contains(scopes, m.ScopeName) {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b ScopeMapping) int {
		switch {
		case a.ScopeName < b.ScopeName:
			return -1
		case a.ScopeName > b.ScopeName:
			return 1
		}
		return 0
	})
	return out
}

// CodeValidity returns the configured authorization code lifetime.
func (p *Provider) CodeValidity() time.Duration {
	return parseValidity(p.AccessCodeValidity, DefaultAccessCodeValidity)
}

// TokenValidity returns the configured access token lifetime.
func (p *Provider) TokenValidity() time.Duration {
	return parseValidity(p.AccessTokenValidity, DefaultAccessTokenValidity)
}

func parseValidity(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		logger.Warnw("invalid validity duration, using default",
			"duration", s,
			"default", fallback.String(),
		)
		return fallback
	}
	return d
}

// Application is the user-facing application a provider belongs to.
type Application struct {
	Name     string `json:"name" yaml:"name"`
	Slug     string `json:"slug" yaml:"slug"`
	ClientID string `json:"client_id" yaml:"client_id"`
}

// AuthorizationCode is a single-use grant exchanged at the token endpoint.
type AuthorizationCode struct {
	Code                string    `json:"code"`
	ClientID            string    `json:"client_id"`
	UserID              string    `json:"user_id"`
	AuthTime            time.Time `json:"auth_time"`
	Expires             time.Time `json:"expires"`
	Scope               []string  `json:"scope"`
	Nonce               string    `json:"nonce,omitempty"`
	SessionID           string    `json:"session_id"`
	CodeChallenge       string    `json:"code_challenge,omitempty"`
	CodeChallengeMethod string    `json:"code_challenge_method,omitempty"`
}

// NewAuthorizationCode mints a code value: 128 random bits as hex.
func NewAuthorizationCode() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// AccessToken is an opaque bearer token issued by the implicit and hybrid
// grants, together with the serialized ID token it was issued alongside.
type AccessToken struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"client_id"`
	UserID    string    `json:"user_id"`
	Scope     []string  `json:"scope"`
	Expires   time.Time `json:"expires"`
	AuthTime  time.Time `json:"auth_time"`
	SessionID string    `json:"session_id"`
	IDToken   string    `json:"id_token,omitempty"`
}

// NewOpaqueToken generates a random opaque token value.
func NewOpaqueToken() string {
	return rand.Text() + rand.Text()
}
