// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

// Package oauth implements the core of the OAuth 2.0 / OpenID Connect
// authorization endpoint: request parameter parsing and validation, the
// redirect URI allow-list, scope resolution and ID token construction.
package oauth

// Well-known scope names.
const (
	ScopeOpenID        = "openid"
	ScopeOfflineAccess = "offline_access"

	// GitHub compatibility pseudo-scopes, accepted on the github-compat
	// route variant even when not configured on the provider.
	ScopeGithubUser      = "user"
	ScopeGithubUserRead  = "read:user"
	ScopeGithubUserEmail = "user:email"
	ScopeGithubOrgRead   = "read:org"
)

// Prompt parameter values (OIDC Core Section 3.1.2.1).
const (
	PromptNone    = "none"
	PromptConsent = "consent"
	PromptLogin   = "login"
)

// PKCE code challenge methods (RFC 7636).
const (
	PKCEMethodPlain = "plain"
	PKCEMethodS256  = "S256"
)

// TokenType is the token_type value returned with access tokens.
const TokenType = "Bearer"

// allowedPrompts are the prompt values we act on; anything else is ignored.
var allowedPrompts = map[string]struct{}{
	PromptNone:    {},
	PromptConsent: {},
	PromptLogin:   {},
}

// githubCompatScopes are excluded from the configured-scope subset check when
// the request came in through the github-compat route.
var githubCompatScopes = map[string]struct{}{
	ScopeGithubUser:      {},
	ScopeGithubUserRead:  {},
	ScopeGithubUserEmail: {},
	ScopeGithubOrgRead:   {},
}

// forbiddenURISchemes are never acceptable redirect URI schemes, regardless
// of what the provider allow-list says.
var forbiddenURISchemes = map[string]struct{}{
	"javascript": {},
	"data":       {},
	"vbscript":   {},
}
