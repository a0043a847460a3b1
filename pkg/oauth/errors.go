// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"fmt"
	"net/url"
)

// Internal error causes, attached to errors for logs and telemetry. They are
// never sent to the relying party.
const (
	CauseRedirectURIMissing         = "redirect_uri_missing"
	CauseRedirectURINoMatch         = "redirect_uri_no_match"
	CauseRedirectURIForbiddenScheme = "redirect_uri_forbidden_scheme"
	CauseNonceMissing               = "nonce_missing"
	CauseScopeOpenIDMissing         = "scope_openid_missing"
)

// errorDescriptions maps RP-visible error codes to their default
// error_description values (RFC 6749 Section 4.1.2.1, OIDC Core Section
// 3.1.2.6).
var errorDescriptions = map[string]string{
	"invalid_request":           "The request is otherwise malformed",
	"unauthorized_client":       "The client is not authorized to request an authorization code using this method",
	"access_denied":             "The resource owner or authorization server denied the request",
	"unsupported_response_type": "The authorization server does not support obtaining an authorization code using this method",
	"invalid_scope":             "The requested scope is invalid, unknown, or malformed",
	"server_error":              "The authorization server encountered an unexpected condition that prevented it from fulfilling the request",
	"temporarily_unavailable":   "The authorization server is currently unable to handle the request",
	"login_required":            "The authorization server requires end-user authentication",
	"consent_required":          "The authorization server requires end-user consent",
	"request_not_supported":     "The authorization server does not support the use of the request parameter",
}

// OAuth2Error is the base of the error taxonomy. Anything that reaches the
// relying party as a bare OAuth2Error is presented as server_error.
type OAuth2Error struct {
	ErrorCode   string
	Description string
	Cause       string
}

func (e *OAuth2Error) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.ErrorCode, e.Description)
	}
	return e.ErrorCode
}

// WithCause attaches an internal cause for logs; the cause is not RP-visible.
func (e *OAuth2Error) WithCause(cause string) *OAuth2Error {
	e.Cause = cause
	return e
}

// ClientIDError indicates an unknown or missing client identifier. Since no
// client is known, no redirect URI can be trusted.
type ClientIDError struct {
	OAuth2Error
	ClientID string
}

// NewClientIDError creates a ClientIDError for the given client_id.
func NewClientIDError(clientID string) *ClientIDError {
	return &ClientIDError{
		OAuth2Error: OAuth2Error{
			ErrorCode:   "invalid_request",
			Description: "Invalid client identifier",
		},
		ClientID: clientID,
	}
}

// RedirectURIError indicates a missing, unmatched or forbidden redirect URI.
// The URI cannot be trusted, so the error must be rendered as a page and
// never redirected.
type RedirectURIError struct {
	OAuth2Error
	RedirectURI string
	Allowed     []RedirectURI
}

// NewRedirectURIError creates a RedirectURIError carrying the offending URI
// and the provider's allow-list for logging.
func NewRedirectURIError(redirectURI string, allowed []RedirectURI) *RedirectURIError {
	return &RedirectURIError{
		OAuth2Error: OAuth2Error{
			ErrorCode:   "invalid_request",
			Description: "Redirect URI Error",
		},
		RedirectURI: redirectURI,
		Allowed:     allowed,
	}
}

// WithCause attaches an internal cause and returns the error.
func (e *RedirectURIError) WithCause(cause string) *RedirectURIError {
	e.Cause = cause
	return e
}

// AuthorizeError is an RP-visible OAuth error. It carries everything needed
// to route the error back to the relying party: a validated redirect URI, the
// client's state and the effective grant type and response mode.
type AuthorizeError struct {
	OAuth2Error
	RedirectURI  string
	GrantType    GrantType
	State        string
	ResponseMode ResponseMode
}

// NewAuthorizeError creates an AuthorizeError with the default description
// for errorCode.
func NewAuthorizeError(redirectURI, errorCode string, grantType GrantType, state string) *AuthorizeError {
	return &AuthorizeError{
		OAuth2Error: OAuth2Error{
			ErrorCode:   errorCode,
			Description: errorDescriptions[errorCode],
		},
		RedirectURI: redirectURI,
		GrantType:   grantType,
		State:       state,
	}
}

// WithDescription overrides the default error_description.
func (e *AuthorizeError) WithDescription(description string) *AuthorizeError {
	e.Description = description
	return e
}

// WithCause attaches an internal cause and returns the error.
func (e *AuthorizeError) WithCause(cause string) *AuthorizeError {
	e.Cause = cause
	return e
}

// WithResponseMode records the effective response mode the error response
// should use.
func (e *AuthorizeError) WithResponseMode(mode ResponseMode) *AuthorizeError {
	e.ResponseMode = mode
	return e
}

// Params returns the wire parameters of the error response. State is always
// present, coerced to the empty string when absent, so the relying party sees
// symmetric responses.
func (e *AuthorizeError) Params() url.Values {
	return url.Values{
		"error":             {e.ErrorCode},
		"error_description": {e.Description},
		"state":             {e.State},
	}
}

// EffectiveResponseMode resolves the delivery mode for the error response.
// When no mode was derived yet, placement falls back on the grant type the
// way success responses default.
func (e *AuthorizeError) EffectiveResponseMode() ResponseMode {
	if validResponseMode(e.ResponseMode) {
		return e.ResponseMode
	}
	if e.GrantType == GrantTypeImplicit || e.GrantType == GrantTypeHybrid {
		return ResponseModeFragment
	}
	return ResponseModeQuery
}

// CreateURI builds the redirect URI delivering the error via query or
// fragment placement. form_post delivery is handled by the HTTP layer, which
// renders an auto-submitting page from Params instead.
func (e *AuthorizeError) CreateURI() string {
	u, err := url.Parse(e.RedirectURI)
	if err != nil {
		return ""
	}
	encoded := e.Params().Encode()
	if e.EffectiveResponseMode() == ResponseModeFragment {
		u.Fragment = u.Fragment + encoded
	} else {
		u.RawQuery = encoded
	}
	return u.String()
}
