// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/lanternid/lantern/pkg/logger"
)

// ProviderResolver is the subset of the provider store the request validator
// needs: provider lookup and the best-effort redirect URI auto-provisioning
// write. Both racers of the auto-provisioning write persist the same value,
// so the write is idempotent in effect.
type ProviderResolver interface {
	ProviderByClientID(ctx context.Context, clientID string) (*Provider, error)
	UpdateProviderRedirectURIs(ctx context.Context, clientID string, uris []RedirectURI) error
}

// AuthorizationParams is the parsed and validated authorization request
// envelope. It is immutable after ParseAuthorizationRequest returns and is
// carried through the interactive flow's plan context until fulfillment.
type AuthorizationParams struct {
	ClientID            string       `json:"client_id"`
	RedirectURI         string       `json:"redirect_uri"`
	ResponseType        ResponseType `json:"response_type"`
	ResponseMode        ResponseMode `json:"response_mode"`
	GrantType           GrantType    `json:"grant_type"`
	Scope               []string     `json:"scope"`
	State               string       `json:"state"`
	Nonce               string       `json:"nonce,omitempty"`
	Prompt              []string     `json:"prompt,omitempty"`
	MaxAge              *int         `json:"max_age,omitempty"`
	CodeChallenge       string       `json:"code_challenge,omitempty"`
	CodeChallengeMethod string       `json:"code_challenge_method,omitempty"`
	GithubCompat        bool         `json:"github_compat,omitempty"`

	// requestParam is the raw JAR request parameter; its mere presence
	// fails validation, so it is never serialized.
	requestParam string

	provider *Provider
}

// Provider returns the resolved provider record.
func (p *AuthorizationParams) Provider() *Provider {
	return p.provider
}

// AttachProvider re-binds the provider record after the params object has
// been reconstituted from the plan context.
func (p *AuthorizationParams) AttachProvider(provider *Provider) {
	p.provider = provider
}

// HasPrompt reports whether the given prompt value was requested.
func (p *AuthorizationParams) HasPrompt(prompt string) bool {
	return slices.Contains(p.Prompt, prompt)
}

// ParseAuthorizationRequest reads the request envelope from the POST body
// (for POST requests) or the query string, resolves the provider and runs the
// full validation matrix. Validations run in a fixed order; the first failure
// is returned. The redirect URI is validated before any error that would be
// routed back to it can occur.
func ParseAuthorizationRequest(
	req *http.Request, resolver ProviderResolver, githubCompat bool,
) (*AuthorizationParams, error) {
	values := req.URL.Query()
	if req.Method == http.MethodPost {
		if err := req.ParseForm(); err == nil {
			values = req.PostForm
		}
	}

	params := &AuthorizationParams{
		ClientID:            values.Get("client_id"),
		RedirectURI:         values.Get("redirect_uri"),
		ResponseType:        ResponseType(values.Get("response_type")),
		ResponseMode:        ResponseMode(values.Get("response_mode")),
		Scope:               splitSet(values.Get("scope")),
		State:               values.Get("state"),
		Nonce:               values.Get("nonce"),
		Prompt:              filterPrompts(values.Get("prompt")),
		CodeChallenge:       values.Get("code_challenge"),
		CodeChallengeMethod: values.Get("code_challenge_method"),
		GithubCompat:        githubCompat,
		requestParam:        values.Get("request"),
	}
	if params.CodeChallengeMethod == "" {
		params.CodeChallengeMethod = PKCEMethodPlain
	}
	if raw := values.Get("max_age"); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil || age < 0 {
			logger.Warnw("ignoring invalid max_age parameter", "max_age", raw)
		} else {
			params.MaxAge = &age
		}
	}

	ctx := req.Context()
	provider, err := resolver.ProviderByClientID(ctx, params.ClientID)
	if err != nil || provider == nil {
		logger.Warnw("invalid client identifier", "client_id", params.ClientID)
		return nil, NewClientIDError(params.ClientID)
	}
	params.provider = provider

	if err := params.checkRedirectURI(ctx, resolver); err != nil {
		return nil, err
	}
	if err := params.checkGrant(); err != nil {
		return nil, err
	}
	if err := params.checkScope(); err != nil {
		return nil, err
	}
	if params.requestParam != "" {
		// JAR (RFC 9101) is not supported.
		return nil, params.authorizeError("request_not_supported")
	}
	if err := params.checkNonce(); err != nil {
		return nil, err
	}
	if err := params.checkCodeChallenge(); err != nil {
		return nil, err
	}
	return params, nil
}

// authorizeError builds an AuthorizeError bound to this request's redirect
// URI, state, grant type and response mode.
func (p *AuthorizationParams) authorizeError(code string) *AuthorizeError {
	return NewAuthorizeError(p.RedirectURI, code, p.GrantType, p.State).
		WithResponseMode(p.ResponseMode)
}

func (p *AuthorizationParams) checkRedirectURI(ctx context.Context, resolver ProviderResolver) error {
	allowed := p.provider.RedirectURIs
	if p.RedirectURI == "" {
		logger.Warn("missing redirect uri")
		return NewRedirectURIError("", allowed).WithCause(CauseRedirectURIMissing)
	}

	if len(allowed) < 1 {
		// Auto-provision the first redirect URI a provider sees. Kept for
		// backwards compatibility; the write is best-effort and tolerates a
		// concurrent racer persisting the same value.
		logger.Warnw("provider has no redirect uris configured, auto-provisioning from request",
			"client_id", p.ClientID,
			"redirect_uri", p.RedirectURI,
		)
		allowed = []RedirectURI{{MatchingMode: MatchStrict, URL: p.RedirectURI}}
		if err := resolver.UpdateProviderRedirectURIs(ctx, p.ClientID, allowed); err != nil {
			logger.Warnw("failed to persist auto-provisioned redirect uri",
				"client_id", p.ClientID,
				"error", err.Error(),
			)
		}
		p.provider.RedirectURIs = allowed
	}

	if !MatchRedirectURI(p.RedirectURI, allowed) {
		return NewRedirectURIError(p.RedirectURI, allowed).WithCause(CauseRedirectURINoMatch)
	}
	if forbiddenScheme(p.RedirectURI) {
		return NewRedirectURIError(p.RedirectURI, allowed).WithCause(CauseRedirectURIForbiddenScheme)
	}
	return nil
}

func (p *AuthorizationParams) checkGrant() error {
	switch p.ResponseType {
	case ResponseTypeCode:
		p.GrantType = GrantTypeAuthorizationCode
	case ResponseTypeIDToken, ResponseTypeIDTokenToken:
		p.GrantType = GrantTypeImplicit
	case ResponseTypeCodeToken, ResponseTypeCodeIDToken, ResponseTypeCodeIDTokenToken:
		p.GrantType = GrantTypeHybrid
	default:
		logger.Warnw("invalid response type", "response_type", string(p.ResponseType))
		return NewAuthorizeError(p.RedirectURI, "unsupported_response_type", "", p.State)
	}

	// Unknown response modes are rewritten to the grant's default rather
	// than rejected, mirroring the long-standing endpoint behavior.
	if !validResponseMode(p.ResponseMode) {
		p.ResponseMode = ResponseModeQuery
		if p.GrantType == GrantTypeImplicit || p.GrantType == GrantTypeHybrid {
			p.ResponseMode = ResponseModeFragment
		}
	}
	return nil
}

func (p *AuthorizationParams) checkScope() error {
	configured := p.provider.ScopeNames()
	if len(p.Scope) == 0 {
		logger.Infow("no scopes requested, defaulting to all configured scopes",
			"scopes", configured,
		)
		p.Scope = slices.Clone(configured)
	}

	toCheck := p.Scope
	if p.GithubCompat {
		toCheck = slices.DeleteFunc(slices.Clone(p.Scope), func(s string) bool {
			_, ok := githubCompatScopes[s]
			return ok
		})
	}
	if !subset(toCheck, configured) {
		logger.Infow("application requested scopes not configured, setting to overlap",
			"scope_allowed", configured,
			"scope_given", p.Scope,
		)
		p.Scope = intersect(p.Scope, configured)
	}

	if !slices.Contains(p.Scope, ScopeOpenID) &&
		(p.GrantType == GrantTypeHybrid ||
			p.ResponseType == ResponseTypeIDToken || p.ResponseType == ResponseTypeIDTokenToken) {
		logger.Warn("missing openid scope for OpenID request")
		return p.authorizeError("invalid_scope").WithCause(CauseScopeOpenIDMissing)
	}

	// offline_access needs a response type that yields an authorization
	// code; otherwise the scope is dropped silently per OIDC Core.
	if slices.Contains(p.Scope, ScopeOfflineAccess) && !p.ResponseType.IncludesCode() {
		p.Scope = slices.DeleteFunc(p.Scope, func(s string) bool {
			return s == ScopeOfflineAccess
		})
	}
	return nil
}

func (p *AuthorizationParams) checkNonce() error {
	if !p.ResponseType.IncludesIDToken() {
		return nil
	}
	if !slices.Contains(p.Scope, ScopeOpenID) {
		return nil
	}
	if p.Nonce == "" {
		logger.Warn("missing nonce for OpenID request")
		return p.authorizeError("invalid_request").WithCause(CauseNonceMissing)
	}
	return nil
}

func (p *AuthorizationParams) checkCodeChallenge() error {
	if p.CodeChallenge == "" {
		return nil
	}
	if p.CodeChallengeMethod != PKCEMethodPlain && p.CodeChallengeMethod != PKCEMethodS256 {
		return p.authorizeError("invalid_request").
			WithDescription("Unsupported challenge method " + p.CodeChallengeMethod)
	}
	return nil
}

// splitSet splits a space-separated parameter into a sorted, de-duplicated
// slice.
func splitSet(raw string) []string {
	parts := strings.Fields(raw)
	slices.Sort(parts)
	return slices.Compact(parts)
}

// filterPrompts keeps only the prompt values the endpoint acts on.
func filterPrompts(raw string) []string {
	var out []string
	for _, p := range strings.Fields(raw) {
		if _, ok := allowedPrompts[p]; ok && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

func subset(sub, super []string) bool {
	for _, s := range sub {
		if !slices.Contains(super, s) {
			return false
		}
	}
	return true
}

func intersect(a, b []string) []string {
	out := make([]string, 0, len(a))
	for _, s := range a {
		if slices.Contains(b, s) {
			out = append(out, s)
		}
	}
	return out
}
