// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testClientID    = "test-client"
	testRedirectURI = "https://app.example.com/callback"
)

// fakeResolver is an in-memory ProviderResolver for parser tests.
type fakeResolver struct {
	providers map[string]*Provider
	updated   map[string][]RedirectURI
}

func newFakeResolver(providers ...*Provider) *fakeResolver {
	r := &fakeResolver{
		providers: make(map[string]*Provider),
		updated:   make(map[string][]RedirectURI),
	}
	for _, p := range providers {
		r.providers[p.ClientID] = p
	}
	return r
}

func (r *fakeResolver) ProviderByClientID(_ context.Context, clientID string) (*Provider, error) {
	p, ok := r.providers[clientID]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

func (r *fakeResolver) UpdateProviderRedirectURIs(_ context.Context, clientID string, uris []RedirectURI) error {
	r.updated[clientID] = uris
	return nil
}

func testProvider() *Provider {
	return &Provider{
		ClientID: testClientID,
		Name:     "Test Provider",
		RedirectURIs: []RedirectURI{
			{MatchingMode: MatchStrict, URL: testRedirectURI},
		},
		AuthorizationFlow: "default-authorization-flow",
		ScopeMappings: []ScopeMapping{
			{ScopeName: "openid", Description: "Know who you are"},
			{ScopeName: "email", Description: "See your email address"},
			{ScopeName: "offline_access", Description: "Keep access"},
		},
	}
}

func authorizeRequest(values url.Values) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/application/o/authorize/?"+values.Encode(), nil)
}

func baseValues() url.Values {
	return url.Values{
		"client_id":     {testClientID},
		"redirect_uri":  {testRedirectURI},
		"response_type": {"code"},
		"scope":         {"openid email"},
		"state":         {"test-state"},
	}
}

func TestParseAuthorizationRequest_CodeGrant(t *testing.T) {
	t.Parallel()
	resolver := newFakeResolver(testProvider())

	params, err := ParseAuthorizationRequest(authorizeRequest(baseValues()), resolver, false)
	require.NoError(t, err)

	assert.Equal(t, GrantTypeAuthorizationCode, params.GrantType)
	assert.Equal(t, ResponseModeQuery, params.ResponseMode)
	assert.Equal(t, []string{"email", "openid"}, params.Scope)
	assert.Equal(t, "test-state", params.State)
	require.NotNil(t, params.Provider())
	assert.Equal(t, testClientID, params.Provider().ClientID)
}

func TestParseAuthorizationRequest_PostBody(t *testing.T) {
	t.Parallel()
	resolver := newFakeResolver(testProvider())

	req := httptest.NewRequest(http.MethodPost, "/application/o/authorize/",
		strings.NewReader(baseValues().Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	params, err := ParseAuthorizationRequest(req, resolver, false)
	require.NoError(t, err)
	assert.Equal(t, testClientID, params.ClientID)
}

func TestParseAuthorizationRequest_UnknownClient(t *testing.T) {
	t.Parallel()
	resolver := newFakeResolver(testProvider())

	values := baseValues()
	values.Set("client_id", "unknown")

	_, err := ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	var clientErr *ClientIDError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, "unknown", clientErr.ClientID)
}

func TestParseAuthorizationRequest_MissingRedirectURI(t *testing.T) {
	t.Parallel()
	resolver := newFakeResolver(testProvider())

	values := baseValues()
	values.Del("redirect_uri")

	_, err := ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	var redirectErr *RedirectURIError
	require.ErrorAs(t, err, &redirectErr)
	assert.Equal(t, CauseRedirectURIMissing, redirectErr.Cause)
}

func TestParseAuthorizationRequest_UnmatchedRedirectURI(t *testing.T) {
	t.Parallel()
	resolver := newFakeResolver(testProvider())

	values := baseValues()
	values.Set("redirect_uri", "https://evil.example.com/callback")

	_, err := ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	var redirectErr *RedirectURIError
	require.ErrorAs(t, err, &redirectErr)
	assert.Equal(t, CauseRedirectURINoMatch, redirectErr.Cause)
}

func TestParseAuthorizationRequest_ForbiddenScheme(t *testing.T) {
	t.Parallel()
	provider := testProvider()
	provider.RedirectURIs = []RedirectURI{
		{MatchingMode: MatchRegex, URL: ".*"},
	}
	resolver := newFakeResolver(provider)

	values := baseValues()
	values.Set("redirect_uri", "javascript:alert(1)")

	// Even an allow-list matching everything must not allow script schemes.
	_, err := ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	var redirectErr *RedirectURIError
	require.ErrorAs(t, err, &redirectErr)
	assert.Equal(t, CauseRedirectURIForbiddenScheme, redirectErr.Cause)
}

func TestParseAuthorizationRequest_AutoProvisionRedirectURI(t *testing.T) {
	t.Parallel()
	provider := testProvider()
	provider.RedirectURIs = nil
	resolver := newFakeResolver(provider)

	params, err := ParseAuthorizationRequest(authorizeRequest(baseValues()), resolver, false)
	require.NoError(t, err)

	assert.Equal(t, testRedirectURI, params.RedirectURI)
	require.Len(t, resolver.updated[testClientID], 1)
	assert.Equal(t, testRedirectURI, resolver.updated[testClientID][0].URL)
	assert.Equal(t, MatchStrict, resolver.updated[testClientID][0].MatchingMode)
}

func TestParseAuthorizationRequest_GrantTypeMapping(t *testing.T) {
	t.Parallel()
	cases := []struct {
		responseType string
		grantType    GrantType
		responseMode ResponseMode
	}{
		{"code", GrantTypeAuthorizationCode, ResponseModeQuery},
		{"id_token", GrantTypeImplicit, ResponseModeFragment},
		{"id_token token", GrantTypeImplicit, ResponseModeFragment},
		{"code token", GrantTypeHybrid, ResponseModeFragment},
		{"code id_token", GrantTypeHybrid, ResponseModeFragment},
		{"code id_token token", GrantTypeHybrid, ResponseModeFragment},
	}
	for _, tc := range cases {
		t.Run(tc.responseType, func(t *testing.T) {
			t.Parallel()
			resolver := newFakeResolver(testProvider())

			values := baseValues()
			values.Set("response_type", tc.responseType)
			values.Set("nonce", "test-nonce")

			params, err := ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
			require.NoError(t, err)
			assert.Equal(t, tc.grantType, params.GrantType)
			assert.Equal(t, tc.responseMode, params.ResponseMode)
		})
	}
}

func TestParseAuthorizationRequest_UnsupportedResponseType(t *testing.T) {
	t.Parallel()
	resolver := newFakeResolver(testProvider())

	for _, responseType := range []string{"token", "token id_token", "id_token code", "none"} {
		values := baseValues()
		values.Set("response_type", responseType)

		_, err := ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
		var authErr *AuthorizeError
		require.ErrorAs(t, err, &authErr, "response_type=%s", responseType)
		assert.Equal(t, "unsupported_response_type", authErr.ErrorCode)
		assert.Equal(t, testRedirectURI, authErr.RedirectURI)
	}
}

func TestParseAuthorizationRequest_ExplicitResponseMode(t *testing.T) {
	t.Parallel()
	resolver := newFakeResolver(testProvider())

	values := baseValues()
	values.Set("response_mode", "form_post")

	params, err := ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	require.NoError(t, err)
	assert.Equal(t, ResponseModeFormPost, params.ResponseMode)
}

func TestParseAuthorizationRequest_UnknownResponseModeRewritten(t *testing.T) {
	t.Parallel()
	resolver := newFakeResolver(testProvider())

	values := baseValues()
	values.Set("response_mode", "bogus")

	params, err := ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	require.NoError(t, err)
	assert.Equal(t, ResponseModeQuery, params.ResponseMode)

	values.Set("response_type", "id_token")
	values.Set("nonce", "test-nonce")
	params, err = ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	require.NoError(t, err)
	assert.Equal(t, ResponseModeFragment, params.ResponseMode)
}

func TestParseAuthorizationRequest_EmptyScopeDefaultsToConfigured(t *testing.T) {
	t.Parallel()
	resolver := newFakeResolver(testProvider())

	values := baseValues()
	values.Del("scope")

	params, err := ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "offline_access", "openid"}, params.Scope)
}

func TestParseAuthorizationRequest_UnknownScopesReducedToOverlap(t *testing.T) {
	t.Parallel()
	resolver := newFakeResolver(testProvider())

	values := baseValues()
	values.Set("scope", "openid email unknown-scope")

	params, err := ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "openid"}, params.Scope)
}

func TestParseAuthorizationRequest_GithubCompatScopesSurvive(t *testing.T) {
	t.Parallel()
	resolver := newFakeResolver(testProvider())

	values := baseValues()
	values.Set("scope", "read:user user:email")

	// On the compat route, the pseudo-scopes pass through unconfigured.
	params, err := ParseAuthorizationRequest(authorizeRequest(values), resolver, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"read:user", "user:email"}, params.Scope)

	// On the regular route they are stripped like any unknown scope.
	params, err = ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	require.NoError(t, err)
	assert.Empty(t, params.Scope)
}

func TestParseAuthorizationRequest_OpenIDScopeRequired(t *testing.T) {
	t.Parallel()
	resolver := newFakeResolver(testProvider())

	for _, responseType := range []string{"id_token", "id_token token", "code id_token"} {
		values := baseValues()
		values.Set("response_type", responseType)
		values.Set("scope", "email")
		values.Set("nonce", "test-nonce")

		_, err := ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
		var authErr *AuthorizeError
		require.ErrorAs(t, err, &authErr, "response_type=%s", responseType)
		assert.Equal(t, "invalid_scope", authErr.ErrorCode)
		assert.Equal(t, CauseScopeOpenIDMissing, authErr.Cause)
	}
}

func TestParseAuthorizationRequest_OfflineAccessDroppedWithoutCode(t *testing.T) {
	t.Parallel()
	resolver := newFakeResolver(testProvider())

	values := baseValues()
	values.Set("response_type", "id_token")
	values.Set("scope", "openid offline_access")
	values.Set("nonce", "test-nonce")

	params, err := ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	require.NoError(t, err)
	assert.NotContains(t, params.Scope, ScopeOfflineAccess)

	// Code-bearing response types keep the scope.
	values.Set("response_type", "code")
	params, err = ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	require.NoError(t, err)
	assert.Contains(t, params.Scope, ScopeOfflineAccess)
}

func TestParseAuthorizationRequest_NonceRequiredForIDToken(t *testing.T) {
	t.Parallel()
	resolver := newFakeResolver(testProvider())

	values := baseValues()
	values.Set("response_type", "id_token")
	values.Set("scope", "openid")

	_, err := ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	var authErr *AuthorizeError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "invalid_request", authErr.ErrorCode)
	assert.Equal(t, CauseNonceMissing, authErr.Cause)

	// The code grant does not require a nonce.
	values.Set("response_type", "code")
	_, err = ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	require.NoError(t, err)
}

func TestParseAuthorizationRequest_RequestParameterRejected(t *testing.T) {
	t.Parallel()
	resolver := newFakeResolver(testProvider())

	values := baseValues()
	values.Set("request", "eyJhbGciOiJub25lIn0.e30.")

	_, err := ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	var authErr *AuthorizeError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "request_not_supported", authErr.ErrorCode)
}

func TestParseAuthorizationRequest_PKCE(t *testing.T) {
	t.Parallel()
	resolver := newFakeResolver(testProvider())

	values := baseValues()
	values.Set("code_challenge", "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM")
	values.Set("code_challenge_method", "S256")

	params, err := ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	require.NoError(t, err)
	assert.Equal(t, "S256", params.CodeChallengeMethod)

	// Absent method defaults to plain.
	values.Del("code_challenge_method")
	params, err = ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	require.NoError(t, err)
	assert.Equal(t, PKCEMethodPlain, params.CodeChallengeMethod)

	// Unsupported methods are rejected.
	values.Set("code_challenge_method", "S512")
	_, err = ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	var authErr *AuthorizeError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "invalid_request", authErr.ErrorCode)
	assert.Contains(t, authErr.Description, "S512")
}

func TestParseAuthorizationRequest_PromptFiltering(t *testing.T) {
	t.Parallel()
	resolver := newFakeResolver(testProvider())

	values := baseValues()
	values.Set("prompt", "consent select_account none")

	params, err := ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"consent", "none"}, params.Prompt)
	assert.True(t, params.HasPrompt(PromptNone))
	assert.False(t, params.HasPrompt(PromptLogin))
}

func TestParseAuthorizationRequest_MaxAge(t *testing.T) {
	t.Parallel()
	resolver := newFakeResolver(testProvider())

	values := baseValues()
	values.Set("max_age", "600")

	params, err := ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	require.NoError(t, err)
	require.NotNil(t, params.MaxAge)
	assert.Equal(t, 600, *params.MaxAge)

	// Unparsable values are ignored, not fatal.
	values.Set("max_age", "not-a-number")
	params, err = ParseAuthorizationRequest(authorizeRequest(values), resolver, false)
	require.NoError(t, err)
	assert.Nil(t, params.MaxAge)
}
