// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeError_CreateURI_Query(t *testing.T) {
	t.Parallel()
	authErr := NewAuthorizeError("https://app.example.com/callback", "access_denied",
		GrantTypeAuthorizationCode, "test-state")

	uri := authErr.CreateURI()
	parsed, err := url.Parse(uri)
	require.NoError(t, err)

	query := parsed.Query()
	assert.Equal(t, "access_denied", query.Get("error"))
	assert.Equal(t, "test-state", query.Get("state"))
	assert.NotEmpty(t, query.Get("error_description"))
	assert.Empty(t, parsed.Fragment)
}

func TestAuthorizeError_CreateURI_Fragment(t *testing.T) {
	t.Parallel()
	authErr := NewAuthorizeError("https://app.example.com/callback", "login_required",
		GrantTypeImplicit, "test-state")

	uri := authErr.CreateURI()
	parsed, err := url.Parse(uri)
	require.NoError(t, err)
	require.NotEmpty(t, parsed.Fragment)

	fragment, err := url.ParseQuery(parsed.Fragment)
	require.NoError(t, err)
	assert.Equal(t, "login_required", fragment.Get("error"))
	assert.Equal(t, "test-state", fragment.Get("state"))
}

func TestAuthorizeError_CreateURI_AppendsToExistingFragment(t *testing.T) {
	t.Parallel()
	authErr := NewAuthorizeError("https://app.example.com/callback#existing",
		"access_denied", GrantTypeHybrid, "")

	uri := authErr.CreateURI()
	parsed, err := url.Parse(uri)
	require.NoError(t, err)
	assert.Contains(t, parsed.Fragment, "existing")
	assert.Contains(t, parsed.Fragment, "error=access_denied")
}

func TestAuthorizeError_StateAlwaysPresent(t *testing.T) {
	t.Parallel()
	authErr := NewAuthorizeError("https://app.example.com/callback", "access_denied",
		GrantTypeAuthorizationCode, "")

	params := authErr.Params()
	_, ok := params["state"]
	assert.True(t, ok)
	assert.Equal(t, "", params.Get("state"))
}

func TestAuthorizeError_EffectiveResponseMode(t *testing.T) {
	t.Parallel()

	authErr := NewAuthorizeError("https://app.example.com/cb", "access_denied",
		GrantTypeAuthorizationCode, "")
	assert.Equal(t, ResponseModeQuery, authErr.EffectiveResponseMode())

	authErr.GrantType = GrantTypeImplicit
	assert.Equal(t, ResponseModeFragment, authErr.EffectiveResponseMode())

	authErr.GrantType = GrantTypeHybrid
	assert.Equal(t, ResponseModeFragment, authErr.EffectiveResponseMode())

	// An explicitly set mode wins over the grant default.
	authErr = authErr.WithResponseMode(ResponseModeFormPost)
	assert.Equal(t, ResponseModeFormPost, authErr.EffectiveResponseMode())
}

func TestAuthorizeError_DefaultDescriptions(t *testing.T) {
	t.Parallel()

	authErr := NewAuthorizeError("https://app.example.com/cb", "consent_required",
		GrantTypeAuthorizationCode, "")
	assert.Equal(t, errorDescriptions["consent_required"], authErr.Description)

	overridden := authErr.WithDescription("custom message")
	assert.Equal(t, "custom message", overridden.Description)
	assert.Contains(t, overridden.Error(), "custom message")
}

func TestAuthorizeError_CreateURI_UnparsableRedirect(t *testing.T) {
	t.Parallel()
	authErr := NewAuthorizeError("://not-a-uri", "access_denied",
		GrantTypeAuthorizationCode, "")
	assert.Empty(t, authErr.CreateURI())
}
