// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchRedirectURI_Strict(t *testing.T) {
	t.Parallel()
	allowed := []RedirectURI{
		{MatchingMode: MatchStrict, URL: "https://app.example.com/callback"},
	}

	assert.True(t, MatchRedirectURI("https://app.example.com/callback", allowed))
	assert.False(t, MatchRedirectURI("https://app.example.com/callback/", allowed))
	assert.False(t, MatchRedirectURI("https://app.example.com/other", allowed))
	assert.False(t, MatchRedirectURI("https://evil.example.com/callback", allowed))
}

func TestMatchRedirectURI_Regex(t *testing.T) {
	t.Parallel()
	allowed := []RedirectURI{
		{MatchingMode: MatchRegex, URL: `https://([a-z]+)\.example\.com/callback`},
	}

	assert.True(t, MatchRedirectURI("https://app.example.com/callback", allowed))
	assert.True(t, MatchRedirectURI("https://other.example.com/callback", allowed))
	// The pattern is anchored, a partial match is not enough.
	assert.False(t, MatchRedirectURI("https://app.example.com/callback/extra", allowed))
	assert.False(t, MatchRedirectURI("prefix-https://app.example.com/callback", allowed))
}

func TestMatchRedirectURI_MalformedRegexSkipped(t *testing.T) {
	t.Parallel()
	allowed := []RedirectURI{
		{MatchingMode: MatchRegex, URL: `https://(unclosed.example.com`},
		{MatchingMode: MatchStrict, URL: "https://app.example.com/callback"},
	}

	// The malformed entry must not prevent later entries from matching.
	assert.True(t, MatchRedirectURI("https://app.example.com/callback", allowed))
	assert.False(t, MatchRedirectURI("https://(unclosed.example.com", allowed))
}

func TestMatchRedirectURI_EmptyAllowList(t *testing.T) {
	t.Parallel()
	assert.False(t, MatchRedirectURI("https://app.example.com/callback", nil))
}

func TestForbiddenScheme(t *testing.T) {
	t.Parallel()

	assert.True(t, forbiddenScheme("javascript:alert(1)"))
	assert.True(t, forbiddenScheme("JavaScript:alert(1)"))
	assert.True(t, forbiddenScheme("data:text/html,x"))
	assert.True(t, forbiddenScheme("vbscript:msgbox"))
	assert.False(t, forbiddenScheme("https://app.example.com/callback"))
	assert.False(t, forbiddenScheme("com.example.app:/oauth"))
}

func TestResponseTypeComponents(t *testing.T) {
	t.Parallel()

	assert.True(t, ResponseTypeCode.IncludesCode())
	assert.False(t, ResponseTypeCode.IncludesToken())
	assert.False(t, ResponseTypeCode.IncludesIDToken())

	assert.False(t, ResponseTypeIDToken.IncludesCode())
	assert.False(t, ResponseTypeIDToken.IncludesToken())
	assert.True(t, ResponseTypeIDToken.IncludesIDToken())

	assert.True(t, ResponseTypeIDTokenToken.IncludesToken())
	assert.True(t, ResponseTypeIDTokenToken.IncludesIDToken())

	assert.True(t, ResponseTypeCodeToken.IncludesCode())
	assert.True(t, ResponseTypeCodeToken.IncludesToken())
	assert.False(t, ResponseTypeCodeToken.IncludesIDToken())

	assert.True(t, ResponseTypeCodeIDTokenToken.IncludesCode())
	assert.True(t, ResponseTypeCodeIDTokenToken.IncludesToken())
	assert.True(t, ResponseTypeCodeIDTokenToken.IncludesIDToken())
}
