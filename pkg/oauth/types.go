// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/lanternid/lantern/pkg/logger"
)

// ResponseType is the literal response_type value of an authorization
// request. The token order is significant; combinations outside this set are
// rejected with unsupported_response_type.
type ResponseType string

// Supported response_type values.
const (
	ResponseTypeCode             ResponseType = "code"
	ResponseTypeIDToken          ResponseType = "id_token"
	ResponseTypeIDTokenToken     ResponseType = "id_token token"
	ResponseTypeCodeToken        ResponseType = "code token"
	ResponseTypeCodeIDToken      ResponseType = "code id_token"
	ResponseTypeCodeIDTokenToken ResponseType = "code id_token token"
)

// IncludesCode reports whether the response includes an authorization code.
func (t ResponseType) IncludesCode() bool {
	switch t {
	case ResponseTypeCode, ResponseTypeCodeToken, ResponseTypeCodeIDToken, ResponseTypeCodeIDTokenToken:
		return true
	}
	return false
}

// IncludesToken reports whether the response includes an access token.
func (t ResponseType) IncludesToken() bool {
	switch t {
	case ResponseTypeIDTokenToken, ResponseTypeCodeToken, ResponseTypeCodeIDTokenToken:
		return true
	}
	return false
}

// IncludesIDToken reports whether the response includes an ID token.
func (t ResponseType) IncludesIDToken() bool {
	switch t {
	case ResponseTypeIDToken, ResponseTypeIDTokenToken, ResponseTypeCodeIDToken, ResponseTypeCodeIDTokenToken:
		return true
	}
	return false
}

// ResponseMode determines how response parameters are delivered to the
// relying party.
type ResponseMode string

// Supported response modes.
const (
	ResponseModeQuery    ResponseMode = "query"
	ResponseModeFragment ResponseMode = "fragment"
	ResponseModeFormPost ResponseMode = "form_post"
)

func validResponseMode(m ResponseMode) bool {
	switch m {
	case ResponseModeQuery, ResponseModeFragment, ResponseModeFormPost:
		return true
	}
	return false
}

// GrantType is derived from the response_type and selects the authorization
// grant used to fulfil the request.
type GrantType string

// Grant types.
const (
	GrantTypeAuthorizationCode GrantType = "authorization_code"
	GrantTypeImplicit          GrantType = "implicit"
	GrantTypeHybrid            GrantType = "hybrid"
)

// MatchingMode selects how a redirect URI allow-list entry is compared.
type MatchingMode string

// Redirect URI matching modes.
const (
	MatchStrict MatchingMode = "strict"
	MatchRegex  MatchingMode = "regex"
)

// RedirectURI is one entry of a provider's redirect URI allow-list.
type RedirectURI struct {
	MatchingMode MatchingMode `json:"matching_mode" yaml:"matching_mode"`
	URL          string       `json:"url" yaml:"url"`
}

// MatchRedirectURI reports whether uri is permitted by the allow-list.
// Strict entries compare byte-exact; regex entries must match the full URI.
// Malformed regex entries are logged and skipped, never fatal.
func MatchRedirectURI(uri string, allowed []RedirectURI) bool {
	for _, entry := range allowed {
		switch entry.MatchingMode {
		case MatchStrict:
			if uri == entry.URL {
				return true
			}
		case MatchRegex:
			re, err := regexp.Compile("^(?:" + entry.URL + ")$")
			if err != nil {
				logger.Warnw("failed to parse redirect uri regular expression",
					"url", entry.URL,
					"error", err.Error(),
				)
				continue
			}
			if re.MatchString(uri) {
				return true
			}
		}
	}
	return false
}

// forbiddenScheme reports whether the parsed scheme of uri is one of the
// schemes that must never be redirected to.
func forbiddenScheme(uri string) bool {
	parsed, err := url.Parse(uri)
	if err != nil {
		return false
	}
	_, forbidden := forbiddenURISchemes[strings.ToLower(parsed.Scheme)]
	return forbidden
}
