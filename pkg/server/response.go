// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/lanternid/lantern/pkg/oauth"
	"github.com/lanternid/lantern/pkg/session"
)

// buildResponseFields assembles the wire parameters of a successful
// authorization response. The authorization code is persisted before the
// fields are returned, so the relying party can never present a code the
// token endpoint doesn't know.
func (s *Server) buildResponseFields(
	ctx context.Context, sess *session.Session, params *oauth.AuthorizationParams,
) (url.Values, error) {
	provider := params.Provider()
	now := time.Now()

	var code *oauth.AuthorizationCode
	if params.GrantType == oauth.GrantTypeAuthorizationCode ||
		params.GrantType == oauth.GrantTypeHybrid {
		code = &oauth.AuthorizationCode{
			Code:                oauth.NewAuthorizationCode(),
			ClientID:            params.ClientID,
			UserID:              sess.UserID,
			AuthTime:            authTime(sess, now),
			Expires:             now.Add(provider.CodeValidity()),
			Scope:               params.Scope,
			Nonce:               params.Nonce,
			SessionID:           sess.ID,
			CodeChallenge:       params.CodeChallenge,
			CodeChallengeMethod: params.CodeChallengeMethod,
		}
		if err := s.store.StoreAuthorizationCode(ctx, code); err != nil {
			return nil, fmt.Errorf("failed to persist authorization code: %w", err)
		}
	}

	// Query placement only ever carries a code; tokens must not end up in
	// server logs via query strings.
	if params.ResponseMode == oauth.ResponseModeQuery {
		if code == nil {
			return nil, fmt.Errorf("response mode query requires an authorization code")
		}
		return url.Values{
			"code":  {code.Code},
			"state": {params.State},
		}, nil
	}
	if params.GrantType == oauth.GrantTypeAuthorizationCode {
		return url.Values{
			"code":  {code.Code},
			"state": {params.State},
		}, nil
	}
	return s.buildImplicitFields(ctx, sess, params, code, now)
}

// buildImplicitFields creates the implicit and hybrid grant response: an
// access token, an ID token carrying the hash claims matching the response
// shape, and the code for hybrid responses.
func (s *Server) buildImplicitFields(
	ctx context.Context, sess *session.Session,
	params *oauth.AuthorizationParams, code *oauth.AuthorizationCode, now time.Time,
) (url.Values, error) {
	provider := params.Provider()
	signingKey, err := s.keys.SigningKey(provider.SigningKeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve signing key: %w", err)
	}

	expires := now.Add(provider.TokenValidity())
	token := &oauth.AccessToken{
		Token:     oauth.NewOpaqueToken(),
		ClientID:  params.ClientID,
		UserID:    sess.UserID,
		Scope:     params.Scope,
		Expires:   expires,
		AuthTime:  authTime(sess, now),
		SessionID: sess.ID,
	}

	idToken := oauth.NewIDToken(s.cfg.Issuer, sess.UserID, provider, expires, token.AuthTime, now)
	idToken.Nonce = params.Nonce
	if params.ResponseType == oauth.ResponseTypeCodeIDToken ||
		params.ResponseType == oauth.ResponseTypeCodeIDTokenToken {
		idToken.CHash, err = oauth.HashClaim(signingKey.Algorithm, code.Code)
		if err != nil {
			return nil, fmt.Errorf("failed to compute c_hash: %w", err)
		}
	}

	fields := url.Values{}
	if params.ResponseType.IncludesToken() {
		fields.Set("access_token", token.Token)
		idToken.AtHash, err = oauth.HashClaim(signingKey.Algorithm, token.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to compute at_hash: %w", err)
		}
	}

	signed, err := idToken.Encode(signingKey.Algorithm, signingKey.KeyID, signingKey.Key)
	if err != nil {
		return nil, err
	}
	token.IDToken = signed
	if params.ResponseType.IncludesIDToken() {
		fields.Set("id_token", signed)
	}

	if err := s.store.StoreAccessToken(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to persist access token: %w", err)
	}

	if params.GrantType == oauth.GrantTypeHybrid {
		fields.Set("code", code.Code)
	}
	fields.Set("token_type", oauth.TokenType)
	fields.Set("expires_in", strconv.Itoa(int(provider.TokenValidity().Seconds())))
	fields.Set("state", params.State)
	return fields, nil
}

// authTime is the login event time, or now when the session carries none.
func authTime(sess *session.Session, now time.Time) time.Time {
	if sess.LoginTime.IsZero() {
		return now
	}
	return sess.LoginTime
}

// responseURI places the response fields on the redirect URI via query or
// fragment placement. Query placement merges with existing query parameters;
// fragment placement appends to an existing fragment.
func responseURI(params *oauth.AuthorizationParams, fields url.Values) (string, error) {
	u, err := url.Parse(params.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect uri: %w", err)
	}
	switch params.ResponseMode {
	case oauth.ResponseModeQuery:
		query := u.Query()
		for key, values := range fields {
			query[key] = values
		}
		u.RawQuery = query.Encode()
	case oauth.ResponseModeFragment:
		u.Fragment = u.Fragment + fields.Encode()
	default:
		return "", fmt.Errorf("response mode %q is not URL-based", params.ResponseMode)
	}
	return u.String(), nil
}
