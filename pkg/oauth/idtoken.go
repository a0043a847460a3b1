// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"crypto"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"hash"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IDToken is the claim set of an OpenID Connect ID token.
//
// c_hash is present iff the response includes both a code and an id_token;
// at_hash iff it includes both an access_token and an id_token. Both depend
// on the serialized code / access token string, so construction is ordered:
// create code, create access token, compute hashes, fill claims, sign.
type IDToken struct {
	Issuer   string `json:"iss"`
	Subject  string `json:"sub"`
	Audience string `json:"aud"`
	Expires  int64  `json:"exp"`
	IssuedAt int64  `json:"iat"`
	AuthTime int64  `json:"auth_time,omitempty"`
	Nonce    string `json:"nonce,omitempty"`
	CHash    string `json:"c_hash,omitempty"`
	AtHash   string `json:"at_hash,omitempty"`
}

// NewIDToken fills the standard claims for a token issued by provider to the
// authenticated user.
func NewIDToken(issuer, subject string, provider *Provider, expires, authTime, now time.Time) *IDToken {
	return &IDToken{
		Issuer:   issuer,
		Subject:  subject,
		Audience: provider.ClientID,
		Expires:  expires.Unix(),
		IssuedAt: now.Unix(),
		AuthTime: authTime.Unix(),
	}
}

// claims converts the ID token into a claim map for signing. Optional claims
// are omitted when empty.
func (t *IDToken) claims() jwt.MapClaims {
	claims := jwt.MapClaims{
		"iss": t.Issuer,
		"sub": t.Subject,
		"aud": t.Audience,
		"exp": t.Expires,
		"iat": t.IssuedAt,
	}
	if t.AuthTime != 0 {
		claims["auth_time"] = t.AuthTime
	}
	if t.Nonce != "" {
		claims["nonce"] = t.Nonce
	}
	if t.CHash != "" {
		claims["c_hash"] = t.CHash
	}
	if t.AtHash != "" {
		claims["at_hash"] = t.AtHash
	}
	return claims
}

// Encode signs the ID token as a compact JWS with the given algorithm, key id
// and private key.
func (t *IDToken) Encode(alg, keyID string, key crypto.PrivateKey) (string, error) {
	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return "", fmt.Errorf("unsupported signing algorithm %q", alg)
	}
	token := jwt.NewWithClaims(method, t.claims())
	if keyID != "" {
		token.Header["kid"] = keyID
	}
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign id_token: %w", err)
	}
	return signed, nil
}

// HashClaim computes the at_hash / c_hash value of an ASCII token string per
// OIDC Core Section 3.1.3.6: the left half of the hash matching the signing
// algorithm's width, base64url encoded without padding.
func HashClaim(alg, value string) (string, error) {
	var h hash.Hash
	switch {
	case strings.HasSuffix(alg, "256"):
		h = sha256.New()
	case strings.HasSuffix(alg, "384"):
		h = sha512.New384()
	case strings.HasSuffix(alg, "512"):
		h = sha512.New()
	default:
		return "", fmt.Errorf("cannot derive hash width from algorithm %q", alg)
	}
	h.Write([]byte(value))
	sum := h.Sum(nil)
	return base64.RawURLEncoding.EncodeToString(sum[:len(sum)/2]), nil
}
