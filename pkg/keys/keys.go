// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

// Package keys loads and manages the signing keys providers use for ID
// tokens, and exposes their public halves as a JWK set.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
)

// SigningKey is a private key together with its derived JWT parameters.
type SigningKey struct {
	// KeyID is the RFC 7638 thumbprint of the public key.
	KeyID string
	// Algorithm is the JWS algorithm matching the key type (RS256, ES256, ...).
	Algorithm string
	// Key is the private key used for signing.
	Key crypto.Signer
}

// LoadSigningKey loads a private key from a PEM file. RSA (PKCS1 and PKCS8)
// and ECDSA (SEC1 and PKCS8) formats are supported.
func LoadSigningKey(keyPath string) (crypto.Signer, error) {
	keyPEM, err := os.ReadFile(keyPath) // #nosec G304 - keyPath comes from operator config
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}

	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block from signing key")
	}

	// Try PKCS1 first (RSA only)
	if rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return rsaKey, nil
	}

	// Try EC private key (SEC 1, ASN.1 DER form)
	if ecKey, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return ecKey, nil
	}

	// Try PKCS8 (supports both RSA and EC)
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("signing key does not implement crypto.Signer")
	}

	return signer, nil
}

// DeriveAlgorithm determines the JWS signing algorithm for the given key
// based on its type and parameters.
func DeriveAlgorithm(key crypto.Signer) (string, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return "RS256", nil
	case *ecdsa.PrivateKey:
		return deriveECAlgorithm(k.Curve)
	default:
		return "", fmt.Errorf("unsupported key type: %T", key)
	}
}

func deriveECAlgorithm(curve elliptic.Curve) (string, error) {
	switch curve {
	case elliptic.P256():
		return "ES256", nil
	case elliptic.P384():
		return "ES384", nil
	case elliptic.P521():
		return "ES512", nil
	default:
		return "", fmt.Errorf("unsupported EC curve: %s", curve.Params().Name)
	}
}

// NewSigningKey derives the key ID and algorithm for a private key.
func NewSigningKey(key crypto.Signer) (*SigningKey, error) {
	alg, err := DeriveAlgorithm(key)
	if err != nil {
		return nil, err
	}
	kid, err := deriveKeyID(key)
	if err != nil {
		return nil, err
	}
	return &SigningKey{KeyID: kid, Algorithm: alg, Key: key}, nil
}

// GenerateSigningKey creates an ephemeral RSA signing key. Intended for
// development and tests; production deployments load keys from PEM files.
func GenerateSigningKey() (*SigningKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return NewSigningKey(key)
}

// deriveKeyID computes the RFC 7638 JWK thumbprint of the public key,
// base64url encoded without padding.
func deriveKeyID(key crypto.Signer) (string, error) {
	thumb, err := jwkThumbprint(key.Public())
	if err != nil {
		return "", fmt.Errorf("failed to compute key thumbprint: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(thumb), nil
}
