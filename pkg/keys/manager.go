// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"crypto"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

// Manager holds the signing keys known to the server, addressable by the
// name providers reference in their signing_key field, and serves the
// combined public JWK set.
type Manager struct {
	keys map[string]*SigningKey
	jwks jwk.Set
}

// NewManager builds a manager from named keys. The empty name is permitted
// and acts as the default key for providers that don't name one.
func NewManager(named map[string]*SigningKey) (*Manager, error) {
	set := jwk.NewSet()
	for _, sk := range named {
		pub, err := publicJWK(sk)
		if err != nil {
			return nil, err
		}
		if err := set.AddKey(pub); err != nil {
			return nil, fmt.Errorf("failed to add key to JWKS: %w", err)
		}
	}
	return &Manager{keys: named, jwks: set}, nil
}

// NewManagerFromFiles loads each named PEM file into a manager.
func NewManagerFromFiles(files map[string]string) (*Manager, error) {
	named := make(map[string]*SigningKey, len(files))
	for name, path := range files {
		signer, err := LoadSigningKey(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load key %q: %w", name, err)
		}
		sk, err := NewSigningKey(signer)
		if err != nil {
			return nil, fmt.Errorf("failed to derive parameters for key %q: %w", name, err)
		}
		named[name] = sk
	}
	return NewManager(named)
}

// NewEphemeralManager generates a single RSA default key. Used when no key
// files are configured (development mode).
func NewEphemeralManager() (*Manager, error) {
	sk, err := GenerateSigningKey()
	if err != nil {
		return nil, err
	}
	return NewManager(map[string]*SigningKey{"": sk})
}

// SigningKey resolves a key by the name a provider references. The empty
// name resolves to the default key.
func (m *Manager) SigningKey(name string) (*SigningKey, error) {
	sk, ok := m.keys[name]
	if !ok {
		return nil, fmt.Errorf("no signing key named %q", name)
	}
	return sk, nil
}

// PublicJWKS returns the public JWK set for the JWKS endpoint.
func (m *Manager) PublicJWKS() jwk.Set {
	return m.jwks
}

// publicJWK converts a signing key's public half into a JWK carrying kid,
// alg and use parameters.
func publicJWK(sk *SigningKey) (jwk.Key, error) {
	key, err := jwk.Import(sk.Key.Public())
	if err != nil {
		return nil, fmt.Errorf("failed to import public key: %w", err)
	}
	if err := key.Set(jwk.KeyIDKey, sk.KeyID); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.AlgorithmKey, sk.Algorithm); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, err
	}
	return key, nil
}

// jwkThumbprint computes the RFC 7638 thumbprint of a public key.
func jwkThumbprint(pub crypto.PublicKey) ([]byte, error) {
	key, err := jwk.Import(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to import public key: %w", err)
	}
	return key.Thumbprint(crypto.SHA256)
}
