// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

// Package storage provides the persistence interfaces and implementations
// for providers, applications, authorization codes and access tokens.
package storage

import (
	"context"
	"errors"

	"github.com/lanternid/lantern/pkg/oauth"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the persistence surface the authorization endpoint needs.
//
// Code and token creation are plain inserts; the only read-modify-write is
// UpdateProviderRedirectURIs (redirect URI auto-provisioning), which is
// best-effort and tolerates concurrent racers writing the same value.
type Store interface {
	// ProviderByClientID returns the provider registered under clientID,
	// or ErrNotFound.
	ProviderByClientID(ctx context.Context, clientID string) (*oauth.Provider, error)

	// AddProvider registers a provider.
	AddProvider(ctx context.Context, provider *oauth.Provider) error

	// UpdateProviderRedirectURIs replaces a provider's redirect URI
	// allow-list.
	UpdateProviderRedirectURIs(ctx context.Context, clientID string, uris []oauth.RedirectURI) error

	// ApplicationByClientID returns the application owning the provider
	// registered under clientID, or ErrNotFound.
	ApplicationByClientID(ctx context.Context, clientID string) (*oauth.Application, error)

	// AddApplication registers an application.
	AddApplication(ctx context.Context, app *oauth.Application) error

	// StoreAuthorizationCode persists a freshly minted authorization code.
	// The code must be durable before the response redirect is emitted.
	StoreAuthorizationCode(ctx context.Context, code *oauth.AuthorizationCode) error

	// AuthorizationCodeByCode looks up a code by its value, or ErrNotFound.
	AuthorizationCodeByCode(ctx context.Context, code string) (*oauth.AuthorizationCode, error)

	// StoreAccessToken persists an access token minted by the implicit or
	// hybrid grant.
	StoreAccessToken(ctx context.Context, token *oauth.AccessToken) error

	// AccessTokenByToken looks up an access token by its value, or
	// ErrNotFound.
	AccessTokenByToken(ctx context.Context, token string) (*oauth.AccessToken, error)

	// Close releases the store's resources.
	Close() error
}
