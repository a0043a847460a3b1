// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanternid/lantern/pkg/oauth"
	"github.com/lanternid/lantern/pkg/storage"
)

func sqliteTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_ProviderRoundTrip(t *testing.T) {
	t.Parallel()
	store := sqliteTestStore(t)
	ctx := context.Background()

	provider := &oauth.Provider{
		ClientID: "client-1",
		Name:     "Test Provider",
		RedirectURIs: []oauth.RedirectURI{
			{MatchingMode: oauth.MatchStrict, URL: "https://app.example.com/cb"},
			{MatchingMode: oauth.MatchRegex, URL: `https://.*\.example\.com/cb`},
		},
		AuthorizationFlow:   "default-authorization-flow",
		AccessCodeValidity:  "1m",
		AccessTokenValidity: "5m",
		SigningKeyID:        "tenant-key",
		ScopeMappings: []oauth.ScopeMapping{
			{ScopeName: "openid", Description: "Know who you are"},
		},
	}
	require.NoError(t, store.AddProvider(ctx, provider))

	got, err := store.ProviderByClientID(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, provider.Name, got.Name)
	assert.Equal(t, provider.RedirectURIs, got.RedirectURIs)
	assert.Equal(t, provider.ScopeMappings, got.ScopeMappings)
	assert.Equal(t, "tenant-key", got.SigningKeyID)

	_, err = store.ProviderByClientID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSQLiteStore_AddProviderUpserts(t *testing.T) {
	t.Parallel()
	store := sqliteTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddProvider(ctx, &oauth.Provider{ClientID: "client-1", Name: "old"}))
	require.NoError(t, store.AddProvider(ctx, &oauth.Provider{ClientID: "client-1", Name: "new"}))

	got, err := store.ProviderByClientID(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)
}

func TestSQLiteStore_UpdateProviderRedirectURIs(t *testing.T) {
	t.Parallel()
	store := sqliteTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddProvider(ctx, &oauth.Provider{ClientID: "client-1"}))

	uris := []oauth.RedirectURI{{MatchingMode: oauth.MatchStrict, URL: "https://a/cb"}}
	require.NoError(t, store.UpdateProviderRedirectURIs(ctx, "client-1", uris))

	got, err := store.ProviderByClientID(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, uris, got.RedirectURIs)

	err = store.UpdateProviderRedirectURIs(ctx, "missing", uris)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSQLiteStore_Applications(t *testing.T) {
	t.Parallel()
	store := sqliteTestStore(t)
	ctx := context.Background()

	app := &oauth.Application{Name: "Test App", Slug: "test-app", ClientID: "client-1"}
	require.NoError(t, store.AddApplication(ctx, app))

	got, err := store.ApplicationByClientID(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, "Test App", got.Name)
	assert.Equal(t, "test-app", got.Slug)

	_, err = store.ApplicationByClientID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSQLiteStore_AuthorizationCodes(t *testing.T) {
	t.Parallel()
	store := sqliteTestStore(t)
	ctx := context.Background()

	authTime := time.Now().UTC().Truncate(time.Millisecond)
	code := &oauth.AuthorizationCode{
		Code:                oauth.NewAuthorizationCode(),
		ClientID:            "client-1",
		UserID:              "user-1",
		AuthTime:            authTime,
		Expires:             authTime.Add(time.Minute),
		Scope:               []string{"openid", "email"},
		Nonce:               "test-nonce",
		SessionID:           "session-1",
		CodeChallenge:       "challenge",
		CodeChallengeMethod: "S256",
	}
	require.NoError(t, store.StoreAuthorizationCode(ctx, code))

	got, err := store.AuthorizationCodeByCode(ctx, code.Code)
	require.NoError(t, err)
	assert.Equal(t, code.UserID, got.UserID)
	assert.Equal(t, code.Scope, got.Scope)
	assert.Equal(t, code.Nonce, got.Nonce)
	assert.Equal(t, "S256", got.CodeChallengeMethod)
	assert.True(t, code.AuthTime.Equal(got.AuthTime))
	assert.True(t, code.Expires.Equal(got.Expires))

	_, err = store.AuthorizationCodeByCode(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSQLiteStore_AccessTokens(t *testing.T) {
	t.Parallel()
	store := sqliteTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	token := &oauth.AccessToken{
		Token:     oauth.NewOpaqueToken(),
		ClientID:  "client-1",
		UserID:    "user-1",
		Scope:     []string{"openid"},
		Expires:   now.Add(5 * time.Minute),
		AuthTime:  now,
		SessionID: "session-1",
		IDToken:   "serialized-id-token",
	}
	require.NoError(t, store.StoreAccessToken(ctx, token))

	got, err := store.AccessTokenByToken(ctx, token.Token)
	require.NoError(t, err)
	assert.Equal(t, token.UserID, got.UserID)
	assert.Equal(t, token.IDToken, got.IDToken)
	assert.True(t, token.Expires.Equal(got.Expires))

	_, err = store.AccessTokenByToken(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
