// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlite provides the SQLite-backed Store implementation with
// embedded schema migrations.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // database/sql driver

	"github.com/lanternid/lantern/pkg/oauth"
	"github.com/lanternid/lantern/pkg/storage"
)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens (creating if necessary) the database at path and applies any
// pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY on concurrent writers.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ProviderByClientID implements storage.Store.
func (s *Store) ProviderByClientID(ctx context.Context, clientID string) (*oauth.Provider, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT client_id, name, redirect_uris, authorization_flow,
		       access_code_validity, access_token_validity, signing_key, scope_mappings
		FROM providers WHERE client_id = ?`, clientID)

	var p oauth.Provider
	var redirectURIs, scopeMappings []byte
	err := row.Scan(&p.ClientID, &p.Name, &redirectURIs, &p.AuthorizationFlow,
		&p.AccessCodeValidity, &p.AccessTokenValidity, &p.SigningKeyID, &scopeMappings)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("provider %q: %w", clientID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up provider: %w", err)
	}
	if err := json.Unmarshal(redirectURIs, &p.RedirectURIs); err != nil {
		return nil, fmt.Errorf("decoding redirect_uris: %w", err)
	}
	if err := json.Unmarshal(scopeMappings, &p.ScopeMappings); err != nil {
		return nil, fmt.Errorf("decoding scope_mappings: %w", err)
	}
	return &p, nil
}

// AddProvider implements storage.Store.
func (s *Store) AddProvider(ctx context.Context, provider *oauth.Provider) error {
	redirectURIs, err := json.Marshal(provider.RedirectURIs)
	if err != nil {
		return fmt.Errorf("encoding redirect_uris: %w", err)
	}
	scopeMappings, err := json.Marshal(provider.ScopeMappings)
	if err != nil {
		return fmt.Errorf("encoding scope_mappings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO providers (
			client_id, name, redirect_uris, authorization_flow,
			access_code_validity, access_token_validity, signing_key, scope_mappings
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (client_id) DO UPDATE SET
			name = excluded.name,
			redirect_uris = excluded.redirect_uris,
			authorization_flow = excluded.authorization_flow,
			access_code_validity = excluded.access_code_validity,
			access_token_validity = excluded.access_token_validity,
			signing_key = excluded.signing_key,
			scope_mappings = excluded.scope_mappings`,
		provider.ClientID, provider.Name, string(redirectURIs), provider.AuthorizationFlow,
		provider.AccessCodeValidity, provider.AccessTokenValidity, provider.SigningKeyID,
		string(scopeMappings))
	if err != nil {
		return fmt.Errorf("inserting provider: %w", err)
	}
	return nil
}

// UpdateProviderRedirectURIs implements storage.Store. The update is a
// single statement, so concurrent racers writing the same auto-provisioned
// value converge on identical rows.
func (s *Store) UpdateProviderRedirectURIs(
	ctx context.Context, clientID string, uris []oauth.RedirectURI,
) error {
	encoded, err := json.Marshal(uris)
	if err != nil {
		return fmt.Errorf("encoding redirect_uris: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE providers SET redirect_uris = ? WHERE client_id = ?`,
		string(encoded), clientID)
	if err != nil {
		return fmt.Errorf("updating redirect_uris: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating redirect_uris: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("provider %q: %w", clientID, storage.ErrNotFound)
	}
	return nil
}

// ApplicationByClientID implements storage.Store.
func (s *Store) ApplicationByClientID(ctx context.Context, clientID string) (*oauth.Application, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT slug, name, client_id FROM applications WHERE client_id = ?`, clientID)
	var a oauth.Application
	err := row.Scan(&a.Slug, &a.Name, &a.ClientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("application for provider %q: %w", clientID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up application: %w", err)
	}
	return &a, nil
}

// AddApplication implements storage.Store.
func (s *Store) AddApplication(ctx context.Context, app *oauth.Application) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (slug, name, client_id) VALUES (?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET
			name = excluded.name,
			client_id = excluded.client_id`,
		app.Slug, app.Name, app.ClientID)
	if err != nil {
		return fmt.Errorf("inserting application: %w", err)
	}
	return nil
}

// StoreAuthorizationCode implements storage.Store.
func (s *Store) StoreAuthorizationCode(ctx context.Context, code *oauth.AuthorizationCode) error {
	scope, err := json.Marshal(code.Scope)
	if err != nil {
		return fmt.Errorf("encoding scope: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO authorization_codes (
			code, client_id, user_id, auth_time, expires, scope,
			nonce, session_id, code_challenge, code_challenge_method
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		code.Code, code.ClientID, code.UserID,
		code.AuthTime.UTC().Format(time.RFC3339Nano),
		code.Expires.UTC().Format(time.RFC3339Nano),
		string(scope), code.Nonce, code.SessionID,
		code.CodeChallenge, code.CodeChallengeMethod)
	if err != nil {
		return fmt.Errorf("inserting authorization code: %w", err)
	}
	return nil
}

// AuthorizationCodeByCode implements storage.Store.
func (s *Store) AuthorizationCodeByCode(ctx context.Context, code string) (*oauth.AuthorizationCode, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT code, client_id, user_id, auth_time, expires, scope,
		       nonce, session_id, code_challenge, code_challenge_method
		FROM authorization_codes WHERE code = ?`, code)

	var c oauth.AuthorizationCode
	var authTime, expires string
	var scope []byte
	err := row.Scan(&c.Code, &c.ClientID, &c.UserID, &authTime, &expires, &scope,
		&c.Nonce, &c.SessionID, &c.CodeChallenge, &c.CodeChallengeMethod)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("authorization code: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up authorization code: %w", err)
	}
	if c.AuthTime, err = time.Parse(time.RFC3339Nano, authTime); err != nil {
		return nil, fmt.Errorf("decoding auth_time: %w", err)
	}
	if c.Expires, err = time.Parse(time.RFC3339Nano, expires); err != nil {
		return nil, fmt.Errorf("decoding expires: %w", err)
	}
	if err := json.Unmarshal(scope, &c.Scope); err != nil {
		return nil, fmt.Errorf("decoding scope: %w", err)
	}
	return &c, nil
}

// StoreAccessToken implements storage.Store.
func (s *Store) StoreAccessToken(ctx context.Context, token *oauth.AccessToken) error {
	scope, err := json.Marshal(token.Scope)
	if err != nil {
		return fmt.Errorf("encoding scope: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO access_tokens (
			token, client_id, user_id, scope, expires, auth_time, session_id, id_token
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		token.Token, token.ClientID, token.UserID, string(scope),
		token.Expires.UTC().Format(time.RFC3339Nano),
		token.AuthTime.UTC().Format(time.RFC3339Nano),
		token.SessionID, token.IDToken)
	if err != nil {
		return fmt.Errorf("inserting access token: %w", err)
	}
	return nil
}

// AccessTokenByToken implements storage.Store.
func (s *Store) AccessTokenByToken(ctx context.Context, token string) (*oauth.AccessToken, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token, client_id, user_id, scope, expires, auth_time, session_id, id_token
		FROM access_tokens WHERE token = ?`, token)

	var t oauth.AccessToken
	var expires, authTime string
	var scope []byte
	err := row.Scan(&t.Token, &t.ClientID, &t.UserID, &scope, &expires, &authTime,
		&t.SessionID, &t.IDToken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("access token: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up access token: %w", err)
	}
	if t.Expires, err = time.Parse(time.RFC3339Nano, expires); err != nil {
		return nil, fmt.Errorf("decoding expires: %w", err)
	}
	if t.AuthTime, err = time.Parse(time.RFC3339Nano, authTime); err != nil {
		return nil, fmt.Errorf("decoding auth_time: %w", err)
	}
	if err := json.Unmarshal(scope, &t.Scope); err != nil {
		return nil, fmt.Errorf("decoding scope: %w", err)
	}
	return &t, nil
}
