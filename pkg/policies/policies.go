// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

// Package policies decides whether a user may access an application. The
// real policy evaluation lives outside this service; the interface here is
// the seam it plugs into.
package policies

import (
	"context"

	"github.com/lanternid/lantern/pkg/oauth"
)

// Request is the input to a policy check, enriched with the OAuth request
// context so policies can key on it.
type Request struct {
	UserID      string
	Application *oauth.Application
	Context     map[string]any
}

// NewRequest creates a policy request for the given user and application.
func NewRequest(userID string, app *oauth.Application) *Request {
	return &Request{
		UserID:      userID,
		Application: app,
		Context:     make(map[string]any),
	}
}

// Set adds a context value the engine can evaluate against.
func (r *Request) Set(key string, value any) {
	r.Context[key] = value
}

// Engine evaluates access policies.
type Engine interface {
	// AccessAllowed reports whether the request passes the application's
	// policies.
	AccessAllowed(ctx context.Context, req *Request) (bool, error)
}

// AllowAll is the default engine used when no external policy engine is
// wired in.
type AllowAll struct{}

var _ Engine = (*AllowAll)(nil)

// AccessAllowed implements Engine.
func (*AllowAll) AccessAllowed(context.Context, *Request) (bool, error) {
	return true, nil
}
