// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the authorization endpoint over HTTP: the main
// authorize route, its GitHub compatibility variant, the interactive flow
// executor and the JWKS document.
package server

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lanternid/lantern/pkg/events"
	"github.com/lanternid/lantern/pkg/flows"
	"github.com/lanternid/lantern/pkg/keys"
	"github.com/lanternid/lantern/pkg/logger"
	"github.com/lanternid/lantern/pkg/policies"
	"github.com/lanternid/lantern/pkg/session"
	"github.com/lanternid/lantern/pkg/storage"
)

// Config carries the server's deployment parameters.
type Config struct {
	// Issuer is the iss claim of issued ID tokens.
	Issuer string

	// LoginURL is where unauthenticated users are sent. The original
	// request URL is passed along as the next parameter.
	LoginURL string
}

// Server wires the authorization endpoint's collaborators together.
type Server struct {
	cfg      Config
	store    storage.Store
	keys     *keys.Manager
	sessions *session.Manager
	planner  *flows.Planner
	executor *flows.Executor
	events   events.Sink
	policies policies.Engine
}

// New assembles a Server and registers the fulfillment stage with the flow
// executor. A nil sink or engine falls back to the log sink and the
// allow-all engine.
func New(
	cfg Config,
	store storage.Store,
	keyManager *keys.Manager,
	sessions *session.Manager,
	planner *flows.Planner,
	executor *flows.Executor,
	sink events.Sink,
	engine policies.Engine,
) *Server {
	if sink == nil {
		sink = &events.LogSink{}
	}
	if engine == nil {
		engine = &policies.AllowAll{}
	}
	s := &Server{
		cfg:      cfg,
		store:    store,
		keys:     keyManager,
		sessions: sessions,
		planner:  planner,
		executor: executor,
		events:   sink,
		policies: engine,
	}
	executor.Register(stageKindFulfillment, func(flows.StageBinding) flows.StageView {
		return &fulfillmentStage{server: s}
	})
	return s
}

// Routes builds the HTTP routing tree.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/application/o/authorize/", s.handleAuthorize(false))
	r.Post("/application/o/authorize/", s.handleAuthorize(false))

	// GitHub compatibility: the path GitHub-expecting clients are
	// hardcoded to, with the pseudo-scope allowances enabled.
	r.Get("/login/oauth/authorize", s.handleAuthorize(true))
	r.Post("/login/oauth/authorize", s.handleAuthorize(true))

	r.Get("/.well-known/jwks.json", s.handleJWKS)

	s.executor.Routes(r)
	return r
}

// handleJWKS serves the public signing keys.
func (s *Server) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.keys.PublicJWKS()); err != nil {
		logger.Errorw("failed to encode JWKS", "error", err.Error())
	}
}

// redirectToLogin sends the browser to the login UI with a return pointer to
// the current request.
func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := s.cfg.LoginURL
	if target == "" {
		target = "/login"
	}
	http.Redirect(w, r, target+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
}
