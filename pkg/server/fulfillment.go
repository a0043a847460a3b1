// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/lanternid/lantern/pkg/events"
	"github.com/lanternid/lantern/pkg/flows"
	"github.com/lanternid/lantern/pkg/logger"
	"github.com/lanternid/lantern/pkg/oauth"
)

// stageKindFulfillment is the terminal stage the authorize endpoint appends
// to every plan.
const stageKindFulfillment = "oauth2_fulfillment"

// fulfillmentStage restores the authorization request from the plan context
// and emits the final response to the relying party. It runs after all
// interactive stages have passed, so no permission checks happen here.
type fulfillmentStage struct {
	server *Server
}

var _ flows.StageView = (*fulfillmentStage)(nil)

func (f *fulfillmentStage) Post(w http.ResponseWriter, r *http.Request, exec *flows.Execution) {
	f.Get(w, r, exec)
}

func (f *fulfillmentStage) Get(w http.ResponseWriter, r *http.Request, exec *flows.Execution) {
	s := f.server
	if !exec.Plan.HasContext(flows.ContextParams) {
		logger.Warn("got to fulfillment stage with no pending context")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	var params oauth.AuthorizationParams
	if _, err := exec.Plan.GetContext(flows.ContextParams, &params); err != nil {
		logger.Errorw("failed to restore authorization params", "error", err.Error())
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	exec.Plan.DeleteContext(flows.ContextParams)

	var app oauth.Application
	ok, err := exec.Plan.GetContext(flows.ContextApplication, &app)
	if err != nil || !ok {
		logger.Warn("got to fulfillment stage with no application")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	exec.Plan.DeleteContext(flows.ContextApplication)

	provider, err := s.store.ProviderByClientID(r.Context(), params.ClientID)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	params.AttachProvider(provider)

	// prompt=none and prompt=consent together are unsatisfiable.
	if params.HasPrompt(oauth.PromptNone) && params.HasPrompt(oauth.PromptConsent) {
		authErr := oauth.NewAuthorizeError(params.RedirectURI, "consent_required",
			params.GrantType, params.State).
			WithResponseMode(params.ResponseMode)
		s.emitAuthorizeError(r, exec.Session, authErr)
		exec.StageInvalid(w, r)
		s.writeAuthorizeError(w, r, authErr)
		return
	}

	event := events.New(events.ActionAuthorizeApplication,
		"authorized_application", app.Slug,
		"flow", exec.Plan.FlowID,
		"scopes", strings.Join(params.Scope, " "),
	).WithUser(exec.Session.UserID).WithClientIP(r.RemoteAddr)
	if err := s.events.Emit(r.Context(), event); err != nil {
		logger.Warnw("failed to emit audit event", "error", err.Error())
	}

	fields, err := s.buildResponseFields(r.Context(), exec.Session, &params)
	if err != nil {
		var authErr *oauth.AuthorizeError
		if !errors.As(err, &authErr) {
			authErr = oauth.NewAuthorizeError(params.RedirectURI, "server_error",
				params.GrantType, params.State).
				WithResponseMode(params.ResponseMode)
		}
		s.emitAuthorizeError(r, exec.Session, authErr)
		exec.StageInvalid(w, r)
		s.writeAuthorizeError(w, r, authErr)
		return
	}

	if params.ResponseMode == oauth.ResponseModeFormPost {
		title := "Redirecting to " + app.Name + "..."
		var planTitle string
		if ok, err := exec.Plan.GetContext(flows.ContextTitle, &planTitle); err == nil && ok && planTitle != "" {
			title = planTitle
		}
		exec.Finish(w, r)
		renderAutosubmit(w, title, params.RedirectURI, fields)
		return
	}

	uri, err := responseURI(&params, fields)
	if err != nil {
		logger.Warnw("error when trying to create response uri", "error", err.Error())
		authErr := oauth.NewAuthorizeError(params.RedirectURI, "server_error",
			params.GrantType, params.State).
			WithResponseMode(params.ResponseMode)
		s.emitAuthorizeError(r, exec.Session, authErr)
		exec.StageInvalid(w, r)
		s.writeAuthorizeError(w, r, authErr)
		return
	}
	exec.Finish(w, r)
	http.Redirect(w, r, uri, http.StatusFound)
}
