// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lanternid/lantern/pkg/events"
	"github.com/lanternid/lantern/pkg/flows"
	"github.com/lanternid/lantern/pkg/logger"
	"github.com/lanternid/lantern/pkg/oauth"
	"github.com/lanternid/lantern/pkg/policies"
	"github.com/lanternid/lantern/pkg/session"
)

// handleAuthorize is the authorization endpoint entry point. Validation runs
// before the login check so prompt=none can be answered per OIDC Core
// Section 3.1.2.6; everything after requires an authenticated session with a
// login event.
func (s *Server) handleAuthorize(githubCompat bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Sanity check before any parsing, to keep junk requests out of
		// the audit log.
		if r.Method == http.MethodGet && len(r.URL.Query()) < 1 {
			http.NotFound(w, r)
			return
		}

		ctx := r.Context()
		sess := s.sessions.Load(r)

		params, err := oauth.ParseAuthorizationRequest(r, s.store, githubCompat)
		if err != nil {
			s.handleValidationError(w, r, sess, err)
			return
		}

		// prompt=none with no logged-in user is answered with
		// login_required instead of a login redirect.
		if params.HasPrompt(oauth.PromptNone) && !sess.Authenticated() {
			authErr := oauth.NewAuthorizeError(params.RedirectURI, "login_required",
				params.GrantType, params.State).
				WithResponseMode(params.ResponseMode)
			s.emitAuthorizeError(r, sess, authErr)
			s.writeAuthorizeError(w, r, authErr)
			return
		}
		if !sess.Authenticated() || sess.LoginUID == "" {
			logger.Warnw("request with no login event", "session", sess.ID)
			s.redirectToLogin(w, r)
			return
		}

		app, err := s.store.ApplicationByClientID(ctx, params.ClientID)
		if err != nil {
			logger.Warnw("provider has no application", "client_id", params.ClientID)
			http.NotFound(w, r)
			return
		}

		allowed, err := s.checkAccess(r, sess, params, app)
		if err != nil {
			logger.Errorw("policy evaluation failed", "error", err.Error())
			renderPermissionDenied(w)
			return
		}
		if !allowed {
			logger.Infow("denied access to application",
				"user", sess.Username,
				"application", app.Slug,
			)
			renderPermissionDenied(w)
			return
		}

		// Trigger re-authentication when the login event is older than the
		// requested max_age.
		if params.MaxAge != nil {
			age := time.Since(sess.LoginTime)
			if age.Seconds() > float64(*params.MaxAge) {
				logger.Debugw("triggering authentication for max_age requirement",
					"max_age", *params.MaxAge,
					"ago", int(age.Seconds()),
				)
				// Remember the old login UID in case this request also
				// carries prompt=login.
				s.stashLoginUID(w, r, sess)
				s.redirectToLogin(w, r)
				return
			}
		}
		// prompt=login forces re-authentication once: no stashed login UID
		// means we haven't asked yet, and a stashed UID equal to the current
		// one means the re-login hasn't happened yet.
		if params.HasPrompt(oauth.PromptLogin) {
			if !sess.Has(session.KeyLastLoginUID) ||
				sess.Get(session.KeyLastLoginUID) == sess.LoginUID {
				s.stashLoginUID(w, r, sess)
				s.redirectToLogin(w, r)
				return
			}
		}

		provider := params.Provider()
		plan, err := s.planner.Plan(provider.AuthorizationFlow)
		if err != nil {
			var nonApplicable *flows.NonApplicableError
			if errors.As(err, &nonApplicable) {
				logger.Warnw("flow not applicable to request",
					"flow", provider.AuthorizationFlow,
					"reason", nonApplicable.Reason,
				)
				renderPermissionDenied(w)
				return
			}
			logger.Errorw("failed to plan flow", "error", err.Error())
			renderBadRequest(w, "server_error", "Failed to plan flow")
			return
		}

		if err := s.fillPlanContext(plan, params, app); err != nil {
			logger.Errorw("failed to build plan context", "error", err.Error())
			renderBadRequest(w, "server_error", "Failed to plan flow")
			return
		}

		// prompt=consent injects a consent stage when the flow doesn't
		// already carry one.
		if params.HasPrompt(oauth.PromptConsent) && !hasConsentStage(plan) {
			plan.AppendStage(flows.StageBinding{
				Kind: flows.StageKindConsent,
				Mode: flows.ConsentModeAlwaysRequire,
			})
		}
		plan.AppendStage(flows.StageBinding{Kind: stageKindFulfillment})

		// The flow executor can only be skipped when the response can be
		// submitted to the relying party via URL.
		if params.ResponseMode == oauth.ResponseModeQuery ||
			params.ResponseMode == oauth.ResponseModeFragment {
			s.executor.ToRedirect(w, r, sess, plan, stageKindFulfillment)
			return
		}
		s.executor.ToRedirect(w, r, sess, plan)
	}
}

// checkAccess runs the policy engine with the OAuth request context attached
// so policies can key on it.
func (s *Server) checkAccess(
	r *http.Request, sess *session.Session,
	params *oauth.AuthorizationParams, app *oauth.Application,
) (bool, error) {
	req := policies.NewRequest(sess.UserID, app)
	req.Set("oauth_scopes", params.Scope)
	req.Set("oauth_grant_type", string(params.GrantType))
	req.Set("oauth_code_challenge", params.CodeChallenge)
	req.Set("oauth_code_challenge_method", params.CodeChallengeMethod)
	req.Set("oauth_max_age", params.MaxAge)
	req.Set("oauth_redirect_uri", params.RedirectURI)
	req.Set("oauth_response_type", string(params.ResponseType))
	return s.policies.AccessAllowed(r.Context(), req)
}

// fillPlanContext stores everything the flow stages need into the plan.
func (s *Server) fillPlanContext(
	plan *flows.Plan, params *oauth.AuthorizationParams, app *oauth.Application,
) error {
	if err := plan.SetContext(flows.ContextSSO, true); err != nil {
		return err
	}
	if plan.FlowTitle != "" {
		if err := plan.SetContext(flows.ContextTitle, plan.FlowTitle); err != nil {
			return err
		}
	}
	if err := plan.SetContext(flows.ContextApplication, app); err != nil {
		return err
	}
	if err := plan.SetContext(flows.ContextParams, params); err != nil {
		return err
	}
	header := fmt.Sprintf("You're about to sign into %s.", app.Name)
	if err := plan.SetContext(flows.ContextConsentHeader, header); err != nil {
		return err
	}
	perms := scopePermissions(params.Provider(), params.Scope)
	return plan.SetContext(flows.ContextConsentPermissions, perms)
}

// scopePermissions resolves the requested scopes into the descriptors the
// consent prompt displays.
func scopePermissions(provider *oauth.Provider, scopes []string) []flows.PermissionDescriptor {
	mappings := provider.ScopeDescriptions(scopes)
	out := make([]flows.PermissionDescriptor, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, flows.PermissionDescriptor{
			ID:          m.ScopeName,
			Name:        m.ScopeName,
			Description: m.Description,
		})
	}
	return out
}

func hasConsentStage(plan *flows.Plan) bool {
	for _, binding := range plan.Stages {
		if binding.Kind == flows.StageKindConsent {
			return true
		}
	}
	return false
}

// stashLoginUID records the current login UID so a completed re-login is
// detectable, then persists the session. Save failures are logged; the login
// redirect still happens.
func (s *Server) stashLoginUID(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.Set(session.KeyLastLoginUID, sess.LoginUID)
	if err := s.sessions.Save(r.Context(), w, sess); err != nil {
		logger.Warnw("failed to persist session", "error", err.Error())
	}
}

// handleValidationError routes a request validation failure: errors with no
// trusted redirect URI become an error page, everything else goes back to
// the relying party.
func (s *Server) handleValidationError(
	w http.ResponseWriter, r *http.Request, sess *session.Session, err error,
) {
	var clientIDErr *oauth.ClientIDError
	var redirectErr *oauth.RedirectURIError
	var authErr *oauth.AuthorizeError
	switch {
	case errors.As(err, &clientIDErr):
		logger.Warnw(clientIDErr.Description, "client_id", clientIDErr.ClientID)
		s.emitValidationError(r, sess, &clientIDErr.OAuth2Error)
		renderBadRequest(w, clientIDErr.ErrorCode, clientIDErr.Description)
	case errors.As(err, &redirectErr):
		logger.Warnw(redirectErr.Description,
			"redirect_uri", redirectErr.RedirectURI,
			"cause", redirectErr.Cause,
		)
		s.emitValidationError(r, sess, &redirectErr.OAuth2Error)
		renderBadRequest(w, redirectErr.ErrorCode, redirectErr.Description)
	case errors.As(err, &authErr):
		logger.Warnw(authErr.Description,
			"redirect_uri", authErr.RedirectURI,
			"cause", authErr.Cause,
		)
		s.emitAuthorizeError(r, sess, authErr)
		s.writeAuthorizeError(w, r, authErr)
	default:
		logger.Errorw("request validation failed", "error", err.Error())
		renderBadRequest(w, "server_error", "The request could not be processed")
	}
}

func (s *Server) emitValidationError(r *http.Request, sess *session.Session, oerr *oauth.OAuth2Error) {
	event := events.New(events.ActionAuthorizeError,
		"error", oerr.ErrorCode,
		"error_description", oerr.Description,
		"cause", oerr.Cause,
	).WithUser(sess.UserID).WithClientIP(r.RemoteAddr)
	if err := s.events.Emit(r.Context(), event); err != nil {
		logger.Warnw("failed to emit audit event", "error", err.Error())
	}
}

func (s *Server) emitAuthorizeError(r *http.Request, sess *session.Session, authErr *oauth.AuthorizeError) {
	s.emitValidationError(r, sess, &authErr.OAuth2Error)
}
