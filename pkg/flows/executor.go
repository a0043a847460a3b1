// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package flows

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lanternid/lantern/pkg/logger"
	"github.com/lanternid/lantern/pkg/session"
)

// StageView renders and handles one interactive stage. Implementations
// write their own responses and drive the plan through the Execution.
type StageView interface {
	Get(w http.ResponseWriter, r *http.Request, exec *Execution)
	Post(w http.ResponseWriter, r *http.Request, exec *Execution)
}

// StageConstructor builds the StageView for a binding.
type StageConstructor func(binding StageBinding) StageView

// Executor drives flow plans across HTTP round-trips. Plans live in the
// browser session under the flow's slug; each request resolves the current
// stage and dispatches to it.
type Executor struct {
	sessions *session.Manager
	registry map[string]StageConstructor
}

// NewExecutor creates an executor with the built-in consent stage
// registered.
func NewExecutor(sessions *session.Manager) *Executor {
	e := &Executor{
		sessions: sessions,
		registry: make(map[string]StageConstructor),
	}
	e.Register(StageKindConsent, func(b StageBinding) StageView {
		return &ConsentStage{Mode: b.Mode}
	})
	return e
}

// Register adds a stage constructor for kind. Later registrations win.
func (e *Executor) Register(kind string, c StageConstructor) {
	e.registry[kind] = c
}

// Routes registers the flow executor endpoints.
func (e *Executor) Routes(r chi.Router) {
	r.Get("/if/flow/{slug}/", e.handle)
	r.Post("/if/flow/{slug}/", e.handle)
}

// FlowURL returns the executor URL for a flow slug.
func FlowURL(slug string) string {
	return "/if/flow/" + slug + "/"
}

// ToRedirect hands a freshly planned flow to the executor. When every
// remaining stage is one of allowedSilent, the plan is executed inline
// without a browser round-trip; otherwise the plan is stored in the session
// and the user is redirected into the interactive executor.
func (e *Executor) ToRedirect(
	w http.ResponseWriter, r *http.Request,
	sess *session.Session, plan *Plan, allowedSilent ...string,
) {
	if len(allowedSilent) > 0 && plan.OnlyStagesOf(allowedSilent...) {
		e.execute(w, r, sess, plan)
		return
	}
	if err := e.savePlan(w, r, sess, plan); err != nil {
		logger.Errorw("failed to persist flow plan", "error", err.Error())
		http.Error(w, "failed to start flow", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, FlowURL(plan.FlowSlug), http.StatusFound)
}

func (e *Executor) savePlan(w http.ResponseWriter, r *http.Request, sess *session.Session, plan *Plan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	sess.SetPlan(plan.FlowSlug, data)
	return e.sessions.Save(r.Context(), w, sess)
}

func (e *Executor) handle(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	sess := e.sessions.Load(r)

	raw, ok := sess.Plan(slug)
	if !ok {
		logger.Warnw("no flow plan in session", "flow", slug)
		http.NotFound(w, r)
		return
	}
	var plan Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		logger.Errorw("failed to decode flow plan", "flow", slug, "error", err.Error())
		http.NotFound(w, r)
		return
	}
	e.execute(w, r, sess, &plan)
}

// execute dispatches the plan's current stage.
func (e *Executor) execute(w http.ResponseWriter, r *http.Request, sess *session.Session, plan *Plan) {
	binding, ok := plan.CurrentStage()
	if !ok {
		logger.Warnw("flow plan has no stages left", "flow", plan.FlowSlug)
		http.NotFound(w, r)
		return
	}
	construct, ok := e.registry[binding.Kind]
	if !ok {
		logger.Errorw("unknown stage kind", "kind", binding.Kind, "flow", plan.FlowSlug)
		http.Error(w, "flow configuration error", http.StatusInternalServerError)
		return
	}
	exec := &Execution{executor: e, Plan: plan, Session: sess}
	stage := construct(binding)
	if r.Method == http.MethodPost {
		stage.Post(w, r, exec)
		return
	}
	stage.Get(w, r, exec)
}

// Execution is the per-request view a stage gets of its plan and session.
type Execution struct {
	executor *Executor
	Plan     *Plan
	Session  *session.Session
}

// StageOK marks the current stage as passed and continues the flow: either
// redirecting into the next stage or, when the passed stage was the last,
// cleaning the plan up. Terminal stages write their own response after
// calling Finish instead.
func (x *Execution) StageOK(w http.ResponseWriter, r *http.Request) {
	x.Plan.Advance()
	if _, more := x.Plan.CurrentStage(); !more {
		x.Finish(w, r)
		return
	}
	if err := x.executor.savePlan(w, r, x.Session, x.Plan); err != nil {
		logger.Errorw("failed to persist flow plan", "error", err.Error())
		http.Error(w, "failed to continue flow", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, FlowURL(x.Plan.FlowSlug), http.StatusFound)
}

// Finish removes the plan from the session. The caller writes the final
// response. Tolerates plans that were never persisted (silent execution).
func (x *Execution) Finish(w http.ResponseWriter, r *http.Request) {
	x.Session.DeletePlan(x.Plan.FlowSlug)
	if err := x.executor.sessions.Save(r.Context(), w, x.Session); err != nil {
		logger.Warnw("failed to clean up flow plan", "error", err.Error())
	}
}

// StageInvalid cancels the flow. The caller writes the error response.
func (x *Execution) StageInvalid(w http.ResponseWriter, r *http.Request) {
	x.Session.DeletePlan(x.Plan.FlowSlug)
	if err := x.executor.sessions.Save(r.Context(), w, x.Session); err != nil {
		logger.Warnw("failed to clean up flow plan", "error", err.Error())
	}
}
