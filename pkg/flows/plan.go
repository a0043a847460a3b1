// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package flows

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Plan context keys. These are the stable strings used to hand state between
// the stage that planned the flow and the stages that execute it.
const (
	ContextParams             = "params"
	ContextApplication        = "application"
	ContextSSO                = "sso"
	ContextConsentHeader      = "consent_header"
	ContextConsentPermissions = "consent_permissions"
	ContextTitle              = "title"
)

// Plan is one planned execution of a flow. Context values are stored
// serialized so the plan as a whole survives the session store round-trip.
type Plan struct {
	FlowSlug  string                     `json:"flow_slug"`
	FlowID    string                     `json:"flow_id"`
	FlowTitle string                     `json:"flow_title,omitempty"`
	Stages    []StageBinding             `json:"stages"`
	Context   map[string]json.RawMessage `json:"context,omitempty"`
}

// SetContext stores a value in the plan context under key.
func (p *Plan) SetContext(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding plan context %q: %w", key, err)
	}
	if p.Context == nil {
		p.Context = make(map[string]json.RawMessage)
	}
	p.Context[key] = data
	return nil
}

// GetContext decodes the value stored under key into dst. Returns false when
// the key is absent.
func (p *Plan) GetContext(key string, dst any) (bool, error) {
	raw, ok := p.Context[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decoding plan context %q: %w", key, err)
	}
	return true, nil
}

// HasContext reports whether key is present in the plan context.
func (p *Plan) HasContext(key string) bool {
	_, ok := p.Context[key]
	return ok
}

// DeleteContext removes key from the plan context.
func (p *Plan) DeleteContext(key string) {
	delete(p.Context, key)
}

// AppendStage appends a stage binding to the end of the plan.
func (p *Plan) AppendStage(binding StageBinding) {
	p.Stages = append(p.Stages, binding)
}

// CurrentStage returns the next stage to execute, if any.
func (p *Plan) CurrentStage() (StageBinding, bool) {
	if len(p.Stages) == 0 {
		return StageBinding{}, false
	}
	return p.Stages[0], true
}

// Advance pops the current stage.
func (p *Plan) Advance() {
	if len(p.Stages) > 0 {
		p.Stages = p.Stages[1:]
	}
}

// OnlyStagesOf reports whether every remaining stage is one of the given
// kinds. Used to decide whether the interactive executor can be bypassed.
func (p *Plan) OnlyStagesOf(kinds ...string) bool {
	for _, s := range p.Stages {
		found := false
		for _, k := range kinds {
			if s.Kind == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Planner instantiates plans from configured flows.
type Planner struct {
	flows map[string]*Flow
}

// NewPlanner creates a planner over the given flows.
func NewPlanner(flowList ...*Flow) *Planner {
	m := make(map[string]*Flow, len(flowList))
	for _, f := range flowList {
		m[f.Slug] = f
	}
	return &Planner{flows: m}
}

// AddFlow registers an additional flow.
func (p *Planner) AddFlow(f *Flow) {
	p.flows[f.Slug] = f
}

// Flow returns the flow registered under slug.
func (p *Planner) Flow(slug string) (*Flow, bool) {
	f, ok := p.flows[slug]
	return f, ok
}

// Plan instantiates a plan for the authorization flow registered under slug.
// Empty flows are permitted; the caller appends its terminal stage.
func (p *Planner) Plan(slug string) (*Plan, error) {
	flow, ok := p.flows[slug]
	if !ok {
		return nil, &NonApplicableError{Slug: slug, Reason: "flow does not exist"}
	}
	if flow.Designation != DesignationAuthorization {
		return nil, &NonApplicableError{Slug: slug, Reason: "flow is not an authorization flow"}
	}
	return &Plan{
		FlowSlug:  flow.Slug,
		FlowID:    uuid.NewString(),
		FlowTitle: flow.Title,
		Stages:    append([]StageBinding(nil), flow.Stages...),
	}, nil
}
