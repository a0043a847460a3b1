// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package flows

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlow() *Flow {
	return &Flow{
		Slug:        "default-authorization-flow",
		Title:       "Authorize application",
		Designation: DesignationAuthorization,
		Stages: []StageBinding{
			{Kind: StageKindConsent, Mode: ConsentModeAlwaysRequire},
		},
	}
}

func TestPlanner_Plan(t *testing.T) {
	t.Parallel()
	planner := NewPlanner(testFlow())

	plan, err := planner.Plan("default-authorization-flow")
	require.NoError(t, err)
	assert.Equal(t, "default-authorization-flow", plan.FlowSlug)
	assert.Equal(t, "Authorize application", plan.FlowTitle)
	assert.NotEmpty(t, plan.FlowID)
	require.Len(t, plan.Stages, 1)

	// Each plan carries its own stage slice; consuming one plan must not
	// affect the flow definition or later plans.
	plan.Advance()
	again, err := planner.Plan("default-authorization-flow")
	require.NoError(t, err)
	assert.Len(t, again.Stages, 1)
	assert.NotEqual(t, plan.FlowID, again.FlowID)
}

func TestPlanner_UnknownFlow(t *testing.T) {
	t.Parallel()
	planner := NewPlanner(testFlow())

	_, err := planner.Plan("missing-flow")
	var nonApplicable *NonApplicableError
	require.ErrorAs(t, err, &nonApplicable)
	assert.Equal(t, "missing-flow", nonApplicable.Slug)
}

func TestPlanner_WrongDesignation(t *testing.T) {
	t.Parallel()
	planner := NewPlanner(&Flow{
		Slug:        "login-flow",
		Designation: DesignationAuthentication,
	})

	_, err := planner.Plan("login-flow")
	var nonApplicable *NonApplicableError
	require.ErrorAs(t, err, &nonApplicable)
}

func TestPlanner_EmptyFlowPermitted(t *testing.T) {
	t.Parallel()
	planner := NewPlanner(&Flow{
		Slug:        "empty-flow",
		Designation: DesignationAuthorization,
	})

	plan, err := planner.Plan("empty-flow")
	require.NoError(t, err)
	assert.Empty(t, plan.Stages)
}

func TestPlan_ContextRoundTrip(t *testing.T) {
	t.Parallel()
	plan := &Plan{FlowSlug: "f", FlowID: "id"}

	type payload struct {
		ClientID string   `json:"client_id"`
		Scope    []string `json:"scope"`
	}
	require.NoError(t, plan.SetContext(ContextParams, payload{
		ClientID: "client-1",
		Scope:    []string{"openid"},
	}))
	require.NoError(t, plan.SetContext(ContextSSO, true))

	// The plan must survive serialization into a session store.
	data, err := json.Marshal(plan)
	require.NoError(t, err)
	var restored Plan
	require.NoError(t, json.Unmarshal(data, &restored))

	var got payload
	ok, err := restored.GetContext(ContextParams, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "client-1", got.ClientID)
	assert.Equal(t, []string{"openid"}, got.Scope)

	var sso bool
	ok, err = restored.GetContext(ContextSSO, &sso)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, sso)

	ok, err = restored.GetContext("missing", &sso)
	require.NoError(t, err)
	assert.False(t, ok)

	restored.DeleteContext(ContextParams)
	assert.False(t, restored.HasContext(ContextParams))
}

func TestPlan_Stages(t *testing.T) {
	t.Parallel()
	plan := &Plan{}

	_, ok := plan.CurrentStage()
	assert.False(t, ok)

	plan.AppendStage(StageBinding{Kind: StageKindConsent})
	plan.AppendStage(StageBinding{Kind: "terminal"})

	binding, ok := plan.CurrentStage()
	require.True(t, ok)
	assert.Equal(t, StageKindConsent, binding.Kind)

	plan.Advance()
	binding, ok = plan.CurrentStage()
	require.True(t, ok)
	assert.Equal(t, "terminal", binding.Kind)

	plan.Advance()
	_, ok = plan.CurrentStage()
	assert.False(t, ok)

	// Advancing an empty plan is a no-op.
	plan.Advance()
}

func TestPlan_OnlyStagesOf(t *testing.T) {
	t.Parallel()

	plan := &Plan{Stages: []StageBinding{{Kind: "terminal"}}}
	assert.True(t, plan.OnlyStagesOf("terminal"))
	assert.False(t, plan.OnlyStagesOf("other"))

	plan.Stages = append([]StageBinding{{Kind: StageKindConsent}}, plan.Stages...)
	assert.False(t, plan.OnlyStagesOf("terminal"))
	assert.True(t, plan.OnlyStagesOf("terminal", StageKindConsent))

	// A plan with no stages trivially qualifies.
	assert.True(t, (&Plan{}).OnlyStagesOf("terminal"))
}
