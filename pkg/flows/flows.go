// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

// Package flows implements the interactive flow machinery: plans carry
// per-session state across HTTP round-trips, stages render the interactive
// steps, and the executor drives a plan stage by stage.
package flows

// Designation states what a flow is for. The planner refuses to plan a flow
// whose designation does not match the request.
type Designation string

// Flow designations.
const (
	DesignationAuthorization  Designation = "authorization"
	DesignationAuthentication Designation = "authentication"
)

// Stage kinds known to the executor. Additional kinds are registered by the
// packages providing them.
const (
	StageKindConsent = "consent"
)

// Consent stage modes.
const (
	// ConsentModeAlwaysRequire always shows the consent prompt.
	ConsentModeAlwaysRequire = "always_require"
	// ConsentModeImplicit grants consent without showing a prompt.
	ConsentModeImplicit = "implicit"
)

// StageBinding is one step of a flow. Bindings are serializable so a plan
// survives the session round-trip; stages injected at plan time (the
// in-memory consent stage, the fulfillment stage) are plain bindings too.
type StageBinding struct {
	Kind string `json:"kind"`
	Mode string `json:"mode,omitempty"`
}

// Flow is a configured sequence of interactive stages.
type Flow struct {
	Slug        string         `json:"slug" yaml:"slug"`
	Title       string         `json:"title" yaml:"title"`
	Designation Designation    `json:"designation" yaml:"designation"`
	Stages      []StageBinding `json:"stages" yaml:"stages"`
}

// NonApplicableError is returned when a flow cannot be planned for a
// request. It is presented to the user as "no permission", not as an OAuth
// error, because no RP-level decision has been made yet.
type NonApplicableError struct {
	Slug   string
	Reason string
}

func (e *NonApplicableError) Error() string {
	return "flow " + e.Slug + " not applicable: " + e.Reason
}
