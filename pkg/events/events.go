// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

// Package events defines the audit events the authorization endpoint emits.
package events

import (
	"context"
	"time"

	"github.com/lanternid/lantern/pkg/logger"
)

// Action identifies what an event records.
type Action string

// Audit actions.
const (
	ActionAuthorizeApplication Action = "authorize_application"
	ActionAuthorizeError       Action = "authorize_error"
)

// Event is a single audit record. Emission is best-effort: the authorization
// response does not wait for the event to be durable.
type Event struct {
	Action    Action         `json:"action"`
	UserID    string         `json:"user_id,omitempty"`
	ClientIP  string         `json:"client_ip,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Context   map[string]any `json:"context,omitempty"`
}

// New creates an event with the given action and context pairs.
func New(action Action, kv ...any) *Event {
	ctx := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ctx[key] = kv[i+1]
	}
	return &Event{
		Action:    action,
		CreatedAt: time.Now(),
		Context:   ctx,
	}
}

// WithUser attaches the acting user.
func (e *Event) WithUser(userID string) *Event {
	e.UserID = userID
	return e
}

// WithClientIP attaches the remote address.
func (e *Event) WithClientIP(ip string) *Event {
	e.ClientIP = ip
	return e
}

// Sink receives audit events.
type Sink interface {
	Emit(ctx context.Context, event *Event) error
}

// LogSink writes events to the process log.
type LogSink struct{}

var _ Sink = (*LogSink)(nil)

// Emit implements Sink.
func (*LogSink) Emit(_ context.Context, event *Event) error {
	fields := []any{
		"action", string(event.Action),
		"user_id", event.UserID,
		"client_ip", event.ClientIP,
	}
	for k, v := range event.Context {
		fields = append(fields, k, v)
	}
	logger.Infow("audit event", fields...)
	return nil
}
