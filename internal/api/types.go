// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "encoding/json"

// =============================================================================
// RESPONSE ENVELOPE
// =============================================================================

// Envelope is the uniform response wrapper used by every backend endpoint.
// A response with Success=false is authoritative regardless of HTTP status.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *EnvelopeError  `json:"error,omitempty"`
}

// EnvelopeError is the error payload inside a failed envelope.
type EnvelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// =============================================================================
// ONBOARDING
// =============================================================================

// OnboardingRequest is the birth-detail payload submitted once per user.
// DateOfBirth is ISO-8601 (YYYY-MM-DD), TimeOfBirth is "HH:mm".
type OnboardingRequest struct {
	Name        string   `json:"name"`
	DateOfBirth string   `json:"dateOfBirth"`
	TimeOfBirth string   `json:"timeOfBirth"`
	Place       string   `json:"place"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Timezone    string   `json:"timezone,omitempty"`
}

// OnboardingAck is the accepted/pending acknowledgment returned by
// POST /users/onboard (HTTP 202).
type OnboardingAck struct {
	UID    string `json:"uid"`
	Status string `json:"status"` // "processing"
}

// =============================================================================
// PROFILE
// =============================================================================

// Profile status values reported by GET /users/profile.
const (
	ProfileProcessing = "processing"
	ProfileCompleted  = "completed"
	ProfileFailed     = "failed"
)

// Profile is the server-side view of an onboarded user.
type Profile struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Status        string          `json:"status"`
	AstroProfile  json.RawMessage `json:"astroProfile,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
}

// Completed reports whether the astrology profile has finished computing.
func (p *Profile) Completed() bool { return p.Status == ProfileCompleted }

// Failed reports whether the profile computation failed server-side.
func (p *Profile) Failed() bool { return p.Status == ProfileFailed }

// =============================================================================
// CHAT
// =============================================================================

// ChatRequest is the body for both /chat/send and /chat/stream.
// SessionID is optional; the backend allocates one when absent.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// ChatReply is the synchronous response from POST /chat/send.
type ChatReply struct {
	Response  string `json:"response"`
	SessionID string `json:"sessionId"`
}
