// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

// Sentinel errors for common API failure modes.
var (
	// ErrAuth indicates the backend rejected the credential (HTTP 401).
	// Never retried; the UI should prompt for re-authentication.
	ErrAuth = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made (HTTP 429).
	ErrRateLimited = errors.New("rate limited")

	// ErrNotFound indicates the resource does not exist (HTTP 404).
	ErrNotFound = errors.New("not found")

	// ErrNoCredential indicates an authenticated endpoint was called
	// without a credential configured.
	ErrNoCredential = errors.New("no credential configured")
)

// NetworkError represents a transport-level failure: the request never
// produced an HTTP response.
type NetworkError struct {
	Op  string // logical operation, e.g. "POST /chat/send"
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError represents a wall-clock deadline exceeded before a response
// arrived. Treated identically to a transport failure for retry purposes.
type TimeoutError struct {
	Op      string
	Timeout string // human-readable deadline, e.g. "30s"
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Timeout != "" {
		return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
	}
	return fmt.Sprintf("%s timed out", e.Op)
}

// HTTPError represents a non-2xx response with a parsed error envelope.
type HTTPError struct {
	Status  int    // HTTP status code
	Code    string // backend error code from the envelope, may be empty
	Message string // backend error message from the envelope, may be empty
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("API error (HTTP %d)", e.Status)
}

// Is maps well-known status codes onto the sentinel errors so callers can
// use errors.Is without inspecting status codes themselves.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrAuth:
		return e.Status == http.StatusUnauthorized
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// StreamError represents a failure in the middle of an SSE stream,
// preserving any partial content received before the error.
type StreamError struct {
	Partial string // content received before the error
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error { return e.Err }

// =============================================================================
// RETRY CLASSIFICATION
// =============================================================================

// IsRetryable reports whether an error should trigger another attempt.
// Retryable: network failures, timeouts, HTTP 5xx, HTTP 429.
// Never retryable: context cancellation, 401, other 4xx.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Caller-driven cancellation is never retried.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Status == http.StatusTooManyRequests {
			return true
		}
		return httpErr.Status >= 500 && httpErr.Status < 600
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}

	var toErr *TimeoutError
	if errors.As(err, &toErr) {
		return true
	}

	// Raw transport errors from net/http that escaped classification.
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// IsTimeout reports whether an error was caused by a deadline expiring.
func IsTimeout(err error) bool {
	var toErr *TimeoutError
	if errors.As(err, &toErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
