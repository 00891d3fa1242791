// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app drives the linear application flow:
//
//	Unauthenticated -> Loading -> {Onboarding, Ready}
//	Onboarding -> submit -> AwaitingProfile (polling) -> Ready
//	                                                  -> Onboarding (failed / timed out)
//
// The profile-check contract: HTTP 404 means the user has not onboarded;
// within a 200 body the status field is authoritative. 401, 5xx, and network
// failures produce a retryable error display without advancing the state
// machine. Once Ready, the controller never re-checks onboarding status.
package app
