// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the astrology backend.
//
// Every endpoint speaks the uniform {success, data, error} envelope; a
// response with success=false is authoritative regardless of HTTP status.
// The client applies a bearer credential when one is configured, enforces a
// wall-clock timeout per attempt, and retries transient failures (network
// errors, timeouts, 5xx, 429) with exponential backoff and jitter. 401 and
// other 4xx responses surface on first occurrence and are never retried.
//
// # Key Types
//
//   - Client: request layer with retry, rate limiting, and typed errors
//   - SSEReader: server-sent-event frame parser for streaming chat
//   - StreamHandle: cancellable handle for one open chat stream
//   - StreamSlot: enforces at most one active stream per logical caller
//
// # Usage
//
// Create a client and send a chat turn:
//
//	client := api.NewClient(cfg.API.BaseURL).WithCredential(token)
//	reply, err := client.SendChat(ctx, "what does my week look like?", "")
//
// Streaming variant:
//
//	handle := client.StreamChat(ctx, msg, sessionID, api.StreamCallbacks{
//	    OnChunk:    func(s string) { /* render */ },
//	    OnComplete: func(full string) { /* persist */ },
//	    OnError:    func(err error) { /* surface */ },
//	})
//	defer handle.Cancel()
package api
