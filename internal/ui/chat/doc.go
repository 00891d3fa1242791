// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view.
//
// The model owns one conversation: user turns, streamed assistant replies,
// and flow notices. Stream callbacks fire on the api package's goroutine and
// are bridged into the Bubble Tea loop through a buffered channel; chunks
// are batched by a StreamingBuffer so rendering stays at a sane frame rate
// however fast the backend emits.
//
// Cancellation (esc) keeps whatever partial reply arrived; stream failures
// do the same and add a notice line. Completed turns are persisted to the
// history store when one is configured.
package chat
