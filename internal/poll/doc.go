// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package poll provides a generic "repeat an async probe until a stop
// condition holds" engine with exponential backoff on failure and a hard
// attempt ceiling.
//
// A Controller drives one loop at a time: Start while already polling is a
// no-op, Stop terminates without firing success or error callbacks, Reset
// returns to idle from any state. The job-status specialization covers
// probes whose result carries a pending/processing/completed/failed enum.
package poll
