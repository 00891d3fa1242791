// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package netmon tracks backend reachability and derives an advisory
// connection quality score.
//
// A Monitor periodically probes the backend's liveness endpoint, measures
// round-trip time, inspects local interfaces for the connection medium, and
// folds everything into a 0-100 heuristic score banded into quality levels.
// The signal is advisory only: nothing gates requests on it. The request
// layer keeps its own retry policy regardless of what the monitor reports.
package netmon
