// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the astra TUI.
//
// Components are plain value types rendered into strings; none of them talk
// to the network. The connectivity banner and status bar are fed snapshots
// from the network monitor, the markdown renderer wraps glamour with a
// raw-text fallback, and message bubbles handle display-width wrapping for
// CJK and emoji content.
package components
