// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds the small cross-cutting helpers astra needs in more
// than one place: crash-safe file writes (configuration, credentials)
// and UTF-8 safe truncation (session titles).
package util
