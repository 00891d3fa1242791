// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat history locally.
//
// Sessions and messages live in a single SQLite database under the config
// directory. The store is the only writer; the chat UI and the plain REPL
// both read through it to resume earlier sessions.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/astraleph/astra-tui/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrSessionNotFound indicates the session ID has no local record.
	ErrSessionNotFound = errors.New("session not found")
)

// =============================================================================
// TYPES
// =============================================================================

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Session is one chat conversation with the backend.
type Session struct {
	ID        string // backend session ID (or local uuid until assigned)
	Title     string // first user message, truncated
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  int // message count, filled by ListSessions
}

// Message is one chat turn.
type Message struct {
	ID        string
	SessionID string
	Role      Role
	Content   string
	CreatedAt time.Time
}

// =============================================================================
// HISTORY STORE
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at);
`

// History is the SQLite-backed chat history store.
type History struct {
	db *sql.DB
}

// Open creates or opens the history database at path.
func Open(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &History{db: db}, nil
}

// DefaultPath returns the history database location inside dir.
func DefaultPath(dir string) string {
	return filepath.Join(dir, "history.db")
}

// Close releases the database handle.
func (h *History) Close() error { return h.db.Close() }

// =============================================================================
// SESSIONS
// =============================================================================

// CreateSession records a new session. An empty id gets a local uuid; the
// backend-assigned ID replaces it via RenameSession once known.
func (h *History) CreateSession(ctx context.Context, id, title string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, title, now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &Session{ID: id, Title: title, CreatedAt: now, UpdatedAt: now}, nil
}

// RenameSession rebinds a locally created session to the backend-assigned ID.
func (h *History) RenameSession(ctx context.Context, oldID, newID string) error {
	res, err := h.db.ExecContext(ctx, `UPDATE sessions SET id = ? WHERE id = ?`, newID, oldID)
	if err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	_, err = h.db.ExecContext(ctx, `UPDATE messages SET session_id = ? WHERE session_id = ?`, newID, oldID)
	if err != nil {
		return fmt.Errorf("failed to rebind messages: %w", err)
	}
	return nil
}

// ListSessions returns sessions newest first, with message counts.
func (h *History) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.created_at, s.updated_at, COUNT(m.id)
		FROM sessions s LEFT JOIN messages m ON m.session_id = s.id
		GROUP BY s.id ORDER BY s.updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var created, updated int64
		if err := rows.Scan(&s.ID, &s.Title, &created, &updated, &s.Messages); err != nil {
			return nil, err
		}
		s.CreatedAt = time.Unix(0, created)
		s.UpdatedAt = time.Unix(0, updated)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session and its messages.
func (h *History) DeleteSession(ctx context.Context, id string) error {
	res, err := h.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// =============================================================================
// MESSAGES
// =============================================================================

// AppendMessage stores one chat turn and bumps the session timestamp.
// The session row is created on first use.
func (h *History) AppendMessage(ctx context.Context, sessionID string, role Role, content string) (*Message, error) {
	now := time.Now()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	title := ""
	if role == RoleUser {
		title = truncateTitle(content)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, title, now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to upsert session: %w", err)
	}

	msg := &Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, string(msg.Role), msg.Content, now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return msg, nil
}

// Messages returns a session's messages oldest first.
func (h *History) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, created_at
		FROM messages WHERE session_id = ? ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var role string
		var created int64
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &created); err != nil {
			return nil, err
		}
		m.Role = Role(role)
		m.CreatedAt = time.Unix(0, created)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// truncateTitle derives a session title from the first user message.
func truncateTitle(content string) string {
	const maxTitle = 60
	return util.TruncateRunes(content, maxTitle)
}
