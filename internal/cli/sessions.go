// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - Saved chat session management.
//
// Command: sessions (alias: session)
// Short:   List, inspect, rename, and delete saved chat sessions
//
// Examples:
//   astra sessions list
//   astra sessions show sess-42
//   astra sessions rename sess-42 weekly-reading
//   astra sessions delete sess-42 --confirm

package cli

import (
	"context"
	"fmt"

	"github.com/astraleph/astra-tui/internal/storage"
)

// HandleSessions dispatches the sessions subcommands.
func HandleSessions(args Args) error {
	env, err := BuildEnv(args)
	if err != nil {
		return err
	}
	history, err := env.OpenHistory()
	if err != nil {
		return fmt.Errorf("open chat history: %w", err)
	}
	defer history.Close()

	ctx := context.Background()
	p := args.Parser

	switch p.Subcommand() {
	case "", "list":
		return sessionsList(ctx, history, args)
	case "show":
		return sessionsShow(ctx, history, p.Positional(1))
	case "rename":
		return sessionsRename(ctx, history, p.Positional(1), p.Positional(2))
	case "delete":
		return sessionsDelete(ctx, history, p.Positional(1), p.BoolFlag("confirm"))
	default:
		return ErrUsage("unknown sessions subcommand: %s", p.Subcommand())
	}
}

func sessionsList(ctx context.Context, history *storage.History, args Args) error {
	limit := args.Parser.FlagIntOrDefault("limit", 50)
	sessions, err := history.ListSessions(ctx, limit)
	if err != nil {
		return err
	}

	if args.JSON {
		type row struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			Updated  string `json:"updated"`
			Messages int    `json:"messages"`
		}
		rows := make([]row, 0, len(sessions))
		for _, s := range sessions {
			rows = append(rows, row{s.ID, s.Title, s.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"), s.Messages})
		}
		return outputJSON(rows)
	}

	if len(sessions) == 0 {
		fmt.Println(styled(mutedStyle, "no saved sessions"))
		return nil
	}
	for _, s := range sessions {
		fmt.Printf("%s  %s  %2d msgs  %s\n",
			styled(valueStyle, s.ID),
			styled(mutedStyle, formatTimestamp(s.UpdatedAt)),
			s.Messages, s.Title)
	}
	return nil
}

func sessionsShow(ctx context.Context, history *storage.History, id string) error {
	if id == "" {
		return ErrUsage("usage: astra sessions show <id>")
	}
	messages, err := history.Messages(ctx, id)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		fmt.Println(styled(mutedStyle, "session is empty or unknown"))
		return nil
	}
	for _, msg := range messages {
		prefix := "you"
		if msg.Role == storage.RoleAssistant {
			prefix = "astra"
		}
		fmt.Printf("%s %s\n%s\n\n",
			styled(promptStyle, prefix+">"),
			styled(mutedStyle, formatTimestamp(msg.CreatedAt)),
			msg.Content)
	}
	return nil
}

func sessionsRename(ctx context.Context, history *storage.History, oldID, newID string) error {
	if oldID == "" || newID == "" {
		return ErrUsage("usage: astra sessions rename <id> <new-id>")
	}
	if err := history.RenameSession(ctx, oldID, newID); err != nil {
		return err
	}
	fmt.Println(styled(successStyle, "renamed"))
	return nil
}

func sessionsDelete(ctx context.Context, history *storage.History, id string, confirmed bool) error {
	if id == "" {
		return ErrUsage("usage: astra sessions delete <id> --confirm")
	}
	if !confirmed {
		if !IsTTY() {
			return ErrUsage("deletion requires --confirm")
		}
		if !promptYesNo(fmt.Sprintf("delete session %s and its messages?", id), false) {
			fmt.Println(styled(mutedStyle, "cancelled"))
			return nil
		}
	}
	if err := history.DeleteSession(ctx, id); err != nil {
		return err
	}
	fmt.Println(styled(successStyle, "deleted"))
	return nil
}
