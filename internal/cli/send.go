// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// send.go - One-shot question, answer to stdout.
//
// Command: send (alias: ask)
// Short:   Send one message and print the reply
//
// Examples:
//   astra send "what does my week look like?"
//   astra send --stream "long reading please"    Stream tokens as they arrive
//   astra send --session ID "follow-up"          Continue a saved session
//   echo "question" | astra send                 Read the message from stdin
//
// Piped output gets the raw reply text, no styling, which makes the
// command compose with shell pipelines.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/astraleph/astra-tui/internal/api"
	"github.com/astraleph/astra-tui/internal/storage"
	"github.com/astraleph/astra-tui/internal/ui/components"
)

// sendTimeout bounds the whole exchange including retries.
const sendTimeout = 2 * time.Minute

// HandleSend sends one message and prints the reply.
func HandleSend(args Args) error {
	message := strings.TrimSpace(args.Message)
	if message == "" && !IsTTY() {
		raw, err := io.ReadAll(os.Stdin)
		if err == nil {
			message = strings.TrimSpace(string(raw))
		}
	}
	if message == "" {
		return ErrUsage("usage: astra send \"message\"")
	}

	env, err := BuildEnv(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	// A stored credential personalizes the reply; guests proceed without.
	if token, err := env.Creds.Load(); err == nil && !env.Client.HasCredential() {
		env.Client.SetCredential(token)
	}

	sessionID := args.Parser.Flag("session")

	if args.Parser.BoolFlag("stream") {
		return sendStreamed(ctx, env, message, sessionID)
	}
	return sendOnce(ctx, env, message, sessionID, args)
}

// sendOnce uses the synchronous endpoint and renders the full reply.
func sendOnce(ctx context.Context, env *Env, message, sessionID string, args Args) error {
	reply, err := env.Client.SendChat(ctx, message, sessionID)
	if err != nil {
		return err
	}

	if args.JSON {
		return outputJSON(map[string]string{
			"response":  reply.Response,
			"sessionId": reply.SessionID,
		})
	}

	if args.Plain || !IsStdoutTTY() || !env.Cfg.UI.Markdown {
		fmt.Println(reply.Response)
	} else {
		md := components.NewMarkdown(env.Cfg.UI.Theme != "light")
		md.SetWidth(GetTerminalWidth())
		fmt.Println(md.Render(reply.Response))
	}

	persistExchange(ctx, env, reply.SessionID, message, reply.Response)
	return nil
}

// sendStreamed prints tokens as they arrive.
func sendStreamed(ctx context.Context, env *Env, message, sessionID string) error {
	result := make(chan error, 1)
	var full string

	handle := env.Client.StreamChat(ctx, message, sessionID, api.StreamCallbacks{
		OnChunk: func(chunk string) { fmt.Print(chunk) },
		OnComplete: func(text string) {
			full = text
			result <- nil
		},
		OnError: func(err error) { result <- err },
	})

	var err error
	select {
	case err = <-result:
	case <-handle.Done():
		select {
		case err = <-result:
		default:
		}
	}
	fmt.Println()

	if err != nil {
		return err
	}
	if full != "" {
		persistExchange(ctx, env, sessionID, message, full)
	}
	return nil
}

// persistExchange best-effort records the turn in local history. A missing
// session ID means the backend allocated one we never learned for the
// stream path; skip rather than fabricate.
func persistExchange(ctx context.Context, env *Env, sessionID, message, reply string) {
	if sessionID == "" {
		return
	}
	history, err := env.OpenHistory()
	if err != nil {
		return
	}
	defer history.Close()
	_, _ = history.AppendMessage(ctx, sessionID, storage.RoleUser, message)
	_, _ = history.AppendMessage(ctx, sessionID, storage.RoleAssistant, reply)
}
