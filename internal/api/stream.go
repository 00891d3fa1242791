// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// STREAMING: Robust SSE parsing with error handling

// MaxChunkSize is the maximum allowed size for a single SSE line (64KB).
const MaxChunkSize = 64 * 1024

// doneSentinel is the terminal frame payload that closes a stream.
var doneSentinel = []byte("[DONE]")

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses server-sent events from a byte stream. A trailing partial
// line is buffered across reads, so frame boundaries may fall anywhere.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent reads the next SSE event and returns its data payload.
// Multiple data lines within one event are joined with newlines.
// Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() ([]byte, error) {
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				if len(dataLines) > 0 {
					return bytes.Join(dataLines, []byte("\n")), nil
				}
				return nil, io.EOF
			}
			return nil, err
		}
		if len(line) > MaxChunkSize {
			return nil, fmt.Errorf("SSE line too large: %d bytes", len(line))
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("data: ")) {
			dataLines = append(dataLines, line[6:])
		} else if bytes.HasPrefix(line, []byte("data:")) {
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// Other fields (id:, event:, retry:, comments) are ignored.
	}
}

// =============================================================================
// CHUNK PAYLOAD DECODING
// =============================================================================

// streamPayload covers the known structured shapes a data frame can carry.
// Matched as an explicit sequence of variants rather than ad hoc property
// probing; unknown shapes fall back to the raw string.
type streamPayload struct {
	Content  string `json:"content"`
	Response string `json:"response"`
	Data     struct {
		Content  string `json:"content"`
		Response string `json:"response"`
	} `json:"data"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// DecodeChunk extracts the delta text from a data frame payload.
// This never fails: unparseable payloads are returned verbatim.
func DecodeChunk(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ""
	}

	switch trimmed[0] {
	case '{':
		var payload streamPayload
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return string(data)
		}
		if len(payload.Choices) > 0 && payload.Choices[0].Delta.Content != "" {
			return payload.Choices[0].Delta.Content
		}
		if payload.Content != "" {
			return payload.Content
		}
		if payload.Response != "" {
			return payload.Response
		}
		if payload.Data.Content != "" {
			return payload.Data.Content
		}
		return payload.Data.Response
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return string(data)
		}
		return s
	default:
		return string(data)
	}
}

// =============================================================================
// STREAM HANDLE
// =============================================================================

// StreamState describes the lifecycle of a single stream session.
type StreamState int

const (
	StreamIdle StreamState = iota
	StreamConnecting
	StreamStreaming
	StreamCompleted
	StreamCancelled
	StreamFailed
)

// String returns a human-readable state name.
func (s StreamState) String() string {
	switch s {
	case StreamIdle:
		return "idle"
	case StreamConnecting:
		return "connecting"
	case StreamStreaming:
		return "streaming"
	case StreamCompleted:
		return "completed"
	case StreamCancelled:
		return "cancelled"
	case StreamFailed:
		return "error"
	default:
		return "unknown"
	}
}

// StreamCallbacks are invoked from the stream goroutine, in frame order.
// Any callback may be nil.
type StreamCallbacks struct {
	// OnChunk receives each decoded delta as it arrives.
	OnChunk func(text string)
	// OnComplete receives the full accumulated text exactly once.
	OnComplete func(full string)
	// OnError receives the terminal error. Never invoked for Cancel().
	OnError func(err error)
}

// StreamHandle controls one open stream. Cancel is idempotent: calling it
// twice, or after natural completion, is a no-op. After Cancel, no further
// callbacks are invoked.
type StreamHandle struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	state StreamState
}

// Cancel aborts the underlying transport and the read loop.
// Cancellation is not a failure: OnError does not fire.
func (h *StreamHandle) Cancel() {
	h.mu.Lock()
	if h.state == StreamCompleted || h.state == StreamFailed || h.state == StreamCancelled {
		h.mu.Unlock()
		return
	}
	h.state = StreamCancelled
	h.mu.Unlock()
	h.cancel()
}

// State returns the current stream state.
func (h *StreamHandle) State() StreamState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Done is closed when the stream goroutine has exited.
func (h *StreamHandle) Done() <-chan struct{} { return h.done }

// setState transitions the handle unless it is already terminal.
// Returns false when the transition was refused (handle cancelled/finished).
func (h *StreamHandle) setState(s StreamState) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StreamCancelled || h.state == StreamCompleted || h.state == StreamFailed {
		return false
	}
	h.state = s
	return true
}

// active reports whether callbacks may still be delivered.
func (h *StreamHandle) active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == StreamConnecting || h.state == StreamStreaming
}

// =============================================================================
// STREAM SLOT
// =============================================================================

// StreamSlot enforces the one-active-stream-per-logical-caller invariant:
// storing a new handle first cancels the prior one.
type StreamSlot struct {
	mu      sync.Mutex
	current *StreamHandle
}

// Swap cancels any prior handle and installs h.
func (s *StreamSlot) Swap(h *StreamHandle) {
	s.mu.Lock()
	prior := s.current
	s.current = h
	s.mu.Unlock()
	if prior != nil {
		prior.Cancel()
	}
}

// Cancel cancels the current handle, if any.
func (s *StreamSlot) Cancel() {
	s.mu.Lock()
	h := s.current
	s.mu.Unlock()
	if h != nil {
		h.Cancel()
	}
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// StreamChat opens an SSE stream for one chat turn and returns a handle.
//
// On transport-level failure the entire stream open is retried (no mid-stream
// resume) with the same backoff policy as plain requests, up to the client's
// retry cap. 4xx responses are terminal on first occurrence. Works in guest
// mode like SendChat.
func (c *Client) StreamChat(ctx context.Context, message, sessionID string, cb StreamCallbacks) *StreamHandle {
	streamCtx, cancel := context.WithCancel(ctx)
	handle := &StreamHandle{
		cancel: cancel,
		done:   make(chan struct{}),
		state:  StreamConnecting,
	}

	go c.runStream(streamCtx, message, sessionID, cb, handle)
	return handle
}

// runStream drives the open/read/retry loop for one stream session.
func (c *Client) runStream(ctx context.Context, message, sessionID string, cb StreamCallbacks, handle *StreamHandle) {
	defer close(handle.done)
	defer handle.cancel()

	body, err := json.Marshal(&ChatRequest{Message: message, SessionID: sessionID})
	if err != nil {
		c.finishStream(handle, cb, "", fmt.Errorf("failed to marshal request: %w", err))
		return
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				c.finishStream(handle, cb, "", lastErr)
				return
			case <-time.After(c.backoffDelay(attempt)):
			}
		}

		accumulated, err := c.streamOnce(ctx, body, cb, handle)
		if err == nil {
			c.finishStream(handle, cb, accumulated, nil)
			return
		}
		if ctx.Err() != nil || !IsRetryable(err) {
			c.finishStream(handle, cb, accumulated, err)
			return
		}
		lastErr = &StreamError{Partial: accumulated, Err: err}
	}

	c.finishStream(handle, cb, "", fmt.Errorf("max retries exceeded: %w", lastErr))
}

// streamOnce performs a single stream attempt, delivering chunks as they
// arrive. Returns the accumulated text and a nil error on clean completion.
func (c *Client) streamOnce(ctx context.Context, body []byte, cb StreamCallbacks, handle *StreamHandle) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/stream", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "keep-alive")

	c.logRequest(http.MethodPost, "/chat/stream")
	resp, err := c.streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &NetworkError{Op: "POST /chat/stream", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return "", decodeEnvelope(resp.StatusCode, raw, nil)
	}

	if !handle.setState(StreamStreaming) {
		return "", ctx.Err()
	}

	var accumulated strings.Builder
	reader := NewSSEReader(resp.Body)
	for {
		select {
		case <-ctx.Done():
			return accumulated.String(), ctx.Err()
		default:
		}

		data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				// Server closed without [DONE]; treat as completion.
				return accumulated.String(), nil
			}
			if ctx.Err() != nil {
				return accumulated.String(), ctx.Err()
			}
			return accumulated.String(), &NetworkError{Op: "POST /chat/stream", Err: err}
		}

		if bytes.Equal(bytes.TrimSpace(data), doneSentinel) {
			return accumulated.String(), nil
		}

		chunk := DecodeChunk(data)
		if chunk == "" {
			continue
		}
		accumulated.WriteString(chunk)

		if handle.active() && cb.OnChunk != nil {
			cb.OnChunk(chunk)
		}
	}
}

// finishStream transitions the handle to its terminal state and fires the
// matching callback. Cancelled handles receive no callbacks at all.
func (c *Client) finishStream(handle *StreamHandle, cb StreamCallbacks, accumulated string, err error) {
	if err == nil {
		if handle.setState(StreamCompleted) && cb.OnComplete != nil {
			cb.OnComplete(accumulated)
		}
		return
	}

	// Cancellation is not a failure, whether via Cancel() or the caller's
	// context: surface no error.
	if errors.Is(err, context.Canceled) {
		handle.setState(StreamCancelled)
		return
	}

	if handle.setState(StreamFailed) && cb.OnError != nil {
		var streamErr *StreamError
		if !errors.As(err, &streamErr) && accumulated != "" {
			err = &StreamError{Partial: accumulated, Err: err}
		}
		cb.OnError(err)
	}
}
