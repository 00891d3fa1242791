// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestBufferBatchesUntilThreshold(t *testing.T) {
	sb := NewStreamingBuffer()

	// Fewer chunks than the batch size, immediately after creation: the
	// frame interval has not elapsed either, so nothing flushes.
	sb.Write("a")
	sb.Write("b")
	if content, ok := sb.Flush(); ok {
		t.Errorf("premature flush: %q", content)
	}

	for i := 0; i < defaultBatchSize; i++ {
		sb.Write("x")
	}
	content, ok := sb.Flush()
	if !ok {
		t.Fatal("batch threshold did not trigger a flush")
	}
	if content != "ab"+strings.Repeat("x", defaultBatchSize) {
		t.Errorf("flushed %q", content)
	}
	if sb.Pending() != 0 {
		t.Errorf("pending = %d after flush", sb.Pending())
	}
}

func TestBufferFlushesOnTime(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.Write("slow chunk")

	time.Sleep(sb.flushEvery + 5*time.Millisecond)

	content, ok := sb.Flush()
	if !ok {
		t.Fatal("time threshold did not trigger a flush")
	}
	if content != "slow chunk" {
		t.Errorf("flushed %q", content)
	}
}

func TestBufferForceFlush(t *testing.T) {
	sb := NewStreamingBuffer()

	if _, ok := sb.ForceFlush(); ok {
		t.Error("empty buffer force-flushed content")
	}

	sb.Write("tail")
	content, ok := sb.ForceFlush()
	if !ok || content != "tail" {
		t.Errorf("ForceFlush = (%q, %v)", content, ok)
	}
}

func TestBufferReset(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.Write("discard me")
	sb.Reset()

	if content, ok := sb.ForceFlush(); ok {
		t.Errorf("content survived reset: %q", content)
	}
}

func TestBufferConcurrentWrites(t *testing.T) {
	sb := NewStreamingBuffer()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sb.Write("t")
			}
		}()
	}
	wg.Wait()

	content, ok := sb.ForceFlush()
	if !ok || len(content) != 800 {
		t.Errorf("got %d bytes, want 800", len(content))
	}
}
