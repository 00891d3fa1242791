// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeJob struct {
	ID     string
	Status JobStatus
}

// TestJobStatusTerminal verifies only completed and failed end the lifecycle.
func TestJobStatusTerminal(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   bool
	}{
		{JobPending, false},
		{JobProcessing, false},
		{JobCompleted, true},
		{JobFailed, true},
		{JobStatus("unknown"), false},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

// TestJobPollerCompletes verifies the poller rides through processing and
// stops on completed.
func TestJobPollerCompletes(t *testing.T) {
	var probes atomic.Int32
	statuses := []JobStatus{JobPending, JobProcessing, JobProcessing, JobCompleted}

	probe := func(ctx context.Context) (fakeJob, error) {
		n := probes.Add(1)
		return fakeJob{ID: "j1", Status: statuses[n-1]}, nil
	}

	c := NewJobPoller(probe, func(j fakeJob) JobStatus { return j.Status },
		Options[fakeJob]{Interval: time.Millisecond})
	c.Start(context.Background())
	<-c.Done()

	if c.State() != StateSuccess {
		t.Fatalf("state = %v, want success", c.State())
	}
	if probes.Load() != 4 {
		t.Errorf("expected 4 probes, got %d", probes.Load())
	}
	result, err := c.Result()
	if err != nil || result.Status != JobCompleted {
		t.Errorf("Result() = (%+v, %v)", result, err)
	}
}

// TestJobPollerFailedJob verifies a failed job terminates with ErrFailedResult
// and the failed result stays readable.
func TestJobPollerFailedJob(t *testing.T) {
	probe := func(ctx context.Context) (fakeJob, error) {
		return fakeJob{ID: "j2", Status: JobFailed}, nil
	}

	c := NewJobPoller(probe, func(j fakeJob) JobStatus { return j.Status },
		Options[fakeJob]{Interval: time.Millisecond})
	c.Start(context.Background())
	<-c.Done()

	result, err := c.Result()
	if !errors.Is(err, ErrFailedResult) {
		t.Fatalf("expected ErrFailedResult, got %v", err)
	}
	if result.Status != JobFailed {
		t.Errorf("result = %+v", result)
	}
}
