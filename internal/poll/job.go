// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package poll

import "context"

// =============================================================================
// JOB STATUS SPECIALIZATION
// =============================================================================

// JobStatus is the discrete status enum reported by asynchronous backend
// jobs, such as the astrology profile computation.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the status ends the job's lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// NewJobPoller builds a controller for probes whose result carries a
// JobStatus: the loop stops on completed or failed, and failed is the
// error-terminal outcome (surfaced as ErrFailedResult).
//
// The status function extracts the job status from a probe result. Any
// StopWhen/IsErrorResult set on opts are overridden.
func NewJobPoller[T any](probe func(ctx context.Context) (T, error), status func(T) JobStatus, opts Options[T]) *Controller[T] {
	opts.Probe = probe
	opts.StopWhen = func(result T) bool { return status(result).Terminal() }
	opts.IsErrorResult = func(result T) bool { return status(result) == JobFailed }
	return New(opts)
}
