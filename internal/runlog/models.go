// Package runlog persists run reports as durable JSON under a base
// directory. All writes are atomic (file sync + atomic rename + dir sync);
// all reads decode strictly.
package runlog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Report is the persistent summary of one graph run.
type Report struct {
	// RunID is a UUID string identifying the run.
	RunID string `json:"run_id"`

	// Workload names the submission sequence that was executed.
	Workload string `json:"workload"`

	Workers    int       `json:"workers"`
	StartTime  time.Time `json:"start_time"`
	DurationMS int64     `json:"duration_ms"`

	TasksSubmitted uint64 `json:"tasks_submitted"`
	TasksInlined   uint64 `json:"tasks_inlined"`
	TasksCompleted uint64 `json:"tasks_completed"`
	TasksFailed    uint64 `json:"tasks_failed"`

	// FailedTasks lists failed task ids; serialized as [] rather than null.
	FailedTasks []uint64 `json:"failed_tasks"`

	// TraceHash is the canonical trace hash of the run, when traced.
	TraceHash string `json:"trace_hash,omitempty"`
}

func (r Report) Validate() error {
	var errs []error
	if _, err := uuid.Parse(r.RunID); err != nil {
		errs = append(errs, fmt.Errorf("run_id must be a UUID: %w", err))
	}
	if strings.TrimSpace(r.Workload) == "" {
		errs = append(errs, errors.New("workload is required"))
	}
	if r.Workers <= 0 {
		errs = append(errs, errors.New("workers must be > 0"))
	}
	if r.StartTime.IsZero() {
		errs = append(errs, errors.New("start_time is required"))
	}
	if r.DurationMS < 0 {
		errs = append(errs, errors.New("duration_ms must be >= 0"))
	}
	if r.FailedTasks == nil {
		errs = append(errs, errors.New("failed_tasks must be an array (not null)"))
	}
	if uint64(len(r.FailedTasks)) != r.TasksFailed {
		errs = append(errs, fmt.Errorf("tasks_failed is %d but failed_tasks lists %d", r.TasksFailed, len(r.FailedTasks)))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
