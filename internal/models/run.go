package models

import (
	"fmt"
	"time"
)

// Run statuses
const (
	RunStatusRunning = "running"
	RunStatusOK      = "ok"
	RunStatusSkipped = "skipped"
	RunStatusFailed  = "failed"
)

// Run kinds, one per top-level task
const (
	RunKindDedupe     = "dedupe"
	RunKindSummarize  = "summarize"
	RunKindIntake     = "intake"
	RunKindCollection = "collection"
)

// Run records one task invocation against a spreadsheet, folder, or tab.
// Implements [Model].
type Run struct {
	id         string
	kind       string
	target     string
	rowsIn     int
	rowsOut    int
	totalCount int
	status     string
	errMsg     string
	startedAt  time.Time
	finishedAt *time.Time
}

// NewRun creates a running Run for the given task kind and target.
func NewRun(kind, target string) *Run {
	return &Run{
		kind:      kind,
		target:    target,
		status:    RunStatusRunning,
		startedAt: time.Now(),
	}
}

func (r *Run) ID() string            { return r.id }
func (r *Run) Kind() string          { return r.kind }
func (r *Run) Target() string        { return r.target }
func (r *Run) RowsIn() int           { return r.rowsIn }
func (r *Run) RowsOut() int          { return r.rowsOut }
func (r *Run) TotalCount() int       { return r.totalCount }
func (r *Run) Status() string        { return r.status }
func (r *Run) Error() string         { return r.errMsg }
func (r *Run) StartedAt() time.Time  { return r.startedAt }
func (r *Run) CreatedAt() time.Time  { return r.startedAt }
func (r *Run) UpdatedAt() time.Time {
	if r.finishedAt != nil {
		return *r.finishedAt
	}
	return r.startedAt
}
func (r *Run) FinishedAt() *time.Time { return r.finishedAt }

func (r *Run) SetID(id string)              { r.id = id }
func (r *Run) SetStartedAt(ts time.Time)    { r.startedAt = ts }
func (r *Run) SetFinishedAt(ts *time.Time)  { r.finishedAt = ts }
func (r *Run) SetStatus(status string)      { r.status = status }
func (r *Run) SetError(msg string)          { r.errMsg = msg }

// SetCounts records row bookkeeping for the run.
func (r *Run) SetCounts(rowsIn, rowsOut, totalCount int) {
	r.rowsIn = rowsIn
	r.rowsOut = rowsOut
	r.totalCount = totalCount
}

// Finish marks the run complete with the given status; a non-empty msg is
// recorded as the run's error text.
func (r *Run) Finish(status, msg string) {
	now := time.Now()
	r.finishedAt = &now
	r.status = status
	r.errMsg = msg
}

// Validate checks if the run's data is valid.
func (r *Run) Validate() error {
	if r.kind == "" {
		return fmt.Errorf("run kind is required")
	}
	if r.target == "" {
		return fmt.Errorf("run target is required")
	}
	switch r.status {
	case RunStatusRunning, RunStatusOK, RunStatusSkipped, RunStatusFailed:
	default:
		return fmt.Errorf("invalid run status: %s", r.status)
	}
	return nil
}
