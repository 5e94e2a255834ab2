package tasks

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/setsum/internal/dedupe"
	"github.com/desertthunder/setsum/internal/models"
	"github.com/desertthunder/setsum/internal/retry"
	"github.com/desertthunder/setsum/internal/sheets"
	"github.com/desertthunder/setsum/internal/shared"
)

// RunRecorder persists run log rows for completed operations.
// This abstraction allows for easier testing and decoupling from concrete implementation.
type RunRecorder interface {
	Create(run *models.Run) error
	Update(run *models.Run) error
}

// Engine defines the pipeline operations.
type Engine interface {
	// DedupeSpreadsheet deduplicates every tab of one spreadsheet in place.
	DedupeSpreadsheet(ctx context.Context, progress chan<- ProgressUpdate, spreadsheetID string) (*DedupeResult, error)

	// GenerateSummaries builds the missing "<Year> Summary" spreadsheets and
	// re-deduplicates the ones that already exist.
	GenerateSummaries(ctx context.Context, progress chan<- ProgressUpdate) (*SummaryResult, error)

	// Intake processes newly dropped files in the source folder by uploading
	// CSVs into their year folder and moving year-prefixed files.
	Intake(ctx context.Context, progress chan<- ProgressUpdate) (*IntakeResult, error)

	// BuildCollection rebuilds the collection index spreadsheet with one
	// linked tab per year folder.
	BuildCollection(ctx context.Context, progress chan<- ProgressUpdate) (*CollectionResult, error)
}

// SummaryEngine implements Engine against a remote table and file store.
// Contains dependencies on the sheets adapter, the merge logic, and the
// retry policy.
type SummaryEngine struct {
	sheets     sheets.Service
	drive      sheets.Drive
	dedupe     *dedupe.Engine
	classifier retry.Classifier
	retryOpts  retry.Options
	runs       RunRecorder
	cfg        *shared.Config
	logger     *log.Logger
}

// NewSummaryEngine creates a new SummaryEngine with the provided dependencies.
// runs may be nil to disable run recording.
func NewSummaryEngine(
	svc sheets.Service,
	drive sheets.Drive,
	eng *dedupe.Engine,
	classifier retry.Classifier,
	opts retry.Options,
	runs RunRecorder,
	cfg *shared.Config,
	logger *log.Logger,
) *SummaryEngine {
	return &SummaryEngine{
		sheets:     svc,
		drive:      drive,
		dedupe:     eng,
		classifier: classifier,
		retryOpts:  opts,
		runs:       runs,
		cfg:        cfg,
		logger:     logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *SummaryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// attempt runs fn under the engine's retry policy.
func attempt[T any](ctx context.Context, e *SummaryEngine, desc string, fn func() (T, error)) (T, error) {
	return retry.Do(ctx, e.logger, desc, e.classifier, e.retryOpts, fn)
}

// attemptErr is attempt for calls that return only an error.
func attemptErr(ctx context.Context, e *SummaryEngine, desc string, fn func() error) error {
	_, err := attempt(ctx, e, desc, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// startRun opens a run log row. Recording failures are logged and ignored.
func (e *SummaryEngine) startRun(kind, target string) *models.Run {
	run := models.NewRun(kind, target)
	if e.runs != nil {
		if err := e.runs.Create(run); err != nil {
			e.logger.Warn("failed to record run", "kind", kind, "target", target, "err", err)
		}
	}
	return run
}

// finishRun closes a run log row with the outcome of the operation.
func (e *SummaryEngine) finishRun(run *models.Run, status string, opErr error) {
	msg := ""
	if opErr != nil {
		msg = opErr.Error()
	}
	run.Finish(status, msg)
	if e.runs != nil && run.ID() != "" {
		if err := e.runs.Update(run); err != nil {
			e.logger.Warn("failed to update run", "id", run.ID(), "err", err)
		}
	}
}

// runStatus maps an operation outcome to a run status.
func runStatus(opErr error) string {
	if opErr != nil {
		return models.RunStatusFailed
	}
	return models.RunStatusOK
}
