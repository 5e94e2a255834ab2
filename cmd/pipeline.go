package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/setsum/internal/shared"
	"github.com/desertthunder/setsum/internal/tasks"
)

// Dedupe deduplicates every tab of the spreadsheets named as arguments.
//
// Spreadsheets are processed independently; a failure is reported and the
// remaining arguments still run, with the first error returned at the end.
func (r *Runner) Dedupe(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one spreadsheet id", shared.ErrMissingArgument)
	}

	r.logger.Info("starting dedupe", "spreadsheets", len(ids))

	var results []*tasks.DedupeResult
	var firstErr error

	for _, id := range ids {
		progress := make(chan tasks.ProgressUpdate, 50)
		done := make(chan struct{})
		go r.renderProgress(progress, done)

		result, err := r.engine.DedupeSpreadsheet(ctx, progress, id)
		close(progress)
		<-done

		if err != nil {
			r.logger.Error("dedupe failed", "spreadsheet", id, "error", err)
			r.writePlain("✗ %s: %v\n", id, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results = append(results, result)

		r.writePlain("✓ %s: %d tabs, %d -> %d rows (total count %d)\n",
			id, len(result.Tabs), result.RowsIn, result.RowsOut, result.TotalCount)
		for _, tab := range result.Tabs {
			if tab.Skipped {
				r.writePlain("  - %s: skipped (no data rows)\n", tab.Tab)
				continue
			}
			r.writePlain("  - %s: %d -> %d rows\n", tab.Tab, tab.RowsIn, tab.RowsOut)
		}
	}

	if cmd.Bool("json") {
		if err := r.writeJSON(results, cmd.Bool("pretty")); err != nil {
			return err
		}
	}
	return firstErr
}

// Summarize builds the missing year summaries.
func (r *Runner) Summarize(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("starting summary generation")

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.renderProgress(progress, done)

	result, err := r.engine.GenerateSummaries(ctx, progress)
	close(progress)
	<-done

	if err != nil {
		return err
	}

	r.writePlainHeader("Summary Generation Complete")
	for _, y := range result.Years {
		switch {
		case y.Generated:
			r.writePlain("✓ %s: generated (%d rows, ID %s)\n", y.Year, y.Rows, y.SpreadsheetID)
		case y.Deduped:
			r.writePlain("✓ %s: existing summary re-deduplicated\n", y.Year)
		default:
			r.writePlain("- %s: skipped (%s)\n", y.Year, y.SkipReason)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}
	return nil
}

// Intake processes new files in the source folder.
func (r *Runner) Intake(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("starting intake")

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.renderProgress(progress, done)

	result, err := r.engine.Intake(ctx, progress)
	close(progress)
	<-done

	if err != nil {
		return err
	}

	r.writePlainHeader("Intake Complete")
	r.writePlain("Uploaded:   %d CSVs\n", result.Uploaded)
	r.writePlain("Moved:      %d files\n", result.Moved)
	r.writePlain("Renamed:    %d prefixes stripped\n", result.Renamed)
	r.writePlain("Duplicates: %d flagged\n", result.Duplicates)
	r.writePlain("Failed:     %d\n", result.Failed)
	r.writePlain("Skipped:    %d\n", result.Skipped)

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}
	return nil
}

// Collection rebuilds the collection index spreadsheet.
func (r *Runner) Collection(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("starting collection rebuild")

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.renderProgress(progress, done)

	result, err := r.engine.BuildCollection(ctx, progress)
	close(progress)
	<-done

	if err != nil {
		return err
	}

	r.writePlainHeader("Collection Rebuilt")
	r.writePlain("Spreadsheet: %s\n", result.SpreadsheetID)
	r.writePlain("Tabs:        %d\n", len(result.Tabs))
	r.writePlain("Linked rows: %d\n", result.Rows)

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}
	return nil
}
