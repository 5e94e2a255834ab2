package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/setsum/internal/formatter"
	"github.com/desertthunder/setsum/internal/models"
	"github.com/desertthunder/setsum/internal/repositories"
	"github.com/desertthunder/setsum/internal/shared"
)

// Runs lists recorded pipeline runs from the run log database.
func (r *Runner) Runs(ctx context.Context, cmd *cli.Command) error {
	criteria := map[string]any{}
	if kind := cmd.String("kind"); kind != "" {
		switch kind {
		case models.RunKindDedupe, models.RunKindSummarize, models.RunKindIntake, models.RunKindCollection:
			criteria["kind"] = kind
		default:
			return fmt.Errorf("%w: unknown kind %q", shared.ErrInvalidArgument, kind)
		}
	}
	if status := cmd.String("status"); status != "" {
		switch status {
		case models.RunStatusRunning, models.RunStatusOK, models.RunStatusSkipped, models.RunStatusFailed:
			criteria["status"] = status
		default:
			return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, status)
		}
	}

	format := cmd.String("format")
	switch format {
	case "text", "csv", "markdown", "json":
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, format)
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open run log (run setup first): %w", err)
	}
	defer db.Close()

	repo := repositories.NewRunRepository(db)
	runs, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		r.writePlain("No runs recorded.\n")
		return nil
	}

	var out []byte
	switch format {
	case "text":
		out, err = formatter.ExportRunsToText(runs)
	case "csv":
		out, err = formatter.ExportRunsToCSV(runs)
	case "markdown":
		out, err = formatter.ExportRunsToMarkdown(runs)
	case "json":
		out, err = formatter.ToRunJSON(runs)
	}
	if err != nil {
		return err
	}

	if format == "text" {
		r.writePlain("%s\n", formatter.Title("Run Log"))
	}
	if _, err := r.output.Write(out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
