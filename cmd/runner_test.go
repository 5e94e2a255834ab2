package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/setsum/internal/shared"
	"github.com/desertthunder/setsum/internal/tasks"
	th "github.com/desertthunder/setsum/internal/testing"
)

// stubEngine returns canned results and records which operations ran.
type stubEngine struct {
	calls []string

	dedupeResult     *tasks.DedupeResult
	dedupeErr        error
	summaryResult    *tasks.SummaryResult
	summaryErr       error
	intakeResult     *tasks.IntakeResult
	intakeErr        error
	collectionResult *tasks.CollectionResult
	collectionErr    error
}

func (s *stubEngine) DedupeSpreadsheet(ctx context.Context, progress chan<- tasks.ProgressUpdate, spreadsheetID string) (*tasks.DedupeResult, error) {
	s.calls = append(s.calls, "dedupe:"+spreadsheetID)
	if s.dedupeErr != nil {
		return nil, s.dedupeErr
	}
	result := *s.dedupeResult
	result.SpreadsheetID = spreadsheetID
	return &result, nil
}

func (s *stubEngine) GenerateSummaries(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.SummaryResult, error) {
	s.calls = append(s.calls, "summarize")
	return s.summaryResult, s.summaryErr
}

func (s *stubEngine) Intake(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.IntakeResult, error) {
	s.calls = append(s.calls, "intake")
	return s.intakeResult, s.intakeErr
}

func (s *stubEngine) BuildCollection(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.CollectionResult, error) {
	s.calls = append(s.calls, "collection")
	return s.collectionResult, s.collectionErr
}

func newTestRunner(engine tasks.Engine) (*Runner, *bytes.Buffer) {
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: shared.DefaultConfig(),
		Logger: shared.NewLogger(output),
		Output: output,
		Engine: engine,
	})
	return runner, output
}

// runCommand executes one registered subcommand against the runner.
func runCommand(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{Name: "setsum", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"setsum"}, args...))
}

func TestNewRunner(t *testing.T) {
	t.Run("with all dependencies provided", func(t *testing.T) {
		config := shared.DefaultConfig()
		logger := shared.NewLogger(nil)
		output := &bytes.Buffer{}
		fake := th.NewFake()
		engine := &stubEngine{}

		runner := NewRunner(RunnerOpts{
			Config: config,
			Sheets: fake,
			Drive:  fake,
			Logger: logger,
			Output: output,
			Engine: engine,
		})

		if runner.config != config {
			t.Error("expected config to be set")
		}
		if runner.logger != logger {
			t.Error("expected logger to be set")
		}
		if runner.output != output {
			t.Error("expected output to be set")
		}
		if runner.engine != engine {
			t.Error("expected provided engine to be used")
		}
	})

	t.Run("with nil config uses defaults", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if runner.config == nil {
			t.Error("expected default config to be set")
		}
	})

	t.Run("with nil output uses stdout", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if runner.output != os.Stdout {
			t.Error("expected output to default to os.Stdout")
		}
	})

	t.Run("builds an engine when none provided", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if runner.engine == nil {
			t.Error("expected an engine to be built")
		}
	})
}

func TestDedupeCommand(t *testing.T) {
	t.Run("writes per tab summary", func(t *testing.T) {
		engine := &stubEngine{
			dedupeResult: &tasks.DedupeResult{
				Tabs: []tasks.TabResult{
					{Tab: "Sheet1", RowsIn: 5, RowsOut: 3, TotalCount: 5},
					{Tab: "Notes", Skipped: true},
				},
				RowsIn:     5,
				RowsOut:    3,
				TotalCount: 5,
			},
		}
		runner, output := newTestRunner(engine)

		if err := runCommand(t, runner, "dedupe", "sheet-a"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := engine.calls; len(got) != 1 || got[0] != "dedupe:sheet-a" {
			t.Errorf("expected one dedupe call, got %v", got)
		}
		if !strings.Contains(output.String(), "5 -> 3 rows") {
			t.Errorf("expected row summary in output, got %q", output.String())
		}
		if !strings.Contains(output.String(), "skipped") {
			t.Errorf("expected skipped tab in output, got %q", output.String())
		}
	})

	t.Run("requires at least one spreadsheet id", func(t *testing.T) {
		runner, _ := newTestRunner(&stubEngine{})
		err := runCommand(t, runner, "dedupe")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("continues past a failing spreadsheet and returns its error", func(t *testing.T) {
		engine := &stubEngine{dedupeErr: shared.ErrServiceUnavailable}
		runner, _ := newTestRunner(engine)

		err := runCommand(t, runner, "dedupe", "sheet-a", "sheet-b")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
		if len(engine.calls) != 2 {
			t.Errorf("expected both spreadsheets attempted, got %v", engine.calls)
		}
	})

	t.Run("json output", func(t *testing.T) {
		engine := &stubEngine{dedupeResult: &tasks.DedupeResult{RowsIn: 2, RowsOut: 1, TotalCount: 2}}
		runner, output := newTestRunner(engine)

		if err := runCommand(t, runner, "dedupe", "--json", "sheet-a"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), `"SpreadsheetID":"sheet-a"`) {
			t.Errorf("expected JSON payload in output, got %q", output.String())
		}
	})
}

func TestSummarizeCommand(t *testing.T) {
	t.Run("reports generated and skipped years", func(t *testing.T) {
		engine := &stubEngine{
			summaryResult: &tasks.SummaryResult{
				Years: []tasks.YearSummary{
					{Year: "2024", Generated: true, Rows: 10, SpreadsheetID: "sum-2024"},
					{Year: "2023", Deduped: true, SpreadsheetID: "sum-2023"},
					{Year: "2022", SkipReason: "unready files"},
				},
			},
		}
		runner, output := newTestRunner(engine)

		if err := runCommand(t, runner, "summarize"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		text := output.String()
		for _, want := range []string{"2024: generated (10 rows", "2023: existing summary re-deduplicated", "2022: skipped (unready files)"} {
			if !strings.Contains(text, want) {
				t.Errorf("expected %q in output, got %q", want, text)
			}
		}
	})

	t.Run("propagates engine errors", func(t *testing.T) {
		engine := &stubEngine{summaryErr: shared.ErrServiceUnavailable}
		runner, _ := newTestRunner(engine)

		err := runCommand(t, runner, "summarize")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestIntakeCommand(t *testing.T) {
	engine := &stubEngine{
		intakeResult: &tasks.IntakeResult{Uploaded: 3, Moved: 1, Duplicates: 2, Skipped: 1},
	}
	runner, output := newTestRunner(engine)

	if err := runCommand(t, runner, "intake"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := output.String()
	for _, want := range []string{"Uploaded:   3", "Moved:      1", "Duplicates: 2", "Skipped:    1"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got %q", want, text)
		}
	}
}

func TestCollectionCommand(t *testing.T) {
	engine := &stubEngine{
		collectionResult: &tasks.CollectionResult{
			SpreadsheetID: "coll-1",
			Tabs:          []string{"2025", "2024", "Summary"},
			Rows:          12,
		},
	}
	runner, output := newTestRunner(engine)

	if err := runCommand(t, runner, "collection"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := output.String()
	if !strings.Contains(text, "coll-1") || !strings.Contains(text, "Linked rows: 12") {
		t.Errorf("expected collection summary in output, got %q", text)
	}
	if engine.calls[0] != "collection" {
		t.Errorf("expected collection call, got %v", engine.calls)
	}
}

func TestRunsCommand(t *testing.T) {
	t.Run("rejects an unknown kind", func(t *testing.T) {
		runner, _ := newTestRunner(&stubEngine{})
		err := runCommand(t, runner, "runs", "--kind", "upload")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("rejects an unknown status", func(t *testing.T) {
		runner, _ := newTestRunner(&stubEngine{})
		err := runCommand(t, runner, "runs", "--status", "done")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("rejects an unknown format", func(t *testing.T) {
		runner, _ := newTestRunner(&stubEngine{})
		err := runCommand(t, runner, "runs", "--format", "yaml")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestWriterFailures(t *testing.T) {
	newEngine := func() *stubEngine {
		return &stubEngine{dedupeResult: &tasks.DedupeResult{RowsIn: 1, RowsOut: 1, TotalCount: 1}}
	}

	t.Run("failing writer surfaces the JSON output error", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{
			Config: shared.DefaultConfig(),
			Logger: shared.NewLogger(io.Discard),
			Output: &th.FWriter{},
			Engine: newEngine(),
		})

		err := runCommand(t, runner, "dedupe", "--json", "sheet-a")
		if err == nil || !strings.Contains(err.Error(), "failed to write output") {
			t.Errorf("expected output write failure, got %v", err)
		}
	})

	t.Run("write limit reached on the trailing newline", func(t *testing.T) {
		lw := th.NewLimitedWriter(2, 0, &bytes.Buffer{})
		runner := NewRunner(RunnerOpts{
			Config: shared.DefaultConfig(),
			Logger: shared.NewLogger(io.Discard),
			Output: &lw,
			Engine: newEngine(),
		})

		err := runCommand(t, runner, "dedupe", "--json", "sheet-a")
		if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
			t.Errorf("expected newline write failure, got %v", err)
		}
	})
}
