package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/setsum/internal/dedupe"
	"github.com/desertthunder/setsum/internal/normalize"
	"github.com/desertthunder/setsum/internal/retry"
	"github.com/desertthunder/setsum/internal/sheets"
	"github.com/desertthunder/setsum/internal/shared"
	"github.com/desertthunder/setsum/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	sheets sheets.Service
	drive  sheets.Drive
	logger *log.Logger
	output io.Writer
	engine tasks.Engine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Sheets sheets.Service
	Drive  sheets.Drive
	Runs   tasks.RunRecorder
	Logger *log.Logger
	Output io.Writer
	Engine tasks.Engine // Overrides the built engine when set, for tests
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	engine := opts.Engine
	if engine == nil {
		engine = tasks.NewSummaryEngine(
			opts.Sheets,
			opts.Drive,
			dedupe.NewEngine(normalize.Default),
			sheets.StatusClassifier{},
			retry.Options{
				MaxAttempts: opts.Config.Retry.MaxAttempts,
				BaseDelay:   opts.Config.Retry.BaseDelay(),
				MaxDelay:    opts.Config.Retry.MaxDelay(),
			},
			opts.Runs,
			opts.Config,
			shared.WithLogger(opts.Logger, "component", "engine"),
		)
	}

	return &Runner{
		config: opts.Config,
		sheets: opts.Sheets,
		drive:  opts.Drive,
		logger: opts.Logger,
		output: opts.Output,
		engine: engine,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, dedupeCommand, summarizeCommand, intakeCommand, collectionCommand, runsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// renderProgress drains a progress channel onto the output until it closes.
func (r *Runner) renderProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	for update := range progress {
		r.writePlain("  %s\n", update.Message)
	}
	close(done)
}
