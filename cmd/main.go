package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/setsum/internal/repositories"
	"github.com/desertthunder/setsum/internal/sheets"
	"github.com/desertthunder/setsum/internal/shared"
	"github.com/desertthunder/setsum/internal/tasks"
)

func main() {
	logger := shared.NewLogger(nil)
	if os.Getenv("SETSUM_DEBUG") != "" {
		shared.SetLogLevel(logger, log.DebugLevel)
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	var sheetsService sheets.Service
	var driveService sheets.Drive
	if config.Google.CredentialsPath != "" {
		if client, err := sheets.NewClient(context.Background(), config.Google.CredentialsPath); err == nil {
			sheetsService = client
			driveService = client
		} else {
			logger.Warn("google client unavailable", "error", err)
		}
	}

	var runRecorder tasks.RunRecorder
	if _, err := os.Stat(config.Database.Path); err == nil {
		if db, err := shared.NewDatabase(config.Database.Path); err == nil {
			defer db.Close()
			shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
			runRecorder = repositories.NewRunRepository(db)
		} else {
			logger.Warn("run log unavailable", "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Sheets: sheetsService,
		Drive:  driveService,
		Runs:   runRecorder,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "setsum",
		Usage:    "Deduplicate, summarize, and index spreadsheets of set metadata",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
