// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the config file and the run log database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file and initialize the run log database",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// dedupeCommand deduplicates spreadsheets in place
func dedupeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "dedupe",
		Aliases:   []string{"dd"},
		Usage:     "Deduplicate every tab of the given spreadsheets in place",
		ArgsUsage: "spreadsheet-id [spreadsheet-id...]",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Dedupe,
	}
}

// summarizeCommand builds the missing year summaries
func summarizeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "summarize",
		Aliases: []string{"sum"},
		Usage:   "Build missing year summaries from the sets folder",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Summarize,
	}
}

// intakeCommand processes new files dropped in the source folder
func intakeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "intake",
		Usage: "Import new CSV exports from the source folder into year folders",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Intake,
	}
}

// collectionCommand rebuilds the collection index spreadsheet
func collectionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "collection",
		Aliases: []string{"coll"},
		Usage:   "Rebuild the collection index spreadsheet",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Collection,
	}
}

// runsCommand inspects the run log
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Show recorded pipeline runs",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Filter by task kind (dedupe, summarize, intake, collection)",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Filter by status (running, ok, skipped, failed)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, csv, markdown, json",
				Value:   "text",
			},
		},
		Action: r.Runs,
	}
}
