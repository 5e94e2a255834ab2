package tasks

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/setsum/internal/models"
	"github.com/desertthunder/setsum/internal/sheets"
	"github.com/desertthunder/setsum/internal/shared"
)

// Status prefixes intake stamps onto (and strips from) source files.
const (
	failedPrefix    = "FAILED_"
	duplicatePrefix = "possible_duplicate_"
	copyOfPrefix    = "Copy of "
)

var (
	yearPattern       = regexp.MustCompile(`^(\d{4})[-_]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// IntakeResult contains counters from one pass over the source folder.
type IntakeResult struct {
	Renamed    int // Status prefixes stripped
	Uploaded   int // CSVs imported as spreadsheets
	Moved      int // Non-CSV files moved to their year folder
	Duplicates int // Files flagged possible_duplicate_
	Failed     int // CSVs that could not be imported
	Skipped    int // Files without a recognizable year prefix
}

// Intake processes every file in the source folder.
//
// Leftover status prefixes are stripped first when the bare name is free.
// CSVs are downloaded, normalized, and imported as spreadsheets into their
// year folder with the original archived; a failure stamps the original
// FAILED_. Non-CSV files with a year prefix move to the year folder directly.
// Any change to a year removes that year's stale summary so the next summary
// pass rebuilds it.
func (e *SummaryEngine) Intake(ctx context.Context, progress chan<- ProgressUpdate) (*IntakeResult, error) {
	if e.drive == nil {
		return nil, fmt.Errorf("%w: drive service not initialized", shared.ErrServiceUnavailable)
	}
	if e.cfg.Drive.SourceFolderID == "" {
		return nil, fmt.Errorf("%w: drive.source_folder_id", shared.ErrMissingConfig)
	}

	run := e.startRun(models.RunKindIntake, e.cfg.Drive.SourceFolderID)
	result, err := e.intake(ctx, progress)
	if result != nil {
		run.SetCounts(result.Uploaded+result.Moved+result.Skipped+result.Failed+result.Duplicates, result.Uploaded+result.Moved, 0)
	}
	e.finishRun(run, runStatus(err), err)
	return result, err
}

func (e *SummaryEngine) intake(ctx context.Context, progress chan<- ProgressUpdate) (*IntakeResult, error) {
	result := &IntakeResult{}

	renamed, err := e.normalizePrefixes(ctx)
	if err != nil {
		return result, err
	}
	result.Renamed = renamed

	files, err := attempt(ctx, e, "drive.listSource", func() ([]models.File, error) {
		return e.drive.ListFiles(ctx, e.cfg.Drive.SourceFolderID, sheets.FileQuery{ExcludeFolders: true})
	})
	if err != nil {
		return result, err
	}

	e.logger.Info("processing source folder", "files", len(files))

	for i, f := range files {
		e.sendProgress(progress, inspectFileUpdate(i+1, len(files), f.Name))

		year := extractYear(f.Name)
		if year == "" {
			e.logger.Warn("unrecognized filename format, skipping", "name", f.Name)
			result.Skipped++
			continue
		}

		if !strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			e.processNonCSV(ctx, progress, i+1, len(files), f, year, result)
			continue
		}

		e.processCSV(ctx, progress, i+1, len(files), f, year, result)
	}

	e.logger.Info("intake done",
		"uploaded", result.Uploaded,
		"moved", result.Moved,
		"renamed", result.Renamed,
		"duplicates", result.Duplicates,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)
	return result, nil
}

// normalizePrefixes strips leading status prefixes from source files when the
// bare name is not already taken. Rename failures are logged and skipped.
func (e *SummaryEngine) normalizePrefixes(ctx context.Context) (int, error) {
	files, err := attempt(ctx, e, "drive.listSource", func() ([]models.File, error) {
		return e.drive.ListFiles(ctx, e.cfg.Drive.SourceFolderID, sheets.FileQuery{ExcludeFolders: true})
	})
	if err != nil {
		return 0, err
	}

	existing := map[string]bool{}
	for _, f := range files {
		existing[f.Name] = true
	}

	renamed := 0
	for _, f := range files {
		prefix := statusPrefix(f.Name)
		if prefix == "" {
			continue
		}

		newName := f.Name[len(prefix):]
		if newName == "" {
			e.logger.Warn("derived empty name, skipping", "name", f.Name)
			continue
		}
		if existing[newName] {
			e.logger.Info("target name already exists, leaving file as-is", "name", f.Name, "target", newName)
			continue
		}

		e.logger.Info("stripping status prefix", "from", f.Name, "to", newName)
		if err := attemptErr(ctx, e, "drive.renameFile", func() error {
			return e.drive.RenameFile(ctx, f.ID, newName)
		}); err != nil {
			e.logger.Error("failed to rename file", "name", f.Name, "err", err)
			continue
		}

		delete(existing, f.Name)
		existing[newName] = true
		renamed++
	}
	return renamed, nil
}

// processNonCSV moves a year-prefixed non-CSV file into its year folder,
// flagging it as a possible duplicate when the base name is taken.
func (e *SummaryEngine) processNonCSV(ctx context.Context, progress chan<- ProgressUpdate, step, total int, f models.File, year string, result *IntakeResult) {
	yearFolderID, err := attempt(ctx, e, "drive.ensureFolder", func() (string, error) {
		return e.drive.EnsureFolder(ctx, e.cfg.Drive.SetsFolderID, year)
	})
	if err != nil {
		e.logger.Error("failed to resolve year folder", "name", f.Name, "year", year, "err", err)
		result.Failed++
		return
	}

	taken, err := e.baseNameTaken(ctx, yearFolderID, baseName(f.Name))
	if err != nil {
		e.logger.Error("failed to check for duplicates", "name", f.Name, "err", err)
		result.Failed++
		return
	}
	if taken {
		e.flagDuplicate(ctx, f, result)
		return
	}

	e.sendProgress(progress, moveFileUpdate(step, total, f.Name, year))
	if err := attemptErr(ctx, e, "drive.moveFile", func() error {
		return e.drive.MoveFile(ctx, f.ID, yearFolderID)
	}); err != nil {
		e.logger.Error("failed to move file", "name", f.Name, "err", err)
		result.Failed++
		return
	}

	e.logger.Info("moved file to year folder", "name", f.Name, "year", year)
	e.removeStaleSummary(ctx, year)
	result.Moved++
}

// processCSV downloads, normalizes, and imports one CSV into its year folder.
// Any failure stamps the original FAILED_ so the next run retries it after a
// manual fix.
func (e *SummaryEngine) processCSV(ctx context.Context, progress chan<- ProgressUpdate, step, total int, f models.File, year string, result *IntakeResult) {
	fail := func(stage string, err error) {
		e.logger.Error("failed to import CSV", "name", f.Name, "stage", stage, "err", err)
		failedName := failedPrefix + f.Name
		if rerr := attemptErr(ctx, e, "drive.renameFile", func() error {
			return e.drive.RenameFile(ctx, f.ID, failedName)
		}); rerr != nil {
			e.logger.Error("failed to stamp FAILED_ prefix", "name", f.Name, "err", rerr)
		} else {
			e.logger.Info("stamped failure marker", "name", failedName)
		}
		result.Failed++
	}

	data, err := attempt(ctx, e, "drive.downloadFile", func() ([]byte, error) {
		return e.drive.DownloadFile(ctx, f.ID)
	})
	if err != nil {
		fail("download", err)
		return
	}
	data = normalizeCSV(data)

	yearFolderID, err := attempt(ctx, e, "drive.ensureFolder", func() (string, error) {
		return e.drive.EnsureFolder(ctx, e.cfg.Drive.SetsFolderID, year)
	})
	if err != nil {
		fail("year folder", err)
		return
	}

	base := baseName(f.Name)
	taken, err := e.baseNameTaken(ctx, yearFolderID, base)
	if err != nil {
		fail("duplicate check", err)
		return
	}
	if taken {
		e.logger.Warn("year folder already has a file with this base name, flagging as possible duplicate",
			"name", f.Name, "year", year)
		e.flagDuplicate(ctx, f, result)
		return
	}

	e.sendProgress(progress, uploadFileUpdate(step, total, f.Name, year))
	sheetID, err := attempt(ctx, e, "drive.uploadCSV", func() (string, error) {
		return e.drive.UploadCSV(ctx, yearFolderID, base, data)
	})
	if err != nil {
		fail("upload", err)
		return
	}
	e.logger.Info("imported CSV as spreadsheet", "name", f.Name, "year", year, "sheet", sheetID)

	e.removeStaleSummary(ctx, year)

	// Archive the original; a move failure leaves it in the source folder
	// for the next run but the import already succeeded.
	archiveID, err := attempt(ctx, e, "drive.ensureFolder", func() (string, error) {
		return e.drive.EnsureFolder(ctx, yearFolderID, "Archive")
	})
	if err == nil {
		err = attemptErr(ctx, e, "drive.moveFile", func() error {
			return e.drive.MoveFile(ctx, f.ID, archiveID)
		})
	}
	if err != nil {
		e.logger.Error("failed to archive original", "name", f.Name, "err", err)
	} else {
		e.logger.Info("archived original", "name", f.Name, "year", year)
	}

	result.Uploaded++
}

// flagDuplicate renames a source file with the possible_duplicate_ prefix.
func (e *SummaryEngine) flagDuplicate(ctx context.Context, f models.File, result *IntakeResult) {
	newName := duplicatePrefix + f.Name
	if err := attemptErr(ctx, e, "drive.renameFile", func() error {
		return e.drive.RenameFile(ctx, f.ID, newName)
	}); err != nil {
		e.logger.Error("failed to flag duplicate", "name", f.Name, "err", err)
		result.Failed++
		return
	}
	e.logger.Info("flagged possible duplicate", "name", newName)
	result.Duplicates++
}

// removeStaleSummary deletes the year's published summary so the next summary
// pass rebuilds it. Failures are logged, never fatal.
func (e *SummaryEngine) removeStaleSummary(ctx context.Context, year string) {
	summaryFolderID, err := attempt(ctx, e, "drive.ensureFolder", func() (string, error) {
		return e.drive.EnsureFolder(ctx, e.cfg.Drive.SetsFolderID, e.cfg.Drive.SummaryFolderName)
	})
	if err != nil {
		e.logger.Error("failed to resolve summary folder", "year", year, "err", err)
		return
	}

	files, err := attempt(ctx, e, "drive.listSummaries", func() ([]models.File, error) {
		return e.drive.ListFiles(ctx, summaryFolderID, sheets.FileQuery{ExcludeFolders: true})
	})
	if err != nil {
		e.logger.Error("failed to list summary folder", "year", year, "err", err)
		return
	}

	summaryName := year + " Summary"
	for _, f := range files {
		if f.Name != summaryName {
			continue
		}
		if err := attemptErr(ctx, e, "drive.deleteFile", func() error {
			return e.drive.DeleteFile(ctx, f.ID)
		}); err != nil {
			e.logger.Error("failed to delete stale summary", "name", f.Name, "err", err)
			continue
		}
		e.logger.Info("deleted stale summary", "name", summaryName, "year", year)
	}
}

// baseNameTaken reports whether the folder already holds a file whose name,
// extension stripped, matches base.
func (e *SummaryEngine) baseNameTaken(ctx context.Context, folderID, base string) (bool, error) {
	files, err := attempt(ctx, e, "drive.listFolder", func() ([]models.File, error) {
		return e.drive.ListFiles(ctx, folderID, sheets.FileQuery{ExcludeFolders: true})
	})
	if err != nil {
		return false, err
	}
	for _, f := range files {
		if baseName(f.Name) == base {
			return true, nil
		}
	}
	return false, nil
}

// statusPrefix returns the status prefix a name carries, preserving the
// original casing, or "" when it has none.
func statusPrefix(name string) string {
	lower := strings.ToLower(name)
	for _, p := range []string{failedPrefix, duplicatePrefix, copyOfPrefix} {
		if strings.HasPrefix(lower, strings.ToLower(p)) {
			return name[:len(p)]
		}
	}
	return ""
}

// extractYear pulls the leading four-digit year from a set filename.
func extractYear(name string) string {
	m := yearPattern.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}

// baseName strips the final extension from a filename.
func baseName(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}

// normalizeCSV collapses runs of whitespace inside each line and drops blank
// lines, so ragged hand-edited exports import cleanly.
func normalizeCSV(data []byte) []byte {
	lines := strings.Split(string(data), "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(whitespacePattern.ReplaceAllString(line, " "))
		if line == "" {
			continue
		}
		cleaned = append(cleaned, line)
	}
	return []byte(strings.Join(cleaned, "\n"))
}
