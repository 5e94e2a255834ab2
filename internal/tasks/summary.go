package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/desertthunder/setsum/internal/models"
	"github.com/desertthunder/setsum/internal/sheets"
	"github.com/desertthunder/setsum/internal/shared"
)

// YearSummary represents the outcome for one year folder.
type YearSummary struct {
	Year          string
	SpreadsheetID string // The "<Year> Summary" spreadsheet, when one exists
	Generated     bool   // True when a new summary was built this run
	Deduped       bool   // True when the summary was deduplicated
	Rows          int    // Data rows written to a newly built summary
	SkipReason    string // Non-empty when the year was skipped
}

// SummaryResult contains all data from a summary generation pass.
type SummaryResult struct {
	SummaryFolderID string
	Years           []YearSummary
}

// headerRows is one tab's contribution to a combined summary: canonical
// lower-cased header plus the rows projected onto it.
type headerRows struct {
	header []string
	rows   [][]string
}

// fileTables collects every usable tab of one spreadsheet.
type fileTables struct {
	tables []headerRows
	err    error
}

// GenerateSummaries scans the year folders under the sets folder and builds
// the missing "<Year> Summary" spreadsheets.
//
// Years with an exact existing summary are re-deduplicated and left alone.
// Years with summary-like files but no exact name match are skipped to avoid
// modifying the wrong file, as are years containing unready (FAILED_ or
// _Cleaned) spreadsheets.
func (e *SummaryEngine) GenerateSummaries(ctx context.Context, progress chan<- ProgressUpdate) (*SummaryResult, error) {
	if e.sheets == nil || e.drive == nil {
		return nil, fmt.Errorf("%w: sheets service not initialized", shared.ErrServiceUnavailable)
	}
	if e.cfg.Drive.SetsFolderID == "" {
		return nil, fmt.Errorf("%w: drive.sets_folder_id", shared.ErrMissingConfig)
	}

	run := e.startRun(models.RunKindSummarize, e.cfg.Drive.SetsFolderID)
	result, err := e.generateSummaries(ctx, progress)
	if result != nil {
		rows := 0
		for _, y := range result.Years {
			rows += y.Rows
		}
		run.SetCounts(rows, rows, 0)
	}
	e.finishRun(run, runStatus(err), err)
	return result, err
}

func (e *SummaryEngine) generateSummaries(ctx context.Context, progress chan<- ProgressUpdate) (*SummaryResult, error) {
	summaryFolderID, err := attempt(ctx, e, "drive.ensureFolder", func() (string, error) {
		return e.drive.EnsureFolder(ctx, e.cfg.Drive.SetsFolderID, e.cfg.Drive.SummaryFolderName)
	})
	if err != nil {
		return nil, err
	}

	yearFolders, err := attempt(ctx, e, "drive.listFolders", func() ([]models.File, error) {
		return e.drive.ListFiles(ctx, e.cfg.Drive.SetsFolderID, sheets.FileQuery{FoldersOnly: true})
	})
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, scanFoldersUpdate(len(yearFolders)))

	result := &SummaryResult{SummaryFolderID: summaryFolderID}

	for _, folder := range yearFolders {
		year := folder.Name
		if strings.EqualFold(year, e.cfg.Drive.SummaryFolderName) {
			continue
		}

		summaryName := year + " Summary"

		summaryFiles, err := attempt(ctx, e, "drive.listSummaries", func() ([]models.File, error) {
			return e.drive.ListFiles(ctx, summaryFolderID, sheets.FileQuery{ExcludeFolders: true})
		})
		if err != nil {
			return result, err
		}

		var existing []models.File
		var canonical *models.File
		for i, f := range summaryFiles {
			if !strings.Contains(f.Name, summaryName) {
				continue
			}
			existing = append(existing, f)
			if f.Name == summaryName {
				canonical = &summaryFiles[i]
			}
		}

		if canonical != nil {
			e.logger.Info("summary already exists, re-running dedup", "year", year, "name", summaryName)
			if _, err := e.DedupeSpreadsheet(ctx, progress, canonical.ID); err != nil {
				return result, err
			}
			result.Years = append(result.Years, YearSummary{
				Year:          year,
				SpreadsheetID: canonical.ID,
				Deduped:       true,
			})
			continue
		}

		if len(existing) > 0 {
			names := make([]string, 0, len(existing))
			for _, f := range existing {
				names = append(names, f.Name)
			}
			e.logger.Warn("summary-like files without an exact match, skipping to avoid modifying the wrong file",
				"year", year, "matches", strings.Join(names, ", "))
			result.Years = append(result.Years, YearSummary{Year: year, SkipReason: "ambiguous summary files"})
			continue
		}

		files, err := attempt(ctx, e, "drive.listSpreadsheets", func() ([]models.File, error) {
			return e.drive.ListFiles(ctx, folder.ID, sheets.FileQuery{MimeType: sheets.MimeSpreadsheet})
		})
		if err != nil {
			return result, err
		}

		if unready(files) {
			e.logger.Info("unready files found, skipping year", "year", year)
			result.Years = append(result.Years, YearSummary{Year: year, SkipReason: "unready files"})
			continue
		}

		e.logger.Info("generating summary", "year", year, "files", len(files))

		id, rows, err := e.generateSummaryForYear(ctx, progress, files, summaryFolderID, year)
		if err != nil {
			return result, err
		}
		if id == "" {
			e.logger.Info("no valid data found in folder", "year", year)
			result.Years = append(result.Years, YearSummary{Year: year, SkipReason: "no data"})
			continue
		}

		result.Years = append(result.Years, YearSummary{
			Year:          year,
			SpreadsheetID: id,
			Generated:     true,
			Deduped:       true,
			Rows:          rows,
		})
	}

	return result, nil
}

// unready reports whether any spreadsheet in the folder still carries an
// intake failure marker or a half-finished cleanup.
func unready(files []models.File) bool {
	for _, f := range files {
		if strings.HasPrefix(f.Name, "FAILED_") || strings.Contains(f.Name, "_Cleaned") {
			return true
		}
	}
	return false
}

// generateSummaryForYear combines every tab of the year's spreadsheets into a
// single sorted table, publishes it as "<Year> Summary", and deduplicates the
// published copy. Returns the published spreadsheet ID, or "" when the year
// had no usable data.
//
// Reading the year's files runs through a rate-limited worker pool so a large
// year does not trip API quotas.
func (e *SummaryEngine) generateSummaryForYear(ctx context.Context, progress chan<- ProgressUpdate, files []models.File, summaryFolderID, year string) (string, int, error) {
	workers := e.cfg.Summary.Workers
	if workers <= 0 {
		workers = 5
	}
	if workers > 10 {
		workers = 10
	}
	rateLimit := e.cfg.Summary.RateLimit
	if rateLimit <= 0 {
		rateLimit = 5.0
	}

	limiter := rate.NewLimiter(rate.Limit(rateLimit), 1)
	results := make([]fileTables, len(files))
	jobs := make(chan int, len(files))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					results[i].err = ctx.Err()
					continue
				default:
				}

				if err := limiter.Wait(ctx); err != nil {
					results[i].err = err
					continue
				}

				e.sendProgress(progress, readSpreadsheetUpdate(i+1, len(files), files[i].Name))
				results[i] = e.readSpreadsheetTables(ctx, files[i])
			}
		}()
	}
	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	allHeaders := map[string]bool{}
	var sheetData []headerRows
	for _, res := range results {
		if res.err != nil {
			return "", 0, res.err
		}
		for _, t := range res.tables {
			for _, h := range t.header {
				allHeaders[h] = true
			}
			sheetData = append(sheetData, t)
		}
	}

	if len(sheetData) == 0 {
		return "", 0, nil
	}

	finalCanon, finalHeader := e.summaryHeader(allHeaders)

	var finalRows [][]string
	for _, t := range sheetData {
		idx := map[string]int{}
		for i, h := range t.header {
			idx[h] = i
		}
		for _, row := range t.rows {
			aligned := make([]string, 0, len(finalCanon)+1)
			for _, h := range finalCanon {
				if i, ok := idx[h]; ok && i < len(row) {
					aligned = append(aligned, row[i])
				} else {
					aligned = append(aligned, "")
				}
			}
			finalRows = append(finalRows, append(aligned, "1"))
		}
	}

	sortSummaryRows(finalRows, finalCanon)

	e.sendProgress(progress, combineRowsUpdate(year, len(finalRows)))

	combinedName := "_Combined_" + year
	summaryName := year + " Summary"

	combinedID, err := attempt(ctx, e, "drive.createSpreadsheet", func() (string, error) {
		return e.drive.CreateSpreadsheet(ctx, summaryFolderID, combinedName)
	})
	if err != nil {
		return "", 0, err
	}

	loc := sheets.Locator{SpreadsheetID: combinedID, Tab: e.cfg.Drive.SummaryTabName}
	if err := attemptErr(ctx, e, "sheets.ensureTab", func() error {
		return e.sheets.EnsureTab(ctx, loc)
	}); err != nil {
		return "", 0, err
	}
	if err := attemptErr(ctx, e, "sheets.deleteTabsExcept", func() error {
		return e.sheets.DeleteTabsExcept(ctx, loc)
	}); err != nil {
		return "", 0, err
	}

	table := make(models.Table, 0, len(finalRows)+1)
	table = append(table, finalHeader)
	table = append(table, finalRows...)
	if err := attemptErr(ctx, e, "sheets.writeTable", func() error {
		return e.sheets.WriteTable(ctx, loc, table)
	}); err != nil {
		return "", 0, err
	}

	summaryID, err := attempt(ctx, e, "drive.copyFile", func() (string, error) {
		return e.drive.CopyFile(ctx, combinedID, summaryFolderID, summaryName)
	})
	if err != nil {
		return "", 0, err
	}

	e.sendProgress(progress, publishSummaryUpdate(year, summaryID))
	e.logger.Info("published year summary", "year", year, "combined", combinedID, "summary", summaryID, "rows", len(finalRows))

	if _, err := e.DedupeSpreadsheet(ctx, progress, summaryID); err != nil {
		return summaryID, len(finalRows), err
	}

	return summaryID, len(finalRows), nil
}

// readSpreadsheetTables reads every tab of one spreadsheet and keeps the
// columns whose canonical header is allowed, dropping blank rows.
func (e *SummaryEngine) readSpreadsheetTables(ctx context.Context, f models.File) fileTables {
	allowed := map[string]bool{}
	for _, h := range e.cfg.Summary.AllowedHeaders {
		allowed[strings.ToLower(strings.TrimSpace(h))] = true
	}

	tabs, err := attempt(ctx, e, "sheets.listTabs", func() ([]models.SheetInfo, error) {
		return e.sheets.ListTabs(ctx, f.ID)
	})
	if err != nil {
		return fileTables{err: err}
	}
	if len(tabs) == 0 {
		e.logger.Warn("no tabs found in spreadsheet, skipping", "name", f.Name, "id", f.ID)
		return fileTables{}
	}

	var out fileTables
	for _, tab := range tabs {
		loc := sheets.Locator{SpreadsheetID: f.ID, Tab: tab.Title}
		table, err := attempt(ctx, e, "sheets.readTable", func() (models.Table, error) {
			return e.sheets.ReadTable(ctx, loc)
		})
		if err != nil {
			return fileTables{err: err}
		}
		if len(table) < 2 {
			e.logger.Warn("no data in tab", "name", f.Name, "tab", tab.Title)
			continue
		}

		header := make([]string, len(table[0]))
		for i, h := range table[0] {
			header[i] = strings.ToLower(strings.TrimSpace(h))
		}

		var keep []int
		maxIdx := 0
		for i, h := range header {
			if allowed[h] {
				keep = append(keep, i)
				maxIdx = i
			}
		}
		if len(keep) == 0 {
			continue
		}

		filteredHeader := make([]string, 0, len(keep))
		for _, i := range keep {
			filteredHeader = append(filteredHeader, header[i])
		}

		var filteredRows [][]string
		for _, row := range table[1:] {
			blank := true
			for _, cell := range row {
				if strings.TrimSpace(cell) != "" {
					blank = false
					break
				}
			}
			if blank {
				continue
			}

			padded := row
			if len(padded) <= maxIdx {
				padded = append(append([]string{}, row...), make([]string, maxIdx+1-len(row))...)
			}
			projected := make([]string, 0, len(keep))
			for _, i := range keep {
				projected = append(projected, strings.TrimSpace(padded[i]))
			}
			filteredRows = append(filteredRows, projected)
		}

		if len(filteredRows) > 0 {
			out.tables = append(out.tables, headerRows{header: filteredHeader, rows: filteredRows})
		}
	}
	return out
}

// summaryHeader orders the observed canonical headers by the configured
// column order, appends the leftovers sorted, and maps them back to their
// configured display form with a trailing Count column.
func (e *SummaryEngine) summaryHeader(observed map[string]bool) ([]string, []string) {
	display := map[string]string{}
	var desired []string
	for _, c := range e.cfg.Summary.ColumnOrder {
		d := strings.TrimSpace(c)
		canon := strings.ToLower(d)
		display[canon] = d
		desired = append(desired, canon)
	}

	var finalCanon []string
	seen := map[string]bool{}
	for _, c := range desired {
		if observed[c] {
			finalCanon = append(finalCanon, c)
			seen[c] = true
		}
	}
	var extras []string
	for c := range observed {
		if !seen[c] {
			extras = append(extras, c)
		}
	}
	sort.Strings(extras)
	finalCanon = append(finalCanon, extras...)

	finalHeader := make([]string, 0, len(finalCanon)+1)
	for _, c := range finalCanon {
		if d, ok := display[c]; ok {
			finalHeader = append(finalHeader, d)
		} else {
			finalHeader = append(finalHeader, c)
		}
	}
	return finalCanon, append(finalHeader, "Count")
}

// sortSummaryRows orders rows by the title column when present, otherwise by
// the whole row.
func sortSummaryRows(rows [][]string, finalCanon []string) {
	titleIdx := -1
	for i, h := range finalCanon {
		if h == "title" {
			titleIdx = i
			break
		}
	}

	sort.SliceStable(rows, func(a, b int) bool {
		if titleIdx >= 0 {
			return rows[a][titleIdx] < rows[b][titleIdx]
		}
		for i := 0; i < len(rows[a]) && i < len(rows[b]); i++ {
			if rows[a][i] != rows[b][i] {
				return rows[a][i] < rows[b][i]
			}
		}
		return len(rows[a]) < len(rows[b])
	})
}
