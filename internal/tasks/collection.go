package tasks

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/desertthunder/setsum/internal/models"
	"github.com/desertthunder/setsum/internal/sheets"
	"github.com/desertthunder/setsum/internal/shared"
)

var datePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})(.*)`)

// CollectionResult contains all data from rebuilding the collection index.
type CollectionResult struct {
	SpreadsheetID string
	Tabs          []string // Year tabs written, newest first
	Rows          int      // Total linked rows across all tabs
}

// BuildCollection rebuilds the collection index spreadsheet.
//
// The index holds one tab per year folder (newest first) with date, name, and
// HYPERLINK columns sorted descending, plus a summary tab linking every
// published year summary. The spreadsheet is found by its configured name or
// created, then rebuilt from a single temp tab so stale tabs never survive.
func (e *SummaryEngine) BuildCollection(ctx context.Context, progress chan<- ProgressUpdate) (*CollectionResult, error) {
	if e.sheets == nil || e.drive == nil {
		return nil, fmt.Errorf("%w: sheets service not initialized", shared.ErrServiceUnavailable)
	}
	if e.cfg.Drive.SetsFolderID == "" {
		return nil, fmt.Errorf("%w: drive.sets_folder_id", shared.ErrMissingConfig)
	}

	run := e.startRun(models.RunKindCollection, e.cfg.Drive.SetsFolderID)
	result, err := e.buildCollection(ctx, progress)
	if result != nil {
		run.SetCounts(result.Rows, result.Rows, 0)
	}
	e.finishRun(run, runStatus(err), err)
	return result, err
}

func (e *SummaryEngine) buildCollection(ctx context.Context, progress chan<- ProgressUpdate) (*CollectionResult, error) {
	spreadsheetID, err := e.findOrCreateCollection(ctx)
	if err != nil {
		return nil, err
	}
	e.logger.Info("collection spreadsheet", "id", spreadsheetID)

	// Reset to a single temp tab so every other tab can be rebuilt.
	tempLoc := sheets.Locator{SpreadsheetID: spreadsheetID, Tab: e.cfg.Drive.TempTabName}
	if err := attemptErr(ctx, e, "sheets.ensureTab", func() error {
		return e.sheets.EnsureTab(ctx, tempLoc)
	}); err != nil {
		return nil, err
	}
	if err := attemptErr(ctx, e, "sheets.deleteTabsExcept", func() error {
		return e.sheets.DeleteTabsExcept(ctx, tempLoc)
	}); err != nil {
		return nil, err
	}

	folders, err := attempt(ctx, e, "drive.listFolders", func() ([]models.File, error) {
		return e.drive.ListFiles(ctx, e.cfg.Drive.SetsFolderID, sheets.FileQuery{FoldersOnly: true})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(folders, func(a, b int) bool { return folders[a].Name > folders[b].Name })

	e.sendProgress(progress, scanFoldersUpdate(len(folders)))

	result := &CollectionResult{SpreadsheetID: spreadsheetID}

	for i, folder := range folders {
		if strings.EqualFold(folder.Name, "archive") {
			continue
		}

		files, err := attempt(ctx, e, "drive.listFolder", func() ([]models.File, error) {
			return e.drive.ListFiles(ctx, folder.ID, sheets.FileQuery{ExcludeFolders: true})
		})
		if err != nil {
			return result, err
		}

		isSummary := strings.EqualFold(folder.Name, e.cfg.Drive.SummaryFolderName)

		var rows [][]string
		for _, f := range files {
			if f.MimeType != sheets.MimeSpreadsheet {
				continue
			}
			link := hyperlink(f)
			if isSummary {
				rows = append(rows, []string{link, f.Name})
			} else {
				date, title := extractDateAndTitle(f.Name)
				rows = append(rows, []string{textCell(date), textCell(title), link})
			}
		}
		if len(rows) == 0 {
			continue
		}

		if isSummary {
			sort.Slice(rows, func(a, b int) bool { return rows[a][1] > rows[b][1] })
			table := models.Table{{"Link"}}
			for _, r := range rows {
				table = append(table, []string{r[0]})
			}
			if err := e.writeCollectionTab(ctx, progress, i+1, len(folders), spreadsheetID, e.cfg.Drive.SummaryTabName, table); err != nil {
				return result, err
			}
			result.Tabs = append(result.Tabs, e.cfg.Drive.SummaryTabName)
			result.Rows += len(rows)
			continue
		}

		sort.Slice(rows, func(a, b int) bool { return rows[a][0] > rows[b][0] })
		table := models.Table{{"Date", "Name", "Link"}}
		table = append(table, rows...)
		if err := e.writeCollectionTab(ctx, progress, i+1, len(folders), spreadsheetID, folder.Name, table); err != nil {
			return result, err
		}
		result.Tabs = append(result.Tabs, folder.Name)
		result.Rows += len(rows)
	}

	// The scaffolding tabs have served their purpose.
	for _, tab := range []string{e.cfg.Drive.TempTabName, "Sheet1"} {
		loc := sheets.Locator{SpreadsheetID: spreadsheetID, Tab: tab}
		if err := attemptErr(ctx, e, "sheets.deleteTab", func() error {
			return e.sheets.DeleteTab(ctx, loc)
		}); err != nil {
			e.logger.Warn("failed to delete scaffolding tab", "tab", tab, "err", err)
		}
	}

	e.logger.Info("rebuilt collection index", "id", spreadsheetID, "tabs", len(result.Tabs), "rows", result.Rows)
	return result, nil
}

// findOrCreateCollection locates the collection spreadsheet by its configured
// name in the sets folder, creating it when missing.
func (e *SummaryEngine) findOrCreateCollection(ctx context.Context) (string, error) {
	name := e.cfg.Drive.CollectionName
	if name == "" {
		return "", fmt.Errorf("%w: drive.collection_name", shared.ErrMissingConfig)
	}

	files, err := attempt(ctx, e, "drive.listFolder", func() ([]models.File, error) {
		return e.drive.ListFiles(ctx, e.cfg.Drive.SetsFolderID, sheets.FileQuery{MimeType: sheets.MimeSpreadsheet})
	})
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if f.Name == name {
			return f.ID, nil
		}
	}

	return attempt(ctx, e, "drive.createSpreadsheet", func() (string, error) {
		return e.drive.CreateSpreadsheet(ctx, e.cfg.Drive.SetsFolderID, name)
	})
}

// writeCollectionTab creates the tab and writes its rows with formulas
// evaluated, so the HYPERLINK cells render as links.
func (e *SummaryEngine) writeCollectionTab(ctx context.Context, progress chan<- ProgressUpdate, step, total int, spreadsheetID, tab string, table models.Table) error {
	e.sendProgress(progress, buildTabUpdate(step, total, tab, len(table)-1))

	loc := sheets.Locator{SpreadsheetID: spreadsheetID, Tab: tab}
	if err := attemptErr(ctx, e, "sheets.ensureTab", func() error {
		return e.sheets.EnsureTab(ctx, loc)
	}); err != nil {
		return err
	}
	return attemptErr(ctx, e, "sheets.writeFormulas", func() error {
		return e.sheets.WriteFormulas(ctx, loc, table)
	})
}

// hyperlink builds a HYPERLINK formula cell for a spreadsheet file.
func hyperlink(f models.File) string {
	url := "https://docs.google.com/spreadsheets/d/" + f.ID
	return fmt.Sprintf("=HYPERLINK(%q, %q)", url, f.Name)
}

// textCell prefixes a value with a leading apostrophe so USER_ENTERED input
// keeps it literal text.
func textCell(v string) string {
	if v == "" {
		return ""
	}
	return "'" + v
}

// extractDateAndTitle splits a "YYYY-MM-DD Title" filename into its parts.
// Names without a leading date come back whole as the title.
func extractDateAndTitle(name string) (string, string) {
	m := datePattern.FindStringSubmatch(name)
	if m == nil {
		return "", name
	}
	return m[1], strings.TrimLeft(m[2], "-_ ")
}
