package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/setsum/internal/models"
	"github.com/desertthunder/setsum/internal/sheets"
	"github.com/desertthunder/setsum/internal/shared"
)

// TabResult represents the outcome of deduplicating a single tab.
type TabResult struct {
	Tab        string // Tab title
	Skipped    bool   // True when the tab had no data rows
	RowsIn     int    // Data rows read
	RowsOut    int    // Data rows written back
	TotalCount int    // Sum of merged counts
}

// DedupeResult contains all data from deduplicating one spreadsheet.
type DedupeResult struct {
	SpreadsheetID string
	Tabs          []TabResult
	RowsIn        int
	RowsOut       int
	TotalCount    int
}

// DedupeSpreadsheet deduplicates every tab of the spreadsheet in place.
//
// Each tab is read, merged, cleared, and rewritten; tabs without data rows
// are reported as skipped and left untouched. A read or write failure stops
// the operation with the partial result.
func (e *SummaryEngine) DedupeSpreadsheet(ctx context.Context, progress chan<- ProgressUpdate, spreadsheetID string) (*DedupeResult, error) {
	if e.sheets == nil {
		return nil, fmt.Errorf("%w: sheets service not initialized", shared.ErrServiceUnavailable)
	}
	if spreadsheetID == "" {
		return nil, fmt.Errorf("%w: spreadsheet id", shared.ErrMissingArgument)
	}

	run := e.startRun(models.RunKindDedupe, spreadsheetID)
	result, err := e.dedupeSpreadsheet(ctx, progress, spreadsheetID)
	if result != nil {
		run.SetCounts(result.RowsIn, result.RowsOut, result.TotalCount)
	}
	e.finishRun(run, runStatus(err), err)
	return result, err
}

func (e *SummaryEngine) dedupeSpreadsheet(ctx context.Context, progress chan<- ProgressUpdate, spreadsheetID string) (*DedupeResult, error) {
	e.sendProgress(progress, listTabsUpdate(spreadsheetID))

	tabs, err := attempt(ctx, e, "sheets.listTabs", func() ([]models.SheetInfo, error) {
		return e.sheets.ListTabs(ctx, spreadsheetID)
	})
	if err != nil {
		return nil, err
	}

	result := &DedupeResult{SpreadsheetID: spreadsheetID}

	for i, tab := range tabs {
		loc := sheets.Locator{SpreadsheetID: spreadsheetID, Tab: tab.Title}
		e.sendProgress(progress, dedupeTabUpdate(i+1, len(tabs), tab.Title))

		table, err := attempt(ctx, e, "sheets.readTable", func() (models.Table, error) {
			return e.sheets.ReadTable(ctx, loc)
		})
		if err != nil {
			return result, err
		}

		res := e.dedupe.Deduplicate(table)
		result.Tabs = append(result.Tabs, TabResult{
			Tab:        tab.Title,
			Skipped:    res.Skipped,
			RowsIn:     res.RowsIn,
			RowsOut:    res.RowsOut,
			TotalCount: res.TotalCount,
		})
		result.RowsIn += res.RowsIn
		result.RowsOut += res.RowsOut
		result.TotalCount += res.TotalCount

		if res.Skipped {
			e.logger.Info("no data rows, leaving tab untouched", "spreadsheet", spreadsheetID, "tab", tab.Title)
			continue
		}

		e.sendProgress(progress, writeTabUpdate(i+1, len(tabs), tab.Title, res.RowsOut))

		if err := attemptErr(ctx, e, "sheets.clearTable", func() error {
			return e.sheets.ClearTable(ctx, loc)
		}); err != nil {
			return result, err
		}
		if err := attemptErr(ctx, e, "sheets.writeTable", func() error {
			return e.sheets.WriteTable(ctx, loc, res.Table)
		}); err != nil {
			return result, err
		}

		e.logger.Info("deduplicated tab",
			"spreadsheet", spreadsheetID,
			"tab", tab.Title,
			"rows_in", res.RowsIn,
			"rows_out", res.RowsOut,
			"total_count", res.TotalCount,
		)
	}

	return result, nil
}
