// package formatter exports run logs and sheet tables to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/desertthunder/setsum/internal/models"
	"github.com/desertthunder/setsum/internal/shared"
)

// ExportTableToCSV converts a sheet table to CSV, header row included.
func ExportTableToCSV(table models.Table) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	for _, row := range table {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportRunsToCSV converts a run log to CSV format with columns: ID, Kind, Target, RowsIn, RowsOut, TotalCount, Status, Error, StartedAt, FinishedAt
func ExportRunsToCSV(runs []*models.Run) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Kind", "Target", "RowsIn", "RowsOut", "TotalCount", "Status", "Error", "StartedAt", "FinishedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, run := range runs {
		record := []string{
			run.ID(),
			run.Kind(),
			run.Target(),
			strconv.Itoa(run.RowsIn()),
			strconv.Itoa(run.RowsOut()),
			strconv.Itoa(run.TotalCount()),
			run.Status(),
			run.Error(),
			run.StartedAt().Format(time.RFC3339),
			formatFinishedAt(run),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportRunsToMarkdown converts a run log to a Markdown table
func ExportRunsToMarkdown(runs []*models.Run) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Run Log\n\n")
	buf.WriteString(fmt.Sprintf("**Runs**: %d\n\n", len(runs)))

	buf.WriteString("| Kind | Target | Rows In | Rows Out | Total Count | Status | Started |\n")
	buf.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
	for _, run := range runs {
		buf.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %s | %s |\n",
			run.Kind(),
			run.Target(),
			run.RowsIn(),
			run.RowsOut(),
			run.TotalCount(),
			run.Status(),
			run.StartedAt().Format(time.RFC3339),
		))
	}

	failures := 0
	for _, run := range runs {
		if run.Status() == models.RunStatusFailed {
			failures++
		}
	}
	if failures > 0 {
		buf.WriteString("\n## Failures\n\n")
		for _, run := range runs {
			if run.Status() != models.RunStatusFailed {
				continue
			}
			buf.WriteString(fmt.Sprintf("- %s %s: %s\n", run.Kind(), run.Target(), run.Error()))
		}
	}

	return buf.Bytes(), nil
}

// ExportRunsToText converts a run log to plain text format
func ExportRunsToText(runs []*models.Run) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Runs: %d\n\n", len(runs)))
	for i, run := range runs {
		buf.WriteString(fmt.Sprintf("%d. [%s] %s %s (%d -> %d rows, count %d)\n",
			i+1, run.Status(), run.Kind(), run.Target(), run.RowsIn(), run.RowsOut(), run.TotalCount()))
		if run.Error() != "" {
			buf.WriteString(fmt.Sprintf("   error: %s\n", run.Error()))
		}
	}

	return buf.Bytes(), nil
}

// ToRunJSON generates a JSON representation of a run log
func ToRunJSON(runs []*models.Run) ([]byte, error) {
	type runRecord struct {
		ID         string `json:"id"`
		Kind       string `json:"kind"`
		Target     string `json:"target"`
		RowsIn     int    `json:"rows_in"`
		RowsOut    int    `json:"rows_out"`
		TotalCount int    `json:"total_count"`
		Status     string `json:"status"`
		Error      string `json:"error,omitempty"`
		StartedAt  string `json:"started_at"`
		FinishedAt string `json:"finished_at,omitempty"`
	}

	records := make([]runRecord, 0, len(runs))
	for _, run := range runs {
		records = append(records, runRecord{
			ID:         run.ID(),
			Kind:       run.Kind(),
			Target:     run.Target(),
			RowsIn:     run.RowsIn(),
			RowsOut:    run.RowsOut(),
			TotalCount: run.TotalCount(),
			Status:     run.Status(),
			Error:      run.Error(),
			StartedAt:  run.StartedAt().Format(time.RFC3339),
			FinishedAt: formatFinishedAt(run),
		})
	}
	return shared.MarshalJSON(records, true)
}

// RunLogExportResult contains the paths of files created by WriteRunLogExport
type RunLogExportResult struct {
	CSVFile  string
	JSONFile string
}

// WriteRunLogExport exports a run log to CSV with an accompanying JSON file.
//
// Creates {base}_runs.csv and {base}_runs.json
func WriteRunLogExport(runs []*models.Run, baseFilepath string) (*RunLogExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = "setsum"
	}

	csvData, err := ExportRunsToCSV(runs)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	csvFile := baseFilepath + "_runs.csv"
	if err := os.WriteFile(csvFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	jsonData, err := ToRunJSON(runs)
	if err != nil {
		return nil, fmt.Errorf("failed to generate run JSON: %w", err)
	}

	jsonFile := baseFilepath + "_runs.json"
	if err := os.WriteFile(jsonFile, jsonData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write JSON file: %w", err)
	}

	return &RunLogExportResult{
		CSVFile:  csvFile,
		JSONFile: jsonFile,
	}, nil
}

func formatFinishedAt(run *models.Run) string {
	if ts := run.FinishedAt(); ts != nil {
		return ts.Format(time.RFC3339)
	}
	return ""
}
