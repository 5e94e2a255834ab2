package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced consumers
}

// Operation phase enumeration
type Phase int

const (
	ListTabs Phase = iota
	DedupeTab
	WriteTab
	ScanFolders
	ReadSpreadsheet
	CombineRows
	PublishSummary
	InspectFile
	UploadFile
	MoveFile
	BuildTab
)

func (p Phase) String() string {
	switch p {
	case ListTabs:
		return "list_tabs"
	case DedupeTab:
		return "dedupe_tab"
	case WriteTab:
		return "write_tab"
	case ScanFolders:
		return "scan_folders"
	case ReadSpreadsheet:
		return "read_spreadsheet"
	case CombineRows:
		return "combine_rows"
	case PublishSummary:
		return "publish_summary"
	case InspectFile:
		return "inspect_file"
	case UploadFile:
		return "upload_file"
	case MoveFile:
		return "move_file"
	case BuildTab:
		return "build_tab"
	default:
		return ""
	}
}

func listTabsUpdate(spreadsheetID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ListTabs,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Listing tabs of %s...", spreadsheetID),
	}
}

func dedupeTabUpdate(step, total int, tab string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DedupeTab,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Deduplicating tab %s...", step, total, tab),
	}
}

func writeTabUpdate(step, total int, tab string, rows int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteTab,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Writing %d rows to tab %s...", step, total, rows, tab),
	}
}

func scanFoldersUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanFolders,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Scanning %d year folders...", total),
	}
}

func readSpreadsheetUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadSpreadsheet,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Reading %s...", step, total, name),
	}
}

func combineRowsUpdate(year string, rows int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CombineRows,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Combining %d rows for %s...", rows, year),
	}
}

func publishSummaryUpdate(year, spreadsheetID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PublishSummary,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Published summary for %s (ID: %s)", year, spreadsheetID),
		Data:    spreadsheetID,
	}
}

func inspectFileUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   InspectFile,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Inspecting %s...", step, total, name),
	}
}

func uploadFileUpdate(step, total int, name, year string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadFile,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Uploading %s to %s...", step, total, name, year),
	}
}

func moveFileUpdate(step, total int, name, dest string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MoveFile,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Moving %s to %s...", step, total, name, dest),
	}
}

func buildTabUpdate(step, total int, tab string, rows int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BuildTab,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Building tab %s (%d rows)...", step, total, tab, rows),
	}
}
