// package sheets defines the remote table and file store the summarizer
// reads and writes, plus the Google Sheets/Drive implementation.
//
// The dedup engine only ever sees [Service]; [Drive] is used by the
// orchestration layer to move, rename, and create files.
package sheets

import (
	"context"

	"github.com/desertthunder/setsum/internal/models"
)

// Locator addresses one tab of one spreadsheet.
type Locator struct {
	SpreadsheetID string
	Tab           string
}

// Service is the minimal table surface the dedup pipeline needs.
type Service interface {
	// ReadTable returns the tab's rows, header first. A missing or empty tab
	// yields an empty table, not an error.
	ReadTable(ctx context.Context, loc Locator) (models.Table, error)

	// WriteTable overwrites the addressed range with the given rows.
	WriteTable(ctx context.Context, loc Locator, table models.Table) error

	// WriteFormulas writes rows with formula cells evaluated (USER_ENTERED).
	WriteFormulas(ctx context.Context, loc Locator, table models.Table) error

	// ClearTable clears existing content before a full rewrite, so output
	// shrinkage is reflected.
	ClearTable(ctx context.Context, loc Locator) error

	// ListTabs returns every tab of the spreadsheet.
	ListTabs(ctx context.Context, spreadsheetID string) ([]models.SheetInfo, error)

	// EnsureTab creates the named tab if the spreadsheet lacks it.
	EnsureTab(ctx context.Context, loc Locator) error

	// DeleteTab removes the named tab. A missing tab is not an error.
	DeleteTab(ctx context.Context, loc Locator) error

	// DeleteTabsExcept removes every tab other than the named one.
	DeleteTabsExcept(ctx context.Context, loc Locator) error
}

// FileQuery filters Drive listings.
type FileQuery struct {
	MimeType       string
	FoldersOnly    bool
	ExcludeFolders bool
}

// Drive is the folder/file management surface used by the orchestration layer.
type Drive interface {
	// ListFiles returns the non-trashed children of a folder matching the query.
	ListFiles(ctx context.Context, folderID string, q FileQuery) ([]models.File, error)

	// EnsureFolder finds or creates a child folder by name and returns its ID.
	EnsureFolder(ctx context.Context, parentID, name string) (string, error)

	// CreateSpreadsheet creates an empty spreadsheet in a folder and returns its ID.
	CreateSpreadsheet(ctx context.Context, parentID, name string) (string, error)

	// CopyFile copies a file into a folder under a new name and returns the copy's ID.
	CopyFile(ctx context.Context, fileID, parentID, name string) (string, error)

	// MoveFile reparents a file into the given folder.
	MoveFile(ctx context.Context, fileID, newParentID string) error

	// RenameFile changes a file's display name.
	RenameFile(ctx context.Context, fileID, name string) error

	// DeleteFile permanently removes a file.
	DeleteFile(ctx context.Context, fileID string) error

	// UploadCSV imports CSV bytes as a new spreadsheet in a folder and returns its ID.
	UploadCSV(ctx context.Context, parentID, name string, data []byte) (string, error)

	// DownloadFile returns a file's raw bytes.
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}
