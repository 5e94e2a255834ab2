// Google Sheets + Drive implementation of [Service] and [Drive]
package sheets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/desertthunder/setsum/internal/models"
	"github.com/desertthunder/setsum/internal/shared"
)

// Drive MIME types the pipeline filters and uploads with.
const (
	MimeSpreadsheet = "application/vnd.google-apps.spreadsheet"
	MimeFolder      = "application/vnd.google-apps.folder"
	MimeCSV         = "text/csv"
)

// Client implements [Service] and [Drive] against the Google APIs.
type Client struct {
	sheets *gsheets.Service
	drive  *gdrive.Service
}

// NewClient builds a Client from a service account credentials file with
// Sheets and Drive scopes.
func NewClient(ctx context.Context, credentialsPath string) (*Client, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("%w: google credentials path not set", shared.ErrMissingCredentials)
	}

	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, gsheets.SpreadsheetsScope, gdrive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMissingCredentials, err)
	}

	sheetsSvc, err := gsheets.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	driveSvc, err := gdrive.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &Client{sheets: sheetsSvc, drive: driveSvc}, nil
}

// apiError wraps a transport failure so callers can match the sentinel while
// the retry classifier still sees the underlying [googleapi.Error].
func apiError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", shared.ErrAPIRequest, op, err)
}

// statusError is apiError with a 404 mapped onto the given sentinel.
func statusError(op string, err error, notFound error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %s: %w", notFound, op, err)
	}
	return apiError(op, err)
}

// tabMissing reports whether the error is the 400 the Sheets API returns for
// a range that names a nonexistent tab.
func tabMissing(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest &&
		strings.Contains(gerr.Message, "Unable to parse range")
}

// ReadTable returns the tab's rows, header first. Missing or empty tabs yield
// an empty table.
func (c *Client) ReadTable(ctx context.Context, loc Locator) (models.Table, error) {
	resp, err := c.sheets.Spreadsheets.Values.Get(loc.SpreadsheetID, loc.Tab).Context(ctx).Do()
	if err != nil {
		if tabMissing(err) {
			return models.Table{}, nil
		}
		return nil, statusError("values.get("+loc.Tab+")", err, shared.ErrSpreadsheetNotFound)
	}

	table := make(models.Table, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			if s, ok := v.(string); ok {
				cells[i] = s
			} else if v != nil {
				cells[i] = fmt.Sprint(v)
			}
		}
		table = append(table, cells)
	}
	return table, nil
}

// WriteTable overwrites the addressed range starting at A1 with RAW values.
func (c *Client) WriteTable(ctx context.Context, loc Locator, table models.Table) error {
	return c.writeValues(ctx, loc, table, "RAW")
}

// WriteFormulas writes rows with USER_ENTERED input so formula cells (e.g.
// HYPERLINK) are evaluated.
func (c *Client) WriteFormulas(ctx context.Context, loc Locator, table models.Table) error {
	return c.writeValues(ctx, loc, table, "USER_ENTERED")
}

func (c *Client) writeValues(ctx context.Context, loc Locator, table models.Table, inputOption string) error {
	values := make([][]any, len(table))
	for i, row := range table {
		cells := make([]any, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		values[i] = cells
	}

	vr := &gsheets.ValueRange{Values: values}
	_, err := c.sheets.Spreadsheets.Values.
		Update(loc.SpreadsheetID, loc.Tab+"!A1", vr).
		ValueInputOption(inputOption).
		Context(ctx).Do()
	if err != nil {
		if tabMissing(err) {
			return fmt.Errorf("%w: %s", shared.ErrTabNotFound, loc.Tab)
		}
		return apiError("values.update("+loc.Tab+")", err)
	}
	return nil
}

// ClearTable clears the tab's content.
func (c *Client) ClearTable(ctx context.Context, loc Locator) error {
	_, err := c.sheets.Spreadsheets.Values.
		Clear(loc.SpreadsheetID, loc.Tab, &gsheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		if tabMissing(err) {
			return fmt.Errorf("%w: %s", shared.ErrTabNotFound, loc.Tab)
		}
		return apiError("values.clear("+loc.Tab+")", err)
	}
	return nil
}

// ListTabs returns every tab of the spreadsheet.
func (c *Client) ListTabs(ctx context.Context, spreadsheetID string) ([]models.SheetInfo, error) {
	resp, err := c.sheets.Spreadsheets.Get(spreadsheetID).
		Fields("sheets(properties(sheetId,title))").
		Context(ctx).Do()
	if err != nil {
		return nil, statusError("spreadsheets.get("+spreadsheetID+")", err, shared.ErrSpreadsheetNotFound)
	}

	tabs := make([]models.SheetInfo, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties == nil {
			continue
		}
		tabs = append(tabs, models.SheetInfo{
			SheetID: s.Properties.SheetId,
			Title:   s.Properties.Title,
		})
	}
	return tabs, nil
}

// EnsureTab creates the named tab if it does not exist yet.
func (c *Client) EnsureTab(ctx context.Context, loc Locator) error {
	tabs, err := c.ListTabs(ctx, loc.SpreadsheetID)
	if err != nil {
		return err
	}
	for _, tab := range tabs {
		if tab.Title == loc.Tab {
			return nil
		}
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{
				Properties: &gsheets.SheetProperties{Title: loc.Tab},
			},
		}},
	}
	if _, err := c.sheets.Spreadsheets.BatchUpdate(loc.SpreadsheetID, req).Context(ctx).Do(); err != nil {
		return apiError("addSheet("+loc.Tab+")", err)
	}
	return nil
}

// DeleteTab removes the named tab. A missing tab is not an error.
func (c *Client) DeleteTab(ctx context.Context, loc Locator) error {
	tabs, err := c.ListTabs(ctx, loc.SpreadsheetID)
	if err != nil {
		return err
	}
	for _, tab := range tabs {
		if tab.Title != loc.Tab {
			continue
		}
		req := &gsheets.BatchUpdateSpreadsheetRequest{
			Requests: []*gsheets.Request{{
				DeleteSheet: &gsheets.DeleteSheetRequest{SheetId: tab.SheetID},
			}},
		}
		if _, err := c.sheets.Spreadsheets.BatchUpdate(loc.SpreadsheetID, req).Context(ctx).Do(); err != nil {
			return apiError("deleteSheet("+loc.Tab+")", err)
		}
		return nil
	}
	return nil
}

// DeleteTabsExcept removes every tab other than the named one.
func (c *Client) DeleteTabsExcept(ctx context.Context, loc Locator) error {
	tabs, err := c.ListTabs(ctx, loc.SpreadsheetID)
	if err != nil {
		return err
	}

	var requests []*gsheets.Request
	for _, tab := range tabs {
		if tab.Title == loc.Tab {
			continue
		}
		requests = append(requests, &gsheets.Request{
			DeleteSheet: &gsheets.DeleteSheetRequest{SheetId: tab.SheetID},
		})
	}
	if len(requests) == 0 {
		return nil
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{Requests: requests}
	if _, err := c.sheets.Spreadsheets.BatchUpdate(loc.SpreadsheetID, req).Context(ctx).Do(); err != nil {
		return apiError("deleteSheet", err)
	}
	return nil
}

// ListFiles returns the non-trashed children of a folder matching the query.
func (c *Client) ListFiles(ctx context.Context, folderID string, q FileQuery) ([]models.File, error) {
	clauses := []string{
		fmt.Sprintf("'%s' in parents", folderID),
		"trashed = false",
	}
	if q.MimeType != "" {
		clauses = append(clauses, fmt.Sprintf("mimeType = '%s'", q.MimeType))
	} else if q.FoldersOnly {
		clauses = append(clauses, fmt.Sprintf("mimeType = '%s'", MimeFolder))
	} else if q.ExcludeFolders {
		clauses = append(clauses, fmt.Sprintf("mimeType != '%s'", MimeFolder))
	}

	var files []models.File
	pageToken := ""
	for {
		call := c.drive.Files.List().
			Q(strings.Join(clauses, " and ")).
			Fields("nextPageToken, files(id, name, mimeType)").
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, statusError("files.list("+folderID+")", err, shared.ErrFolderNotFound)
		}

		for _, f := range resp.Files {
			files = append(files, models.File{
				ID:       f.Id,
				Name:     f.Name,
				MimeType: f.MimeType,
				IsFolder: f.MimeType == MimeFolder,
			})
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return files, nil
}

// EnsureFolder finds or creates a child folder by name and returns its ID.
func (c *Client) EnsureFolder(ctx context.Context, parentID, name string) (string, error) {
	folders, err := c.ListFiles(ctx, parentID, FileQuery{FoldersOnly: true})
	if err != nil {
		return "", err
	}
	for _, f := range folders {
		if f.Name == name {
			return f.ID, nil
		}
	}

	created, err := c.drive.Files.Create(&gdrive.File{
		Name:     name,
		MimeType: MimeFolder,
		Parents:  []string{parentID},
	}).SupportsAllDrives(true).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", apiError("create folder "+name, err)
	}
	return created.Id, nil
}

// CreateSpreadsheet creates an empty spreadsheet in a folder and returns its ID.
func (c *Client) CreateSpreadsheet(ctx context.Context, parentID, name string) (string, error) {
	created, err := c.drive.Files.Create(&gdrive.File{
		Name:     name,
		MimeType: MimeSpreadsheet,
		Parents:  []string{parentID},
	}).SupportsAllDrives(true).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", apiError("create spreadsheet "+name, err)
	}
	return created.Id, nil
}

// CopyFile copies a file into a folder under a new name and returns the copy's ID.
func (c *Client) CopyFile(ctx context.Context, fileID, parentID, name string) (string, error) {
	copied, err := c.drive.Files.Copy(fileID, &gdrive.File{
		Name:    name,
		Parents: []string{parentID},
	}).SupportsAllDrives(true).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", apiError("files.copy("+fileID+")", err)
	}
	return copied.Id, nil
}

// MoveFile reparents a file into the given folder.
func (c *Client) MoveFile(ctx context.Context, fileID, newParentID string) error {
	current, err := c.drive.Files.Get(fileID).
		Fields("parents").
		SupportsAllDrives(true).
		Context(ctx).Do()
	if err != nil {
		return apiError("files.get("+fileID+")", err)
	}

	call := c.drive.Files.Update(fileID, nil).
		AddParents(newParentID).
		SupportsAllDrives(true).
		Context(ctx)
	if len(current.Parents) > 0 {
		call = call.RemoveParents(strings.Join(current.Parents, ","))
	}
	if _, err := call.Do(); err != nil {
		return apiError("files.update("+fileID+")", err)
	}
	return nil
}

// RenameFile changes a file's display name.
func (c *Client) RenameFile(ctx context.Context, fileID, name string) error {
	_, err := c.drive.Files.Update(fileID, &gdrive.File{Name: name}).
		SupportsAllDrives(true).
		Context(ctx).Do()
	if err != nil {
		return apiError("rename "+fileID, err)
	}
	return nil
}

// DeleteFile permanently removes a file.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	if err := c.drive.Files.Delete(fileID).SupportsAllDrives(true).Context(ctx).Do(); err != nil {
		return apiError("files.delete("+fileID+")", err)
	}
	return nil
}

// UploadCSV imports CSV bytes as a new spreadsheet in a folder and returns its ID.
func (c *Client) UploadCSV(ctx context.Context, parentID, name string, data []byte) (string, error) {
	created, err := c.drive.Files.Create(&gdrive.File{
		Name:     name,
		MimeType: MimeSpreadsheet,
		Parents:  []string{parentID},
	}).
		Media(bytes.NewReader(data), googleapi.ContentType(MimeCSV)).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).Do()
	if err != nil {
		return "", apiError("upload csv "+name, err)
	}
	return created.Id, nil
}

// DownloadFile returns a file's raw bytes.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.drive.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, apiError("files.get("+fileID+")", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read download: %w", err)
	}
	return data, nil
}
