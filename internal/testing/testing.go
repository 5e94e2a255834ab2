// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/setsum/internal/models"
	"github.com/desertthunder/setsum/internal/sheets"
)

// FakeFile is one Drive file or folder held by [Fake].
type FakeFile struct {
	ID       string
	Name     string
	MimeType string
	ParentID string
	Data     []byte
}

// Fake is an in-memory test double for both [sheets.Service] and
// [sheets.Drive], backed by one shared file tree so Drive operations and tab
// contents stay consistent.
//
// Errors can be injected per method name with [Fake.FailWith].
type Fake struct {
	mu     sync.Mutex
	Files  map[string]*FakeFile
	Tabs   map[string][]string               // spreadsheet ID -> ordered tab titles
	Tables map[string]map[string]models.Table // spreadsheet ID -> tab -> rows
	Errs   map[string]error
	seq    int
}

func NewFake() *Fake {
	return &Fake{
		Files:  map[string]*FakeFile{},
		Tabs:   map[string][]string{},
		Tables: map[string]map[string]models.Table{},
		Errs:   map[string]error{},
	}
}

// FailWith makes the named method return err on every call.
func (f *Fake) FailWith(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errs[method] = err
}

func (f *Fake) fail(method string) error {
	return f.Errs[method]
}

func (f *Fake) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

// AddFolder creates a folder and returns its ID.
func (f *Fake) AddFolder(parentID, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID("folder")
	f.Files[id] = &FakeFile{ID: id, Name: name, MimeType: sheets.MimeFolder, ParentID: parentID}
	return id
}

// AddFile creates a plain file with raw bytes and returns its ID.
func (f *Fake) AddFile(parentID, name, mimeType string, data []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID("file")
	f.Files[id] = &FakeFile{ID: id, Name: name, MimeType: mimeType, ParentID: parentID, Data: data}
	return id
}

// AddSpreadsheet creates a spreadsheet with the given tabs and returns its ID.
func (f *Fake) AddSpreadsheet(parentID, name string, tabs map[string]models.Table) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID("sheet")
	f.Files[id] = &FakeFile{ID: id, Name: name, MimeType: sheets.MimeSpreadsheet, ParentID: parentID}
	f.Tables[id] = map[string]models.Table{}
	titles := make([]string, 0, len(tabs))
	for title := range tabs {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	for _, title := range titles {
		f.Tabs[id] = append(f.Tabs[id], title)
		f.Tables[id][title] = tabs[title].Clone()
	}
	return id
}

// Table returns the current contents of one tab.
func (f *Fake) Table(spreadsheetID, tab string) models.Table {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Tables[spreadsheetID][tab].Clone()
}

// File returns the file record for an ID, or nil.
func (f *Fake) File(id string) *FakeFile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Files[id]
}

// FindByName returns the first file with the given name, or nil.
func (f *Fake) FindByName(name string) *FakeFile {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, file := range f.sortedFiles() {
		if file.Name == name {
			return file
		}
	}
	return nil
}

func (f *Fake) sortedFiles() []*FakeFile {
	files := make([]*FakeFile, 0, len(f.Files))
	for _, file := range f.Files {
		files = append(files, file)
	}
	sort.Slice(files, func(a, b int) bool { return files[a].ID < files[b].ID })
	return files
}

// --- sheets.Service ---

func (f *Fake) ReadTable(ctx context.Context, loc sheets.Locator) (models.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ReadTable"); err != nil {
		return nil, err
	}
	return f.Tables[loc.SpreadsheetID][loc.Tab].Clone(), nil
}

func (f *Fake) WriteTable(ctx context.Context, loc sheets.Locator, table models.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("WriteTable"); err != nil {
		return err
	}
	if f.Tables[loc.SpreadsheetID] == nil {
		f.Tables[loc.SpreadsheetID] = map[string]models.Table{}
	}
	f.Tables[loc.SpreadsheetID][loc.Tab] = table.Clone()
	return nil
}

func (f *Fake) WriteFormulas(ctx context.Context, loc sheets.Locator, table models.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("WriteFormulas"); err != nil {
		return err
	}
	if f.Tables[loc.SpreadsheetID] == nil {
		f.Tables[loc.SpreadsheetID] = map[string]models.Table{}
	}
	f.Tables[loc.SpreadsheetID][loc.Tab] = table.Clone()
	return nil
}

func (f *Fake) ClearTable(ctx context.Context, loc sheets.Locator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ClearTable"); err != nil {
		return err
	}
	if tables := f.Tables[loc.SpreadsheetID]; tables != nil {
		tables[loc.Tab] = models.Table{}
	}
	return nil
}

func (f *Fake) ListTabs(ctx context.Context, spreadsheetID string) ([]models.SheetInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListTabs"); err != nil {
		return nil, err
	}
	infos := make([]models.SheetInfo, 0, len(f.Tabs[spreadsheetID]))
	for i, title := range f.Tabs[spreadsheetID] {
		infos = append(infos, models.SheetInfo{SheetID: int64(i), Title: title})
	}
	return infos, nil
}

func (f *Fake) EnsureTab(ctx context.Context, loc sheets.Locator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("EnsureTab"); err != nil {
		return err
	}
	for _, title := range f.Tabs[loc.SpreadsheetID] {
		if title == loc.Tab {
			return nil
		}
	}
	f.Tabs[loc.SpreadsheetID] = append(f.Tabs[loc.SpreadsheetID], loc.Tab)
	if f.Tables[loc.SpreadsheetID] == nil {
		f.Tables[loc.SpreadsheetID] = map[string]models.Table{}
	}
	f.Tables[loc.SpreadsheetID][loc.Tab] = models.Table{}
	return nil
}

func (f *Fake) DeleteTab(ctx context.Context, loc sheets.Locator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DeleteTab"); err != nil {
		return err
	}
	f.removeTab(loc.SpreadsheetID, loc.Tab)
	return nil
}

func (f *Fake) DeleteTabsExcept(ctx context.Context, loc sheets.Locator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DeleteTabsExcept"); err != nil {
		return err
	}
	for _, title := range append([]string{}, f.Tabs[loc.SpreadsheetID]...) {
		if title != loc.Tab {
			f.removeTab(loc.SpreadsheetID, title)
		}
	}
	return nil
}

func (f *Fake) removeTab(spreadsheetID, tab string) {
	titles := f.Tabs[spreadsheetID]
	for i, title := range titles {
		if title == tab {
			f.Tabs[spreadsheetID] = append(titles[:i], titles[i+1:]...)
			break
		}
	}
	delete(f.Tables[spreadsheetID], tab)
}

// --- sheets.Drive ---

func (f *Fake) ListFiles(ctx context.Context, folderID string, q sheets.FileQuery) ([]models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListFiles"); err != nil {
		return nil, err
	}
	var out []models.File
	for _, file := range f.sortedFiles() {
		if file.ParentID != folderID {
			continue
		}
		isFolder := file.MimeType == sheets.MimeFolder
		if q.MimeType != "" && file.MimeType != q.MimeType {
			continue
		}
		if q.FoldersOnly && !isFolder {
			continue
		}
		if q.ExcludeFolders && isFolder {
			continue
		}
		out = append(out, models.File{ID: file.ID, Name: file.Name, MimeType: file.MimeType, IsFolder: isFolder})
	}
	return out, nil
}

func (f *Fake) EnsureFolder(ctx context.Context, parentID, name string) (string, error) {
	f.mu.Lock()
	if err := f.fail("EnsureFolder"); err != nil {
		f.mu.Unlock()
		return "", err
	}
	for _, file := range f.sortedFiles() {
		if file.ParentID == parentID && file.MimeType == sheets.MimeFolder && file.Name == name {
			f.mu.Unlock()
			return file.ID, nil
		}
	}
	f.mu.Unlock()
	return f.AddFolder(parentID, name), nil
}

func (f *Fake) CreateSpreadsheet(ctx context.Context, parentID, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateSpreadsheet"); err != nil {
		return "", err
	}
	id := f.nextID("sheet")
	f.Files[id] = &FakeFile{ID: id, Name: name, MimeType: sheets.MimeSpreadsheet, ParentID: parentID}
	f.Tabs[id] = []string{"Sheet1"}
	f.Tables[id] = map[string]models.Table{"Sheet1": {}}
	return id, nil
}

func (f *Fake) CopyFile(ctx context.Context, fileID, parentID, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CopyFile"); err != nil {
		return "", err
	}
	src, ok := f.Files[fileID]
	if !ok {
		return "", fmt.Errorf("no such file: %s", fileID)
	}
	id := f.nextID("sheet")
	f.Files[id] = &FakeFile{ID: id, Name: name, MimeType: src.MimeType, ParentID: parentID, Data: src.Data}
	f.Tabs[id] = append([]string{}, f.Tabs[fileID]...)
	f.Tables[id] = map[string]models.Table{}
	for tab, table := range f.Tables[fileID] {
		f.Tables[id][tab] = table.Clone()
	}
	return id, nil
}

func (f *Fake) MoveFile(ctx context.Context, fileID, newParentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("MoveFile"); err != nil {
		return err
	}
	file, ok := f.Files[fileID]
	if !ok {
		return fmt.Errorf("no such file: %s", fileID)
	}
	file.ParentID = newParentID
	return nil
}

func (f *Fake) RenameFile(ctx context.Context, fileID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("RenameFile"); err != nil {
		return err
	}
	file, ok := f.Files[fileID]
	if !ok {
		return fmt.Errorf("no such file: %s", fileID)
	}
	file.Name = name
	return nil
}

func (f *Fake) DeleteFile(ctx context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DeleteFile"); err != nil {
		return err
	}
	delete(f.Files, fileID)
	delete(f.Tabs, fileID)
	delete(f.Tables, fileID)
	return nil
}

func (f *Fake) UploadCSV(ctx context.Context, parentID, name string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("UploadCSV"); err != nil {
		return "", err
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return "", fmt.Errorf("invalid CSV: %w", err)
	}
	table := make(models.Table, 0, len(records))
	for _, rec := range records {
		table = append(table, rec)
	}
	id := f.nextID("sheet")
	f.Files[id] = &FakeFile{ID: id, Name: name, MimeType: sheets.MimeSpreadsheet, ParentID: parentID}
	f.Tabs[id] = []string{"Sheet1"}
	f.Tables[id] = map[string]models.Table{"Sheet1": table}
	return id, nil
}

func (f *Fake) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DownloadFile"); err != nil {
		return nil, err
	}
	file, ok := f.Files[fileID]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", fileID)
	}
	return append([]byte{}, file.Data...), nil
}

// NopClassifier treats nothing as retryable, so failures surface immediately.
type NopClassifier struct{}

func (NopClassifier) IsRetryable(error) bool                      { return false }
func (NopClassifier) RetryAfter(error) (d time.Duration, ok bool) { return 0, false }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}
