package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/setsum/internal/models"
	"github.com/desertthunder/setsum/internal/sheets"
	th "github.com/desertthunder/setsum/internal/testing"
)

func TestIntake(t *testing.T) {
	ctx := context.Background()

	setup := func() (*th.Fake, *SummaryEngine, *recorder) {
		f := th.NewFake()
		sets := f.AddFolder("", "DJ Sets")
		source := f.AddFolder("", "Inbox")

		cfg := testConfig()
		cfg.Drive.SetsFolderID = sets
		cfg.Drive.SourceFolderID = source

		rec := &recorder{}
		return f, newTestEngine(f, cfg, rec), rec
	}

	t.Run("imports a CSV into its year folder", func(t *testing.T) {
		f, e, _ := setup()
		source := e.cfg.Drive.SourceFolderID
		csvID := f.AddFile(source, "2024-05-01 Set.csv", "text/csv",
			[]byte("Title,Length\nSong  A,3:45\n\n  Song B,4:00\n"))

		result, err := e.Intake(ctx, nil)
		if err != nil {
			t.Fatalf("Intake failed: %v", err)
		}
		if result.Uploaded != 1 {
			t.Fatalf("uploaded = %d, want 1", result.Uploaded)
		}

		sheet := f.FindByName("2024-05-01 Set")
		if sheet == nil {
			t.Fatal("no spreadsheet imported")
		}
		yearFolder := f.FindByName("2024")
		if yearFolder == nil || f.File(sheet.ID).ParentID != yearFolder.ID {
			t.Error("imported spreadsheet is not in the 2024 folder")
		}

		// Whitespace runs collapsed, blank line dropped.
		table := f.Table(sheet.ID, "Sheet1")
		if len(table) != 3 {
			t.Fatalf("imported table has %d rows, want 3", len(table))
		}
		if table[1][0] != "Song A" {
			t.Errorf("normalized cell = %q, want %q", table[1][0], "Song A")
		}

		// Original CSV archived under the year folder.
		archive := f.FindByName("Archive")
		if archive == nil || f.File(csvID).ParentID != archive.ID {
			t.Error("original CSV was not archived")
		}
	})

	t.Run("strips status prefixes before processing", func(t *testing.T) {
		f, e, _ := setup()
		source := e.cfg.Drive.SourceFolderID
		id := f.AddFile(source, "Copy of 2024-05-01 Set.csv", "text/csv", []byte("Title\nSong\n"))

		result, err := e.Intake(ctx, nil)
		if err != nil {
			t.Fatalf("Intake failed: %v", err)
		}
		if result.Renamed != 1 {
			t.Errorf("renamed = %d, want 1", result.Renamed)
		}
		// The stripped file went on to import under its bare name.
		if result.Uploaded != 1 {
			t.Errorf("uploaded = %d, want 1", result.Uploaded)
		}
		if got := f.File(id).Name; got != "2024-05-01 Set.csv" {
			t.Errorf("source file name = %q, want prefix stripped", got)
		}
	})

	t.Run("prefix stays when bare name is taken", func(t *testing.T) {
		f, e, _ := setup()
		source := e.cfg.Drive.SourceFolderID
		f.AddFile(source, "2024-05-01 Set.csv", "text/csv", []byte("Title\nSong\n"))
		id := f.AddFile(source, "FAILED_2024-05-01 Set.csv", "text/csv", []byte("Title\nSong\n"))

		if _, err := e.Intake(ctx, nil); err != nil {
			t.Fatalf("Intake failed: %v", err)
		}
		if got := f.File(id).Name; !strings.HasPrefix(got, "FAILED_") {
			t.Errorf("file renamed to %q despite name collision", got)
		}
	})

	t.Run("moves year-prefixed non-CSV files", func(t *testing.T) {
		f, e, _ := setup()
		source := e.cfg.Drive.SourceFolderID
		id := f.AddFile(source, "2023-01-01 Mix.mp3", "audio/mpeg", nil)

		result, err := e.Intake(ctx, nil)
		if err != nil {
			t.Fatalf("Intake failed: %v", err)
		}
		if result.Moved != 1 {
			t.Errorf("moved = %d, want 1", result.Moved)
		}
		yearFolder := f.FindByName("2023")
		if yearFolder == nil || f.File(id).ParentID != yearFolder.ID {
			t.Error("non-CSV file was not moved to the 2023 folder")
		}
	})

	t.Run("skips files without a year prefix", func(t *testing.T) {
		f, e, _ := setup()
		f.AddFile(e.cfg.Drive.SourceFolderID, "notes.txt", "text/plain", nil)

		result, err := e.Intake(ctx, nil)
		if err != nil {
			t.Fatalf("Intake failed: %v", err)
		}
		if result.Skipped != 1 {
			t.Errorf("skipped = %d, want 1", result.Skipped)
		}
	})

	t.Run("flags duplicates instead of overwriting", func(t *testing.T) {
		f, e, _ := setup()
		sets := e.cfg.Drive.SetsFolderID
		source := e.cfg.Drive.SourceFolderID
		year := f.AddFolder(sets, "2024")
		f.AddSpreadsheet(year, "2024-06-01 Set", map[string]models.Table{"Sheet1": {{"Title"}}})
		id := f.AddFile(source, "2024-06-01 Set.csv", "text/csv", []byte("Title\nSong\n"))

		result, err := e.Intake(ctx, nil)
		if err != nil {
			t.Fatalf("Intake failed: %v", err)
		}
		if result.Duplicates != 1 || result.Uploaded != 0 {
			t.Errorf("duplicates = %d, uploaded = %d, want 1 and 0", result.Duplicates, result.Uploaded)
		}
		if got := f.File(id).Name; got != "possible_duplicate_2024-06-01 Set.csv" {
			t.Errorf("duplicate name = %q", got)
		}
	})

	t.Run("removes the stale year summary", func(t *testing.T) {
		f, e, _ := setup()
		sets := e.cfg.Drive.SetsFolderID
		source := e.cfg.Drive.SourceFolderID
		summaryFolder := f.AddFolder(sets, "Summary")
		f.AddSpreadsheet(summaryFolder, "2024 Summary", map[string]models.Table{"Summary": {{"Title"}}})
		f.AddFile(source, "2024-05-01 Set.csv", "text/csv", []byte("Title\nSong\n"))

		if _, err := e.Intake(ctx, nil); err != nil {
			t.Fatalf("Intake failed: %v", err)
		}
		if f.FindByName("2024 Summary") != nil {
			t.Error("stale 2024 Summary should have been deleted")
		}
	})

	t.Run("upload failure stamps FAILED_", func(t *testing.T) {
		f, e, rec := setup()
		source := e.cfg.Drive.SourceFolderID
		id := f.AddFile(source, "2024-05-01 Set.csv", "text/csv", []byte("Title\nSong\n"))
		f.FailWith("UploadCSV", errors.New("quota exceeded"))

		result, err := e.Intake(ctx, nil)
		if err != nil {
			t.Fatalf("Intake should not fail the whole run: %v", err)
		}
		if result.Failed != 1 || result.Uploaded != 0 {
			t.Errorf("failed = %d, uploaded = %d, want 1 and 0", result.Failed, result.Uploaded)
		}
		if got := f.File(id).Name; got != "FAILED_2024-05-01 Set.csv" {
			t.Errorf("file name = %q, want FAILED_ prefix", got)
		}
		if rec.updated[0].Status() != models.RunStatusOK {
			t.Errorf("per-file failures should not fail the run, got %s", rec.updated[0].Status())
		}
	})
}

func TestIntakeHelpers(t *testing.T) {
	t.Run("extractYear", func(t *testing.T) {
		tests := []struct {
			name string
			want string
		}{
			{"2024-05-01 Set.csv", "2024"},
			{"2024_05_01.csv", "2024"},
			{"Set 2024.csv", ""},
			{"202-05-01.csv", ""},
			{"", ""},
		}
		for _, tt := range tests {
			if got := extractYear(tt.name); got != tt.want {
				t.Errorf("extractYear(%q) = %q, want %q", tt.name, got, tt.want)
			}
		}
	})

	t.Run("statusPrefix", func(t *testing.T) {
		tests := []struct {
			name string
			want string
		}{
			{"FAILED_set.csv", "FAILED_"},
			{"failed_set.csv", "failed_"},
			{"possible_duplicate_set.csv", "possible_duplicate_"},
			{"Copy of set.csv", "Copy of "},
			{"set.csv", ""},
		}
		for _, tt := range tests {
			if got := statusPrefix(tt.name); got != tt.want {
				t.Errorf("statusPrefix(%q) = %q, want %q", tt.name, got, tt.want)
			}
		}
	})

	t.Run("baseName", func(t *testing.T) {
		tests := []struct {
			name string
			want string
		}{
			{"set.csv", "set"},
			{"set.tar.gz", "set.tar"},
			{"set", "set"},
			{".hidden", ".hidden"},
		}
		for _, tt := range tests {
			if got := baseName(tt.name); got != tt.want {
				t.Errorf("baseName(%q) = %q, want %q", tt.name, got, tt.want)
			}
		}
	})

	t.Run("normalizeCSV", func(t *testing.T) {
		in := []byte("Title,Length\r\nSong   A,3:45\n\n  \nSong\tB,4:00\n")
		want := "Title,Length\nSong A,3:45\nSong B,4:00"
		if got := string(normalizeCSV(in)); got != want {
			t.Errorf("normalizeCSV = %q, want %q", got, want)
		}
	})
}

var _ sheets.Service = (*th.Fake)(nil)
var _ sheets.Drive = (*th.Fake)(nil)
