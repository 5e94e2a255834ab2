package tasks

import (
	"context"
	"strings"
	"testing"

	"github.com/desertthunder/setsum/internal/models"
	th "github.com/desertthunder/setsum/internal/testing"
)

func TestBuildCollection(t *testing.T) {
	ctx := context.Background()

	setup := func() (*th.Fake, *SummaryEngine) {
		f := th.NewFake()
		sets := f.AddFolder("", "DJ Sets")

		y2024 := f.AddFolder(sets, "2024")
		f.AddSpreadsheet(y2024, "2024-05-01 - Club Night", map[string]models.Table{"Sheet1": {{"Title"}}})
		f.AddSpreadsheet(y2024, "2024-06-01_Festival", map[string]models.Table{"Sheet1": {{"Title"}}})
		f.AddFile(y2024, "2024-05-01 Raw.wav", "audio/wav", nil)

		y2023 := f.AddFolder(sets, "2023")
		f.AddSpreadsheet(y2023, "2023-12-31 NYE", map[string]models.Table{"Sheet1": {{"Title"}}})

		summaryFolder := f.AddFolder(sets, "Summary")
		f.AddSpreadsheet(summaryFolder, "2024 Summary", map[string]models.Table{"Summary": {{"Title"}}})

		archive := f.AddFolder(sets, "Archive")
		f.AddSpreadsheet(archive, "old", map[string]models.Table{"Sheet1": {{"Title"}}})

		cfg := testConfig()
		cfg.Drive.SetsFolderID = sets
		return f, newTestEngine(f, cfg, nil)
	}

	t.Run("builds linked year tabs", func(t *testing.T) {
		f, e := setup()

		result, err := e.BuildCollection(ctx, nil)
		if err != nil {
			t.Fatalf("BuildCollection failed: %v", err)
		}

		coll := f.FindByName(e.cfg.Drive.CollectionName)
		if coll == nil {
			t.Fatal("collection spreadsheet not created")
		}
		if result.SpreadsheetID != coll.ID {
			t.Errorf("result ID = %s, want %s", result.SpreadsheetID, coll.ID)
		}
		if result.Rows != 4 {
			t.Errorf("rows = %d, want 4", result.Rows)
		}

		table := f.Table(coll.ID, "2024")
		if len(table) != 3 {
			t.Fatalf("2024 tab has %d rows, want header plus 2", len(table))
		}
		if table[0][0] != "Date" || table[0][1] != "Name" || table[0][2] != "Link" {
			t.Errorf("2024 header = %v", table[0])
		}
		// Sorted by date descending, dates and titles kept literal text.
		if table[1][0] != "'2024-06-01" || table[1][1] != "'Festival" {
			t.Errorf("first 2024 row = %v", table[1])
		}
		if table[2][0] != "'2024-05-01" || table[2][1] != "'Club Night" {
			t.Errorf("second 2024 row = %v", table[2])
		}
		if !strings.HasPrefix(table[1][2], `=HYPERLINK("https://docs.google.com/spreadsheets/d/`) {
			t.Errorf("link cell = %q", table[1][2])
		}

		summaryTab := f.Table(coll.ID, e.cfg.Drive.SummaryTabName)
		if len(summaryTab) != 2 || summaryTab[0][0] != "Link" {
			t.Fatalf("summary tab = %v", summaryTab)
		}
		if !strings.Contains(summaryTab[1][0], "2024 Summary") {
			t.Errorf("summary link = %q", summaryTab[1][0])
		}
	})

	t.Run("archive folder and non-spreadsheets are excluded", func(t *testing.T) {
		f, e := setup()

		if _, err := e.BuildCollection(ctx, nil); err != nil {
			t.Fatalf("BuildCollection failed: %v", err)
		}
		coll := f.FindByName(e.cfg.Drive.CollectionName)

		tabs, err := f.ListTabs(ctx, coll.ID)
		if err != nil {
			t.Fatal(err)
		}
		for _, tab := range tabs {
			if tab.Title == "Archive" {
				t.Error("archive folder should not get a tab")
			}
		}

		for _, row := range f.Table(coll.ID, "2024") {
			for _, cell := range row {
				if strings.Contains(cell, "Raw.wav") {
					t.Errorf("non-spreadsheet file linked: %q", cell)
				}
			}
		}
	})

	t.Run("scaffolding tabs are removed", func(t *testing.T) {
		f, e := setup()

		if _, err := e.BuildCollection(ctx, nil); err != nil {
			t.Fatalf("BuildCollection failed: %v", err)
		}
		coll := f.FindByName(e.cfg.Drive.CollectionName)

		tabs, err := f.ListTabs(ctx, coll.ID)
		if err != nil {
			t.Fatal(err)
		}
		for _, tab := range tabs {
			if tab.Title == e.cfg.Drive.TempTabName || tab.Title == "Sheet1" {
				t.Errorf("scaffolding tab %q survived", tab.Title)
			}
		}
	})

	t.Run("reuses the existing collection spreadsheet", func(t *testing.T) {
		_, e := setup()

		first, err := e.BuildCollection(ctx, nil)
		if err != nil {
			t.Fatalf("first BuildCollection failed: %v", err)
		}
		second, err := e.BuildCollection(ctx, nil)
		if err != nil {
			t.Fatalf("second BuildCollection failed: %v", err)
		}
		if first.SpreadsheetID != second.SpreadsheetID {
			t.Errorf("collection recreated: %s then %s", first.SpreadsheetID, second.SpreadsheetID)
		}
	})
}

func TestExtractDateAndTitle(t *testing.T) {
	tests := []struct {
		name      string
		wantDate  string
		wantTitle string
	}{
		{"2024-05-01 - Club Night", "2024-05-01", "Club Night"},
		{"2024-06-01_Festival", "2024-06-01", "Festival"},
		{"2024-06-01", "2024-06-01", ""},
		{"Club Night", "", "Club Night"},
		{"", "", ""},
	}
	for _, tt := range tests {
		date, title := extractDateAndTitle(tt.name)
		if date != tt.wantDate || title != tt.wantTitle {
			t.Errorf("extractDateAndTitle(%q) = (%q, %q), want (%q, %q)",
				tt.name, date, title, tt.wantDate, tt.wantTitle)
		}
	}
}
