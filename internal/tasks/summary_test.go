package tasks

import (
	"context"
	"testing"

	"github.com/desertthunder/setsum/internal/models"
	th "github.com/desertthunder/setsum/internal/testing"
)

func TestGenerateSummaries(t *testing.T) {
	ctx := context.Background()

	setup := func() (*th.Fake, string) {
		f := th.NewFake()
		sets := f.AddFolder("", "DJ Sets")
		return f, sets
	}

	t.Run("builds a sorted deduplicated summary", func(t *testing.T) {
		f, sets := setup()
		year := f.AddFolder(sets, "2024")
		f.AddSpreadsheet(year, "2024-05-01 Club", map[string]models.Table{
			"Sheet1": {
				{"Title", "Length", "Notes"},
				{"Song B", "4:00", "opener"},
				{"Song A", "3:45", ""},
				{"", "", ""},
			},
		})
		f.AddSpreadsheet(year, "2024-06-01 Festival", map[string]models.Table{
			"Sheet1": {
				{"Title", "Length"},
				{"Song A", "3:45"},
			},
		})

		cfg := testConfig()
		cfg.Drive.SetsFolderID = sets
		e := newTestEngine(f, cfg, nil)

		result, err := e.GenerateSummaries(ctx, nil)
		if err != nil {
			t.Fatalf("GenerateSummaries failed: %v", err)
		}

		if len(result.Years) != 1 {
			t.Fatalf("expected 1 year result, got %d", len(result.Years))
		}
		y := result.Years[0]
		if !y.Generated || !y.Deduped {
			t.Errorf("year result = %+v, want generated and deduped", y)
		}
		if y.Rows != 3 {
			t.Errorf("combined rows = %d, want 3", y.Rows)
		}

		summary := f.FindByName("2024 Summary")
		if summary == nil {
			t.Fatal("no 2024 Summary spreadsheet created")
		}

		table := f.Table(summary.ID, cfg.Drive.SummaryTabName)
		if len(table) != 3 {
			t.Fatalf("summary has %d rows, want header plus 2 merged rows", len(table))
		}

		header := table[0]
		if header[0] != "Title" || header[1] != "Length" || header[len(header)-1] != "Count" {
			t.Errorf("summary header = %v", header)
		}
		// The Notes column is not allowed and must be gone.
		for _, h := range header {
			if h == "Notes" || h == "notes" {
				t.Errorf("disallowed header survived: %v", header)
			}
		}

		// Rows sorted by title, the duplicate Song A merged with count 2.
		if table[1][0] != "Song A" || table[1][len(header)-1] != "2" {
			t.Errorf("first row = %v, want merged Song A with count 2", table[1])
		}
		if table[2][0] != "Song B" || table[2][len(header)-1] != "1" {
			t.Errorf("second row = %v, want Song B with count 1", table[2])
		}

		if f.FindByName("_Combined_2024") == nil {
			t.Error("combined staging spreadsheet missing")
		}
	})

	t.Run("existing exact summary is re-deduplicated only", func(t *testing.T) {
		f, sets := setup()
		f.AddFolder(sets, "2023")
		summaryFolder := f.AddFolder(sets, "Summary")
		existing := f.AddSpreadsheet(summaryFolder, "2023 Summary", map[string]models.Table{
			"Summary": {
				{"Title", "Count"},
				{"Song", "1"},
				{"Song", "1"},
			},
		})

		cfg := testConfig()
		cfg.Drive.SetsFolderID = sets
		e := newTestEngine(f, cfg, nil)

		result, err := e.GenerateSummaries(ctx, nil)
		if err != nil {
			t.Fatalf("GenerateSummaries failed: %v", err)
		}

		if len(result.Years) != 1 {
			t.Fatalf("expected 1 year result, got %d", len(result.Years))
		}
		y := result.Years[0]
		if y.Generated || !y.Deduped || y.SpreadsheetID != existing {
			t.Errorf("year result = %+v, want dedupe of existing summary", y)
		}

		table := f.Table(existing, "Summary")
		if len(table) != 2 || table[1][1] != "2" {
			t.Errorf("existing summary not deduplicated: %v", table)
		}
	})

	t.Run("ambiguous summary names are skipped", func(t *testing.T) {
		f, sets := setup()
		f.AddFolder(sets, "2022")
		summaryFolder := f.AddFolder(sets, "Summary")
		f.AddSpreadsheet(summaryFolder, "Copy of 2022 Summary", map[string]models.Table{
			"Summary": {{"Title"}},
		})

		cfg := testConfig()
		cfg.Drive.SetsFolderID = sets
		e := newTestEngine(f, cfg, nil)

		result, err := e.GenerateSummaries(ctx, nil)
		if err != nil {
			t.Fatalf("GenerateSummaries failed: %v", err)
		}
		if len(result.Years) != 1 || result.Years[0].SkipReason != "ambiguous summary files" {
			t.Errorf("expected ambiguity skip, got %+v", result.Years)
		}
	})

	t.Run("unready files skip the year", func(t *testing.T) {
		f, sets := setup()
		year := f.AddFolder(sets, "2021")
		f.AddSpreadsheet(year, "FAILED_2021-01-01 Set", map[string]models.Table{
			"Sheet1": {{"Title"}, {"Song"}},
		})

		cfg := testConfig()
		cfg.Drive.SetsFolderID = sets
		e := newTestEngine(f, cfg, nil)

		result, err := e.GenerateSummaries(ctx, nil)
		if err != nil {
			t.Fatalf("GenerateSummaries failed: %v", err)
		}
		if len(result.Years) != 1 || result.Years[0].SkipReason != "unready files" {
			t.Errorf("expected unready skip, got %+v", result.Years)
		}
		if f.FindByName("2021 Summary") != nil {
			t.Error("summary should not be created for an unready year")
		}
	})

	t.Run("year without usable data is reported", func(t *testing.T) {
		f, sets := setup()
		year := f.AddFolder(sets, "2020")
		f.AddSpreadsheet(year, "2020-01-01 Empty", map[string]models.Table{
			"Sheet1": {{"Title", "Length"}},
		})

		cfg := testConfig()
		cfg.Drive.SetsFolderID = sets
		e := newTestEngine(f, cfg, nil)

		result, err := e.GenerateSummaries(ctx, nil)
		if err != nil {
			t.Fatalf("GenerateSummaries failed: %v", err)
		}
		if len(result.Years) != 1 || result.Years[0].SkipReason != "no data" {
			t.Errorf("expected no-data skip, got %+v", result.Years)
		}
	})
}

func TestSummaryHeader(t *testing.T) {
	cfg := testConfig()
	e := newTestEngine(th.NewFake(), cfg, nil)

	observed := map[string]bool{"length": true, "title": true, "label": true, "bpm": true}
	canon, header := e.summaryHeader(observed)

	wantCanon := []string{"title", "length", "bpm", "label"}
	if len(canon) != len(wantCanon) {
		t.Fatalf("canon = %v, want %v", canon, wantCanon)
	}
	for i := range wantCanon {
		if canon[i] != wantCanon[i] {
			t.Fatalf("canon = %v, want %v", canon, wantCanon)
		}
	}

	want := []string{"Title", "Length", "BPM", "label", "Count"}
	for i := range want {
		if header[i] != want[i] {
			t.Fatalf("header = %v, want %v", header, want)
		}
	}
}
