package dedupe

import (
	"strconv"

	"github.com/desertthunder/setsum/internal/models"
	"github.com/desertthunder/setsum/internal/normalize"
)

// countColumn is the distinguished occurrence-count column, appended when a
// table does not already carry one.
const countColumn = "Count"

// Engine deduplicates tables. The zero value is not usable; construct with
// [NewEngine].
type Engine struct {
	norm normalize.Normalizer
}

// NewEngine creates an Engine using the given normalizer for key comparisons.
func NewEngine(norm normalize.Normalizer) *Engine {
	return &Engine{norm: norm}
}

// Result describes one Deduplicate call.
type Result struct {
	Table      models.Table // header plus merged rows; the input table when skipped
	Skipped    bool         // true for header-only or empty input
	RowsIn     int          // data rows scanned
	RowsOut    int          // data rows emitted
	TotalCount int          // sum of merged counts, informational only
}

// mergeEntry is the mutable unit of deduplication: a template row, a running
// count, and the normalized optional-column profile used for compatibility
// checks.
type mergeEntry struct {
	row     []string
	count   int
	profile map[int]string
}

// Deduplicate merges duplicate rows of the table and returns the result.
//
// The scan is a single pass in row order: rows sharing an identity key are
// merged into the first entry whose optional profile is compatible, counts
// accumulate, and empty optional cells in the template are back-filled from
// the incoming row's original (post-strip, pre-normalize) text. Output order
// is deterministic: keys in first-seen order, entries within a key in
// creation order. Malformed cells never abort the table; an unparsable Count
// contributes zero.
func (e *Engine) Deduplicate(table models.Table) Result {
	if len(table) < 2 {
		return Result{Table: table, Skipped: true}
	}

	header := append([]string(nil), table.Header()...)
	rows := table.DataRows()

	countIndex := FindColumn(header, countColumn)
	appendCount := countIndex < 0
	if appendCount {
		header = append(header, countColumn)
		countIndex = len(header) - 1
	}

	// Width-normalize and strip every data row up front; the stripped text is
	// both what keys are computed from and what gets written back.
	stripped := make([][]string, len(rows))
	for i, row := range rows {
		r := make([]string, len(header))
		for j := range r {
			if j < len(row) {
				r[j] = normalize.Strip(row[j])
			}
		}
		if appendCount {
			r[countIndex] = "1"
		}
		stripped[i] = r
	}

	cols := resolveColumns(header, countIndex)

	entries := make(map[string][]*mergeEntry)
	keyOrder := make([]string, 0, len(stripped))

	for _, row := range stripped {
		rowCount, err := strconv.Atoi(row[countIndex])
		if err != nil {
			rowCount = 0
		}

		key := cols.identityKey(e.norm, row)
		profile := cols.optionalProfile(e.norm, row)

		group, seen := entries[key]
		if !seen {
			keyOrder = append(keyOrder, key)
		}

		var matched *mergeEntry
		for _, entry := range group {
			if cols.profilesCompatible(entry.profile, profile) {
				matched = entry
				break
			}
		}

		if matched == nil {
			template := append([]string(nil), row...)
			template[countIndex] = strconv.Itoa(rowCount)
			entries[key] = append(group, &mergeEntry{
				row:     template,
				count:   rowCount,
				profile: profile,
			})
			continue
		}

		matched.count += rowCount
		matched.row[countIndex] = strconv.Itoa(matched.count)

		// Back-fill optional cells the template is still missing, keeping the
		// incoming row's original text rather than its normalized form.
		for _, idx := range cols.optional {
			if matched.profile[idx] == "" && profile[idx] != "" {
				matched.profile[idx] = profile[idx]
				matched.row[idx] = row[idx]
			}
		}
	}

	out := make(models.Table, 0, len(keyOrder)+1)
	out = append(out, header)
	totalCount := 0
	for _, key := range keyOrder {
		for _, entry := range entries[key] {
			out = append(out, entry.row)
			totalCount += entry.count
		}
	}

	return Result{
		Table:      out,
		RowsIn:     len(rows),
		RowsOut:    len(out) - 1,
		TotalCount: totalCount,
	}
}
