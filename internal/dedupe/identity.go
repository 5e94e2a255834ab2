// package dedupe collapses duplicate rows of a set listing into single rows
// with a summed Count column.
//
// Rows are grouped by an identity key built from the mandatory columns; rows
// that share a key are merged only when their optional columns (Comment,
// Genre, Year, Length, BPM) do not disagree. The key is necessary but not
// sufficient: two rows with the same identity and conflicting genres stay
// separate.
package dedupe

import (
	"strings"
	"unicode"

	"github.com/desertthunder/setsum/internal/normalize"
)

// keySep joins key fragments. [normalize.Normalizer.Key] removes control
// characters, so no fragment can contain the separator and joined keys
// compare exactly like the fragment tuples.
const keySep = "\x1f"

// FindColumn returns the index of the named column in the header, or -1.
// Lookup is case-insensitive and tolerates normalization noise on both sides.
func FindColumn(header []string, name string) int {
	want := strings.ToLower(normalize.Key(name))
	for i, h := range header {
		if strings.ToLower(normalize.Key(h)) == want {
			return i
		}
	}
	return -1
}

// columns holds resolved column indices for one table. A -1 index means the
// column is absent.
type columns struct {
	count    int
	title    int
	length   int
	bpm      int
	optional []int // present subset of Comment, Genre, Year, Length, BPM, ascending insertion order
}

func resolveColumns(header []string, countIndex int) columns {
	cols := columns{
		count:  countIndex,
		title:  FindColumn(header, "Title"),
		length: FindColumn(header, "Length"),
		bpm:    FindColumn(header, "BPM"),
	}
	for _, idx := range []int{
		FindColumn(header, "Comment"),
		FindColumn(header, "Genre"),
		FindColumn(header, "Year"),
		cols.length,
		cols.bpm,
	} {
		if idx >= 0 {
			cols.optional = append(cols.optional, idx)
		}
	}
	return cols
}

func (c columns) isOptional(idx int) bool {
	for _, o := range c.optional {
		if o == idx {
			return true
		}
	}
	return false
}

// identityKey builds the grouping key for a row: every column except Count
// and the optional columns contributes its normalized, lower-cased value in
// column order. The Title fragment additionally drops every non-alphanumeric
// rune so "Song A!" and "SongA" compare equal.
func (c columns) identityKey(norm normalize.Normalizer, row []string) string {
	parts := make([]string, 0, len(row))
	for i, cell := range row {
		if i == c.count || c.isOptional(i) {
			continue
		}
		frag := norm.Key(cell)
		if i == c.title {
			frag = strings.Map(func(r rune) rune {
				if unicode.IsLetter(r) || unicode.IsDigit(r) {
					return r
				}
				return -1
			}, frag)
		}
		parts = append(parts, strings.ToLower(frag))
	}
	return strings.Join(parts, keySep)
}

// optionalProfile computes the normalized optional-column values for a row.
// Length and BPM columns get their specialized canonical forms; empty input
// stays empty regardless of column type.
func (c columns) optionalProfile(norm normalize.Normalizer, row []string) map[int]string {
	profile := make(map[int]string, len(c.optional))
	for _, idx := range c.optional {
		cell := ""
		if idx < len(row) {
			cell = row[idx]
		}
		s := norm.Key(cell)
		if s != "" {
			switch idx {
			case c.length:
				s = norm.Length(cell)
			case c.bpm:
				s = norm.Bpm(cell)
			}
		}
		profile[idx] = s
	}
	return profile
}

// profilesCompatible reports whether two optional profiles may merge: for
// every optional column, empty-vs-anything is compatible and two non-empty
// values must be equal.
func (c columns) profilesCompatible(a, b map[int]string) bool {
	for _, idx := range c.optional {
		av, bv := a[idx], b[idx]
		if av != "" && bv != "" && av != bv {
			return false
		}
	}
	return true
}
