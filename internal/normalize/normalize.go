// package normalize converts raw spreadsheet cell text into comparison keys
// and cleaned storage values.
//
// Two strengths of cleanup exist on purpose: key normalization is aggressive
// (accent folding, invisible-character stripping, whitespace collapsing) and
// is never written back; storage stripping only tidies the edges of a value
// so distinct-looking cells stay distinct in the sheet.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransform decomposes to NFD, drops combining marks, and recomposes to
// NFC, so "Beyoncé" and "Beyonce" produce the same key.
var foldTransform = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// stripInvisible removes format characters (zero-width space, BOM, ...) and
// the control characters left over after blank-rune mapping.
var stripInvisible = runes.Remove(runes.In(unicode.C))

// Normalizer produces comparison keys for cell values.
//
// FoldAccents controls whether diacritics are folded to their base letters.
// The summarizer folds by default; callers that want a stricter pre-folding
// comparison can turn it off.
type Normalizer struct {
	FoldAccents bool
}

// Default is the normalizer used throughout the summarizer.
var Default = Normalizer{FoldAccents: true}

// Key produces the canonical comparison form of a cell value.
//
// The function is total: a transform failure falls back to the partially
// processed string rather than propagating an error.
func (n Normalizer) Key(value string) string {
	s := replaceBlankRunes(value)

	if n.FoldAccents {
		if folded, _, err := transform.String(foldTransform, s); err == nil {
			s = folded
		}
	} else if composed, _, err := transform.String(norm.NFC, s); err == nil {
		s = composed
	}

	if stripped, _, err := transform.String(stripInvisible, s); err == nil {
		s = stripped
	}

	return strings.Join(strings.Fields(s), " ")
}

// Key normalizes a cell value with the default (accent-folding) normalizer.
func Key(value string) string {
	return Default.Key(value)
}

// Strip prepares a cell value for writing back to the sheet: non-breaking
// spaces become plain spaces and leading/trailing whitespace is removed.
// Internal whitespace, casing, and accents are preserved.
func Strip(value string) string {
	return strings.TrimSpace(strings.ReplaceAll(value, " ", " "))
}

// replaceBlankRunes maps NBSP, tab, CR, and LF to plain spaces.
func replaceBlankRunes(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return ' '
		}
		return r
	}, s)
}

// Length canonicalizes "MM:SS" and "H:MM:SS" time values so equivalent
// formats compare equal: "00:2:54" == "0:02:54" == "2:54". An empty part
// counts as zero. Values that are not a recognized time format are returned
// in their [Normalizer.Key] form unchanged.
func (n Normalizer) Length(value string) string {
	s := n.Key(value)
	if s == "" {
		return ""
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return s
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return s
		}
		nums[i] = v
	}

	var h, m, sec int
	if len(parts) == 2 {
		m, sec = nums[0], nums[1]
	} else {
		h, m, sec = nums[0], nums[1], nums[2]
	}

	if h < 0 || m < 0 || sec < 0 || sec >= 60 || m >= 60 {
		return s
	}

	if h == 0 {
		return strconv.Itoa(m) + ":" + pad2(sec)
	}
	return strconv.Itoa(h) + ":" + pad2(m) + ":" + pad2(sec)
}

// Length canonicalizes a time value with the default normalizer.
func Length(value string) string {
	return Default.Length(value)
}

// Bpm canonicalizes numeric BPM values so numeric equivalents compare equal:
// "100" == "100.0", "100.50" == "100.5". Non-numeric text is returned in its
// [Normalizer.Key] form unchanged.
func (n Normalizer) Bpm(value string) string {
	s := n.Key(value)
	if s == "" {
		return ""
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}

	rounded := math.Round(f)
	if math.Abs(f-rounded) < 1e-9 {
		return strconv.FormatInt(int64(rounded), 10)
	}

	out := strconv.FormatFloat(f, 'f', 6, 64)
	out = strings.TrimRight(out, "0")
	return strings.TrimRight(out, ".")
}

// Bpm canonicalizes a BPM value with the default normalizer.
func Bpm(value string) string {
	return Default.Bpm(value)
}

func pad2(v int) string {
	if v < 10 {
		return "0" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}

