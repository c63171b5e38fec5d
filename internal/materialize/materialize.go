package materialize

import (
	"encoding/csv"
	"regexp"
	"strings"
	"unicode/utf8"
)

var unsafeHeader = regexp.MustCompile(`[^A-Za-z0-9_]`)

// SanitizeHeader replaces every character outside [A-Za-z0-9_] with '_'.
func SanitizeHeader(h string) string {
	return unsafeHeader.ReplaceAllString(strings.TrimSpace(h), "_")
}

// Materialize parses lines into records for schema. With hasHeader the first
// non-empty line names the columns and fields are matched by tag, then name
// (both case-insensitive), then name with underscores ignored; otherwise
// columns map to fields by position. Unparsable cells become zero values and
// are reported as warnings.
func Materialize(lines []string, schema Schema, hasHeader bool, delimiter string) ([]Record, []CoercionWarning) {
	if delimiter == "" {
		delimiter = ","
	}
	var rows [][]string
	for _, l := range lines {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		rows = append(rows, SplitLine(l, delimiter))
	}
	if len(rows) == 0 {
		return nil, nil
	}

	colOf := make([]int, len(schema))
	if hasHeader {
		colOf = MatchColumns(rows[0], schema)
		rows = rows[1:]
	} else {
		for i := range schema {
			colOf[i] = i
		}
	}

	var warns []CoercionWarning
	out := make([]Record, 0, len(rows))
	for r, cells := range rows {
		rec := ZeroRecord(schema)
		for i, f := range schema {
			c := colOf[i]
			if c < 0 || c >= len(cells) {
				continue
			}
			v, err := Coerce(cells[c], f.Kind)
			if err != nil {
				warns = append(warns, CoercionWarning{Row: r + 1, Field: f.Name, Value: cells[c], Err: err})
				v = Zero(f.Kind)
			}
			rec[i] = v
		}
		out = append(out, rec)
	}
	return out, warns
}

// MatchColumns returns, for each schema field, the index of its header
// column or -1.
func MatchColumns(header []string, schema Schema) []int {
	norm := make([]string, len(header))
	for i, h := range header {
		norm[i] = strings.ToLower(SanitizeHeader(h))
	}
	find := func(key string, loose bool) int {
		if key == "" {
			return -1
		}
		key = strings.ToLower(key)
		if loose {
			key = strings.ReplaceAll(key, "_", "")
		}
		for i, h := range norm {
			if loose {
				h = strings.ReplaceAll(h, "_", "")
			}
			if h == key {
				return i
			}
		}
		return -1
	}
	out := make([]int, len(schema))
	for i, f := range schema {
		out[i] = -1
		for _, try := range []struct {
			key   string
			loose bool
		}{
			{SanitizeHeader(f.Column), false},
			{f.Name, false},
			{f.Name, true},
		} {
			if c := find(try.key, try.loose); c >= 0 {
				out[i] = c
				break
			}
		}
	}
	return out
}

// SplitLine splits one delimited line. Single-character delimiters honour
// double quotes; longer delimiters split literally.
func SplitLine(line, delimiter string) []string {
	if utf8.RuneCountInString(delimiter) == 1 {
		r := csv.NewReader(strings.NewReader(line))
		r.Comma, _ = utf8.DecodeRuneInString(delimiter)
		r.LazyQuotes = true
		r.FieldsPerRecord = -1
		if rec, err := r.Read(); err == nil {
			return rec
		}
	}
	return strings.Split(line, delimiter)
}
