package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SelectColumns maps a comma separated column list onto header indexes.
// Each entry is a header name or a 1-based position. An empty list keeps
// every column in order.
func SelectColumns(header []string, cols string) ([]int, error) {
	if strings.TrimSpace(cols) == "" {
		idx := make([]int, len(header))
		for i := range idx {
			idx[i] = i
		}
		return idx, nil
	}
	var idx []int
	for _, c := range strings.Split(cols, ",") {
		c = strings.TrimSpace(c)
		if n, err := strconv.Atoi(c); err == nil {
			if n < 1 || n > len(header) {
				return nil, fmt.Errorf("column index %d out of range 1..%d", n, len(header))
			}
			idx = append(idx, n-1)
			continue
		}
		found := -1
		for i, h := range header {
			if h == c {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("column %q not found in headers", c)
		}
		idx = append(idx, found)
	}
	return idx, nil
}

// Preprocess copies the selected columns of a delimited file with a header
// into a comma separated file. A relative outputPath is taken relative to
// the input's directory. It returns the path written.
func Preprocess(inputPath, outputPath, cols string) (string, error) {
	if !filepath.IsAbs(outputPath) {
		outputPath = filepath.Join(filepath.Dir(inputPath), outputPath)
	}
	in, err := os.Open(inputPath)
	if err != nil {
		return "", err
	}
	defer in.Close()

	r := csv.NewReader(in)
	if d, ok := DelimiterFromExtension(inputPath); ok {
		r.Comma = rune(d[0])
	}
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%s has no header row", inputPath)
		}
		return "", err
	}
	idx, err := SelectColumns(header, cols)
	if err != nil {
		return "", err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return "", err
	}
	w := csv.NewWriter(out)
	pick := func(rec []string) []string {
		row := make([]string, len(idx))
		for i, j := range idx {
			if j < len(rec) {
				row[i] = rec[j]
			}
		}
		return row
	}
	if err := w.Write(pick(header)); err != nil {
		out.Close()
		return "", err
	}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			out.Close()
			return "", err
		}
		if err := w.Write(pick(rec)); err != nil {
			out.Close()
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		out.Close()
		return "", err
	}
	return outputPath, out.Close()
}
