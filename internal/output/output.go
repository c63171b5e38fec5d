// Package output writes prediction tables and prepares delimited inputs.
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mlpredict/internal/common/fsutil"
	"mlpredict/internal/scenario"
)

// PredictedSuffix is appended to the input stem to name the output file.
const PredictedSuffix = "-predicted.csv"

// ResolvePath decides where predictions for inputPath are written. An empty
// output means the input's directory. An output without an extension is a
// directory. Anything else is used as the file path itself.
func ResolvePath(inputPath, output string) string {
	output = strings.TrimSpace(output)
	if p, err := fsutil.ExpandHome(output); err == nil {
		output = p
	}
	name := fsutil.Stem(inputPath) + PredictedSuffix
	if output == "" {
		return filepath.Join(filepath.Dir(filepath.Clean(inputPath)), name)
	}
	if filepath.Ext(output) == "" || fsutil.IsDir(output) {
		return filepath.Join(output, name)
	}
	return output
}

// DelimiterFromExtension maps .csv and .tsv to their delimiters.
func DelimiterFromExtension(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ",", true
	case ".tsv":
		return "\t", true
	}
	return "", false
}

// DelimiterFor picks the delimiter: an explicit flag, then the input's
// extension, then the manifest's value.
func DelimiterFor(flag, inputPath, manifestDelim string) string {
	if flag != "" {
		return unescape(flag)
	}
	if d, ok := DelimiterFromExtension(inputPath); ok {
		return d
	}
	if manifestDelim != "" {
		return manifestDelim
	}
	return ","
}

// unescape lets "\t" and "tab" be typed on a command line.
func unescape(s string) string {
	switch strings.ToLower(s) {
	case `\t`, "tab":
		return "\t"
	}
	return s
}

// WriteCSV writes t to path as comma separated values, creating parent
// directories as needed.
func WriteCSV(path string, t *scenario.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}
