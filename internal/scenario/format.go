package scenario

import (
	"fmt"
	"strconv"
	"strings"

	"mlpredict/internal/capability"
)

// Table is the tabular result of a prediction run.
type Table struct {
	Header []string
	Rows   [][]string
}

// FormatValue renders a cell: floats with six decimals, nil as empty and
// everything else in its natural form.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', 6, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', 6, 32)
	case string:
		return x
	}
	return fmt.Sprint(v)
}

// FormatFloats joins values with sep, six decimals each.
func FormatFloats(vs []float64, sep string) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = FormatValue(v)
	}
	return strings.Join(parts, sep)
}

// ClassificationTable lays out ranked predictions. With exactly two distinct
// labels across all rows the output is binary (PredictedLabel, Score);
// otherwise the top three labels and scores are listed, blank when fewer.
func ClassificationTable(preds [][]capability.LabelScore) *Table {
	labels := map[string]struct{}{}
	for _, p := range preds {
		for _, ls := range p {
			labels[ls.Label] = struct{}{}
		}
	}
	t := &Table{}
	if len(labels) == 2 {
		t.Header = []string{"PredictedLabel", "Score"}
		for _, p := range preds {
			row := []string{"", ""}
			if len(p) > 0 {
				row = []string{p[0].Label, FormatValue(p[0].Score)}
			}
			t.Rows = append(t.Rows, row)
		}
		return t
	}
	t.Header = []string{"Top1", "Top1Score", "Top2", "Top2Score", "Top3", "Top3Score"}
	for _, p := range preds {
		row := make([]string, 0, 6)
		for i := 0; i < 3; i++ {
			if i < len(p) {
				row = append(row, p[i].Label, FormatValue(p[i].Score))
			} else {
				row = append(row, "", "")
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
