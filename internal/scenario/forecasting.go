package scenario

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"mlpredict/internal/capability"
	"mlpredict/internal/manifest"
	"mlpredict/internal/materialize"
)

// forecastingHandler reads a JSON document {"horizon": n, "input": {...}}
// and emits one row per forecast step.
type forecastingHandler struct{}

func (forecastingHandler) Scenario() manifest.Scenario { return manifest.Forecasting }

func (forecastingHandler) Check(b *capability.Binding) error {
	return requireAny(b, capability.VectorWithBounds)
}

func (forecastingHandler) Run(ctx context.Context, b *capability.Binding, in Input) (*Table, error) {
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, ErrInputf("open input: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, ErrInputf("forecasting input %s is not valid JSON", in.Path)
	}
	doc := gjson.ParseBytes(data)

	horizon := 0
	if h := doc.Get("horizon"); h.Exists() {
		switch h.Type {
		case gjson.Number:
			horizon = int(h.Int())
		case gjson.String:
			n, err := strconv.Atoi(strings.TrimSpace(h.Str))
			if err != nil {
				return nil, ErrInputf("horizon %q is not an integer", h.Str)
			}
			horizon = n
		default:
			return nil, ErrInputf("horizon must be a number, got %s", h.Raw)
		}
		if horizon < 0 {
			return nil, ErrInputf("horizon must not be negative, got %d", horizon)
		}
	}

	rec, warns := materialize.FromJSON(doc.Get("input"), b.Schema)
	for _, w := range warns {
		in.Logger.Warn().Str("field", w.Field).Str("value", w.Value).Err(w.Err).Msg("value replaced by zero")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := b.NewInput(rec)
	if err != nil {
		return nil, err
	}
	fc, err := b.Vector(v, horizon)
	if err != nil {
		return nil, err
	}
	t := &Table{Header: []string{"PredictedValue", "LowerBound", "UpperBound"}}
	for i, val := range fc.Values {
		t.Rows = append(t.Rows, []string{FormatValue(val), boundAt(fc.Lower, i), boundAt(fc.Upper, i)})
	}
	return t, nil
}

func boundAt(vs []float64, i int) string {
	if i < len(vs) {
		return FormatValue(vs[i])
	}
	return ""
}
