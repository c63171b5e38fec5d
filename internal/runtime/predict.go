package runtime

import (
	"context"
	"errors"
	"time"

	"mlpredict/internal/common/fsutil"
	"mlpredict/internal/manifest"
	"mlpredict/internal/output"
	"mlpredict/internal/scenario"
	"mlpredict/internal/symbol"
)

// Request describes one prediction run.
type Request struct {
	ModelDir  string
	InputPath string
	// OutputPath is a file, a directory, or empty for the input's directory.
	OutputPath string
	// HasHeader and Separator override the manifest when set.
	HasHeader *bool
	Separator string
	// SkipWrite returns the table without writing a file.
	SkipWrite bool
}

// Result describes a completed run.
type Result struct {
	OutputPath string
	Scenario   manifest.Scenario
	Symbol     string
	Step       symbol.Step
	Table      *scenario.Table
	// Attempts lists candidates that failed before Symbol succeeded.
	Attempts []scenario.Attempt
	Duration time.Duration
}

// Predict loads req.ModelDir, runs the manifest's scenario over the input
// and writes the resulting table.
func (r *Runtime) Predict(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	e, err := r.Load(ctx, req.ModelDir)
	if err != nil {
		return nil, err
	}
	m := e.Manifest
	label := string(m.Scenario)
	if !m.Scenario.Known() {
		label = "unknown"
	}

	res, err := r.predict(ctx, e, req)
	predictionsTotal.WithLabelValues(label, statusLabel(err)).Inc()
	predictionDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	var fe *scenario.FallbackExhaustedError
	switch {
	case err == nil:
		fallbacksTotal.WithLabelValues(label).Add(float64(len(res.Attempts)))
		predictionRows.WithLabelValues(label).Add(float64(len(res.Table.Rows)))
	case errors.As(err, &fe):
		fallbacksTotal.WithLabelValues(label).Add(float64(len(fe.Attempts)))
	}
	if err != nil {
		r.cfg.Publisher.Publish(Event{Name: "predict_error", Dir: e.Dir, Fields: map[string]any{"error": err.Error()}})
		return nil, err
	}
	res.Duration = time.Since(start)
	r.cfg.Publisher.Publish(Event{Name: "predict_done", Dir: e.Dir, Fields: map[string]any{
		"symbol": res.Symbol,
		"rows":   len(res.Table.Rows),
		"dur_ms": int(res.Duration / time.Millisecond),
	}})
	return res, nil
}

func (r *Runtime) predict(ctx context.Context, e *Entry, req Request) (*Result, error) {
	m := e.Manifest
	if !fsutil.PathExists(req.InputPath) {
		return nil, scenario.ErrInputf("input path %q does not exist", req.InputPath)
	}
	hasHeader := m.HasHeader
	if req.HasHeader != nil {
		hasHeader = *req.HasHeader
	}
	in := scenario.Input{
		Path:      req.InputPath,
		HasHeader: hasHeader,
		Delimiter: output.DelimiterFor(req.Separator, req.InputPath, m.Delimiter),
		Workers:   r.cfg.Workers,
		Logger:    r.cfg.Logger.With().Str("model", e.Bundle.Name()).Logger(),
	}
	r.cfg.Publisher.Publish(Event{Name: "predict_start", Dir: e.Dir, Fields: map[string]any{"input": req.InputPath, "scenario": m.RawScenario}})

	out, err := r.dispatcher.Run(ctx, m.RawScenario, e.Unit, e.Candidates(), in)
	if err != nil {
		return nil, err
	}
	if len(out.Attempts) > 0 {
		r.cfg.Logger.Info().Str("symbol", out.Symbol).Str("step", out.Step.String()).Int("failed", len(out.Attempts)).Msg("entry symbol found by fallback")
	}
	e.setSymbol(out.Symbol)

	res := &Result{Scenario: m.Scenario, Symbol: out.Symbol, Step: out.Step, Table: out.Table, Attempts: out.Attempts}
	if req.SkipWrite {
		return res, nil
	}
	res.OutputPath = output.ResolvePath(req.InputPath, req.OutputPath)
	if err := output.WriteCSV(res.OutputPath, out.Table); err != nil {
		return nil, err
	}
	r.cfg.Logger.Info().Str("output", res.OutputPath).Int("rows", len(out.Table.Rows)).Msg("predictions written")
	return res, nil
}
