// Package scenario runs batch predictions for each supported task and lays
// out their results as tables.
package scenario

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"mlpredict/internal/capability"
	"mlpredict/internal/manifest"
	"mlpredict/internal/materialize"
)

// Input describes the data a handler predicts over.
type Input struct {
	Path      string
	HasHeader bool
	Delimiter string
	// Workers bounds per-record and per-image parallelism.
	Workers int
	Logger  zerolog.Logger
}

// Handler runs one scenario against a bound entry symbol.
type Handler interface {
	Scenario() manifest.Scenario
	// Check returns an IntrospectionError when b cannot serve this scenario.
	Check(b *capability.Binding) error
	Run(ctx context.Context, b *capability.Binding, in Input) (*Table, error)
}

func requireAny(b *capability.Binding, cs ...capability.Capability) error {
	if b.HasAny(cs...) {
		return nil
	}
	return &capability.IntrospectionError{Symbol: b.Symbol, Reason: "missing capability", Want: cs, Have: b.Caps}
}

// readLines returns the lines of a text file.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrInput(fmt.Errorf("open input: %w", err))
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, ErrInput(fmt.Errorf("read input: %w", err))
	}
	return lines, nil
}

// materializeFile reads delimited input and converts it for b's schema.
func materializeFile(b *capability.Binding, in Input) ([]materialize.Record, error) {
	lines, err := readLines(in.Path)
	if err != nil {
		return nil, err
	}
	recs, warns := materialize.Materialize(lines, b.Schema, in.HasHeader, in.Delimiter)
	for _, w := range warns {
		in.Logger.Warn().Int("row", w.Row).Str("field", w.Field).Str("value", w.Value).Err(w.Err).Msg("value replaced by zero")
	}
	if len(recs) == 0 {
		return nil, ErrInputf("input %s has no data rows", in.Path)
	}
	return recs, nil
}
