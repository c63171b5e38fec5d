package scenario

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"mlpredict/internal/capability"
	"mlpredict/internal/manifest"
	"mlpredict/internal/symbol"
	"mlpredict/internal/unit"
)

// Outcome is the result of a successful dispatch.
type Outcome struct {
	Table  *Table
	Symbol string
	Step   symbol.Step
	// Attempts lists candidates that failed before the one that succeeded.
	Attempts []Attempt
}

// Dispatcher routes a scenario to its handler and walks the candidate
// entry symbols until one produces a table.
type Dispatcher struct {
	introspector *capability.Introspector
	handlers     map[manifest.Scenario]Handler
	log          zerolog.Logger
}

// NewDispatcher returns a dispatcher with handlers for every known scenario.
func NewDispatcher(in *capability.Introspector, log zerolog.Logger) *Dispatcher {
	if in == nil {
		in = capability.NewIntrospector(0)
	}
	d := &Dispatcher{introspector: in, handlers: map[manifest.Scenario]Handler{}, log: log}
	d.Register(classificationHandler{scenario: manifest.Classification})
	d.Register(classificationHandler{scenario: manifest.TextClassification})
	d.Register(scalarHandler{scenario: manifest.Regression})
	d.Register(scalarHandler{scenario: manifest.Recommendation})
	d.Register(forecastingHandler{})
	d.Register(imageClassificationHandler{})
	d.Register(objectDetectionHandler{})
	return d
}

// Register installs h, replacing any handler for the same scenario.
func (d *Dispatcher) Register(h Handler) { d.handlers[h.Scenario()] = h }

// Handler returns the handler for a raw or normalized scenario tag.
func (d *Dispatcher) Handler(tag string) (Handler, error) {
	h, ok := d.handlers[manifest.NormalizeScenario(tag)]
	if !ok {
		return nil, ErrUnsupportedScenario(tag)
	}
	return h, nil
}

// Run tries each candidate in order. Input errors and cancellation stop the
// walk immediately; any other failure moves on to the next candidate.
func (d *Dispatcher) Run(ctx context.Context, tag string, u unit.Unit, candidates []symbol.Candidate, in Input) (*Outcome, error) {
	h, err := d.Handler(tag)
	if err != nil {
		return nil, err
	}
	var attempts []Attempt
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := d.try(ctx, h, u, c, in)
		if err == nil {
			return &Outcome{Table: t, Symbol: c.Name, Step: c.Step, Attempts: attempts}, nil
		}
		if IsInput(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		d.log.Debug().Str("symbol", c.Name).Str("step", c.Step.String()).Err(err).Msg("candidate failed")
		attempts = append(attempts, Attempt{Candidate: c, Err: err})
	}
	return nil, &FallbackExhaustedError{Scenario: string(h.Scenario()), Attempts: attempts}
}

func (d *Dispatcher) try(ctx context.Context, h Handler, u unit.Unit, c symbol.Candidate, in Input) (*Table, error) {
	b, err := d.introspector.Introspect(u, c.Name)
	if err != nil {
		return nil, err
	}
	if err := h.Check(b); err != nil {
		return nil, err
	}
	return h.Run(ctx, b, in)
}
