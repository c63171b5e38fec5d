package scenario

import (
	"context"

	"mlpredict/internal/capability"
	"mlpredict/internal/manifest"
	"mlpredict/internal/materialize"
)

// classificationHandler serves classification and text classification.
type classificationHandler struct{ scenario manifest.Scenario }

func (h classificationHandler) Scenario() manifest.Scenario { return h.scenario }

func (h classificationHandler) Check(b *capability.Binding) error {
	return requireAny(b, capability.RankedLabels)
}

func (h classificationHandler) Run(ctx context.Context, b *capability.Binding, in Input) (*Table, error) {
	recs, err := materializeFile(b, in)
	if err != nil {
		return nil, err
	}
	preds, err := mapOrdered(ctx, in.Workers, recs, func(_ context.Context, _ int, rec materialize.Record) ([]capability.LabelScore, error) {
		v, err := b.NewInput(rec)
		if err != nil {
			return nil, err
		}
		return b.Ranked(v)
	})
	if err != nil {
		return nil, err
	}
	return ClassificationTable(preds), nil
}

// scalarHandler serves regression and recommendation: one Score per row.
type scalarHandler struct{ scenario manifest.Scenario }

func (h scalarHandler) Scenario() manifest.Scenario { return h.scenario }

func (h scalarHandler) Check(b *capability.Binding) error {
	return requireAny(b, capability.Scalar)
}

func (h scalarHandler) Run(ctx context.Context, b *capability.Binding, in Input) (*Table, error) {
	recs, err := materializeFile(b, in)
	if err != nil {
		return nil, err
	}
	scores, err := mapOrdered(ctx, in.Workers, recs, func(_ context.Context, _ int, rec materialize.Record) (float64, error) {
		v, err := b.NewInput(rec)
		if err != nil {
			return 0, err
		}
		return b.Scalar(v)
	})
	if err != nil {
		return nil, err
	}
	t := &Table{Header: []string{"Score"}}
	for _, s := range scores {
		t.Rows = append(t.Rows, []string{FormatValue(s)})
	}
	return t, nil
}
