package runtime

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"mlpredict/internal/common/fsutil"
	"mlpredict/internal/output"
	"mlpredict/internal/scenario"
	"mlpredict/pkg/types"
)

// Roots confines the paths a Service accepts. Relative request paths are
// taken from the matching root; anything resolving outside it is rejected as
// an input error. An empty root leaves that kind of path unconfined.
type Roots struct {
	Models string
	Data   string
	Output string
}

// Service adapts a Runtime to the HTTP API's request and response types.
type Service struct {
	rt    *Runtime
	roots Roots
}

func NewService(rt *Runtime, roots Roots) *Service { return &Service{rt: rt, roots: roots} }

func confine(field, root, p string) (string, error) {
	if root == "" {
		return p, nil
	}
	got, err := fsutil.Within(root, p)
	if err != nil {
		return "", scenario.ErrInputf("%s: %v", field, err)
	}
	return got, nil
}

// paths confines the request's bundle, input and output locations. The
// output is resolved to its final file before the check.
func (s *Service) paths(req types.PredictRequest) (modelDir, input, out string, err error) {
	if modelDir, err = confine("model_dir", s.roots.Models, req.ModelDir); err != nil {
		return "", "", "", err
	}
	if input, err = confine("input_path", s.roots.Data, req.InputPath); err != nil {
		return "", "", "", err
	}
	if req.Inline {
		return modelDir, input, "", nil
	}
	out = strings.TrimSpace(req.OutputPath)
	if out, err = fsutil.ExpandHome(out); err != nil {
		return "", "", "", scenario.ErrInputf("output_path: %v", err)
	}
	if out != "" && !filepath.IsAbs(out) && s.roots.Output != "" {
		out = filepath.Join(s.roots.Output, out)
	}
	out, err = confine("output_path", s.roots.Output, output.ResolvePath(input, out))
	return modelDir, input, out, err
}

// Ready reports whether the underlying runtime can serve requests.
func (s *Service) Ready() bool { return s.rt.Ready() }

// ListModels describes every cached bundle.
func (s *Service) ListModels() []types.LoadedModel {
	entries := s.rt.Entries()
	out := make([]types.LoadedModel, 0, len(entries))
	for _, e := range entries {
		out = append(out, types.LoadedModel{
			Dir:                 e.Dir,
			Name:                e.Bundle.Name(),
			Scenario:            string(e.Manifest.Scenario),
			Symbol:              e.Symbol(),
			Package:             e.Unit.Name(),
			Dependencies:        len(e.Deps.Resolved),
			SkippedDependencies: len(e.Deps.Skipped),
			LoadedAt:            e.LoadedAt.Unix(),
		})
	}
	return out
}

// Predict runs one request and tags it with a fresh run id.
func (s *Service) Predict(ctx context.Context, req types.PredictRequest) (types.PredictResponse, error) {
	runID := uuid.NewString()
	if strings.TrimSpace(req.ModelDir) == "" {
		return types.PredictResponse{}, scenario.ErrInputf("model_dir is required")
	}
	if strings.TrimSpace(req.InputPath) == "" {
		return types.PredictResponse{}, scenario.ErrInputf("input_path is required")
	}
	modelDir, input, out, err := s.paths(req)
	if err != nil {
		s.rt.cfg.Logger.Warn().Str("run_id", runID).Err(err).Msg("predict rejected")
		return types.PredictResponse{RunID: runID}, err
	}
	s.rt.cfg.Logger.Info().Str("run_id", runID).Str("model_dir", modelDir).Str("input", input).Msg("predict request")
	res, err := s.rt.Predict(ctx, Request{
		ModelDir:   modelDir,
		InputPath:  input,
		OutputPath: out,
		HasHeader:  req.HasHeader,
		Separator:  req.Separator,
		SkipWrite:  req.Inline,
	})
	if err != nil {
		s.rt.cfg.Logger.Warn().Str("run_id", runID).Err(err).Msg("predict failed")
		return types.PredictResponse{RunID: runID}, err
	}
	resp := types.PredictResponse{
		RunID:      runID,
		Scenario:   string(res.Scenario),
		Symbol:     res.Symbol,
		Step:       res.Step.String(),
		OutputPath: res.OutputPath,
		RowCount:   len(res.Table.Rows),
		Header:     res.Table.Header,
		DurationMS: res.Duration.Milliseconds(),
	}
	if req.Inline {
		resp.Rows = res.Table.Rows
	}
	for _, a := range res.Attempts {
		resp.Fallbacks = append(resp.Fallbacks, types.Fallback{Symbol: a.Candidate.Name, Step: a.Candidate.Step.String(), Error: a.Err.Error()})
	}
	return resp, nil
}
