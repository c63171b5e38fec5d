package runtime

import (
	"sync"
	"time"

	"mlpredict/internal/artifact"
	"mlpredict/internal/deps"
	"mlpredict/internal/manifest"
	"mlpredict/internal/symbol"
	"mlpredict/internal/unit"
)

// WeightsPathVar is the descriptor package variable set to the weights file.
const WeightsPathVar = "MLNetModelPath"

// Entry is a loaded bundle. Everything but the resolved symbol is fixed
// once the entry is cached.
type Entry struct {
	Dir      string
	Bundle   *artifact.Bundle
	Manifest *manifest.Manifest
	// Build is nil when the bundle has no go.mod.
	Build    *deps.BuildManifest
	Deps     deps.Result
	Unit     unit.Unit
	LoadedAt time.Time

	mu     sync.Mutex
	symbol string
}

// Symbol returns the entry symbol that last produced predictions, if any.
func (e *Entry) Symbol() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.symbol
}

func (e *Entry) setSymbol(name string) {
	e.mu.Lock()
	e.symbol = name
	e.mu.Unlock()
}

// Hints gathers the names known about the bundle from outside the descriptor.
func (e *Entry) Hints() symbol.Hints {
	h := symbol.Hints{Previous: e.Symbol(), Folder: e.Bundle.Name()}
	if e.Manifest != nil && e.Manifest.ClassName != "" {
		h.Declared = append(h.Declared, e.Manifest.ClassName)
	}
	h.Declared = append(h.Declared, e.Bundle.DescriptorStem(), e.Bundle.WeightsStem())
	if e.Build != nil {
		if n := e.Build.Name(); n != "" {
			h.Declared = append(h.Declared, n)
		}
	}
	return h
}

// Candidates lists the entry symbols to try, in order.
func (e *Entry) Candidates() []symbol.Candidate {
	return symbol.Resolve(e.Unit.Types(), e.Hints())
}
