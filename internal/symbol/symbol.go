// Package symbol proposes which descriptor type is the model's entry point.
//
// Resolution never fails: it yields an ordered list of candidates, each tagged
// with the rule that produced it, and the caller tries them in turn.
package symbol

import (
	"strings"

	"mlpredict/internal/unit"
)

// DefaultName is the last-resort entry type name.
const DefaultName = "Model"

// Reserved type names are record types, never entry points.
const (
	InputType  = "ModelInput"
	OutputType = "ModelOutput"
)

// PredictionMethods are the method names that mark a type as an entry point.
var PredictionMethods = []string{"Predict", "PredictAllLabels"}

// Step identifies the rule that proposed a candidate.
type Step int

const (
	StepHint Step = iota + 1
	StepFolder
	StepPredictMethod
	StepExported
	StepDefault
)

func (s Step) String() string {
	switch s {
	case StepHint:
		return "hint"
	case StepFolder:
		return "folder"
	case StepPredictMethod:
		return "predict-method"
	case StepExported:
		return "exported"
	case StepDefault:
		return "default"
	}
	return "unknown"
}

// Candidate is one proposed entry type.
type Candidate struct {
	Name string
	Step Step
}

// Hints carry the names known from outside the descriptor.
type Hints struct {
	// Previous is the symbol that succeeded on an earlier run, tried first.
	Previous string
	// Declared holds manifest and file-name derived names in priority order.
	Declared []string
	// Folder is the leaf name of the bundle directory.
	Folder string
}

type rule struct {
	step Step
	fn   func(types []unit.TypeDesc, h Hints) []string
}

var chain = []rule{
	{StepHint, byHints},
	{StepFolder, byFolder},
	{StepPredictMethod, byPredictMethod},
	{StepExported, byExported},
	{StepDefault, func([]unit.TypeDesc, Hints) []string { return []string{DefaultName} }},
}

// Resolve returns the de-duplicated candidate list in rule order.
func Resolve(types []unit.TypeDesc, h Hints) []Candidate {
	seen := map[string]bool{}
	var out []Candidate
	for _, r := range chain {
		for _, name := range r.fn(types, h) {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, Candidate{Name: name, Step: r.step})
		}
	}
	return out
}

// Names flattens candidates to their names.
func Names(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

func has(types []unit.TypeDesc, name string) bool {
	for _, t := range types {
		if t.Name == name {
			return true
		}
	}
	return false
}

func byHints(types []unit.TypeDesc, h Hints) []string {
	var out []string
	for _, n := range append([]string{h.Previous}, h.Declared...) {
		if n != "" && has(types, n) {
			out = append(out, n)
		}
	}
	return out
}

func byFolder(types []unit.TypeDesc, h Hints) []string {
	if h.Folder == "" {
		return nil
	}
	if has(types, h.Folder) {
		return []string{h.Folder}
	}
	for _, t := range types {
		if strings.EqualFold(t.Name, h.Folder) {
			return []string{t.Name}
		}
	}
	return nil
}

func byPredictMethod(types []unit.TypeDesc, _ Hints) []string {
	var out []string
	for _, t := range types {
		for _, m := range PredictionMethods {
			if _, ok := t.Method(m); ok {
				out = append(out, t.Name)
				break
			}
		}
	}
	return out
}

func byExported(types []unit.TypeDesc, _ Hints) []string {
	var out []string
	for _, t := range types {
		if t.Exported && t.Name != InputType && t.Name != OutputType {
			out = append(out, t.Name)
		}
	}
	return out
}
