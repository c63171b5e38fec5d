// Package capability inspects a compiled descriptor type and binds the
// prediction methods it exposes.
//
// Shapes recognised on the entry type:
//
//	PredictAllLabels(in T) map[string]float32          ranked-labels
//	Predict(in T) O, O.Score numeric                    scalar
//	Predict(in T[, horizon int]) O, O has X, X_LB, X_UB vector-with-bounds
//	Predict(in T) O, T.ImageSource []byte,
//	    O.PredictedLabel string                          image-label
//	Predict(in T) O, T.Image image.Image, O has
//	    PredictedLabel []string, PredictedBoundingBoxes,
//	    Score []float32                                  detection
package capability

import (
	"strings"

	"mlpredict/internal/materialize"
	"mlpredict/internal/unit"
)

// Capability is one invocation shape an entry type supports.
type Capability string

const (
	RankedLabels     Capability = "ranked-labels"
	Scalar           Capability = "scalar"
	VectorWithBounds Capability = "vector-with-bounds"
	ImageLabel       Capability = "image-label"
	Detection        Capability = "detection"
)

const (
	ImageSourceField = "ImageSource"
	ImageField       = "Image"
	lowerSuffix      = "_LB"
	upperSuffix      = "_UB"
)

func isNumeric(goType string) bool {
	k := materialize.KindOf(goType)
	return k == materialize.KindFloat || k == materialize.KindInt || k == materialize.KindUint
}

func isNumericSlice(goType string) bool {
	return strings.HasPrefix(goType, "[]") && isNumeric(goType[2:])
}

func isRankedResult(goType string) bool {
	return goType == "map[string]float32" || goType == "map[string]float64"
}

// stripPtr removes a leading '*' from a parameter type.
func stripPtr(t string) (string, bool) {
	if strings.HasPrefix(t, "*") {
		return t[1:], true
	}
	return t, false
}

// resultShape validates the result list of a prediction method: one value,
// optionally followed by an error.
func resultShape(m unit.Method) (string, bool) {
	switch len(m.Results) {
	case 1:
		return m.Results[0], true
	case 2:
		if m.Results[1] == "error" {
			return m.Results[0], true
		}
	}
	return "", false
}

// vectorFields finds the value, lower and upper bound slice fields of a
// forecasting output type.
func vectorFields(out unit.TypeDesc) (values, lower, upper string, ok bool) {
	for _, f := range out.Fields {
		if !f.Exported || !isNumericSlice(f.Type) {
			continue
		}
		switch {
		case strings.HasSuffix(f.Name, lowerSuffix):
			if lower == "" {
				lower = f.Name
			}
		case strings.HasSuffix(f.Name, upperSuffix):
			if upper == "" {
				upper = f.Name
			}
		default:
			if values == "" {
				values = f.Name
			}
		}
	}
	return values, lower, upper, values != "" && lower != "" && upper != ""
}

func schemaOf(t unit.TypeDesc) materialize.Schema {
	var s materialize.Schema
	for _, f := range t.Fields {
		if !f.Exported {
			continue
		}
		s = append(s, materialize.Field{Name: f.Name, Column: f.Column, Kind: materialize.KindOf(f.Type)})
	}
	return s
}

func fieldType(t unit.TypeDesc, name string) string {
	if f, ok := t.Field(name); ok {
		return f.Type
	}
	return ""
}
