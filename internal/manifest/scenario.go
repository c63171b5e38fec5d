package manifest

import "strings"

// Scenario is a normalized task tag.
type Scenario string

const (
	Classification      Scenario = "classification"
	Regression          Scenario = "regression"
	Forecasting         Scenario = "forecasting"
	Recommendation      Scenario = "recommendation"
	TextClassification  Scenario = "text-classification"
	ImageClassification Scenario = "image-classification"
	ObjectDetection     Scenario = "object-detection"
)

// Scenarios lists every scenario the dispatcher knows, in display order.
var Scenarios = []Scenario{
	Classification,
	Regression,
	Forecasting,
	Recommendation,
	TextClassification,
	ImageClassification,
	ObjectDetection,
}

var gluedForms = map[string]Scenario{
	"imageclassification": ImageClassification,
	"textclassification":  TextClassification,
	"objectdetection":     ObjectDetection,
}

// NormalizeScenario lowercases and trims raw, turns '_' and spaces into '-'
// and maps glued spellings such as "ImageClassification" onto their
// canonical form. Unknown tags are returned in their normalized spelling.
func NormalizeScenario(raw string) Scenario {
	s := strings.ToLower(strings.TrimSpace(raw))
	if c, ok := gluedForms[s]; ok {
		return c
	}
	s = strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == ' ' || r == '-' || r == '\t'
	}), "-")
	return Scenario(s)
}

// Known reports whether s is one of the supported scenarios.
func (s Scenario) Known() bool {
	for _, k := range Scenarios {
		if s == k {
			return true
		}
	}
	return false
}

// IsImage reports whether the scenario consumes image files rather than
// delimited text.
func (s Scenario) IsImage() bool {
	return s == ImageClassification || s == ObjectDetection
}

func (s Scenario) String() string { return string(s) }
