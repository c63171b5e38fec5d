// Package manifest reads the scenario metadata shipped next to a trained model.
//
// The manifest is JSON by default (*.mbconfig); YAML and TOML renditions are
// accepted by extension the same way the service configuration is.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDelimiter   = ","
	DefaultLabelColumn = "Label"
	// UnknownScenario stands in for a manifest without a Scenario; dispatch rejects it.
	UnknownScenario    = "Unknown"
)

// Format identifies the encoding of a manifest file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Manifest is the parsed scenario metadata. It is not mutated after Read.
type Manifest struct {
	Path        string
	RawScenario string
	Scenario    Scenario
	HasHeader   bool
	Delimiter   string
	Columns     []string
	LabelColumn string
	// ClassName is an optional entry type hint.
	ClassName string
}

type column struct {
	ColumnName       string `json:"ColumnName" yaml:"ColumnName" toml:"ColumnName"`
	ColumnPurpose    string `json:"ColumnPurpose,omitempty" yaml:"ColumnPurpose" toml:"ColumnPurpose"`
	ColumnDataFormat string `json:"ColumnDataFormat,omitempty" yaml:"ColumnDataFormat" toml:"ColumnDataFormat"`
}

type dataSource struct {
	HasHeader        *bool    `json:"HasHeader" yaml:"HasHeader" toml:"HasHeader"`
	Delimiter        *string  `json:"Delimiter" yaml:"Delimiter" toml:"Delimiter"`
	ColumnProperties []column `json:"ColumnProperties" yaml:"ColumnProperties" toml:"ColumnProperties"`
}

type trainingOption struct {
	LabelColumn *string `json:"LabelColumn" yaml:"LabelColumn" toml:"LabelColumn"`
	ClassName   string  `json:"ClassName" yaml:"ClassName" toml:"ClassName"`
}

type document struct {
	Scenario       *string         `json:"Scenario" yaml:"Scenario" toml:"Scenario"`
	ClassName      string          `json:"ClassName" yaml:"ClassName" toml:"ClassName"`
	DataSource     *dataSource     `json:"DataSource" yaml:"DataSource" toml:"DataSource"`
	TrainingOption *trainingOption `json:"TrainingOption" yaml:"TrainingOption" toml:"TrainingOption"`
}

// FormatOf picks the manifest encoding from the file name.
func FormatOf(path string) Format {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return FormatYAML
	case strings.HasSuffix(lower, ".toml"):
		return FormatTOML
	default:
		return FormatJSON
	}
}

// Read loads and parses the manifest at path.
func Read(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("empty manifest path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(b, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

// Parse decodes manifest bytes in the given format and applies defaults.
func Parse(b []byte, format Format) (*Manifest, error) {
	var doc document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return nil, err
		}
	case FormatTOML:
		if err := toml.Unmarshal(b, &doc); err != nil {
			return nil, err
		}
	case FormatJSON:
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported manifest format: %s", format)
	}
	raw := UnknownScenario
	if doc.Scenario != nil && strings.TrimSpace(*doc.Scenario) != "" {
		raw = *doc.Scenario
	}

	m := &Manifest{
		RawScenario: raw,
		Scenario:    NormalizeScenario(raw),
		Delimiter:   DefaultDelimiter,
		LabelColumn: DefaultLabelColumn,
		ClassName:   strings.TrimSpace(doc.ClassName),
	}
	if ds := doc.DataSource; ds != nil {
		for _, c := range ds.ColumnProperties {
			m.Columns = append(m.Columns, c.ColumnName)
		}
		// image scenarios only carry column names
		if !m.Scenario.IsImage() {
			if ds.HasHeader != nil {
				m.HasHeader = *ds.HasHeader
			}
			if ds.Delimiter != nil && *ds.Delimiter != "" {
				m.Delimiter = *ds.Delimiter
			}
		}
	}
	if to := doc.TrainingOption; to != nil {
		if to.LabelColumn != nil && *to.LabelColumn != "" && !m.Scenario.IsImage() {
			m.LabelColumn = *to.LabelColumn
		}
		if m.ClassName == "" {
			m.ClassName = strings.TrimSpace(to.ClassName)
		}
	}
	return m, nil
}
