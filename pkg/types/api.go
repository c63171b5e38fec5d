package types

// PredictRequest represents a batch prediction request payload. Paths are
// resolved on the server.
type PredictRequest struct {
	// Required bundle directory.
	// example: /srv/models/taxi-fare
	ModelDir string `json:"model_dir" example:"/srv/models/taxi-fare"`
	// Required input file or image directory.
	// example: /srv/data/taxi-fare-test.csv
	InputPath string `json:"input_path" example:"/srv/data/taxi-fare-test.csv"`
	// Output file or directory. Empty writes next to the input.
	// example: /srv/out
	OutputPath string `json:"output_path,omitempty" example:"/srv/out"`
	// Overrides the manifest's header setting.
	// example: true
	HasHeader *bool `json:"has_header,omitempty" example:"true"`
	// Overrides the input delimiter.
	// example: ,
	Separator string `json:"separator,omitempty" example:","`
	// Return rows in the response instead of writing a file.
	// example: false
	Inline bool `json:"inline,omitempty" example:"false"`
}

// PredictResponse is returned by POST /v1/predict.
type PredictResponse struct {
	// Identifier of this run, also logged by the server.
	// example: 5b0b3f9e-8a4c-4a43-9d57-1d2f1f4f7c1e
	RunID string `json:"run_id" example:"5b0b3f9e-8a4c-4a43-9d57-1d2f1f4f7c1e"`
	// Normalized scenario tag.
	// example: regression
	Scenario string `json:"scenario" example:"regression"`
	// Entry symbol that produced the predictions.
	// example: TaxiFare
	Symbol string `json:"symbol" example:"TaxiFare"`
	// Resolution step that proposed the symbol.
	// example: folder
	Step string `json:"step" example:"folder"`
	// Written file, empty for inline responses.
	// example: /srv/data/taxi-fare-test-predicted.csv
	OutputPath string `json:"output_path,omitempty" example:"/srv/data/taxi-fare-test-predicted.csv"`
	// Number of output rows.
	// example: 100
	RowCount int `json:"row_count" example:"100"`
	// Output header.
	Header []string `json:"header"`
	// Output rows, only for inline requests.
	Rows [][]string `json:"rows,omitempty"`
	// Candidates that failed before Symbol succeeded.
	Fallbacks []Fallback `json:"fallbacks,omitempty"`
	// Wall time in milliseconds.
	// example: 42
	DurationMS int64 `json:"duration_ms" example:"42"`
}

// Fallback describes one rejected entry symbol candidate.
type Fallback struct {
	Symbol string `json:"symbol"`
	Step   string `json:"step"`
	Error  string `json:"error"`
}

// ModelsResponse wraps the list returned by GET /v1/models.
type ModelsResponse struct {
	// Loaded bundles.
	Models []LoadedModel `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
