package types

// LoadedModel describes a bundle held in the runtime cache.
type LoadedModel struct {
	// Canonical absolute path of the bundle directory.
	// example: /srv/models/taxi-fare
	Dir string `json:"dir" example:"/srv/models/taxi-fare"`
	// Bundle name (leaf directory name).
	// example: taxi-fare
	Name string `json:"name" example:"taxi-fare"`
	// Normalized scenario tag from the manifest.
	// example: regression
	Scenario string `json:"scenario" example:"regression"`
	// Entry symbol that last produced predictions, empty before the first run.
	// example: TaxiFare
	Symbol string `json:"symbol,omitempty" example:"TaxiFare"`
	// Descriptor package name.
	// example: taxifare
	Package string `json:"package" example:"taxifare"`
	// Dependencies resolved for the descriptor.
	// example: 2
	Dependencies int `json:"dependencies" example:"2"`
	// Dependencies skipped because they could not be fetched.
	// example: 0
	SkippedDependencies int `json:"skipped_dependencies" example:"0"`
	// Load time (unix seconds).
	// example: 1700000000
	LoadedAt int64 `json:"loaded_at_unix" example:"1700000000"`
}
