package runtime

import (
	"time"

	"github.com/rs/zerolog"

	"mlpredict/internal/capability"
	"mlpredict/internal/deps"
	"mlpredict/internal/unit"
)

// Config encapsulates all tunables for Runtime construction. Zero values
// take package defaults.
type Config struct {
	// CacheDir holds downloaded and extracted dependency modules.
	CacheDir string
	// Fetcher retrieves module zips; nil means only already extracted
	// modules can be used.
	Fetcher      deps.Fetcher
	FetchTimeout time.Duration
	// StrictDependencies fails a load when any dependency was skipped.
	StrictDependencies bool
	// Workers bounds per-record and per-image parallelism; <= 0 means NumCPU.
	Workers int

	// Compiler defaults to the yaegi interpreter built from Stdlib and BinaryDirs.
	Compiler   unit.Compiler
	Stdlib     []string
	BinaryDirs []string

	// DepCache lets several runtimes share resolved modules. Nil gets a private cache.
	DepCache          *deps.Cache
	IntrospectionSize int

	Logger    zerolog.Logger
	Publisher EventPublisher
}

func (c Config) withDefaults() Config {
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = deps.DefaultFetchTimeout
	}
	if c.IntrospectionSize <= 0 {
		c.IntrospectionSize = capability.DefaultCacheSize
	}
	if c.DepCache == nil {
		c.DepCache = deps.NewCache()
	}
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
	if c.Compiler == nil {
		c.Compiler = unit.NewInterpreter(unit.Options{Stdlib: c.Stdlib, BinaryDirs: c.BinaryDirs, Logger: c.Logger})
	}
	return c
}
