package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MLPREDICT_"

// S3 holds credentials for s3:// repositories. Empty keys fall back to the
// standard AWS environment variables.
type S3 struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
	Region    string `json:"region" yaml:"region" toml:"region"`
	AccessKey string `json:"access_key" yaml:"access_key" toml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key" toml:"secret_key"`
	// UseSSL defaults to true when unset.
	UseSSL *bool `json:"use_ssl" yaml:"use_ssl" toml:"use_ssl"`
}

// CORS configures cross-origin access to the HTTP API.
type CORS struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Config holds runtime parameters for the CLI and the server.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
	// ModelsRoot, DataRoot and OutputRoot confine the paths HTTP clients may
	// name. See ServeRoots for their defaults.
	ModelsRoot string `json:"models_root" yaml:"models_root" toml:"models_root"`
	DataRoot   string `json:"data_root" yaml:"data_root" toml:"data_root"`
	OutputRoot string `json:"output_root" yaml:"output_root" toml:"output_root"`
	// CacheDir holds downloaded and extracted dependency modules.
	CacheDir string `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir"`
	// Repository is a GOPROXY-style location: a directory, http(s):// or s3:// URL.
	Repository          string   `json:"repository" yaml:"repository" toml:"repository"`
	FetchTimeoutSeconds int      `json:"fetch_timeout_seconds" yaml:"fetch_timeout_seconds" toml:"fetch_timeout_seconds"`
	Workers             int      `json:"workers" yaml:"workers" toml:"workers"`
	StrictDependencies  bool     `json:"strict_dependencies" yaml:"strict_dependencies" toml:"strict_dependencies"`
	LogLevel            string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	Stdlib              []string `json:"stdlib" yaml:"stdlib" toml:"stdlib"`
	// BinaryDirs are scanned for plugin binaries; empty means next to the executable.
	BinaryDirs   []string `json:"binary_dirs" yaml:"binary_dirs" toml:"binary_dirs"`
	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	// PredictTimeoutSeconds bounds one HTTP prediction; zero disables.
	PredictTimeoutSeconds int64 `json:"predict_timeout_seconds" yaml:"predict_timeout_seconds" toml:"predict_timeout_seconds"`
	S3           S3       `json:"s3" yaml:"s3" toml:"s3"`
	CORS         CORS     `json:"cors" yaml:"cors" toml:"cors"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from MLPREDICT_* variables read through getenv.
// Malformed numbers and booleans are reported, not ignored.
func (c Config) ApplyEnv(getenv func(string) string) (Config, error) {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(EnvPrefix + name)); v != "" {
			*dst = v
		}
	}
	list := func(name string, dst *[]string) {
		if v := strings.TrimSpace(getenv(EnvPrefix + name)); v != "" {
			*dst = splitList(v)
		}
	}
	var errs []string
	num := func(name string, dst *int) {
		if v := strings.TrimSpace(getenv(EnvPrefix + name)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, EnvPrefix+name+": "+err.Error())
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v := strings.TrimSpace(getenv(EnvPrefix + name)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, EnvPrefix+name+": "+err.Error())
				return
			}
			*dst = b
		}
	}

	str("ADDR", &c.Addr)
	str("MODELS_ROOT", &c.ModelsRoot)
	str("DATA_ROOT", &c.DataRoot)
	str("OUTPUT_ROOT", &c.OutputRoot)
	str("CACHE_DIR", &c.CacheDir)
	str("REPOSITORY", &c.Repository)
	num("FETCH_TIMEOUT_SECONDS", &c.FetchTimeoutSeconds)
	num("WORKERS", &c.Workers)
	flag("STRICT_DEPENDENCIES", &c.StrictDependencies)
	str("LOG_LEVEL", &c.LogLevel)
	list("STDLIB", &c.Stdlib)
	list("BINARY_DIRS", &c.BinaryDirs)
	str("S3_ENDPOINT", &c.S3.Endpoint)
	str("S3_REGION", &c.S3.Region)
	str("S3_ACCESS_KEY", &c.S3.AccessKey)
	str("S3_SECRET_KEY", &c.S3.SecretKey)
	if v := strings.TrimSpace(getenv(EnvPrefix + "S3_USE_SSL")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, EnvPrefix+"S3_USE_SSL: "+err.Error())
		} else {
			c.S3.UseSSL = &b
		}
	}
	var timeout int
	num("PREDICT_TIMEOUT_SECONDS", &timeout)
	if timeout != 0 {
		c.PredictTimeoutSeconds = int64(timeout)
	}
	flag("CORS_ENABLED", &c.CORS.Enabled)
	list("CORS_ORIGINS", &c.CORS.Origins)
	if len(errs) > 0 {
		return c, fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return c, nil
}

// Default values applied by WithDefaults.
const (
	DefaultAddr                = ":8080"
	DefaultFetchTimeoutSeconds = 60
	DefaultLogLevel            = "info"
)

// DefaultCacheDir is the per-user dependency cache.
func DefaultCacheDir() string {
	if d, err := os.UserCacheDir(); err == nil {
		return filepath.Join(d, "mlpredict")
	}
	return filepath.Join(os.TempDir(), "mlpredict-cache")
}

// WithDefaults fills unspecified fields.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir()
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = DefaultFetchTimeoutSeconds
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.S3.UseSSL == nil {
		t := true
		c.S3.UseSSL = &t
	}
	if c.CORS.Enabled && len(c.CORS.Origins) == 0 {
		c.CORS.Origins = []string{"*"}
	}
	return c
}

// ServeRoots fills the serving roots: models and data default to dir (the
// working directory in serve), output defaults to the data root.
func (c Config) ServeRoots(dir string) Config {
	if c.ModelsRoot == "" {
		c.ModelsRoot = dir
	}
	if c.DataRoot == "" {
		c.DataRoot = dir
	}
	if c.OutputRoot == "" {
		c.OutputRoot = c.DataRoot
	}
	return c
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
