package main

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mlpredict/internal/config"
	"mlpredict/internal/deps"
	mlruntime "mlpredict/internal/runtime"
)

// options collects global flags and the merged configuration.
type options struct {
	configPath string
	logLevel   string
	cacheDir   string
	repository string
	workers    int
	strict     bool
	stdlib     string
	binaryDirs string

	cfg config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "mlpredict",
		Short:         "Run batch predictions from trained model bundles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "Config file (.yaml, .yml, .json or .toml)")
	pf.StringVar(&o.logLevel, "log-level", "", "Log level: debug|info|warn|error (default info)")
	pf.StringVar(&o.cacheDir, "cache-dir", "", "Dependency cache directory")
	pf.StringVar(&o.repository, "repository", "", "Module repository: directory, http(s):// proxy or s3://bucket/prefix")
	pf.IntVar(&o.workers, "workers", 0, "Parallel predictions per run (0 = number of CPUs)")
	pf.BoolVar(&o.strict, "strict-deps", false, "Fail when a dependency cannot be fetched")
	pf.StringVar(&o.stdlib, "stdlib", "", "Comma separated standard packages descriptors may import")
	pf.StringVar(&o.binaryDirs, "binary-dirs", "", "Comma separated directories scanned for plugin binaries")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return o.resolve(cmd)
	}

	root.AddCommand(newRunCmd(o), newServeCmd(o), newPreprocessCmd())
	return root
}

// resolve merges file, environment and flags, in increasing precedence.
func (o *options) resolve(cmd *cobra.Command) error {
	var cfg config.Config
	if o.configPath != "" {
		c, err := config.Load(o.configPath)
		if err != nil {
			return err
		}
		cfg = c
	}
	cfg, err := cfg.ApplyEnv(os.Getenv)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("cache-dir") {
		cfg.CacheDir = o.cacheDir
	}
	if flags.Changed("repository") {
		cfg.Repository = o.repository
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("strict-deps") {
		cfg.StrictDependencies = o.strict
	}
	if flags.Changed("stdlib") {
		cfg.Stdlib = splitCSV(o.stdlib)
	}
	if flags.Changed("binary-dirs") {
		cfg.BinaryDirs = splitCSV(o.binaryDirs)
	}
	o.cfg = cfg.WithDefaults()
	o.log = newLogger(o.cfg.LogLevel)
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Logger()
}

// newRuntime builds a runtime from the merged configuration.
func (o *options) newRuntime() (*mlruntime.Runtime, error) {
	c := o.cfg
	fetcher, err := deps.NewFetcher(c.Repository, deps.S3Config{
		Endpoint:  c.S3.Endpoint,
		Region:    c.S3.Region,
		AccessKey: c.S3.AccessKey,
		SecretKey: c.S3.SecretKey,
		UseSSL:    c.S3.UseSSL == nil || *c.S3.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return mlruntime.New(mlruntime.Config{
		CacheDir:           c.CacheDir,
		Fetcher:            fetcher,
		FetchTimeout:       time.Duration(c.FetchTimeoutSeconds) * time.Second,
		StrictDependencies: c.StrictDependencies,
		Workers:            c.Workers,
		Stdlib:             c.Stdlib,
		BinaryDirs:         c.BinaryDirs,
		Logger:             o.log,
	}), nil
}

// splitCSV splits a comma separated flag value, dropping blanks.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
