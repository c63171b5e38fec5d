package deps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/mod/module"
	"golang.org/x/mod/sumdb/dirhash"
	modzip "golang.org/x/mod/zip"
)

const (
	DefaultFetchTimeout = 60 * time.Second
	pluginsDir          = "plugins"
	pluginExt           = ".so"
)

// Resolved is one dependency that is extracted and ready to use.
type Resolved struct {
	Path    string
	Version string
	// Dir is the extracted module root.
	Dir string
	// Binaries maps platform tag to the plugin files found under plugins/<tag>/.
	Binaries map[string][]string
	// Tag is the platform tag chosen from Binaries, empty when none is loadable.
	Tag      string
	Requires []module.Version
}

// Module returns the module version this entry resolves.
func (r Resolved) Module() module.Version { return module.Version{Path: r.Path, Version: r.Version} }

// BestBinaries returns the plugin files for the chosen platform tag.
func (r Resolved) BestBinaries() []string { return r.Binaries[r.Tag] }

// Result is the outcome of resolving a requirement list.
type Result struct {
	Resolved []Resolved
	Skipped  []*FetchWarning
}

// Err joins the skipped dependencies into one error, or nil.
func (r Result) Err() error {
	if len(r.Skipped) == 0 {
		return nil
	}
	errs := make([]error, len(r.Skipped))
	for i, w := range r.Skipped {
		errs[i] = w
	}
	return errors.Join(errs...)
}

// Config configures a Resolver.
type Config struct {
	// CacheDir holds downloaded zips (download/) and extracted modules (pkg/).
	CacheDir     string
	Fetcher      Fetcher
	FetchTimeout time.Duration
	Platform     Platform
	Logger       zerolog.Logger
	// Observe, if set, is called once per module with "resolved", "cached" or "skipped".
	Observe func(mod module.Version, outcome string)
}

// Resolver walks a requirement list transitively and materializes each
// module under the cache directory.
type Resolver struct {
	cfg   Config
	cache *Cache
}

// NewResolver returns a resolver backed by cache. A nil cache gets a private one.
func NewResolver(cfg Config, cache *Cache) *Resolver {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.Platform == (Platform{}) {
		cfg.Platform = Current()
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(os.TempDir(), "mlpredict-cache")
	}
	if cache == nil {
		cache = NewCache()
	}
	return &Resolver{cfg: cfg, cache: cache}
}

// Resolve fetches every module in reqs and everything they require.
// Modules that fail are recorded in Result.Skipped and do not stop the walk.
// The only error returned is ctx's own cancellation or deadline; the
// per-fetch timeout produces a skip instead.
func (r *Resolver) Resolve(ctx context.Context, reqs []module.Version) (Result, error) {
	var res Result
	visited := make(map[string]bool)
	queue := append([]module.Version(nil), reqs...)
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		mod := queue[0]
		queue = queue[1:]
		key := cacheKey(mod)
		if visited[key] {
			continue
		}
		visited[key] = true

		got, err, cached := r.cache.do(ctx, mod, func(bctx context.Context) (Resolved, error) { return r.resolveOne(bctx, mod) })
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			w := &FetchWarning{Module: mod, Err: err}
			r.cfg.Logger.Warn().Str("module", mod.String()).Err(err).Msg("dependency skipped")
			res.Skipped = append(res.Skipped, w)
			r.observe(mod, "skipped")
			continue
		}
		if cached {
			r.observe(mod, "cached")
		} else {
			r.observe(mod, "resolved")
		}
		res.Resolved = append(res.Resolved, got)
		queue = append(queue, got.Requires...)
	}
	return res, nil
}

func (r *Resolver) observe(mod module.Version, outcome string) {
	if r.cfg.Observe != nil {
		r.cfg.Observe(mod, outcome)
	}
}

func (r *Resolver) paths(mod module.Version) (zipFile, dir string, err error) {
	ep, err := module.EscapePath(mod.Path)
	if err != nil {
		return "", "", err
	}
	ev, err := module.EscapeVersion(mod.Version)
	if err != nil {
		return "", "", err
	}
	zipFile = filepath.Join(r.cfg.CacheDir, "download", filepath.FromSlash(ep), "@v", ev+".zip")
	dir = filepath.Join(r.cfg.CacheDir, "pkg", filepath.FromSlash(ep)+"@"+ev)
	return zipFile, dir, nil
}

// resolveOne makes mod available on disk, fetching only when no completed
// extraction exists.
func (r *Resolver) resolveOne(ctx context.Context, mod module.Version) (Resolved, error) {
	if err := module.Check(mod.Path, mod.Version); err != nil {
		return Resolved{}, err
	}
	zipFile, dir, err := r.paths(mod)
	if err != nil {
		return Resolved{}, err
	}
	marker := strings.TrimSuffix(zipFile, ".zip") + ".ziphash"
	if fsExists(marker) && fsExists(dir) {
		r.cfg.Logger.Debug().Str("module", mod.String()).Str("dir", dir).Msg("dependency already extracted")
		return r.inspect(mod, dir)
	}
	if r.cfg.Fetcher == nil {
		return Resolved{}, fmt.Errorf("no package repository configured")
	}

	start := time.Now()
	if err := r.download(ctx, mod, zipFile); err != nil {
		return Resolved{}, err
	}
	// a partial extraction from an earlier crash blocks Unzip
	if err := os.RemoveAll(dir); err != nil {
		return Resolved{}, err
	}
	if err := modzip.Unzip(dir, mod, zipFile); err != nil {
		return Resolved{}, fmt.Errorf("extract: %w", err)
	}
	sum, err := dirhash.HashZip(zipFile, dirhash.DefaultHash)
	if err != nil {
		return Resolved{}, fmt.Errorf("hash: %w", err)
	}
	if err := os.WriteFile(marker, []byte(sum), 0o644); err != nil {
		return Resolved{}, err
	}
	r.cfg.Logger.Info().Str("module", mod.String()).Str("hash", sum).Dur("dur", time.Since(start)).Msg("dependency fetched")
	return r.inspect(mod, dir)
}

func (r *Resolver) download(ctx context.Context, mod module.Version, zipFile string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	defer cancel()
	rc, err := r.cfg.Fetcher.Fetch(ctx, mod)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer rc.Close()
	if err := os.MkdirAll(filepath.Dir(zipFile), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(zipFile), filepath.Base(zipFile)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return fmt.Errorf("fetch: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), zipFile)
}

// inspect reads the extracted module's own requirements and plugin binaries.
func (r *Resolver) inspect(mod module.Version, dir string) (Resolved, error) {
	res := Resolved{Path: mod.Path, Version: mod.Version, Dir: dir, Binaries: map[string][]string{}}
	gomod := filepath.Join(dir, "go.mod")
	if fsExists(gomod) {
		bm, err := ReadRequirements(gomod)
		if err != nil {
			return Resolved{}, err
		}
		res.Requires = bm.Requires
	}
	tags, err := os.ReadDir(filepath.Join(dir, pluginsDir))
	if err != nil && !os.IsNotExist(err) {
		return Resolved{}, err
	}
	for _, t := range tags {
		if !t.IsDir() {
			continue
		}
		files, err := filepath.Glob(filepath.Join(dir, pluginsDir, t.Name(), "*"+pluginExt))
		if err != nil {
			return Resolved{}, err
		}
		if len(files) > 0 {
			res.Binaries[t.Name()] = files
		}
	}
	if tag, _, ok := r.cfg.Platform.Best(res.Binaries); ok {
		res.Tag = tag
	}
	return res, nil
}

func fsExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
