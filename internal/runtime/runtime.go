package runtime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/mod/module"
	"golang.org/x/sync/singleflight"

	"mlpredict/internal/artifact"
	"mlpredict/internal/capability"
	"mlpredict/internal/common/fsutil"
	"mlpredict/internal/deps"
	"mlpredict/internal/manifest"
	"mlpredict/internal/scenario"
	"mlpredict/internal/unit"
)

// Runtime caches loaded bundles by canonical directory and dispatches
// predictions against them. Safe for concurrent use.
type Runtime struct {
	cfg        Config
	resolver   *deps.Resolver
	dispatcher *scenario.Dispatcher

	// life bounds shared builds; it ends with Close.
	life context.Context
	stop context.CancelFunc

	mu      sync.RWMutex
	entries map[string]*Entry
	group   singleflight.Group
	builds  atomic.Int64
}

// New constructs a Runtime from cfg.
func New(cfg Config) *Runtime {
	cfg = cfg.withDefaults()
	r := &Runtime{cfg: cfg, entries: make(map[string]*Entry)}
	r.life, r.stop = context.WithCancel(context.Background())
	r.resolver = deps.NewResolver(deps.Config{
		CacheDir:     cfg.CacheDir,
		Fetcher:      cfg.Fetcher,
		FetchTimeout: cfg.FetchTimeout,
		Logger:       cfg.Logger,
		Observe: func(mod module.Version, outcome string) {
			dependencyTotal.WithLabelValues(outcome).Inc()
		},
	}, cfg.DepCache)
	r.dispatcher = scenario.NewDispatcher(capability.NewIntrospector(cfg.IntrospectionSize), cfg.Logger)
	return r
}

// Close cancels builds still in flight. Cached entries stay usable.
func (r *Runtime) Close() { r.stop() }

// Dispatcher exposes the scenario dispatcher so callers can register handlers.
func (r *Runtime) Dispatcher() *scenario.Dispatcher { return r.dispatcher }

// Ready reports whether the runtime can serve requests.
func (r *Runtime) Ready() bool { return r != nil && r.dispatcher != nil }

// LoadCount reports how many entries were built, cache hits excluded.
func (r *Runtime) LoadCount() int64 { return r.builds.Load() }

// Entries returns a snapshot of the cached entries sorted by directory.
func (r *Runtime) Entries() []*Entry {
	r.mu.RLock()
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Dir < out[j].Dir })
	return out
}

func (r *Runtime) cached(key string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	return e, ok
}

// Load returns the entry for dir, building it on first use. Concurrent
// loads of the same directory share one build, which runs on the runtime's
// lifetime rather than any caller's ctx; a caller whose ctx ends first gets
// ctx.Err() while the build carries on for the others. Failed builds are not
// cached.
func (r *Runtime) Load(ctx context.Context, dir string) (*Entry, error) {
	key, err := fsutil.Canonical(dir)
	if err != nil {
		return nil, err
	}
	if e, ok := r.cached(key); ok {
		loadsTotal.WithLabelValues("cached").Inc()
		return e, nil
	}
	ch := r.group.DoChan(key, func() (any, error) {
		if e, ok := r.cached(key); ok {
			return e, nil
		}
		e, err := r.build(r.life, key)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.entries[key] = e
		r.mu.Unlock()
		return e, nil
	})
	select {
	case <-ctx.Done():
		loadsTotal.WithLabelValues("abandoned").Inc()
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			loadsTotal.WithLabelValues("failed").Inc()
			return nil, res.Err
		}
		return res.Val.(*Entry), nil
	}
}

func (r *Runtime) build(ctx context.Context, dir string) (*Entry, error) {
	start := time.Now()
	r.cfg.Publisher.Publish(Event{Name: "load_start", Dir: dir, Fields: map[string]any{}})
	e, err := r.assemble(ctx, dir)
	if err != nil {
		r.cfg.Publisher.Publish(Event{Name: "load_error", Dir: dir, Fields: map[string]any{"error": err.Error()}})
		r.cfg.Logger.Error().Str("dir", dir).Err(err).Msg("load failed")
		return nil, err
	}
	r.builds.Add(1)
	loadsTotal.WithLabelValues("built").Inc()
	loadDuration.Observe(time.Since(start).Seconds())
	r.cfg.Publisher.Publish(Event{Name: "load_ready", Dir: dir, Fields: map[string]any{
		"scenario": string(e.Manifest.Scenario),
		"deps":     len(e.Deps.Resolved),
		"skipped":  len(e.Deps.Skipped),
		"dur_ms":   int(time.Since(start) / time.Millisecond),
	}})
	r.cfg.Logger.Info().Str("dir", dir).Str("scenario", string(e.Manifest.Scenario)).Dur("dur", time.Since(start)).Msg("model loaded")
	return e, nil
}

func (r *Runtime) assemble(ctx context.Context, dir string) (*Entry, error) {
	b, err := artifact.Discover(dir)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Read(b.Manifest)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", filepath.Base(b.Manifest), err)
	}
	e := &Entry{Dir: dir, Bundle: b, Manifest: m}

	if b.Deps != "" {
		bm, err := deps.ReadRequirements(b.Deps)
		if err != nil {
			return nil, err
		}
		e.Build = bm
		res, err := r.resolver.Resolve(ctx, bm.Requires)
		if err != nil {
			return nil, fmt.Errorf("resolve dependencies: %w", err)
		}
		e.Deps = res
		for _, w := range res.Skipped {
			r.cfg.Publisher.Publish(Event{Name: "dependency_skipped", Dir: dir, Fields: map[string]any{"module": w.Module.String(), "error": w.Err.Error()}})
		}
		if r.cfg.StrictDependencies {
			if err := res.Err(); err != nil {
				return nil, err
			}
		}
	}

	src, err := os.ReadFile(b.Descriptor)
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	u, err := r.cfg.Compiler.Compile(ctx, unit.Source{Filename: filepath.Base(b.Descriptor), Text: src}, e.Deps.Resolved)
	if err != nil {
		return nil, err
	}
	for _, v := range u.Vars() {
		if v == WeightsPathVar {
			if err := u.SetString(WeightsPathVar, b.Weights); err != nil {
				return nil, fmt.Errorf("set %s: %w", WeightsPathVar, err)
			}
			break
		}
	}
	e.Unit = u
	e.LoadedAt = time.Now()
	return e, nil
}
