package deps

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/mod/module"
)

// writeModuleZip stores a module zip for mod under root in the GOPROXY layout.
func writeModuleZip(t *testing.T, root string, mod module.Version, files map[string]string) {
	t.Helper()
	rel, err := zipPath(mod)
	if err != nil {
		t.Fatalf("zip path: %v", err)
	}
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	prefix := mod.Path + "@" + mod.Version + "/"
	for name, content := range files {
		w, err := zw.Create(prefix + name)
		if err != nil {
			t.Fatalf("zip entry: %v", err)
		}
		if _, err := io.WriteString(w, content); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("file close: %v", err)
	}
}

// countingFetcher wraps a Fetcher and counts calls per module.
type countingFetcher struct {
	next  Fetcher
	mu    sync.Mutex
	calls map[string]int
}

func newCountingFetcher(next Fetcher) *countingFetcher {
	return &countingFetcher{next: next, calls: map[string]int{}}
}

func (c *countingFetcher) Fetch(ctx context.Context, mod module.Version) (io.ReadCloser, error) {
	c.mu.Lock()
	c.calls[mod.String()]++
	c.mu.Unlock()
	return c.next.Fetch(ctx, mod)
}

func (c *countingFetcher) count(mod module.Version) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[mod.String()]
}
