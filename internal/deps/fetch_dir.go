package deps

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/mod/module"
)

// DirFetcher reads module zips from a local directory laid out like a
// GOPROXY (for example a copy of $GOMODCACHE/cache/download).
type DirFetcher struct {
	Root string
}

func (f *DirFetcher) Fetch(ctx context.Context, mod module.Version) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, err := zipPath(mod)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(filepath.Join(f.Root, filepath.FromSlash(rel)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrModuleNotFound(mod)
		}
		return nil, err
	}
	return fh, nil
}
