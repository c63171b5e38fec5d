package deps

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/mod/module"
)

// Fetcher retrieves the zip of one module version from a package repository.
// The caller closes the returned reader.
type Fetcher interface {
	Fetch(ctx context.Context, mod module.Version) (io.ReadCloser, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, mod module.Version) (io.ReadCloser, error)

func (f FetcherFunc) Fetch(ctx context.Context, mod module.Version) (io.ReadCloser, error) {
	return f(ctx, mod)
}

// zipPath returns the repository-relative path of a module zip in the
// GOPROXY layout: <escaped path>/@v/<escaped version>.zip.
func zipPath(mod module.Version) (string, error) {
	p, err := module.EscapePath(mod.Path)
	if err != nil {
		return "", err
	}
	v, err := module.EscapeVersion(mod.Version)
	if err != nil {
		return "", err
	}
	return p + "/@v/" + v + ".zip", nil
}

// NewFetcher builds a Fetcher from a repository location:
//
//   - "" returns nil (no repository configured)
//   - a plain path or file:// URL reads a GOPROXY-style directory
//   - http:// and https:// speak the GOPROXY protocol
//   - s3://bucket/prefix reads the GOPROXY layout from an S3 bucket
func NewFetcher(repo string, s3 S3Config) (Fetcher, error) {
	repo = strings.TrimSpace(repo)
	if repo == "" {
		return nil, nil
	}
	u, err := url.Parse(repo)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// bare path, including windows drive letters
		return &DirFetcher{Root: filepath.Clean(repo)}, nil
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		return &DirFetcher{Root: filepath.FromSlash(u.Path)}, nil
	case "http", "https":
		return NewProxyFetcher(repo, nil), nil
	case "s3":
		s3.Bucket = u.Host
		s3.Prefix = strings.Trim(u.Path, "/")
		return NewS3Fetcher(s3)
	default:
		return nil, fmt.Errorf("unsupported repository scheme: %s", u.Scheme)
	}
}
