package unit

import (
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// overlayFS mounts several file systems under path prefixes. Directories
// above a mount point are synthesized so the tree can be walked from the
// root.
type overlayFS struct {
	mounts []mount
}

type mount struct {
	prefix string
	fsys   fs.FS
}

func newOverlayFS() *overlayFS { return &overlayFS{} }

// Mount attaches fsys at prefix. Longer prefixes win on overlap.
func (o *overlayFS) Mount(prefix string, fsys fs.FS) {
	o.mounts = append(o.mounts, mount{prefix: path.Clean(prefix), fsys: fsys})
	sort.SliceStable(o.mounts, func(i, j int) bool { return len(o.mounts[i].prefix) > len(o.mounts[j].prefix) })
}

func (o *overlayFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	for _, m := range o.mounts {
		if name == m.prefix {
			return m.fsys.Open(".")
		}
		if strings.HasPrefix(name, m.prefix+"/") {
			return m.fsys.Open(strings.TrimPrefix(name, m.prefix+"/"))
		}
	}
	if children := o.children(name); len(children) > 0 {
		return &syntheticDir{name: name, entries: children}, nil
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// children lists the next path element of every mount below dir.
func (o *overlayFS) children(dir string) []fs.DirEntry {
	seen := map[string]bool{}
	var out []fs.DirEntry
	for _, m := range o.mounts {
		rest := m.prefix
		if dir != "." {
			if !strings.HasPrefix(m.prefix, dir+"/") {
				continue
			}
			rest = strings.TrimPrefix(m.prefix, dir+"/")
		}
		elem, _, _ := strings.Cut(rest, "/")
		if elem == "" || seen[elem] {
			continue
		}
		seen[elem] = true
		out = append(out, dirEntry{name: elem})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

type syntheticDir struct {
	name    string
	entries []fs.DirEntry
	off     int
}

func (d *syntheticDir) Stat() (fs.FileInfo, error) { return dirEntry{name: path.Base(d.name)}, nil }
func (d *syntheticDir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}
func (d *syntheticDir) Close() error { return nil }

func (d *syntheticDir) ReadDir(n int) ([]fs.DirEntry, error) {
	rest := d.entries[d.off:]
	if n <= 0 {
		d.off = len(d.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	if n > len(rest) {
		n = len(rest)
	}
	d.off += n
	return rest[:n], nil
}

// dirEntry is both the DirEntry and FileInfo of a synthesized directory.
type dirEntry struct{ name string }

func (e dirEntry) Name() string               { return e.name }
func (e dirEntry) IsDir() bool                { return true }
func (e dirEntry) Type() fs.FileMode          { return fs.ModeDir }
func (e dirEntry) Info() (fs.FileInfo, error) { return e, nil }
func (e dirEntry) Size() int64                { return 0 }
func (e dirEntry) Mode() fs.FileMode          { return fs.ModeDir | 0o555 }
func (e dirEntry) ModTime() time.Time         { return time.Time{} }
func (e dirEntry) Sys() any                   { return nil }
