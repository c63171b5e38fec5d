package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/models/sentiment
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// PathExists checks if the given path exists.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// Canonical returns the cleaned absolute form of path with '~' expanded and
// symlinks resolved where possible. Two spellings of the same directory map
// to the same string.
func Canonical(path string) (string, error) {
	p, err := ExpandHome(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	return filepath.Clean(abs), nil
}

// Stem returns the base name of path without its final extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// TrimSuffixFold removes suffix from s ignoring case. ok is false when s does
// not end with suffix.
func TrimSuffixFold(s, suffix string) (string, bool) {
	if len(s) < len(suffix) || !strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return s, false
	}
	return s[:len(s)-len(suffix)], true
}

// ErrOutsideRoot is returned by Within for paths that leave their root.
var ErrOutsideRoot = errors.New("path escapes its root")

// Within resolves p inside root and returns its absolute, symlink-free form.
// A relative p is taken from root. Symlinks are followed for the part of the
// path that exists, so a link pointing out of root is rejected like "..".
func Within(root, p string) (string, error) {
	r, err := Canonical(root)
	if err != nil {
		return "", err
	}
	if p, err = ExpandHome(strings.TrimSpace(p)); err != nil {
		return "", err
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(r, p)
	}
	real := resolveExisting(filepath.Clean(p))
	rel, err := filepath.Rel(r, real)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%s: %w %s", p, ErrOutsideRoot, r)
	}
	return real, nil
}

// resolveExisting evaluates symlinks on the longest existing prefix of p and
// appends the remaining components unchanged.
func resolveExisting(p string) string {
	var rest []string
	cur := p
	for {
		if real, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Join(append([]string{real}, rest...)...)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
}
