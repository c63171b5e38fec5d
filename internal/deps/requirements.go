package deps

import (
	"fmt"
	"os"
	"path"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
)

// BuildManifest is the parsed content of a go.mod that matters for resolution.
type BuildManifest struct {
	Module   string
	Requires []module.Version
}

// Name returns the last element of the module path, or "" if unnamed.
func (m *BuildManifest) Name() string {
	if m == nil || m.Module == "" {
		return ""
	}
	return path.Base(m.Module)
}

// ReadRequirements parses the go.mod at path.
func ReadRequirements(path string) (*BuildManifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read build manifest: %w", err)
	}
	return ParseRequirements(path, b)
}

// ParseRequirements parses go.mod bytes. Replace and exclude directives are
// ignored; every require line, direct or indirect, is returned.
func ParseRequirements(name string, data []byte) (*BuildManifest, error) {
	f, err := modfile.ParseLax(name, data, nil)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	bm := &BuildManifest{}
	if f.Module != nil {
		bm.Module = f.Module.Mod.Path
	}
	for _, r := range f.Require {
		bm.Requires = append(bm.Requires, r.Mod)
	}
	return bm, nil
}
