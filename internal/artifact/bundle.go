// Package artifact discovers the files that make up a trained model bundle.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mlpredict/internal/common/fsutil"
)

// Kind names one file role inside a bundle.
type Kind string

const (
	KindWeights    Kind = "weights"
	KindDescriptor Kind = "descriptor"
	KindManifest   Kind = "manifest"
	KindBuildDeps  Kind = "build-dependency manifest"
)

const (
	WeightsSuffix    = ".mlnet"
	DescriptorSuffix = ".consumption.go"
	ManifestSuffix   = ".mbconfig"
	BuildDepsName    = "go.mod"
)

var manifestSuffixes = []string{
	ManifestSuffix,
	ManifestSuffix + ".yaml",
	ManifestSuffix + ".yml",
	ManifestSuffix + ".toml",
}

// Pattern returns the file pattern used to recognise the kind.
func (k Kind) Pattern() string {
	switch k {
	case KindWeights:
		return "*" + WeightsSuffix
	case KindDescriptor:
		return "*" + DescriptorSuffix
	case KindManifest:
		return "*" + strings.Join(manifestSuffixes, "|*")
	case KindBuildDeps:
		return BuildDepsName
	}
	return "?"
}

func (k Kind) matches(name string) bool {
	lower := strings.ToLower(name)
	switch k {
	case KindWeights:
		return strings.HasSuffix(lower, WeightsSuffix)
	case KindDescriptor:
		return strings.HasSuffix(lower, DescriptorSuffix)
	case KindManifest:
		for _, s := range manifestSuffixes {
			if strings.HasSuffix(lower, s) {
				return true
			}
		}
	case KindBuildDeps:
		return name == BuildDepsName
	}
	return false
}

// Bundle holds absolute paths of the files found in a model directory.
// Deps is empty when the bundle has no build-dependency manifest.
type Bundle struct {
	Dir        string
	Weights    string
	Descriptor string
	Manifest   string
	Deps       string
}

// Name is the leaf name of the bundle directory.
func (b *Bundle) Name() string { return filepath.Base(b.Dir) }

// DescriptorStem is the descriptor file name without its ".consumption.go" suffix.
func (b *Bundle) DescriptorStem() string {
	stem, _ := fsutil.TrimSuffixFold(filepath.Base(b.Descriptor), DescriptorSuffix)
	return stem
}

// WeightsStem is the weights file name without its extension.
func (b *Bundle) WeightsStem() string { return fsutil.Stem(b.Weights) }

// Discover scans dir (non-recursively) for the bundle files. Exactly one
// file of each required kind must be present.
func Discover(dir string) (*Bundle, error) {
	abs, err := fsutil.Canonical(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dirMissingError{dir: dir}
		}
		return nil, fmt.Errorf("read dir: %w", err)
	}
	found := map[Kind][]string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		for _, k := range []Kind{KindWeights, KindDescriptor, KindManifest, KindBuildDeps} {
			if k.matches(name) {
				found[k] = append(found[k], filepath.Join(abs, name))
			}
		}
	}
	b := &Bundle{Dir: abs}
	for _, req := range []struct {
		kind Kind
		dst  *string
	}{
		{KindWeights, &b.Weights},
		{KindDescriptor, &b.Descriptor},
		{KindManifest, &b.Manifest},
	} {
		paths := found[req.kind]
		switch len(paths) {
		case 0:
			return nil, ErrNotFound(req.kind, abs)
		case 1:
			*req.dst = paths[0]
		default:
			sort.Strings(paths)
			names := make([]string, len(paths))
			for i, p := range paths {
				names[i] = filepath.Base(p)
			}
			return nil, ErrNotFound(req.kind, abs, names...)
		}
	}
	if deps := found[KindBuildDeps]; len(deps) == 1 {
		b.Deps = deps[0]
	}
	return b, nil
}
