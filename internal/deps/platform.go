package deps

import (
	"runtime"
	"sort"
)

// Platform identifies the target a prebuilt binary must match.
type Platform struct {
	OS   string
	Arch string
}

// Current returns the platform of the running process.
func Current() Platform { return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH} }

var unixOS = map[string]bool{
	"aix": true, "android": true, "darwin": true, "dragonfly": true, "freebsd": true,
	"illumos": true, "ios": true, "linux": true, "netbsd": true, "openbsd": true, "solaris": true,
}

// Tags returns the binary directory tags this platform can load, most
// specific first.
func (p Platform) Tags() []string {
	tags := []string{p.OS + "_" + p.Arch, p.OS}
	if unixOS[p.OS] {
		tags = append(tags, "unix")
	}
	return append(tags, "any")
}

// Best picks the most specific compatible tag from available. ok is false
// when none of the tags can be loaded on p.
func (p Platform) Best(available map[string][]string) (tag string, paths []string, ok bool) {
	for _, t := range p.Tags() {
		if files := available[t]; len(files) > 0 {
			out := append([]string(nil), files...)
			sort.Strings(out)
			return t, out, true
		}
	}
	return "", nil, false
}
