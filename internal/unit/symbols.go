package unit

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// DefaultStdlib is the baseline set of standard packages a descriptor may import.
var DefaultStdlib = []string{
	"bufio",
	"bytes",
	"encoding/binary",
	"encoding/csv",
	"encoding/json",
	"errors",
	"fmt",
	"image",
	"image/color",
	"image/draw",
	"image/gif",
	"image/jpeg",
	"image/png",
	"io",
	"math",
	"math/rand",
	"os",
	"path/filepath",
	"sort",
	"strconv",
	"strings",
	"sync",
	"time",
	"unicode",
	"unicode/utf8",
}

// baselineSymbols returns the stdlib export tables for the given import paths.
func baselineSymbols(pkgs []string) (interp.Exports, error) {
	want := make(map[string]bool, len(pkgs))
	for _, p := range pkgs {
		want[p] = true
	}
	out := interp.Exports{}
	for key, syms := range stdlib.Symbols {
		// keys are "<import path>/<package name>"
		i := strings.LastIndex(key, "/")
		if i < 0 {
			continue
		}
		if want[key[:i]] {
			out[key] = syms
			delete(want, key[:i])
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for p := range want {
			missing = append(missing, p)
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("unknown baseline packages: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

var (
	pluginMu    sync.Mutex
	pluginCache = map[string]interp.Exports{}
)

// loadPluginSymbols opens a Go plugin and returns its exported "Symbols"
// table, the format produced by `yaegi extract`.
func loadPluginSymbols(path string) (interp.Exports, error) {
	pluginMu.Lock()
	defer pluginMu.Unlock()
	if ex, ok := pluginCache[path]; ok {
		return ex, nil
	}
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	sym, err := p.Lookup("Symbols")
	if err != nil {
		return nil, err
	}
	var ex interp.Exports
	switch s := sym.(type) {
	case *interp.Exports:
		ex = *s
	case *map[string]map[string]reflect.Value:
		ex = interp.Exports(*s)
	default:
		return nil, fmt.Errorf("plugin %s: Symbols has type %T", path, sym)
	}
	pluginCache[path] = ex
	return ex, nil
}

// localBinaries lists *.so files in dirs. A nil dirs means the directory of
// the running executable.
func localBinaries(dirs []string) []string {
	if dirs == nil {
		exe, err := os.Executable()
		if err != nil {
			return nil
		}
		dirs = []string{filepath.Dir(exe)}
	}
	var out []string
	for _, d := range dirs {
		files, _ := filepath.Glob(filepath.Join(d, "*.so"))
		out = append(out, files...)
	}
	sort.Strings(out)
	return out
}
