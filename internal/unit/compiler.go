package unit

import (
	"context"
	"errors"
	"fmt"
	"go/scanner"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/traefik/yaegi/interp"

	"mlpredict/internal/deps"
)

const gopathRoot = "gopath"

// Options configures the interpreter-backed compiler.
type Options struct {
	// Stdlib lists the standard packages descriptors may import. Nil means DefaultStdlib.
	Stdlib []string
	// BinaryDirs are scanned for *.so plugins to load into every unit.
	// Nil means the directory of the running executable; empty disables the scan.
	BinaryDirs []string
	Logger     zerolog.Logger
}

// Interpreter compiles descriptors with the yaegi Go interpreter.
type Interpreter struct {
	opts Options
}

func NewInterpreter(opts Options) *Interpreter {
	if opts.Stdlib == nil {
		opts.Stdlib = DefaultStdlib
	}
	return &Interpreter{opts: opts}
}

// Compile evaluates src with every dependency's sources and best platform
// binaries available for import. Nothing is written to disk.
func (c *Interpreter) Compile(ctx context.Context, src Source, resolved []deps.Resolved) (Unit, error) {
	desc, err := Describe(src.Filename, src.Text)
	if err != nil {
		return nil, err
	}
	if desc.Package == "main" {
		return nil, &CompilationError{File: src.Filename, Diagnostics: []Diagnostic{{Line: 1, Column: 1, Message: "descriptor must not be package main"}}}
	}

	overlay := newOverlayFS()
	for _, r := range resolved {
		overlay.Mount(gopathRoot+"/src/"+r.Path, os.DirFS(r.Dir))
	}
	i := interp.New(interp.Options{GoPath: gopathRoot, SourcecodeFilesystem: overlay})

	base, err := baselineSymbols(c.opts.Stdlib)
	if err != nil {
		return nil, err
	}
	if err := i.Use(base); err != nil {
		return nil, fmt.Errorf("load baseline: %w", err)
	}
	var binaries []string
	for _, r := range resolved {
		binaries = append(binaries, r.BestBinaries()...)
	}
	binaries = append(binaries, localBinaries(c.opts.BinaryDirs)...)
	for _, p := range binaries {
		ex, err := loadPluginSymbols(p)
		if err != nil {
			c.opts.Logger.Warn().Str("binary", p).Err(err).Msg("skipping binary reference")
			continue
		}
		if err := i.Use(ex); err != nil {
			c.opts.Logger.Warn().Str("binary", p).Err(err).Msg("skipping binary reference")
			continue
		}
		c.opts.Logger.Debug().Str("binary", p).Msg("binary reference loaded")
	}

	u := &interpUnit{interp: i, desc: desc, file: src.Filename, methods: map[string]reflect.Value{}}
	if _, err := u.eval(ctx, string(src.Text)); err != nil {
		return nil, diagnose(src.Filename, err)
	}
	c.opts.Logger.Debug().Str("file", src.Filename).Str("package", desc.Package).Int("types", len(desc.Types)).Msg("descriptor compiled")
	return u, nil
}

type interpUnit struct {
	mu      sync.Mutex
	interp  *interp.Interpreter
	desc    *Descriptor
	file    string
	methods map[string]reflect.Value
}

func (u *interpUnit) Name() string                       { return u.desc.Package }
func (u *interpUnit) Types() []TypeDesc                  { return u.desc.Types }
func (u *interpUnit) Type(name string) (TypeDesc, bool) { return u.desc.Type(name) }
func (u *interpUnit) Vars() []string                     { return u.desc.Vars }

// eval serializes interpreter evaluation and turns panics into errors.
func (u *interpUnit) eval(ctx context.Context, src string) (v reflect.Value, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interpreter panic: %v", r)
		}
	}()
	return u.interp.EvalWithContext(ctx, src)
}

func (u *interpUnit) New(typeName string) (reflect.Value, error) {
	td, ok := u.desc.Type(typeName)
	if !ok {
		return reflect.Value{}, fmt.Errorf("type %s not declared in %s", typeName, u.file)
	}
	expr := fmt.Sprintf("%s.%s{}", u.desc.Package, typeName)
	if !td.Struct {
		expr = fmt.Sprintf("*new(%s.%s)", u.desc.Package, typeName)
	}
	v, err := u.eval(context.Background(), expr)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("new %s: %w", typeName, err)
	}
	out := reflect.New(v.Type()).Elem()
	out.Set(v)
	return out, nil
}

func (u *interpUnit) method(typeName, name string) (reflect.Value, error) {
	key := typeName + "." + name
	u.mu.Lock()
	fn, ok := u.methods[key]
	u.mu.Unlock()
	if ok {
		return fn, nil
	}
	if _, ok := u.desc.Type(typeName); !ok {
		return reflect.Value{}, fmt.Errorf("type %s not declared in %s", typeName, u.file)
	}
	fn, err := u.eval(context.Background(), fmt.Sprintf("new(%s.%s).%s", u.desc.Package, typeName, name))
	if err != nil {
		return reflect.Value{}, fmt.Errorf("method %s: %w", key, err)
	}
	if fn.Kind() != reflect.Func {
		return reflect.Value{}, fmt.Errorf("method %s: not a function (%s)", key, fn.Kind())
	}
	u.mu.Lock()
	u.methods[key] = fn
	u.mu.Unlock()
	return fn, nil
}

func (u *interpUnit) Call(typeName, method string, args ...reflect.Value) (out []reflect.Value, err error) {
	fn, err := u.method(typeName, method)
	if err != nil {
		return nil, err
	}
	ft := fn.Type()
	if ft.NumIn() != len(args) {
		return nil, fmt.Errorf("%s.%s takes %d argument(s), got %d", typeName, method, ft.NumIn(), len(args))
	}
	in := make([]reflect.Value, len(args))
	for k, a := range args {
		want := ft.In(k)
		switch {
		case !a.IsValid():
			in[k] = reflect.Zero(want)
		case a.Type().AssignableTo(want):
			in[k] = a
		case a.Type().ConvertibleTo(want):
			in[k] = a.Convert(want)
		default:
			return nil, fmt.Errorf("%s.%s argument %d: have %s, want %s", typeName, method, k, a.Type(), want)
		}
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s.%s panicked: %v", typeName, method, r)
		}
	}()
	return fn.Call(in), nil
}

func (u *interpUnit) SetString(name, value string) error {
	_, err := u.eval(context.Background(), fmt.Sprintf("%s.%s = %s", u.desc.Package, name, strconv.Quote(value)))
	if err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

var posRE = regexp.MustCompile(`(?:^|[\s:])(\d+):(\d+):\s*(.+)$`)

// diagnose converts an interpreter error into a CompilationError with one
// diagnostic per reported position.
func diagnose(file string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	ce := &CompilationError{File: file}
	var list scanner.ErrorList
	if errors.As(err, &list) {
		for _, e := range list {
			ce.Diagnostics = append(ce.Diagnostics, Diagnostic{Line: e.Pos.Line, Column: e.Pos.Column, Message: e.Msg})
		}
		return ce
	}
	for _, line := range strings.Split(err.Error(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := posRE.FindStringSubmatch(line); m != nil {
			ln, _ := strconv.Atoi(m[1])
			col, _ := strconv.Atoi(m[2])
			ce.Diagnostics = append(ce.Diagnostics, Diagnostic{Line: ln, Column: col, Message: m[3]})
			continue
		}
		ce.Diagnostics = append(ce.Diagnostics, Diagnostic{Message: line})
	}
	return ce
}
