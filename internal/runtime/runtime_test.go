package runtime

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mlpredict/internal/artifact"
	"mlpredict/internal/deps"
	"mlpredict/internal/scenario"
	"mlpredict/internal/symbol"
	"mlpredict/internal/unit"
)

const taxiDescriptor = `package taxifare

import "strings"

var MLNetModelPath string

type ModelInput struct {
	TripDistance float32 ` + "`col:\"trip_distance\"`" + `
	VendorID     string
}

type ModelOutput struct{ Score float32 }

type TaxiFare struct{}

func (TaxiFare) Predict(in ModelInput) ModelOutput {
	bonus := float32(0)
	if strings.HasSuffix(MLNetModelPath, ".mlnet") {
		bonus = 1
	}
	return ModelOutput{Score: in.TripDistance*2 + bonus}
}
`

const taxiManifest = `{
  "Scenario": "Regression",
  "DataSource": {"HasHeader": true, "Delimiter": ",", "ColumnProperties": [{"ColumnName": "trip_distance"}, {"ColumnName": "VendorID"}]},
  "TrainingOption": {"LabelColumn": "fare_amount"}
}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

// writeBundle lays out a model bundle named name under root.
func writeBundle(t *testing.T, root, name, descriptor, mbconfig, gomod string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	writeFile(t, dir, "TaxiFare.mlnet", "weights")
	writeFile(t, dir, "TaxiFare.consumption.go", descriptor)
	writeFile(t, dir, "TaxiFare.mbconfig", mbconfig)
	if gomod != "" {
		writeFile(t, dir, "go.mod", gomod)
	}
	return dir
}

func newTestRuntime(t *testing.T, cfg Config) *Runtime {
	t.Helper()
	if cfg.Compiler == nil {
		cfg.Compiler = unit.NewInterpreter(unit.Options{BinaryDirs: []string{}})
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = t.TempDir()
	}
	cfg.Workers = 2
	return New(cfg)
}

func TestLoad_OneBuildPerCanonicalDir(t *testing.T) {
	root := t.TempDir()
	dir := writeBundle(t, root, "taxi-fare", taxiDescriptor, taxiManifest, "")
	pub := NewMemoryPublisher()
	rt := newTestRuntime(t, Config{Publisher: pub})

	spellings := []string{dir, filepath.Join(root, "taxi-fare", "..", "taxi-fare"), dir + string(filepath.Separator)}
	var wg sync.WaitGroup
	got := make([]*Entry, 12)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := rt.Load(context.Background(), spellings[i%len(spellings)])
			if err != nil {
				t.Errorf("load: %v", err)
				return
			}
			got[i] = e
		}(i)
	}
	wg.Wait()
	if rt.LoadCount() != 1 {
		t.Fatalf("load count = %d, want 1", rt.LoadCount())
	}
	for _, e := range got[1:] {
		if e != got[0] {
			t.Fatalf("entries differ across spellings")
		}
	}
	if n := len(rt.Entries()); n != 1 {
		t.Fatalf("entries = %d", n)
	}
	names := strings.Join(pub.Names(), ",")
	if names != "load_start,load_ready" {
		t.Fatalf("events = %s", names)
	}
}

func TestPredict_WritesOutputAndRemembersSymbol(t *testing.T) {
	root := t.TempDir()
	dir := writeBundle(t, root, "taxi-fare", taxiDescriptor, taxiManifest, "")
	in := writeFile(t, root, "data/trips.csv", "Trip Distance,VendorID\n1.5,CMT\n10,VTS\n")
	rt := newTestRuntime(t, Config{})

	res, err := rt.Predict(context.Background(), Request{ModelDir: dir, InputPath: in})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if res.Symbol != "TaxiFare" || res.Step != symbol.StepHint {
		t.Fatalf("symbol %s step %s", res.Symbol, res.Step)
	}
	want := filepath.Join(root, "data", "trips-predicted.csv")
	if res.OutputPath != want {
		t.Fatalf("output %s, want %s", res.OutputPath, want)
	}
	b, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if got := string(b); got != "Score\n4.000000\n21.000000\n" {
		t.Fatalf("output = %q", got)
	}
	e, _ := rt.Load(context.Background(), dir)
	if e.Symbol() != "TaxiFare" || e.Hints().Previous != "TaxiFare" {
		t.Fatalf("resolved symbol not remembered: %q", e.Symbol())
	}
}

func TestPredict_HeaderOverrideAndInline(t *testing.T) {
	root := t.TempDir()
	dir := writeBundle(t, root, "taxi-fare", taxiDescriptor, taxiManifest, "")
	in := writeFile(t, root, "trips.txt", "3;CMT\n")
	rt := newTestRuntime(t, Config{})
	no := false
	res, err := rt.Predict(context.Background(), Request{ModelDir: dir, InputPath: in, HasHeader: &no, Separator: ";", SkipWrite: true})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if res.OutputPath != "" || len(res.Table.Rows) != 1 || res.Table.Rows[0][0] != "7.000000" {
		t.Fatalf("result %+v", res)
	}
}

func TestPredict_Errors(t *testing.T) {
	root := t.TempDir()
	rt := newTestRuntime(t, Config{})

	incomplete := filepath.Join(root, "incomplete")
	writeFile(t, incomplete, "x.mlnet", "w")
	writeFile(t, incomplete, "x.mbconfig", taxiManifest)
	if _, err := rt.Predict(context.Background(), Request{ModelDir: incomplete, InputPath: incomplete}); !artifact.IsNotFound(err) {
		t.Fatalf("expected artifact not found, got %v", err)
	}

	broken := writeBundle(t, root, "broken", "package broken\n\nfunc (\n", taxiManifest, "")
	if _, err := rt.Predict(context.Background(), Request{ModelDir: broken, InputPath: broken}); !unit.IsCompilationError(err) {
		t.Fatalf("expected compilation error, got %v", err)
	}

	odd := writeBundle(t, root, "odd", taxiDescriptor, `{"Scenario": "Clustering"}`, "")
	in := writeFile(t, root, "in.csv", "trip_distance\n1\n")
	if _, err := rt.Predict(context.Background(), Request{ModelDir: odd, InputPath: in}); !scenario.IsUnsupportedScenario(err) {
		t.Fatalf("expected unsupported scenario, got %v", err)
	}

	ok := writeBundle(t, root, "ok", taxiDescriptor, taxiManifest, "")
	if _, err := rt.Predict(context.Background(), Request{ModelDir: ok, InputPath: filepath.Join(root, "missing.csv")}); !scenario.IsInput(err) {
		t.Fatalf("expected input error, got %v", err)
	}
	if rt.LoadCount() != 2 {
		t.Fatalf("only successful loads are cached, count = %d", rt.LoadCount())
	}
}

func writeProxyZip(t *testing.T, repo, path, version string, files map[string]string) {
	t.Helper()
	p := filepath.Join(repo, filepath.FromSlash(path), "@v", version+".zip")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(path + "@" + version + "/" + name)
		if err != nil {
			t.Fatalf("zip: %v", err)
		}
		if _, err := io.WriteString(w, body); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	f.Close()
}

const fareDescriptor = `package fare

import "example.com/farecalc"

type ModelInput struct{ Miles float64 }
type ModelOutput struct{ Score float64 }

type Fare struct{}

func (Fare) Predict(in ModelInput) ModelOutput { return ModelOutput{Score: farecalc.Price(in.Miles)} }
`

func TestLoad_ResolvesDependencies(t *testing.T) {
	root := t.TempDir()
	repo := filepath.Join(root, "repo")
	writeProxyZip(t, repo, "example.com/farecalc", "v1.2.0", map[string]string{
		"go.mod":      "module example.com/farecalc\n\ngo 1.21\n",
		"farecalc.go": "package farecalc\n\nfunc Price(miles float64) float64 { return 3 + miles }\n",
	})
	gomod := "module fare\n\ngo 1.21\n\nrequire (\n\texample.com/farecalc v1.2.0\n\texample.com/gone v0.1.0\n)\n"
	dir := writeBundle(t, root, "fare", fareDescriptor, `{"Scenario": "regression", "DataSource": {"HasHeader": true}}`, gomod)
	in := writeFile(t, root, "rides.csv", "Miles\n2\n")

	pub := NewMemoryPublisher()
	rt := newTestRuntime(t, Config{Fetcher: &deps.DirFetcher{Root: repo}, Publisher: pub})
	res, err := rt.Predict(context.Background(), Request{ModelDir: dir, InputPath: in, SkipWrite: true})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if res.Table.Rows[0][0] != "5.000000" {
		t.Fatalf("rows %v", res.Table.Rows)
	}
	e, _ := rt.Load(context.Background(), dir)
	if len(e.Deps.Resolved) != 1 || len(e.Deps.Skipped) != 1 {
		t.Fatalf("deps resolved %d skipped %d", len(e.Deps.Resolved), len(e.Deps.Skipped))
	}
	skippedEvent := false
	for _, ev := range pub.Events() {
		if ev.Name == "dependency_skipped" && ev.Fields["module"] == "example.com/gone@v0.1.0" {
			skippedEvent = true
		}
	}
	if !skippedEvent {
		t.Fatalf("no dependency_skipped event: %v", pub.Names())
	}

	strict := newTestRuntime(t, Config{Fetcher: &deps.DirFetcher{Root: repo}, StrictDependencies: true})
	if _, err := strict.Load(context.Background(), dir); !deps.IsFetchWarning(err) {
		t.Fatalf("strict load: expected fetch warning, got %v", err)
	}
}

// gatedCompiler blocks every compile until release is closed.
type gatedCompiler struct {
	next    unit.Compiler
	started chan struct{}
	release chan struct{}
}

func (g *gatedCompiler) Compile(ctx context.Context, src unit.Source, resolved []deps.Resolved) (unit.Unit, error) {
	g.started <- struct{}{}
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.next.Compile(ctx, src, resolved)
}

func TestLoad_SharedBuildOutlivesCancelledCaller(t *testing.T) {
	root := t.TempDir()
	dir := writeBundle(t, root, "taxi-fare", taxiDescriptor, taxiManifest, "")
	gc := &gatedCompiler{
		next:    unit.NewInterpreter(unit.Options{BinaryDirs: []string{}}),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	rt := newTestRuntime(t, Config{Compiler: gc})
	defer rt.Close()

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := rt.Load(ctxA, dir)
		errA <- err
	}()
	<-gc.started

	type outcome struct {
		e   *Entry
		err error
	}
	outB := make(chan outcome, 1)
	go func() {
		e, err := rt.Load(context.Background(), dir)
		outB <- outcome{e, err}
	}()
	time.Sleep(20 * time.Millisecond)
	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("caller A: expected cancellation, got %v", err)
	}
	close(gc.release)
	b := <-outB
	if b.err != nil || b.e == nil {
		t.Fatalf("caller B: %v", b.err)
	}
	if rt.LoadCount() != 1 {
		t.Fatalf("load count = %d", rt.LoadCount())
	}
}

func TestPredict_ManifestWithoutScenarioFailsAtDispatch(t *testing.T) {
	root := t.TempDir()
	dir := writeBundle(t, root, "blank", taxiDescriptor, `{"DataSource": {"HasHeader": true}}`, "")
	in := writeFile(t, root, "in.csv", "trip_distance\n1\n")
	rt := newTestRuntime(t, Config{})

	e, err := rt.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if e.Manifest.RawScenario != "Unknown" {
		t.Fatalf("raw scenario = %q", e.Manifest.RawScenario)
	}
	_, err = rt.Predict(context.Background(), Request{ModelDir: dir, InputPath: in})
	if !scenario.IsUnsupportedScenario(err) || !strings.Contains(err.Error(), "Unknown") {
		t.Fatalf("expected unsupported scenario naming Unknown, got %v", err)
	}
}
