package deps

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/mod/module"
)

func TestNewFetcher_SchemeDispatch(t *testing.T) {
	if f, err := NewFetcher("", S3Config{}); err != nil || f != nil {
		t.Fatalf("empty repo: f=%v err=%v", f, err)
	}
	if f, _ := NewFetcher("/srv/goproxy", S3Config{}); f == nil {
		t.Fatalf("expected dir fetcher")
	} else if _, ok := f.(*DirFetcher); !ok {
		t.Fatalf("expected *DirFetcher, got %T", f)
	}
	if f, _ := NewFetcher("file:///srv/goproxy", S3Config{}); f.(*DirFetcher).Root != filepath.FromSlash("/srv/goproxy") {
		t.Fatalf("file url root: %+v", f)
	}
	if f, _ := NewFetcher("https://proxy.golang.org", S3Config{}); f == nil {
		t.Fatalf("expected proxy fetcher")
	} else if _, ok := f.(*ProxyFetcher); !ok {
		t.Fatalf("expected *ProxyFetcher, got %T", f)
	}
	f, err := NewFetcher("s3://models/goproxy", S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	if err != nil {
		t.Fatalf("s3 fetcher: %v", err)
	}
	s3f, ok := f.(*S3Fetcher)
	if !ok || s3f.bucket != "models" || s3f.objectKey("x/@v/v1.0.0.zip") != "goproxy/x/@v/v1.0.0.zip" {
		t.Fatalf("unexpected s3 fetcher: %+v", f)
	}
	if _, err := NewFetcher("s3://models", S3Config{}); err == nil {
		t.Fatalf("expected missing endpoint error")
	}
	if _, err := NewFetcher("ftp://x", S3Config{}); err == nil {
		t.Fatalf("expected unsupported scheme error")
	}
}

func TestProxyFetcher(t *testing.T) {
	repo := seedRepo(t)
	srv := httptest.NewServer(http.FileServer(http.Dir(repo)))
	t.Cleanup(srv.Close)

	f := NewProxyFetcher(srv.URL+"/", nil)
	rc, err := f.Fetch(context.Background(), modB)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	b, _ := io.ReadAll(rc)
	rc.Close()
	rel, _ := zipPath(modB)
	want, _ := os.ReadFile(filepath.Join(repo, filepath.FromSlash(rel)))
	if len(b) == 0 || len(b) != len(want) {
		t.Fatalf("got %d bytes, want %d", len(b), len(want))
	}
	if _, err := f.Fetch(context.Background(), module.Version{Path: "example.com/none", Version: "v1.0.0"}); !IsModuleNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestZipPathEscapesUppercase(t *testing.T) {
	got, err := zipPath(modC)
	if err != nil {
		t.Fatalf("zip path: %v", err)
	}
	if got != "example.com/!missing/@v/v1.0.0.zip" {
		t.Fatalf("got %q", got)
	}
}

func TestPlatformTags(t *testing.T) {
	got := Platform{OS: "linux", Arch: "arm64"}.Tags()
	want := []string{"linux_arm64", "linux", "unix", "any"}
	if len(got) != len(want) {
		t.Fatalf("tags %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tags %v, want %v", got, want)
		}
	}
	win := Platform{OS: "windows", Arch: "amd64"}.Tags()
	for _, tag := range win {
		if tag == "unix" {
			t.Fatalf("windows must not prefer unix: %v", win)
		}
	}
	tag, files, ok := Platform{OS: "darwin", Arch: "arm64"}.Best(map[string][]string{
		"any":  {"b.so"},
		"unix": {"a.so"},
		"windows": {"w.so"},
	})
	if !ok || tag != "unix" || files[0] != "a.so" {
		t.Fatalf("best: %q %v %v", tag, files, ok)
	}
	if _, _, ok := (Platform{OS: "linux", Arch: "amd64"}).Best(map[string][]string{"windows": {"w.so"}}); ok {
		t.Fatalf("expected no compatible tag")
	}
}

func TestParseRequirements(t *testing.T) {
	bm, err := ParseRequirements("go.mod", []byte("module example.com/models/sentiment\n\ngo 1.22\n\nrequire (\n\texample.com/featurize v1.2.0\n\texample.com/mathx v0.3.1 // indirect\n)\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if bm.Name() != "sentiment" || len(bm.Requires) != 2 || bm.Requires[1] != modB {
		t.Fatalf("unexpected manifest: %+v", bm)
	}
	if _, err := ParseRequirements("go.mod", []byte("require (")); err == nil {
		t.Fatalf("expected parse error")
	}
}
