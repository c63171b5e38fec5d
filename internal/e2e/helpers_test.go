package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"mlpredict/internal/httpapi"
	mlruntime "mlpredict/internal/runtime"
	"mlpredict/internal/unit"
)

const sentimentDescriptor = `package sentiment

import "strings"

type ModelInput struct {
	Text string ` + "`col:\"SentimentText\"`" + `
}

type SentimentModel struct{}

func (SentimentModel) PredictAllLabels(in ModelInput) map[string]float32 {
	if strings.Contains(strings.ToLower(in.Text), "good") {
		return map[string]float32{"1": 0.9, "0": 0.1}
	}
	return map[string]float32{"1": 0.2, "0": 0.8}
}
`

const sentimentManifest = `{
  "Scenario": "Classification",
  "DataSource": {"HasHeader": true, "Delimiter": "\t"},
  "TrainingOption": {"LabelColumn": "Sentiment"}
}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// sentimentBundle writes a binary classification bundle under root.
func sentimentBundle(t *testing.T, root string) string {
	t.Helper()
	dir := filepath.Join(root, "SentimentModel")
	writeFile(t, dir, "SentimentModel.mlnet", "weights")
	writeFile(t, dir, "SentimentModel.consumption.go", sentimentDescriptor)
	writeFile(t, dir, "SentimentModel.mbconfig", sentimentManifest)
	return dir
}

// newServer serves a real runtime whose request paths are confined to root.
func newServer(t *testing.T, root string) (*httptest.Server, *mlruntime.Runtime) {
	t.Helper()
	rt := mlruntime.New(mlruntime.Config{
		CacheDir: t.TempDir(),
		Workers:  2,
		Compiler: unit.NewInterpreter(unit.Options{BinaryDirs: []string{}}),
	})
	t.Cleanup(rt.Close)
	srv := httptest.NewServer(httpapi.NewMux(mlruntime.NewService(rt, mlruntime.Roots{Models: root, Data: root, Output: root})))
	t.Cleanup(srv.Close)
	return srv, rt
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
