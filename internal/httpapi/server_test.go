package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mlpredict/internal/artifact"
	"mlpredict/internal/scenario"
	"mlpredict/internal/unit"
	"mlpredict/pkg/types"
)

type mockService struct {
	models     []types.LoadedModel
	ready      bool
	predictErr error
	got        types.PredictRequest
}

func (m *mockService) ListModels() []types.LoadedModel { return append([]types.LoadedModel(nil), m.models...) }
func (m *mockService) Ready() bool                     { return m.ready }
func (m *mockService) Predict(ctx context.Context, req types.PredictRequest) (types.PredictResponse, error) {
	m.got = req
	if m.predictErr != nil {
		return types.PredictResponse{RunID: "run-err"}, m.predictErr
	}
	return types.PredictResponse{RunID: "run-1", Scenario: "regression", Symbol: "TaxiFare", Header: []string{"Score"}, RowCount: 1, Rows: [][]string{{"1.000000"}}}, nil
}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func postPredict(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestModelsHandler(t *testing.T) {
	svc := &mockService{models: []types.LoadedModel{{Name: "a"}, {Name: "b"}}}
	w := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.ModelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Models) != 2 {
		t.Fatalf("models len=%d", len(body.Models))
	}
}

func TestPredictHandler_Success(t *testing.T) {
	svc := &mockService{}
	w := postPredict(t, NewMux(svc), `{"model_dir":"/m","input_path":"/in.csv","has_header":false,"inline":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp types.PredictResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.RunID != "run-1" || resp.Symbol != "TaxiFare" || len(resp.Rows) != 1 {
		t.Fatalf("resp %+v", resp)
	}
	if svc.got.HasHeader == nil || *svc.got.HasHeader || !svc.got.Inline {
		t.Fatalf("request not decoded: %+v", svc.got)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff header")
	}
}

func TestPredictHandler_RequestValidation(t *testing.T) {
	h := NewMux(&mockService{})
	req := httptest.NewRequest(http.MethodPost, "/v1/predict", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("missing content type: status=%d", w.Code)
	}
	if w := postPredict(t, h, `{"model_dir":`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json: status=%d", w.Code)
	}
	if w := postPredict(t, h, `{"model_dir":"/m"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing input: status=%d", w.Code)
	}
}

func TestPredictHandler_BodyLimit(t *testing.T) {
	SetMaxBodyBytes(16)
	defer SetMaxBodyBytes(0)
	big := `{"model_dir":"` + strings.Repeat("x", 64) + `","input_path":"/in"}`
	if w := postPredict(t, NewMux(&mockService{}), big); w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestPredictHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{scenario.ErrInputf("no rows"), http.StatusBadRequest},
		{artifact.ErrNotFound(artifact.KindWeights, "/m"), http.StatusNotFound},
		{&unit.CompilationError{File: "x.go", Diagnostics: []unit.Diagnostic{{Line: 1, Message: "boom"}}}, http.StatusUnprocessableEntity},
		{scenario.ErrUnsupportedScenario("clustering"), http.StatusUnprocessableEntity},
		{&scenario.FallbackExhaustedError{Scenario: "regression"}, http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", mockHTTPError{msg: "teapot", code: http.StatusTeapot}), http.StatusTeapot},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("disk full"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		w := postPredict(t, NewMux(&mockService{predictErr: c.err}), `{"model_dir":"/m","input_path":"/in"}`)
		if w.Code != c.want {
			t.Fatalf("%v: status=%d want %d", c.err, w.Code, c.want)
		}
		var e types.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil || e.Code != c.want || e.Error == "" {
			t.Fatalf("error body %q", w.Body.String())
		}
	}
}

func TestHealthAndReady(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthz %d %q", w.Code, w.Body.String())
	}
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before ready: %d", w.Code)
	}
	svc.ready = true
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("readyz: %d", w.Code)
	}
}

func TestCORS_PreflightWhenEnabled(t *testing.T) {
	SetCORSOptions(true, []string{"https://ui.example.com"}, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)
	req := httptest.NewRequest(http.MethodOptions, "/v1/predict", bytes.NewReader(nil))
	req.Header.Set("Origin", "https://ui.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://ui.example.com" {
		t.Fatalf("allow-origin=%q status=%d", got, w.Code)
	}
}
