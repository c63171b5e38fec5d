package httpapi

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":      LevelInfo,
		"off":   LevelOff,
		"error": LevelError,
		"info":  LevelInfo,
		"debug": LevelDebug,
		"weird": LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestLogLevel_Overrides(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/v1/predict?log=debug", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("query override failed: %v", got)
	}
	r = httptest.NewRequest(http.MethodPost, "/v1/predict", nil)
	r.Header.Set("X-Log-Level", "error")
	if got := requestLogLevel(r); got != LevelError {
		t.Fatalf("header override failed: %v", got)
	}
}

func TestLogPredictEnd_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	prev := zlog
	defer func() { zlog = prev }()
	SetLogger(zerolog.New(&buf))

	r := httptest.NewRequest(http.MethodPost, "/v1/predict", nil)
	logPredictEnd(r, LevelOff, 200, time.Now(), "run-1", nil)
	if buf.Len() != 0 {
		t.Fatalf("off level logged: %s", buf.String())
	}
	logPredictEnd(r, LevelError, 200, time.Now(), "run-2", nil)
	if buf.Len() != 0 {
		t.Fatalf("error level logged a success: %s", buf.String())
	}
	logPredictEnd(r, LevelError, 400, time.Now(), "run-3", errors.New("bad input"))
	if out := buf.String(); !strings.Contains(out, `"run_id":"run-3"`) || !strings.Contains(out, "bad input") {
		t.Fatalf("failure not logged: %s", out)
	}
}
