package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\ncache_dir: /tmp/c\nrepository: s3://models/proxy\nworkers: 3\nstrict_dependencies: true\ns3:\n  region: eu-west-1\ncors:\n  enabled: true\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.CacheDir != "/tmp/c" || cfg.Repository != "s3://models/proxy" || cfg.Workers != 3 || !cfg.StrictDependencies || cfg.S3.Region != "eu-west-1" || !cfg.CORS.Enabled {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","fetch_timeout_seconds":5,"stdlib":["fmt","math"],"s3":{"use_ssl":false}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.FetchTimeoutSeconds != 5 || len(cfg.Stdlib) != 2 || cfg.S3.UseSSL == nil || *cfg.S3.UseSSL {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nlog_level=\"debug\"\nbinary_dirs=[\"/opt/plugins\"]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.LogLevel != "debug" || len(cfg.BinaryDirs) != 1 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"MLPREDICT_REPOSITORY":              "https://proxy.example.com",
		"MLPREDICT_WORKERS":                 "8",
		"MLPREDICT_STRICT_DEPENDENCIES":     "true",
		"MLPREDICT_STDLIB":                  "fmt, strings ,",
		"MLPREDICT_S3_USE_SSL":              "false",
		"MLPREDICT_PREDICT_TIMEOUT_SECONDS": "30",
	}
	cfg, err := Config{Workers: 1}.ApplyEnv(func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Repository != "https://proxy.example.com" || cfg.Workers != 8 || !cfg.StrictDependencies {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.Stdlib) != 2 || cfg.Stdlib[1] != "strings" {
		t.Fatalf("stdlib: %q", cfg.Stdlib)
	}
	if cfg.S3.UseSSL == nil || *cfg.S3.UseSSL {
		t.Fatalf("use_ssl not applied")
	}
	if cfg.PredictTimeoutSeconds != 30 {
		t.Fatalf("predict timeout = %d", cfg.PredictTimeoutSeconds)
	}

	env["MLPREDICT_WORKERS"] = "many"
	if _, err := (Config{}).ApplyEnv(func(k string) string { return env[k] }); err == nil {
		t.Fatalf("expected error for malformed MLPREDICT_WORKERS")
	}
}

func TestWithDefaults(t *testing.T) {
	cfg := Config{CORS: CORS{Enabled: true}}.WithDefaults()
	if cfg.Addr != DefaultAddr || cfg.CacheDir == "" || cfg.FetchTimeoutSeconds != DefaultFetchTimeoutSeconds || cfg.LogLevel != "info" {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.S3.UseSSL == nil || !*cfg.S3.UseSSL {
		t.Fatalf("use_ssl should default to true")
	}
	if len(cfg.CORS.Origins) != 1 || cfg.CORS.Origins[0] != "*" {
		t.Fatalf("cors origins: %v", cfg.CORS.Origins)
	}
	kept := Config{Addr: ":1", Workers: 4}.WithDefaults()
	if kept.Addr != ":1" || kept.Workers != 4 {
		t.Fatalf("explicit values overwritten: %+v", kept)
	}
}

func TestServeRoots(t *testing.T) {
	cfg := Config{DataRoot: "/srv/data"}.ServeRoots("/work")
	if cfg.ModelsRoot != "/work" || cfg.DataRoot != "/srv/data" || cfg.OutputRoot != "/srv/data" {
		t.Fatalf("roots: %+v", cfg)
	}
	cfg = Config{OutputRoot: "/srv/out"}.ServeRoots("/work")
	if cfg.ModelsRoot != "/work" || cfg.DataRoot != "/work" || cfg.OutputRoot != "/srv/out" {
		t.Fatalf("roots: %+v", cfg)
	}
	env := map[string]string{"MLPREDICT_MODELS_ROOT": "/m", "MLPREDICT_DATA_ROOT": "/d", "MLPREDICT_OUTPUT_ROOT": "/o"}
	cfg, err := Config{}.ApplyEnv(func(k string) string { return env[k] })
	if err != nil || cfg.ModelsRoot != "/m" || cfg.DataRoot != "/d" || cfg.OutputRoot != "/o" {
		t.Fatalf("env roots: %+v err=%v", cfg, err)
	}
}
