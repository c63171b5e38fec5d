package config

import (
	"testing"
)

func TestLoad_NonexistentFile(t *testing.T) {
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.yaml", "addr: :8080\n: broken\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected YAML unmarshal error")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.json", `{ "addr": ":8080", "cache_dir": }`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected JSON unmarshal error")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.toml", "addr=:8080\ncache_dir\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected TOML unmarshal error")
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	p := writeTempFile(t, t.TempDir(), "cfg.ini", "addr=:1\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for .ini")
	}
}

func TestLoad_TOMLTables(t *testing.T) {
	p := writeTempFile(t, t.TempDir(), "cfg.toml", "workers = 2\npredict_timeout_seconds = 15\nstdlib = [\"fmt\", \"math\"]\n\n[s3]\nendpoint = \"minio:9000\"\nuse_ssl = false\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Workers != 2 || cfg.PredictTimeoutSeconds != 15 || len(cfg.Stdlib) != 2 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.S3.Endpoint != "minio:9000" || cfg.S3.UseSSL == nil || *cfg.S3.UseSSL {
		t.Fatalf("s3: %+v", cfg.S3)
	}
}
