package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"WFS_URL", "WFS_VERSION", "HTTP_TIMEOUT", "CACHE_ENABLED", "CACHE_TTL"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	if cfg.WFSURL != DefaultWFSURL {
		t.Fatalf("WFSURL=%q", cfg.WFSURL)
	}
	if cfg.WFSVersion != "2.0.0" {
		t.Fatalf("WFSVersion=%q", cfg.WFSVersion)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Fatalf("HTTPTimeout=%v", cfg.HTTPTimeout)
	}
	if cfg.Cache.Enabled {
		t.Fatal("cache must be off by default")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("WFS_URL", "http://localhost:8080/geoserver")
	t.Setenv("WFS_USERNAME", "alice")
	t.Setenv("WFS_PASSWORD", "s3cret")
	t.Setenv("CACHE_ENABLED", "yes")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("LOG_SAMPLE_N", "notanint")

	cfg := FromEnv()
	if cfg.WFSURL != "http://localhost:8080/geoserver" || cfg.Username != "alice" || cfg.Password != "s3cret" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != 90*time.Second {
		t.Fatalf("unexpected cache cfg: %+v", cfg.Cache)
	}
	if cfg.LogSampleN != 0 {
		t.Fatalf("bad int must fall back to default, got %d", cfg.LogSampleN)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	if err := os.WriteFile(p, []byte("WFS_USERNAME=fromfile\nWFS_PASSWORD=pw\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WFS_USERNAME", "")
	t.Setenv("WFS_PASSWORD", "already-set")
	// t.Setenv registers restore; unset so godotenv sees it missing
	_ = os.Unsetenv("WFS_USERNAME")

	if err := LoadDotEnv(p); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("WFS_USERNAME"); got != "fromfile" {
		t.Fatalf("WFS_USERNAME=%q want fromfile", got)
	}
	if got := os.Getenv("WFS_PASSWORD"); got != "already-set" {
		t.Fatalf("existing env must win, got %q", got)
	}
}

func TestLoadDotEnv_Missing(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
}
