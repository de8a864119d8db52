package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadYAMLConfig(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "from-env")

	path := filepath.Join(t.TempDir(), "picstore.yaml")
	content := `
server:
  port: 9000
auth:
  jwt_secret: ${TEST_JWT_SECRET}
database:
  driver: postgres
  dsn: postgres://localhost/picstore
permissions:
  cache_ttl: 5s
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("jwt_secret = %q, want env expansion", cfg.Auth.JWTSecret)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
	// Unset sections keep their defaults.
	if cfg.Logging.Level != "info" {
		t.Errorf("logging level = %q, want default info", cfg.Logging.Level)
	}
	if cfg.Permissions.CacheTTL != "5s" {
		t.Errorf("cache_ttl = %q", cfg.Permissions.CacheTTL)
	}
}

func TestLoadYAMLConfigMissingFile(t *testing.T) {
	if _, err := LoadYAMLConfig("/does/not/exist.yaml"); err == nil {
		t.Fatal("missing file should fail")
	}
}

func TestWriteDefaultConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "picstore.yaml")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}
	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Database.Driver != "sqlite" {
		t.Errorf("defaults did not round trip: %+v", cfg)
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("45s", time.Minute); got != 45*time.Second {
		t.Errorf("Duration(45s) = %v", got)
	}
	if got := Duration("", time.Minute); got != time.Minute {
		t.Errorf("empty string should fall back: %v", got)
	}
	if got := Duration("bogus", time.Minute); got != time.Minute {
		t.Errorf("malformed string should fall back: %v", got)
	}
}
