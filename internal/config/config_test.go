package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, _, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("unexpected default addr: %q", cfg.Server.Addr)
	}
	if cfg.Server.LivePort != 8090 {
		t.Errorf("unexpected default live port: %d", cfg.Server.LivePort)
	}
	if cfg.APIURL != "http://localhost:8080" {
		t.Errorf("unexpected default api url: %q", cfg.APIURL)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9000"
  db_path: /tmp/test.db
auth:
  secret: file-secret
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("file value not applied: %q", cfg.Server.Addr)
	}
	if cfg.Auth.Secret != "file-secret" {
		t.Errorf("file secret not applied: %q", cfg.Auth.Secret)
	}
	// Untouched keys keep their defaults.
	if cfg.Server.LivePort != 8090 {
		t.Errorf("default lost: %d", cfg.Server.LivePort)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":9000\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TASKDECK_SERVER_ADDR", ":7777")

	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7777" {
		t.Errorf("env did not override file: %q", cfg.Server.Addr)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}
