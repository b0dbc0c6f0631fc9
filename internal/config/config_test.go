package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tinyhttpd.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxClients != 10 {
		t.Errorf("Expected default max clients 10, got %d", cfg.Server.MaxClients)
	}
	if cfg.Server.BufferSize != 1024 {
		t.Errorf("Expected default buffer size 1024, got %d", cfg.Server.BufferSize)
	}
	if cfg.Server.Mode != "dev" {
		t.Errorf("Expected default mode dev, got %q", cfg.Server.Mode)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	t.Setenv(EnvPort, "")
	path := writeConfig(t, `
server:
  port: 9090
  mode: prod
tunnel:
  enabled: true
  xor_key: secret
static:
  dir: ./public
logging:
  log_to_file: true
  log_file_path: /tmp/tinyhttpd-test.log
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.Mode != "prod" {
		t.Errorf("Expected mode prod, got %q", cfg.Server.Mode)
	}
	// untouched fields keep their defaults
	if cfg.Server.MaxClients != 10 || cfg.Server.Backlog != 5 {
		t.Errorf("Expected default client settings, got %+v", cfg.Server)
	}
	if !cfg.Tunnel.Enabled || cfg.Tunnel.XorKey != "secret" || cfg.Tunnel.Listen != "127.0.0.1:8443" {
		t.Errorf("Unexpected tunnel config %+v", cfg.Tunnel)
	}
	if cfg.Static.Dir != "./public" || cfg.Static.Prefix != "/static/" {
		t.Errorf("Unexpected static config %+v", cfg.Static)
	}
	if !cfg.Logging.LogToFile || cfg.Logging.MaxSize != 10 {
		t.Errorf("Unexpected logging config %+v", cfg.Logging)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	t.Setenv(EnvPort, "7070")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Expected env port 7070, got %d", cfg.Server.Port)
	}

	t.Setenv(EnvPort, "not-a-port")
	if _, err := Load(path); err == nil {
		t.Error("Expected error for invalid env port")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvPort, "")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.Server.Port != Default().Server.Port {
		t.Errorf("Expected default port, got %d", cfg.Server.Port)
	}

	t.Setenv(EnvPort, "6060")
	cfg, err = FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.Server.Port != 6060 {
		t.Errorf("Expected env port 6060, got %d", cfg.Server.Port)
	}

	t.Setenv(EnvPort, "70000")
	if _, err := FromEnv(); err == nil {
		t.Error("Expected error for out of range env port")
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv(EnvPort, "")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	tests := map[string]string{
		"invalid yaml": "server: [port",
		"bad mode":     "server:\n  mode: staging\n",
		"bad port":     "server:\n  port: 99999\n",
		"bad prefix":   "static:\n  dir: ./public\n  prefix: static\n",
	}
	for name, content := range tests {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadKeepsExplicitZeroValues(t *testing.T) {
	t.Setenv(EnvPort, "")
	path := writeConfig(t, `
server:
  port: 0
logging:
  compress: false
  max_backups: 0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.Port != 0 {
		t.Errorf("Expected port 0 from file, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Compress {
		t.Error("Expected compress: false from file to override the default")
	}
	if cfg.Logging.MaxBackups != 0 {
		t.Errorf("Expected max_backups 0 from file, got %d", cfg.Logging.MaxBackups)
	}
	// keys absent from the file keep their defaults
	if cfg.Logging.MaxSize != 10 || cfg.Server.MaxClients != 10 {
		t.Errorf("Expected defaults for absent keys, got %+v %+v", cfg.Server, cfg.Logging)
	}
}

func TestValidateMode(t *testing.T) {
	cfg := Default()
	cfg.Server.Mode = "PROD"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Mode should be case insensitive: %v", err)
	}
	cfg.Server.MaxClients = 0
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "max_clients") {
		t.Errorf("Expected max_clients error, got %v", err)
	}
}
