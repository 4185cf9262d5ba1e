package config

import (
	"os"
	"path/filepath"
	"testing"
)

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	// Unset any env vars that would interfere
	envVars := []string{
		"HEATLENS_BACKEND_MODE", "HEATLENS_BACKEND_LOCAL_URL", "HEATLENS_BACKEND_REMOTE_URL",
		"HEATLENS_API_PORT", "HEATLENS_LOGGING_LEVEL",
	}
	for _, e := range envVars {
		os.Unsetenv(e)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Backend defaults
	if cfg.Backend.Mode != "local" {
		t.Errorf("Backend.Mode: got %q, want %q", cfg.Backend.Mode, "local")
	}
	if cfg.Backend.LocalURL != "http://localhost:8000" {
		t.Errorf("Backend.LocalURL: got %q", cfg.Backend.LocalURL)
	}
	if cfg.Backend.TimeoutSec != 10 {
		t.Errorf("Backend.TimeoutSec: got %d, want 10", cfg.Backend.TimeoutSec)
	}

	// API defaults
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host: got %q, want %q", cfg.API.Host, "0.0.0.0")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port: got %d, want 8080", cfg.API.Port)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "text")
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "test_config.yaml")
	content := []byte(`
backend:
  mode: "remote"
  remote_url: "https://heatmap.example.com"
  timeout_sec: 5
api:
  port: 9090
logging:
  level: "debug"
  format: "json"
`)
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	os.Unsetenv("HEATLENS_BACKEND_MODE")
	os.Unsetenv("HEATLENS_BACKEND_REMOTE_URL")

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Backend.Mode != "remote" {
		t.Errorf("Backend.Mode: got %q, want %q", cfg.Backend.Mode, "remote")
	}
	if cfg.Backend.RemoteURL != "https://heatmap.example.com" {
		t.Errorf("Backend.RemoteURL: got %q", cfg.Backend.RemoteURL)
	}
	if cfg.Backend.TimeoutSec != 5 {
		t.Errorf("Backend.TimeoutSec: got %d, want 5", cfg.Backend.TimeoutSec)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port: got %d, want 9090", cfg.API.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "json")
	}
	// Defaults still fill the keys the file omits
	if cfg.Backend.LocalURL != "http://localhost:8000" {
		t.Errorf("Backend.LocalURL: got %q", cfg.Backend.LocalURL)
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

// ── BackendBaseURL ──

func TestBackendBaseURLModeSelection(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "local mode",
			cfg: Config{Backend: BackendConfig{
				Mode: "local", LocalURL: "http://localhost:8000", RemoteURL: "https://r.example.com",
			}},
			want: "http://localhost:8000",
		},
		{
			name: "remote mode",
			cfg: Config{Backend: BackendConfig{
				Mode: "remote", LocalURL: "http://localhost:8000", RemoteURL: "https://r.example.com",
			}},
			want: "https://r.example.com",
		},
		{
			name: "remote mode without a remote URL falls back to local",
			cfg: Config{Backend: BackendConfig{
				Mode: "remote", LocalURL: "http://localhost:8000", RemoteURL: "",
			}},
			want: "http://localhost:8000",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.BackendBaseURL(); got != tc.want {
				t.Errorf("BackendBaseURL() = %q, want %q", got, tc.want)
			}
		})
	}
}

// ── homeDir ──

func TestHomeDirReturnsNonEmpty(t *testing.T) {
	h := homeDir()
	if h == "" {
		t.Error("homeDir() should not return empty string")
	}
}
