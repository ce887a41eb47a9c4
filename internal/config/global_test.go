package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// withConfigHome points XDG_CONFIG_HOME at dir for the duration of the test.
func withConfigHome(t *testing.T, dir string) {
	t.Helper()
	ResetGlobalConfigCache()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Cleanup(ResetGlobalConfigCache)
}

func writeGlobalConfig(t *testing.T, home, content string) {
	t.Helper()
	dir := filepath.Join(home, GlobalConfigDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, GlobalConfigFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestGlobalConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := GlobalConfigPath(), "/custom/config/diario/config.yml"; got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	want := filepath.Join(home, ".config", "diario", "config.yml")
	if got := GlobalConfigPath(); got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}
}

func TestLoadGlobalConfig_NotFound(t *testing.T) {
	withConfigHome(t, t.TempDir())

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg.WorkspacePath != "" || cfg.OllamaURL != "" {
		t.Errorf("LoadGlobalConfig() = %+v, want empty config", cfg)
	}
}

func TestLoadGlobalConfig_Valid(t *testing.T) {
	home := t.TempDir()
	withConfigHome(t, home)
	writeGlobalConfig(t, home, "workspace_path: ~/diario\nollama_url: http://gpu:11434\n")

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}

	if strings.HasPrefix(cfg.WorkspacePath, "~") {
		t.Errorf("WorkspacePath = %q, tilde should be expanded", cfg.WorkspacePath)
	}
	if !strings.HasSuffix(cfg.WorkspacePath, "diario") {
		t.Errorf("WorkspacePath = %q, want suffix diario", cfg.WorkspacePath)
	}
	if cfg.OllamaURL != "http://gpu:11434" {
		t.Errorf("OllamaURL = %q, want http://gpu:11434", cfg.OllamaURL)
	}
}

func TestLoadGlobalConfig_Invalid(t *testing.T) {
	home := t.TempDir()
	withConfigHome(t, home)
	writeGlobalConfig(t, home, "workspace_path: [broken")

	if _, err := LoadGlobalConfig(); err == nil {
		t.Error("LoadGlobalConfig() should fail on invalid YAML")
	}
}

func TestLoadGlobalConfig_Cached(t *testing.T) {
	home := t.TempDir()
	withConfigHome(t, home)
	writeGlobalConfig(t, home, "workspace_path: /first\n")

	first, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}

	writeGlobalConfig(t, home, "workspace_path: /second\n")
	second, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if second.WorkspacePath != first.WorkspacePath {
		t.Errorf("cached WorkspacePath = %q, want %q", second.WorkspacePath, first.WorkspacePath)
	}

	ResetGlobalConfigCache()
	third, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if third.WorkspacePath != "/second" {
		t.Errorf("after reset WorkspacePath = %q, want /second", third.WorkspacePath)
	}
}

func TestApplyOverrides(t *testing.T) {
	home := t.TempDir()
	withConfigHome(t, home)
	writeGlobalConfig(t, home, "ollama_url: http://global:11434\n")

	t.Run("global file overrides workspace", func(t *testing.T) {
		t.Setenv(EnvOllamaHost, "")
		t.Setenv(EnvLogLevel, "")
		cfg := Default()
		ApplyOverrides(cfg)
		if cfg.Embedding.URL != "http://global:11434" {
			t.Errorf("Embedding.URL = %q, want http://global:11434", cfg.Embedding.URL)
		}
	})

	t.Run("environment overrides global file", func(t *testing.T) {
		t.Setenv(EnvOllamaHost, "10.0.0.5")
		t.Setenv(EnvLogLevel, "debug")
		cfg := Default()
		ApplyOverrides(cfg)
		if cfg.Embedding.URL != "http://10.0.0.5:11434" {
			t.Errorf("Embedding.URL = %q, want http://10.0.0.5:11434", cfg.Embedding.URL)
		}
		if cfg.Log.Level != "debug" {
			t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
		}
	})

	t.Run("invalid log level ignored", func(t *testing.T) {
		t.Setenv(EnvOllamaHost, "")
		t.Setenv(EnvLogLevel, "chatty")
		cfg := Default()
		ApplyOverrides(cfg)
		if cfg.Log.Level != DefaultLogLevel {
			t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, DefaultLogLevel)
		}
	})
}

func TestNormalizeOllamaURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"localhost", "http://localhost:11434"},
		{"0.0.0.0:11434", "http://0.0.0.0:11434"},
		{"gpu:8080/", "http://gpu:8080"},
		{"https://ollama.example.com", "https://ollama.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeOllamaURL(tt.in); got != tt.want {
				t.Errorf("NormalizeOllamaURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHelpfulConfigMessage(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	msg := HelpfulConfigMessage()
	if !strings.Contains(msg, "diario init") {
		t.Errorf("message should mention 'diario init': %s", msg)
	}
	if !strings.Contains(msg, "/cfg/diario/config.yml") {
		t.Errorf("message should mention the global config path: %s", msg)
	}
}
