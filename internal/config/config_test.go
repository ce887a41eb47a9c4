package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestPathFunctions(t *testing.T) {
	root := "/test/ws"

	tests := []struct {
		name string
		fn   func(string) string
		want string
	}{
		{"WorkspacePath", WorkspacePath, "/test/ws/.diario"},
		{"ConfigPath", ConfigPath, "/test/ws/.diario/config.yml"},
		{"RecordsPath", RecordsPath, "/test/ws/.diario/records.jsonl"},
		{"AssignmentsPath", AssignmentsPath, "/test/ws/.diario/topics.jsonl"},
		{"CachePath", CachePath, "/test/ws/.diario/cache"},
		{"DBPath", DBPath, "/test/ws/.diario/cache/records.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(root)
			if got != tt.want {
				t.Errorf("%s(%q) = %q, want %q", tt.name, root, got, tt.want)
			}
		})
	}
}

func TestIsWorkspace(t *testing.T) {
	tmpDir := t.TempDir()

	if IsWorkspace(tmpDir) {
		t.Error("IsWorkspace() = true for plain directory")
	}

	if err := os.Mkdir(filepath.Join(tmpDir, WorkspaceDir), 0755); err != nil {
		t.Fatalf("Failed to create .diario: %v", err)
	}

	if !IsWorkspace(tmpDir) {
		t.Error("IsWorkspace() = false for workspace directory")
	}
}

func TestIsWorkspace_FileNotDir(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, WorkspaceDir), []byte("not a dir"), 0644); err != nil {
		t.Fatalf("Failed to create .diario file: %v", err)
	}

	if IsWorkspace(tmpDir) {
		t.Error("IsWorkspace() = true when .diario is a file")
	}
}

func TestFindWorkspace(t *testing.T) {
	tmpDir := t.TempDir()
	wsDir := filepath.Join(tmpDir, "ws")
	nestedDir := filepath.Join(wsDir, "exports", "2025")

	if err := os.MkdirAll(nestedDir, 0755); err != nil {
		t.Fatalf("Failed to create nested dirs: %v", err)
	}
	if err := os.Mkdir(filepath.Join(wsDir, WorkspaceDir), 0755); err != nil {
		t.Fatalf("Failed to create .diario: %v", err)
	}

	found, err := FindWorkspace(nestedDir)
	if err != nil {
		t.Fatalf("FindWorkspace() error = %v", err)
	}
	if found != wsDir {
		t.Errorf("FindWorkspace() = %q, want %q", found, wsDir)
	}

	found, err = FindWorkspace(wsDir)
	if err != nil {
		t.Fatalf("FindWorkspace() error = %v", err)
	}
	if found != wsDir {
		t.Errorf("FindWorkspace() = %q, want %q", found, wsDir)
	}
}

func TestFindWorkspace_NotFound(t *testing.T) {
	_, err := FindWorkspace(t.TempDir())
	if !errors.Is(err, ErrNoWorkspace) {
		t.Errorf("FindWorkspace() error = %v, want ErrNoWorkspace", err)
	}
}

func newWorkspace(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, WorkspaceDir), 0755); err != nil {
		t.Fatalf("Failed to create .diario: %v", err)
	}
	return tmpDir
}

func TestConfig_SaveAndLoad(t *testing.T) {
	tmpDir := newWorkspace(t)

	cfg := Default()
	cfg.MaxDistance = 3
	cfg.Embedding.Model = "nomic-embed-text"
	cfg.Topics.MinTopicSize = 20
	cfg.Log.File = "/tmp/diario.log"
	if err := cfg.Save(tmpDir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.MaxDistance != 3 {
		t.Errorf("MaxDistance = %d, want 3", loaded.MaxDistance)
	}
	if loaded.Embedding.Model != "nomic-embed-text" {
		t.Errorf("Embedding.Model = %q, want nomic-embed-text", loaded.Embedding.Model)
	}
	if loaded.Topics.MinTopicSize != 20 {
		t.Errorf("Topics.MinTopicSize = %d, want 20", loaded.Topics.MinTopicSize)
	}
	if loaded.Log.File != "/tmp/diario.log" {
		t.Errorf("Log.File = %q, want /tmp/diario.log", loaded.Log.File)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	tmpDir := newWorkspace(t)

	content := "max_distance: 0\ntopics:\n  min_topic_size: 5\n"
	if err := os.WriteFile(ConfigPath(tmpDir), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MaxDistance != 0 {
		t.Errorf("MaxDistance = %d, want explicit 0", cfg.MaxDistance)
	}
	if cfg.Topics.MinTopicSize != 5 {
		t.Errorf("Topics.MinTopicSize = %d, want 5", cfg.Topics.MinTopicSize)
	}
	if cfg.Topics.TopWords != DefaultTopWords {
		t.Errorf("Topics.TopWords = %d, want default %d", cfg.Topics.TopWords, DefaultTopWords)
	}
	if cfg.Embedding.Model != DefaultEmbeddingModel {
		t.Errorf("Embedding.Model = %q, want default %q", cfg.Embedding.Model, DefaultEmbeddingModel)
	}
	if cfg.MaxPromptLength != DefaultMaxPromptLength {
		t.Errorf("MaxPromptLength = %d, want default %d", cfg.MaxPromptLength, DefaultMaxPromptLength)
	}
}

func TestLoad_NotFound(t *testing.T) {
	tmpDir := newWorkspace(t)

	if _, err := Load(tmpDir); err == nil {
		t.Error("Load() should return error when config not found")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := newWorkspace(t)

	if err := os.WriteFile(ConfigPath(tmpDir), []byte("max_distance: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write invalid config: %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Error("Load() should return error for invalid YAML")
	}
}

func TestConfig_GetSet(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		want    string
		wantErr bool
	}{
		{"max_distance", "2", "2", false},
		{"max_distance", "0", "0", false},
		{"max_distance", "-1", "", true},
		{"max_distance", "abc", "", true},
		{"max_prompt_length", "800", "800", false},
		{"embedding.model", "nomic-embed-text", "nomic-embed-text", false},
		{"embedding.model", "  ", "", true},
		{"embedding.url", "http://gpu:11434", "http://gpu:11434", false},
		{"embedding.dimensions", "768", "768", false},
		{"embedding.requests_per_second", "2.5", "2.5", false},
		{"topics.min_topic_size", "0", "", true},
		{"topics.similarity", "0.75", "0.75", false},
		{"topics.similarity", "1.5", "", true},
		{"topics.top_words", "6", "6", false},
		{"search.top_k", "25", "25", false},
		{"search.threshold", "0.5", "0.5", false},
		{"log.level", "debug", "debug", false},
		{"log.level", "loud", "", true},
		{"log.file", "/var/log/diario.log", "/var/log/diario.log", false},
		{"pdf_root", "/x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := Default()
			err := cfg.Set(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set(%q, %q) error = %v, wantErr = %v", tt.key, tt.value, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Fatalf("Get(%q) error = %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestConfig_GetAllKeys(t *testing.T) {
	cfg := Default()
	for _, key := range Keys {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q) error = %v", key, err)
		}
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/abs/path", "/abs/path"},
		{"rel/path", "rel/path"},
		{"~", home},
		{"~/exports", filepath.Join(home, "exports")},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ExpandPath(tt.in); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
