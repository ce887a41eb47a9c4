// Package config handles workspace configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	WorkspaceDir    = ".diario"
	ConfigFile      = "config.yml"
	RecordsFile     = "records.jsonl"
	AssignmentsFile = "topics.jsonl"
	CacheDir        = "cache"
	DBFile          = "records.db"
)

// Defaults applied to any field missing from config.yml.
const (
	DefaultMaxDistance       = 7
	DefaultMaxPromptLength   = 1500
	DefaultEmbeddingModel    = "all-minilm:l6-v2"
	DefaultEmbeddingURL      = "http://localhost:11434"
	DefaultEmbeddingDims     = 384
	DefaultRequestsPerSecond = 20
	DefaultMinTopicSize      = 150
	DefaultTopicSimilarity   = 0.6
	DefaultTopWords          = 4
	DefaultTopicIterations   = 10
	DefaultSearchTopK        = 10
	DefaultLogLevel          = "info"
)

// ErrNoWorkspace is returned when no .diario directory is found.
var ErrNoWorkspace = errors.New("not in a diario workspace (no .diario directory found)")

// Config represents workspace configuration stored in .diario/config.yml.
type Config struct {
	MaxDistance     int             `yaml:"max_distance"`
	MaxPromptLength int             `yaml:"max_prompt_length"`
	Embedding       EmbeddingConfig `yaml:"embedding"`
	Topics          TopicsConfig    `yaml:"topics"`
	Search          SearchConfig    `yaml:"search"`
	Log             LogConfig       `yaml:"log"`
}

// EmbeddingConfig selects the embedding model served by Ollama.
type EmbeddingConfig struct {
	Model             string  `yaml:"model"`
	URL               string  `yaml:"url"`
	Dimensions        int     `yaml:"dimensions"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// TopicsConfig tunes topic clustering.
type TopicsConfig struct {
	MinTopicSize int     `yaml:"min_topic_size"`
	Similarity   float64 `yaml:"similarity"`
	TopWords     int     `yaml:"top_words"`
	Iterations   int     `yaml:"iterations"`
}

// SearchConfig holds defaults for semantic search.
type SearchConfig struct {
	TopK      int     `yaml:"top_k"`
	Threshold float32 `yaml:"threshold"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	return &Config{
		MaxDistance:     DefaultMaxDistance,
		MaxPromptLength: DefaultMaxPromptLength,
		Embedding: EmbeddingConfig{
			Model:             DefaultEmbeddingModel,
			URL:               DefaultEmbeddingURL,
			Dimensions:        DefaultEmbeddingDims,
			RequestsPerSecond: DefaultRequestsPerSecond,
		},
		Topics: TopicsConfig{
			MinTopicSize: DefaultMinTopicSize,
			Similarity:   DefaultTopicSimilarity,
			TopWords:     DefaultTopWords,
			Iterations:   DefaultTopicIterations,
		},
		Search: SearchConfig{
			TopK: DefaultSearchTopK,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// WorkspacePath returns the path to the .diario directory from a root path.
func WorkspacePath(root string) string {
	return filepath.Join(root, WorkspaceDir)
}

// ConfigPath returns the path to config.yml from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, WorkspaceDir, ConfigFile)
}

// RecordsPath returns the path to records.jsonl from a root path.
func RecordsPath(root string) string {
	return filepath.Join(root, WorkspaceDir, RecordsFile)
}

// AssignmentsPath returns the path to topics.jsonl from a root path.
func AssignmentsPath(root string) string {
	return filepath.Join(root, WorkspaceDir, AssignmentsFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, WorkspaceDir, CacheDir)
}

// DBPath returns the path to records.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, WorkspaceDir, CacheDir, DBFile)
}

// IsWorkspace checks if the given path contains a diario workspace.
func IsWorkspace(root string) bool {
	info, err := os.Stat(WorkspacePath(root))
	return err == nil && info.IsDir()
}

// FindWorkspace walks up from the given path to find a diario workspace.
func FindWorkspace(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsWorkspace(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNoWorkspace
		}
		abs = parent
	}
}

// Load reads configuration from the workspace at the given root.
// Keys missing from the file keep their defaults; explicit zeros are kept.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to the workspace at the given root.
func (c *Config) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"max_distance",
	"max_prompt_length",
	"embedding.model",
	"embedding.url",
	"embedding.dimensions",
	"embedding.requests_per_second",
	"topics.min_topic_size",
	"topics.similarity",
	"topics.top_words",
	"topics.iterations",
	"search.top_k",
	"search.threshold",
	"log.level",
	"log.file",
}

// ValidLogLevels lists the accepted log.level values.
var ValidLogLevels = []string{"trace", "debug", "info", "warn", "error"}

// Get returns the string form of a configuration key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "max_distance":
		return strconv.Itoa(c.MaxDistance), nil
	case "max_prompt_length":
		return strconv.Itoa(c.MaxPromptLength), nil
	case "embedding.model":
		return c.Embedding.Model, nil
	case "embedding.url":
		return c.Embedding.URL, nil
	case "embedding.dimensions":
		return strconv.Itoa(c.Embedding.Dimensions), nil
	case "embedding.requests_per_second":
		return strconv.FormatFloat(c.Embedding.RequestsPerSecond, 'g', -1, 64), nil
	case "topics.min_topic_size":
		return strconv.Itoa(c.Topics.MinTopicSize), nil
	case "topics.similarity":
		return strconv.FormatFloat(c.Topics.Similarity, 'g', -1, 64), nil
	case "topics.top_words":
		return strconv.Itoa(c.Topics.TopWords), nil
	case "topics.iterations":
		return strconv.Itoa(c.Topics.Iterations), nil
	case "search.top_k":
		return strconv.Itoa(c.Search.TopK), nil
	case "search.threshold":
		return strconv.FormatFloat(float64(c.Search.Threshold), 'g', -1, 32), nil
	case "log.level":
		return c.Log.Level, nil
	case "log.file":
		return c.Log.File, nil
	default:
		return "", fmt.Errorf("unknown config key: %s (valid: %s)", key, strings.Join(Keys, ", "))
	}
}

// Set parses value and assigns it to the configuration key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "max_distance":
		return setInt(&c.MaxDistance, key, value, 0)
	case "max_prompt_length":
		return setInt(&c.MaxPromptLength, key, value, 1)
	case "embedding.model":
		return setString(&c.Embedding.Model, key, value)
	case "embedding.url":
		return setString(&c.Embedding.URL, key, value)
	case "embedding.dimensions":
		return setInt(&c.Embedding.Dimensions, key, value, 1)
	case "embedding.requests_per_second":
		return setFloat(&c.Embedding.RequestsPerSecond, key, value, 0, 0)
	case "topics.min_topic_size":
		return setInt(&c.Topics.MinTopicSize, key, value, 1)
	case "topics.similarity":
		return setFloat(&c.Topics.Similarity, key, value, 0, 1)
	case "topics.top_words":
		return setInt(&c.Topics.TopWords, key, value, 1)
	case "topics.iterations":
		return setInt(&c.Topics.Iterations, key, value, 0)
	case "search.top_k":
		return setInt(&c.Search.TopK, key, value, 1)
	case "search.threshold":
		var f float64
		if err := setFloat(&f, key, value, -1, 1); err != nil {
			return err
		}
		c.Search.Threshold = float32(f)
		return nil
	case "log.level":
		if err := ValidateLogLevel(value); err != nil {
			return err
		}
		c.Log.Level = value
		return nil
	case "log.file":
		c.Log.File = value
		return nil
	default:
		return fmt.Errorf("unknown config key: %s (valid: %s)", key, strings.Join(Keys, ", "))
	}
}

// ValidateLogLevel checks that level is one of ValidLogLevels.
func ValidateLogLevel(level string) error {
	for _, valid := range ValidLogLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log.level: %s (valid: %v)", level, ValidLogLevels)
}

func setString(dst *string, key, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", key)
	}
	*dst = value
	return nil
}

func setInt(dst *int, key, value string, min int) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %q", key, value)
	}
	if n < min {
		return fmt.Errorf("%s must be at least %d, got %d", key, min, n)
	}
	*dst = n
	return nil
}

// setFloat parses a float in [min, max]; max <= min means no upper bound.
func setFloat(dst *float64, key, value string, min, max float64) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s must be a number: %q", key, value)
	}
	if f < min || (max > min && f > max) {
		if max > min {
			return fmt.Errorf("%s must be between %g and %g, got %g", key, min, max, f)
		}
		return fmt.Errorf("%s must be at least %g, got %g", key, min, f)
	}
	*dst = f
	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
