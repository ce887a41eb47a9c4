// Package main provides the diario CLI entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/matsen/diario/internal/config"
	"github.com/matsen/diario/internal/embedding"
	"github.com/matsen/diario/internal/logging"
	"github.com/matsen/diario/internal/semantic"
	"github.com/matsen/diario/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// verbose forces debug logging regardless of configuration
var verbose bool

// logCloser closes the log file opened by setupLogging, if any.
var logCloser io.Closer

func main() {
	err := rootCmd.Execute()
	if err != nil {
		// Print the error since we have SilenceErrors: true
		// This ensures Cobra errors (like missing required flags) are visible
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	closeLog()
	if err != nil {
		os.Exit(ExitError)
	}
}

// closeLog flushes and closes the log file, if one is open. Every exit path
// goes through it; calling it twice is harmless.
func closeLog() {
	if logCloser != nil {
		logCloser.Close()
		logCloser = nil
	}
}

var rootCmd = &cobra.Command{
	Use:   "diario",
	Short: "Personal search and chat history explorer",
	Long: `diario turns exported browser and assistant history into a searchable,
topic-clustered personal diary.

Core features:
  - Extract Chrome history, Gemini activity, query logs and chat titles
  - Collapse runs of near-identical consecutive entries
  - Keyword and semantic search via local Ollama embeddings
  - Topic clustering and monthly topic trends

Data is stored in git-versionable JSONL with ephemeral SQLite for queries.
All commands output JSON by default for AI agent integration.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.Version = Version
}

// setupLogging loads .env, then configures logging from the workspace config
// when one is found. Commands report config errors themselves.
func setupLogging(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	opts := logging.Options{Level: config.DefaultLogLevel}
	if root, err := findWorkspace(); err == nil {
		if cfg, err := config.Load(root); err == nil {
			config.ApplyOverrides(cfg)
			opts.Level = cfg.Log.Level
			opts.File = config.ExpandPath(cfg.Log.File)
		}
	} else if level := os.Getenv(config.EnvLogLevel); level != "" {
		opts.Level = level
	}
	if verbose {
		opts.Level = "debug"
	}

	logCloser = logging.Setup(opts)
	log.WithField("command", cmd.CommandPath()).Debug("starting")
	return nil
}

// getStartingDirectory returns the directory to start searching for a workspace.
// Checks global config workspace_path first, then current working directory.
func getStartingDirectory() (string, error) {
	if root := config.GetWorkspacePath(); root != "" {
		return root, nil
	}
	return os.Getwd()
}

// findWorkspace locates the workspace without exiting.
func findWorkspace() (string, error) {
	start, err := getStartingDirectory()
	if err != nil {
		return "", err
	}
	return config.FindWorkspace(start)
}

// mustFindWorkspace finds and validates the workspace, exits on error.
// Returns the workspace root path.
func mustFindWorkspace() string {
	root, err := findWorkspace()
	if err != nil {
		// Show helpful message if no global config exists
		fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
		closeLog()
		os.Exit(ExitConfigError)
	}
	return root
}

// mustOpenDatabase opens the SQLite database, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(root string) *storage.DB {
	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db, err := storage.OpenDB(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// mustLoadConfig loads configuration with global and environment overrides, exits on error.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	config.ApplyOverrides(cfg)
	return cfg
}

// mustLoadSemanticIndex loads the semantic index, exits on error.
func mustLoadSemanticIndex(root string) *semantic.SemanticIndex {
	idx, err := semantic.Load(root)
	if err != nil {
		if err == semantic.ErrIndexNotFound {
			exitWithError(ExitConfigError, "Semantic index not found\n\nRun 'diario index build' to create the index.")
		}
		exitWithError(ExitError, "loading index: %v", err)
	}
	return idx
}

// newProvider builds the Ollama provider described by the configuration.
func newProvider(cfg *config.Config) *embedding.OllamaProvider {
	return embedding.NewOllamaProvider(
		embedding.WithBaseURL(cfg.Embedding.URL),
		embedding.WithModel(cfg.Embedding.Model),
		embedding.WithDimensions(cfg.Embedding.Dimensions),
		embedding.WithRateLimit(cfg.Embedding.RequestsPerSecond),
	)
}

// mustValidateOllama checks that Ollama is running and optionally validates the model.
// If checkModel is true, also verifies the required embedding model is available.
func mustValidateOllama(ctx context.Context, provider *embedding.OllamaProvider, checkModel bool) {
	if err := provider.IsAvailable(ctx); err != nil {
		log.WithError(err).WithField("url", provider.BaseURL()).Debug("ollama unavailable")
		exitWithError(ExitDataError, "Ollama is not running at %s\n\nStart Ollama with 'ollama serve' or install from https://ollama.ai", provider.BaseURL())
	}

	if checkModel {
		hasModel, err := provider.HasModel(ctx)
		if err != nil {
			exitWithError(ExitError, "checking model availability: %v", err)
		}
		if !hasModel {
			exitWithError(ExitModelNotFound, "embedding model %q not found\n\nRun 'ollama pull %s' to download it.", provider.ModelName(), provider.ModelName())
		}
	}
}

// mustRebuildDatabase reloads the SQLite records table from records.jsonl.
func mustRebuildDatabase(root string) int {
	db := mustOpenDatabase(root)
	defer db.Close()

	count, err := db.RebuildFromJSONL(config.RecordsPath(root))
	if err != nil {
		exitWithError(ExitDataError, "rebuilding database: %v", err)
	}
	return count
}
