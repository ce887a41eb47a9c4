package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matsen/diario/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new diario workspace",
	Long: `Initialize a new diario workspace in the current directory.

Creates:
  .diario/
  ├── records.jsonl   # Empty file
  ├── config.yml      # Default config
  ├── .gitignore      # Ignores cache/
  └── cache/          # SQLite database and semantic index`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	// Check if already initialized
	if config.IsWorkspace(root) {
		exitWithError(ExitError, "directory already contains a diario workspace")
	}

	// Create directory structure
	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		exitWithError(ExitError, "creating .diario directory: %v", err)
	}

	// Create empty records.jsonl
	f, err := os.Create(config.RecordsPath(root))
	if err != nil {
		exitWithError(ExitError, "creating %s: %v", config.RecordsFile, err)
	}
	f.Close()

	gitignore := filepath.Join(config.WorkspacePath(root), ".gitignore")
	if err := os.WriteFile(gitignore, []byte(config.CacheDir+"/\n"), 0644); err != nil {
		exitWithError(ExitError, "creating .gitignore: %v", err)
	}

	if err := config.Default().Save(root); err != nil {
		exitWithError(ExitError, "creating %s: %v", config.ConfigFile, err)
	}

	if humanOutput {
		outputHuman("Initialized diario workspace in %s\n", root)
	} else {
		outputJSON(StatusResponse{
			Status: "initialized",
			Path:   root,
		})
	}

	return nil
}
