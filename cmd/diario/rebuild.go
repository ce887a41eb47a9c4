package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/diario/internal/config"
	"github.com/matsen/diario/internal/record"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the query layer from source data",
	Long: `Rebuild the SQLite query database from records.jsonl and topics.jsonl.

Use this after pulling changes from git or if the database becomes corrupted.`,
	RunE: runRebuild,
}

// RebuildResult is the response for the rebuild command.
type RebuildResult struct {
	Status      string         `json:"status"`
	Records     int            `json:"records"`
	Sources     map[string]int `json:"sources"`
	Assignments int            `json:"assignments"`
}

func runRebuild(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	db := mustOpenDatabase(root)
	defer db.Close()

	count, err := db.RebuildFromJSONL(config.RecordsPath(root))
	if err != nil {
		exitWithError(ExitDataError, "rebuilding database: %v", err)
	}

	assigned, err := db.RebuildAssignmentsFromJSONL(config.AssignmentsPath(root))
	if err != nil {
		exitWithError(ExitDataError, "rebuilding topic assignments: %v", err)
	}

	sources, err := db.CountBySource()
	if err != nil {
		exitWithError(ExitDataError, "counting records: %v", err)
	}

	if humanOutput {
		outputHuman("Rebuilt query database with %d records and %d topic assignments\n", count, assigned)
		for _, source := range record.ValidSources {
			if n := sources[source]; n > 0 {
				fmt.Printf("  %-8s %d\n", source, n)
			}
		}
	} else {
		outputJSON(RebuildResult{
			Status:      "rebuilt",
			Records:     count,
			Sources:     sources,
			Assignments: assigned,
		})
	}

	return nil
}
