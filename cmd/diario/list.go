package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/diario/internal/record"
)

var (
	listLimit  int
	listSource string
)

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum results to return (0 = all)")
	listCmd.Flags().StringVar(&listSource, "source", "", "Only list records from this source (chrome, gemini, queries, titles)")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List records in chronological order",
	Long: `List records in the workspace, oldest first.

Examples:
  diario list
  diario list --source gemini --limit 100`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	if listSource != "" && !record.IsValidSource(listSource) {
		exitWithError(ExitError, "unknown source %q", listSource)
	}

	root := mustFindWorkspace()
	db := mustOpenDatabase(root)
	defer db.Close()

	var records []record.Record
	var err error
	if listSource != "" {
		records, err = db.ListBySource(listSource, listLimit)
	} else {
		records, err = db.ListAll(listLimit)
	}
	if err != nil {
		exitWithError(ExitError, "listing records: %v", err)
	}

	if humanOutput {
		if len(records) == 0 {
			fmt.Println("No records in workspace")
			return nil
		}
		fmt.Printf("%d records:\n\n", len(records))
		for _, r := range records {
			printRecordLine(r)
		}
		return nil
	}

	if records == nil {
		records = []record.Record{}
	}
	outputJSON(records)
	return nil
}
