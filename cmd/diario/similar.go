package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	similarLimit int
)

func init() {
	rootCmd.AddCommand(similarCmd)

	similarCmd.Flags().IntVarP(&similarLimit, "limit", "l", 10, "Maximum number of results")
}

// SimilarSource is the source record info for the similar response.
type SimilarSource struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// SimilarResponse is the response for the similar records command.
type SimilarResponse struct {
	Source  SimilarSource        `json:"source"`
	Similar []RecordSearchResult `json:"similar"`
	Total   int                  `json:"total"`
	Model   string               `json:"model"`
}

var similarCmd = &cobra.Command{
	Use:   "similar <record-id>",
	Short: "Find records similar to a specific record",
	Long: `Find records that are semantically similar to a given record.

The source record is excluded from results.

Requires the semantic index to be built first with 'diario index build'.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func runSimilar(cmd *cobra.Command, args []string) error {
	recordID := args[0]
	if similarLimit < 0 {
		exitWithError(ExitError, "--limit must not be negative")
	}

	root := mustFindWorkspace()
	idx := mustLoadSemanticIndex(root)

	db := mustOpenDatabase(root)
	defer db.Close()

	source, err := db.GetByID(recordID)
	if err != nil {
		exitWithError(ExitError, "looking up record: %v", err)
	}
	if source == nil {
		exitWithError(ExitError, "Record '%s' not found in database", recordID)
	}

	if !idx.HasRecord(recordID) {
		if strings.TrimSpace(source.Text) == "" {
			exitWithError(ExitDataError, "Record '%s' has no text to compare", recordID)
		}
		exitWithError(ExitIndexStale, "Record '%s' is not in the semantic index\n\nRebuild the index with 'diario index build'.", recordID)
	}

	results, err := idx.FindSimilar(recordID, similarLimit)
	if err != nil {
		exitWithError(ExitError, "finding similar records: %v", err)
	}

	similarResults := buildSearchResults(results, db, idx, nil)

	if humanOutput {
		fmt.Printf("Records similar to: %s\n", recordID)
		fmt.Printf("\"%s\"\n\n", truncateString(source.Text, SearchTextMaxLen))
		printSearchResultsHuman(similarResults)
	} else {
		outputJSON(SimilarResponse{
			Source: SimilarSource{
				ID:   source.ID,
				Text: source.Text,
			},
			Similar: similarResults,
			Total:   len(similarResults),
			Model:   idx.ModelName,
		})
	}

	return nil
}
