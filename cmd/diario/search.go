package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/diario/internal/record"
)

var searchLimit int

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", DefaultSearchLimit, "Maximum results to return")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <keywords>...",
	Short: "Keyword search over record text",
	Long: `Search record text with SQLite full-text search.

Results are ranked by relevance. Use 'diario semantic' to search by meaning.

Examples:
  diario search sourdough
  diario search "rust borrow checker" --limit 10`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

// SearchResponse is the response for the search command.
type SearchResponse struct {
	Query   string          `json:"query"`
	Results []record.Record `json:"results"`
	Total   int             `json:"total"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		exitWithError(ExitError, "Search query cannot be empty")
	}

	root := mustFindWorkspace()
	db := mustOpenDatabase(root)
	defer db.Close()

	results, err := db.Search(query, searchLimit)
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}
	if results == nil {
		results = []record.Record{}
	}

	if humanOutput {
		fmt.Printf("Search: \"%s\"\n", query)
		fmt.Printf("Found %d records\n\n", len(results))
		for _, r := range results {
			printRecordLine(r)
		}
		return nil
	}

	outputJSON(SearchResponse{
		Query:   query,
		Results: results,
		Total:   len(results),
	})
	return nil
}
