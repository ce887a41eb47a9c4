package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	semanticLimit     int
	semanticThreshold float32
	semanticL2        bool
)

func init() {
	rootCmd.AddCommand(semanticCmd)

	semanticCmd.Flags().IntVarP(&semanticLimit, "limit", "l", 0, "Maximum number of results (default: search.top_k)")
	semanticCmd.Flags().Float32VarP(&semanticThreshold, "threshold", "t", 0, "Minimum similarity threshold (default: search.threshold)")
	semanticCmd.Flags().BoolVar(&semanticL2, "l2", false, "Also report the 1/(1+L2 distance) score")
}

// SemanticResponse is the response for the semantic search command.
type SemanticResponse struct {
	Query     string               `json:"query"`
	Results   []RecordSearchResult `json:"results"`
	Total     int                  `json:"total"`
	Threshold float32              `json:"threshold"`
	Model     string               `json:"model"`
}

var semanticCmd = &cobra.Command{
	Use:   "semantic <query>",
	Short: "Search records by meaning",
	Long: `Search records using semantic similarity.

Unlike keyword search, semantic search understands the meaning of your query
and finds related searches and prompts, even without exact word matches.

Requires the semantic index to be built first with 'diario index build'.`,
	Args: cobra.ExactArgs(1),
	RunE: runSemantic,
}

func runSemantic(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := strings.TrimSpace(args[0])

	if query == "" {
		exitWithError(ExitError, "Search query cannot be empty")
	}

	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)

	limit := cfg.Search.TopK
	if cmd.Flags().Changed("limit") {
		limit = semanticLimit
	}
	threshold := cfg.Search.Threshold
	if cmd.Flags().Changed("threshold") {
		threshold = semanticThreshold
	}
	if limit < 0 {
		exitWithError(ExitError, "--limit must not be negative")
	}

	idx := mustLoadSemanticIndex(root)

	provider := newProvider(cfg)
	mustValidateOllama(ctx, provider, false)

	queryEmb, err := provider.Embed(ctx, query)
	if err != nil {
		exitWithError(ExitError, "generating query embedding: %v", err)
	}

	results, err := idx.Search(queryEmb.Vector, limit, threshold)
	if err != nil {
		exitWithError(ExitError, "searching index: %v", err)
	}

	db := mustOpenDatabase(root)
	defer db.Close()

	var l2Query []float32
	if semanticL2 {
		l2Query = queryEmb.Vector
	}
	semanticResults := buildSearchResults(results, db, idx, l2Query)

	if humanOutput {
		fmt.Printf("Search: \"%s\"\n", query)
		fmt.Printf("Found %d records (threshold: %.2f)\n\n", len(semanticResults), threshold)
		printSearchResultsHuman(semanticResults)
	} else {
		outputJSON(SemanticResponse{
			Query:     query,
			Results:   semanticResults,
			Total:     len(semanticResults),
			Threshold: threshold,
			Model:     provider.ModelName(),
		})
	}

	return nil
}
