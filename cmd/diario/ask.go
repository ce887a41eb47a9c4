package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// askPrompt is printed before each query is read.
const askPrompt = "\nQuery > "

var askLimit int

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().IntVarP(&askLimit, "limit", "l", 0, "Results per query (default: search.top_k)")
}

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Interactive semantic search",
	Long: `Read queries from standard input and print the most similar records
for each. Type 'exit' or send EOF (Ctrl-D) to quit; blank lines are ignored.

With --human each result line shows the rank, cosine similarity, the
1/(1+L2 distance) score and the record text. Otherwise one JSON object is
written per query and the prompt goes to stderr.

Requires the semantic index to be built first with 'diario index build'.`,
	Args: cobra.NoArgs,
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)

	limit := cfg.Search.TopK
	if cmd.Flags().Changed("limit") {
		limit = askLimit
	}
	if limit < 0 {
		exitWithError(ExitError, "--limit must not be negative")
	}

	idx := mustLoadSemanticIndex(root)
	provider := newProvider(cfg)
	mustValidateOllama(ctx, provider, false)

	db := mustOpenDatabase(root)
	defer db.Close()

	promptOut := io.Writer(os.Stderr)
	if humanOutput {
		promptOut = os.Stdout
		fmt.Printf("Loaded index with %d records.\n", idx.RecordCount)
		fmt.Println("Enter your search query below. Type 'exit' to quit.")
	}

	answer := func(query string) error {
		start := time.Now()
		emb, err := provider.Embed(ctx, query)
		if err != nil {
			return fmt.Errorf("generating query embedding: %w", err)
		}
		results, err := idx.Search(emb.Vector, limit, cfg.Search.Threshold)
		if err != nil {
			return fmt.Errorf("searching index: %w", err)
		}
		found := buildSearchResults(results, db, idx, emb.Vector)

		if !humanOutput {
			return outputJSONCompact(SemanticResponse{
				Query:     query,
				Results:   found,
				Total:     len(found),
				Threshold: cfg.Search.Threshold,
				Model:     provider.ModelName(),
			})
		}

		fmt.Printf("Search completed in %.4f seconds.\n", time.Since(start).Seconds())
		fmt.Printf("\nTop %d most similar records found:\n", len(found))
		for i, r := range found {
			var score float32
			if r.L2Score != nil {
				score = *r.L2Score
			}
			fmt.Printf("  Rank %d | Similarity: %.4f | Score: %.4f | %s\n",
				i+1, r.Similarity, score, truncateString(r.Text, SearchTextMaxLen))
		}
		return nil
	}

	if err := askLoop(os.Stdin, promptOut, answer); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if humanOutput {
		fmt.Println("Exiting...")
	}
	return nil
}

// askLoop prompts on out and passes each non-blank line of in to answer
// until "exit" (any case) or EOF.
func askLoop(in io.Reader, out io.Writer, answer func(query string) error) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, askPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		query := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(query, "exit") {
			return nil
		}
		if query == "" {
			continue
		}
		if err := answer(query); err != nil {
			return err
		}
	}
}
