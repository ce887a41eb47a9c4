package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/matsen/diario/internal/semantic"
)

var (
	noProgress     bool
	indexFull      bool
	indexBatchSize int
)

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexCheckCmd)

	indexBuildCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Suppress progress output")
	indexBuildCmd.Flags().BoolVar(&indexFull, "full", false, "Re-embed every record instead of reusing unchanged embeddings")
	indexBuildCmd.Flags().IntVar(&indexBatchSize, "batch-size", semantic.DefaultBatchSize, "Texts per embedding request")
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the semantic search index",
	Long:  `Commands for building and checking the semantic search index.`,
}

// IndexBuildResult is the response for index build command.
type IndexBuildResult struct {
	Status          string  `json:"status"`
	RecordsIndexed  int     `json:"records_indexed"`
	RecordsEmbedded int     `json:"records_embedded"`
	RecordsReused   int     `json:"records_reused"`
	RecordsSkipped  int     `json:"records_skipped"`
	SkippedReason   string  `json:"skipped_reason,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	Model           string  `json:"model"`
	IndexSizeBytes  int64   `json:"index_size_bytes"`
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build or update the semantic index",
	Long: `Build or update the semantic index from record text.

Records whose text is unchanged since the last build keep their embeddings
unless --full is given. Interrupting with Ctrl-C leaves the previous index
in place.

Requires Ollama to be running with the embedding model available.
Run 'ollama pull all-minilm:l6-v2' to download the default model.`,
	RunE: runIndexBuild,
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)

	provider := newProvider(cfg)
	mustValidateOllama(ctx, provider, true)

	db := mustOpenDatabase(root)
	defer db.Close()

	records, err := db.ListAll(0)
	if err != nil {
		exitWithError(ExitError, "listing records: %v", err)
	}

	var previous *semantic.SemanticIndex
	if !indexFull {
		previous, err = semantic.Load(root)
		if err != nil && !errors.Is(err, semantic.ErrIndexNotFound) {
			log.WithError(err).Warn("ignoring unreadable semantic index; re-embedding everything")
			previous = nil
		}
	}

	builder := semantic.NewBuilder(provider, db)
	builder.SetBatchSize(indexBatchSize)

	showProgress := humanOutput && !noProgress
	if showProgress {
		builder.SetProgressReporter(semantic.ProgressFunc(func(current, total int) {
			printProgress(current, total)
		}))
		fmt.Fprintf(os.Stderr, "Building semantic index...\n")
	}

	idx, stats, err := builder.Build(ctx, records, previous)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			exitWithError(ExitError, "index build interrupted; previous index kept")
		}
		exitWithError(ExitError, "building index: %v", err)
	}

	if err := idx.Save(root); err != nil {
		exitWithError(ExitError, "saving index: %v", err)
	}

	indexSize, err := semantic.IndexSize(root)
	if err != nil {
		indexSize = 0 // Non-fatal
	}
	stats.IndexSizeBytes = indexSize

	// Clear progress line if we were showing progress
	if showProgress {
		fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", 60))
	}

	result := IndexBuildResult{
		Status:          "complete",
		RecordsIndexed:  stats.RecordsIndexed,
		RecordsEmbedded: stats.RecordsEmbedded,
		RecordsReused:   stats.RecordsReused,
		RecordsSkipped:  stats.RecordsSkipped,
		DurationSeconds: stats.Duration.Seconds(),
		Model:           provider.ModelName(),
		IndexSizeBytes:  stats.IndexSizeBytes,
	}
	if stats.RecordsSkipped > 0 {
		result.SkippedReason = "blank text"
	}

	if humanOutput {
		fmt.Printf("\nBuild complete:\n")
		fmt.Printf("  Records indexed: %d\n", stats.RecordsIndexed)
		fmt.Printf("  Newly embedded: %d\n", stats.RecordsEmbedded)
		fmt.Printf("  Reused: %d\n", stats.RecordsReused)
		fmt.Printf("  Skipped: %d (blank text)\n", stats.RecordsSkipped)
		fmt.Printf("  Time elapsed: %s\n", formatDuration(stats.Duration))
		fmt.Printf("  Index size: %s\n", formatBytes(stats.IndexSizeBytes))
		fmt.Printf("  Model: %s\n", provider.ModelName())
	} else {
		outputJSON(result)
	}

	return nil
}

// IndexCheckResult is the response for index check command.
type IndexCheckResult struct {
	Status          string   `json:"status"`
	RecordsTotal    int      `json:"records_total"`
	RecordsIndexed  int      `json:"records_indexed"`
	RecordsMissing  int      `json:"records_missing"`
	RecordsChanged  int      `json:"records_changed"`
	RecordsOrphaned int      `json:"records_orphaned"`
	MissingIDs      []string `json:"missing_ids,omitempty"`
	Model           string   `json:"model"`
	IndexCreated    string   `json:"index_created"`
	IndexSizeBytes  int64    `json:"index_size_bytes"`
	Recommendation  string   `json:"recommendation,omitempty"`
}

var indexCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check semantic index health",
	Long: `Check the semantic index against the current records.

Exits with status 6 when records are missing from the index, have changed
since they were embedded, or were removed after indexing.`,
	RunE: runIndexCheck,
}

func runIndexCheck(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	idx := mustLoadSemanticIndex(root)

	db := mustOpenDatabase(root)
	defer db.Close()

	records, err := db.ListAll(0)
	if err != nil {
		exitWithError(ExitError, "listing records: %v", err)
	}

	report := semantic.Check(idx, records)
	indexSize, _ := semantic.IndexSize(root)

	status := "healthy"
	var recommendation string
	exitCode := ExitSuccess
	if report.IsStale() {
		status = "stale"
		recommendation = "Run 'diario index build' to update the index"
		exitCode = ExitIndexStale
	}

	result := IndexCheckResult{
		Status:          status,
		RecordsTotal:    len(records),
		RecordsIndexed:  idx.RecordCount,
		RecordsMissing:  len(report.Missing),
		RecordsChanged:  len(report.Changed),
		RecordsOrphaned: len(report.Orphaned),
		Model:           idx.ModelName,
		IndexCreated:    idx.CreatedAt.Format(time.RFC3339),
		IndexSizeBytes:  indexSize,
		Recommendation:  recommendation,
	}
	if len(report.Missing) > 0 && len(report.Missing) <= 10 {
		result.MissingIDs = report.Missing
	}

	if humanOutput {
		fmt.Printf("Semantic Index Status: %s\n\n", status)
		fmt.Printf("Records:\n")
		fmt.Printf("  Total in database: %d\n", len(records))
		fmt.Printf("  In semantic index: %d\n", idx.RecordCount)
		fmt.Printf("  Missing from index: %d\n", len(report.Missing))
		fmt.Printf("  Changed since indexing: %d\n", len(report.Changed))
		fmt.Printf("  Removed since indexing: %d\n", len(report.Orphaned))
		fmt.Printf("\nIndex Info:\n")
		fmt.Printf("  Model: %s\n", idx.ModelName)
		fmt.Printf("  Created: %s\n", idx.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Size: %s\n", formatBytes(indexSize))
		if recommendation != "" {
			fmt.Printf("\n%s\n", recommendation)
		}
	} else {
		outputJSON(result)
	}

	if exitCode != ExitSuccess {
		closeLog()
		os.Exit(exitCode)
	}
	return nil
}

// progressBar renders a fixed-width progress bar.
func progressBar(current, total, width int) string {
	filled := 0
	if total > 0 {
		filled = int(float64(width) * float64(current) / float64(total))
	}
	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i < filled:
			b.WriteByte('=')
		case i == filled:
			b.WriteByte('>')
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// printProgress prints a progress bar to stderr.
func printProgress(current, total int) {
	if total == 0 {
		return
	}
	pct := float64(current) / float64(total) * 100
	fmt.Fprintf(os.Stderr, "\r[%s] %d/%d (%.0f%%)", progressBar(current, total, 30), current, total, pct)
}
