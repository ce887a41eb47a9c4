package main

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/matsen/diario/internal/collapse"
	"github.com/matsen/diario/internal/config"
	"github.com/matsen/diario/internal/extract"
	"github.com/matsen/diario/internal/record"
	"github.com/matsen/diario/internal/storage"
)

var (
	extractFormat      string
	extractMaxDistance int
	extractNoCollapse  bool
	extractDryRun      bool
	extractTitleTime   string
)

func init() {
	extractCmd.Flags().StringVar(&extractFormat, "format", "", "Archive format: chrome, gemini, queries, titles (default: detect)")
	extractCmd.Flags().IntVar(&extractMaxDistance, "max-distance", 0, "Edit distance at or below which consecutive entries collapse (default: max_distance from config)")
	extractCmd.Flags().BoolVar(&extractNoCollapse, "no-collapse", false, "Keep near-duplicate consecutive entries")
	extractCmd.Flags().BoolVar(&extractDryRun, "dry-run", false, "Report what would be added without writing")
	extractCmd.Flags().StringVar(&extractTitleTime, "title-time", "", "Timestamp for chat titles, RFC 3339 (default: file modification time)")
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <archive>...",
	Short: "Extract records from history archives",
	Long: `Extract records from exported history archives into records.jsonl.

Supported archives:
  chrome   Google Takeout browser history (History.json)
  gemini   Gemini Apps activity (MyActivity.html)
  queries  Text file of "YYYY-MM-DD HH:MM:SS: query" lines
  titles   Text file of chat titles, one per line

Records are sorted chronologically and runs of near-identical consecutive
entries from the same source are collapsed to the newest one, including a
new entry that follows a near-identical stored one. Extracting the same
archive twice adds nothing.

Examples:
  diario extract Takeout/Chrome/History.json
  diario extract MyActivity.html --max-distance 5
  diario extract titles.txt --title-time 2025-01-31T00:00:00Z --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

// ArchiveResult describes one parsed archive.
type ArchiveResult struct {
	Path    string `json:"path"`
	Format  string `json:"format"`
	Parsed  int    `json:"parsed"`
	Skipped int    `json:"skipped"`
}

// ExtractResult is the response for the extract command.
type ExtractResult struct {
	Status    string                    `json:"status"`
	Archives  []ArchiveResult           `json:"archives"`
	Collapse  map[string]collapse.Stats `json:"collapse,omitempty"`
	Added      int                       `json:"added"`
	Unchanged  int                       `json:"unchanged"`
	Superseded int                       `json:"superseded"`
	Total      int                       `json:"total"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)

	maxDistance := cfg.MaxDistance
	if cmd.Flags().Changed("max-distance") {
		maxDistance = extractMaxDistance
	}

	opts := extract.Options{MaxPromptLength: cfg.MaxPromptLength}
	if extractTitleTime != "" {
		ts, err := time.Parse(time.RFC3339, extractTitleTime)
		if err != nil {
			exitWithError(ExitError, "invalid --title-time: %v", err)
		}
		opts.TitleTime = ts.UTC()
	}

	var forced extract.Format
	if extractFormat != "" {
		f, err := extract.ParseFormat(extractFormat)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		forced = f
	}

	var incoming []record.Record
	archives := make([]ArchiveResult, 0, len(args))
	for _, path := range args {
		format := forced
		if format == "" {
			detected, err := extract.Detect(path)
			if err != nil {
				exitWithError(ExitDataError, "detecting format of %s: %v", path, err)
			}
			format = detected
		}

		records, problems, err := extract.ParseFile(path, format, opts)
		if err != nil {
			exitWithError(ExitDataError, "parsing %s: %v", path, err)
		}
		for _, p := range problems {
			log.WithField("archive", path).Debug(p)
		}
		if len(problems) > 0 {
			log.WithFields(log.Fields{
				"archive": path,
				"skipped": len(problems),
			}).Warn("skipped unreadable entries")
		}

		archives = append(archives, ArchiveResult{
			Path:    path,
			Format:  string(format),
			Parsed:  len(records),
			Skipped: len(problems),
		})
		incoming = append(incoming, records...)
	}

	if len(incoming) == 0 {
		exitWithError(ExitNoRecords, "no records found in %d archive(s)", len(args))
	}

	recordsPath := config.RecordsPath(root)
	existing, err := storage.ReadAll(recordsPath)
	if err != nil {
		exitWithError(ExitDataError, "reading records: %v", err)
	}
	if extractNoCollapse {
		maxDistance = -1
	}
	m := mergeExtracted(existing, incoming, maxDistance)

	result := ExtractResult{
		Status:     "extracted",
		Archives:   archives,
		Collapse:   m.Collapse,
		Added:      m.Added,
		Unchanged:  m.Unchanged,
		Superseded: m.Superseded,
		Total:      len(m.Records),
	}

	if extractDryRun {
		result.Status = "dry_run"
	} else {
		if err := storage.WriteAll(recordsPath, m.Records); err != nil {
			exitWithError(ExitError, "writing records: %v", err)
		}
		mustRebuildDatabase(root)
		if m.Superseded > 0 {
			mustPruneAssignments(root, m.Records)
		}
	}

	if humanOutput {
		printExtractResult(result)
	} else {
		outputJSON(result)
	}
	return nil
}

func printExtractResult(r ExtractResult) {
	for _, a := range r.Archives {
		fmt.Printf("%s (%s): %d records", a.Path, a.Format, a.Parsed)
		if a.Skipped > 0 {
			fmt.Printf(", %d entries skipped", a.Skipped)
		}
		fmt.Println()
	}
	for _, source := range record.ValidSources {
		if s, ok := r.Collapse[source]; ok {
			fmt.Printf("Collapsed %s: %d -> %d\n", source, s.Input, s.Kept)
		}
	}
	verb := "Added"
	if r.Status == "dry_run" {
		verb = "Would add"
	}
	fmt.Printf("%s %d new records (%d already present, %d total)\n", verb, r.Added, r.Unchanged, r.Total)
	if r.Superseded > 0 {
		fmt.Printf("%d stored records replaced by newer near-identical entries\n", r.Superseded)
	}
}

// extractMerge is the outcome of folding extracted records into the store.
type extractMerge struct {
	Records    []record.Record
	Collapse   map[string]collapse.Stats
	Added      int
	Unchanged  int
	Superseded int
}

// mergeExtracted collapses the incoming batch, merges it into the stored
// records, then collapses each source's joined history once more with the
// stored records settled, so that a new entry replaces a near-identical
// stored entry just before it. A negative maxDistance only merges.
func mergeExtracted(existing, incoming []record.Record, maxDistance int) extractMerge {
	var stats map[string]collapse.Stats
	if maxDistance < 0 {
		incoming = append([]record.Record(nil), incoming...)
		record.SortChronologically(incoming)
	} else {
		incoming, stats = collapseBySource(incoming, maxDistance, nil)
	}

	merged, mr := storage.MergeRecords(existing, incoming)

	stored := make(map[string]bool, len(existing))
	for _, r := range existing {
		stored[r.ID] = true
	}
	if maxDistance >= 0 && len(existing) > 0 {
		merged, _ = collapseBySource(merged, maxDistance, func(r record.Record) bool { return stored[r.ID] })
	}

	out := extractMerge{Records: merged, Collapse: stats, Unchanged: mr.Unchanged}
	for _, r := range merged {
		if !stored[r.ID] {
			out.Added++
		}
	}
	out.Superseded = len(existing) - (len(merged) - out.Added)
	return out
}

// collapseBySource sorts records chronologically and collapses consecutive
// near-duplicates within each source. Pairs of records for which settled
// reports true are left alone; settled may be nil. The result is in
// chronological order.
func collapseBySource(records []record.Record, maxDistance int, settled func(record.Record) bool) ([]record.Record, map[string]collapse.Stats) {
	stats := make(map[string]collapse.Stats)
	var out []record.Record

	for _, source := range record.ValidSources {
		group := record.FilterBySource(records, source)
		if len(group) == 0 {
			continue
		}
		record.SortChronologically(group)
		kept, s := collapse.CollapseAppended(group, maxDistance, settled)
		stats[source] = s
		out = append(out, kept...)
	}

	record.SortChronologically(out)
	return out, stats
}
