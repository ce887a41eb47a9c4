package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/diario/internal/collapse"
	"github.com/matsen/diario/internal/config"
	"github.com/matsen/diario/internal/record"
	"github.com/matsen/diario/internal/storage"
)

var (
	collapseMaxDistance int
	collapseSource      string
	collapseDryRun      bool
)

func init() {
	collapseCmd.Flags().IntVar(&collapseMaxDistance, "max-distance", 0, "Edit distance at or below which consecutive entries collapse (default: max_distance from config)")
	collapseCmd.Flags().StringVar(&collapseSource, "source", "", "Only collapse records from this source")
	collapseCmd.Flags().BoolVar(&collapseDryRun, "dry-run", false, "Report what would be removed without writing")
	rootCmd.AddCommand(collapseCmd)
}

var collapseCmd = &cobra.Command{
	Use:   "collapse",
	Short: "Collapse near-duplicate consecutive records",
	Long: `Re-run the near-duplicate collapser over stored records.

Records of each source are walked in chronological order; an entry within
--max-distance edits (case-insensitive) of the last kept entry replaces it.
Useful after lowering max_distance or after extracting with --no-collapse.
Topic assignments of removed records are dropped; run 'diario index build'
to drop their embeddings and 'diario topics fit' to renumber topics.

Examples:
  diario collapse --dry-run
  diario collapse --source queries --max-distance 3`,
	Args: cobra.NoArgs,
	RunE: runCollapse,
}

// CollapseResult is the response for the collapse command.
type CollapseResult struct {
	Status      string                    `json:"status"`
	MaxDistance int                       `json:"max_distance"`
	Sources     map[string]collapse.Stats `json:"sources"`
	Removed     int                       `json:"removed"`
	Unassigned  int                       `json:"unassigned"`
	Total       int                       `json:"total"`
}

func runCollapse(cmd *cobra.Command, args []string) error {
	if collapseSource != "" && !record.IsValidSource(collapseSource) {
		exitWithError(ExitError, "unknown source %q", collapseSource)
	}

	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)

	maxDistance := cfg.MaxDistance
	if cmd.Flags().Changed("max-distance") {
		maxDistance = collapseMaxDistance
	}

	recordsPath := config.RecordsPath(root)
	records, err := storage.ReadAll(recordsPath)
	if err != nil {
		exitWithError(ExitDataError, "reading records: %v", err)
	}

	var target, rest []record.Record
	for _, r := range records {
		if collapseSource == "" || r.Source == collapseSource {
			target = append(target, r)
		} else {
			rest = append(rest, r)
		}
	}

	kept, stats := collapseBySource(target, maxDistance, nil)
	result := append(rest, kept...)
	record.SortChronologically(result)

	res := CollapseResult{
		Status:      "collapsed",
		MaxDistance: maxDistance,
		Sources:     stats,
		Removed:     len(records) - len(result),
		Total:       len(result),
	}

	if collapseDryRun {
		res.Status = "dry_run"
	} else if res.Removed > 0 {
		if err := storage.WriteAll(recordsPath, result); err != nil {
			exitWithError(ExitError, "writing records: %v", err)
		}
		mustRebuildDatabase(root)
		res.Unassigned = mustPruneAssignments(root, result)
	}

	if humanOutput {
		for _, source := range record.ValidSources {
			if s, ok := stats[source]; ok {
				fmt.Printf("%-8s %d -> %d\n", source+":", s.Input, s.Kept)
			}
		}
		verb := "Removed"
		if collapseDryRun {
			verb = "Would remove"
		}
		fmt.Printf("%s %d records (%d remain)\n", verb, res.Removed, res.Total)
		if res.Unassigned > 0 {
			fmt.Printf("Dropped %d topic assignments of removed records\n", res.Unassigned)
		}
	} else {
		outputJSON(res)
	}
	return nil
}
