// Package collapse merges runs of near-identical consecutive records.
//
// Each record is compared only with the last record kept so far. A record
// within the edit-distance threshold replaces that last record (the newer
// one wins), otherwise it is appended. Two similar records separated by a
// dissimilar one are therefore both kept.
package collapse

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/matsen/diario/internal/record"
)

// DefaultMaxDistance is the edit distance at or below which two consecutive
// entries count as the same entry.
const DefaultMaxDistance = 7

// Stats summarizes a collapse pass.
type Stats struct {
	Input  int `json:"input"`
	Kept   int `json:"kept"`
	Merged int `json:"merged"`
}

// Distance returns the case-insensitive edit distance between a and b.
// Only case is folded; whitespace and punctuation count as characters.
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(strings.ToLower(a), strings.ToLower(b))
}

// Collapse returns records with consecutive near-duplicates merged.
// The input slice is not modified. A negative maxDistance never merges.
func Collapse(records []record.Record, maxDistance int) []record.Record {
	kept, _ := CollapseWithStats(records, maxDistance)
	return kept
}

// CollapseWithStats is Collapse that also reports how many records merged.
func CollapseWithStats(records []record.Record, maxDistance int) ([]record.Record, Stats) {
	return collapse(records, maxDistance, nil)
}

// CollapseAppended collapses a sequence in which some records were already
// collapsed in an earlier pass. Two settled records are never merged again;
// a new record may still replace the settled record kept just before it, and
// a settled record may replace a new one.
func CollapseAppended(records []record.Record, maxDistance int, settled func(record.Record) bool) ([]record.Record, Stats) {
	return collapse(records, maxDistance, settled)
}

func collapse(records []record.Record, maxDistance int, settled func(record.Record) bool) ([]record.Record, Stats) {
	kept := make([]record.Record, 0, len(records))
	stats := Stats{Input: len(records)}

	for _, r := range records {
		if len(kept) == 0 {
			kept = append(kept, r)
			continue
		}

		last := len(kept) - 1
		if settled != nil && settled(r) && settled(kept[last]) {
			kept = append(kept, r)
			continue
		}
		if maxDistance >= 0 && Distance(r.Text, kept[last].Text) <= maxDistance {
			kept[last] = r
			stats.Merged++
			continue
		}
		kept = append(kept, r)
	}

	stats.Kept = len(kept)
	return kept, stats
}
