// Package semantic provides meaning-based search over record texts.
package semantic

import "time"

// SemanticIndex holds embeddings for all indexed records.
type SemanticIndex struct {
	// Version is the format version for compatibility checking.
	// Check against CurrentIndexVersion when loading.
	Version int `json:"version"`

	// Metadata about the index
	ModelName       string    `json:"model_name"`        // e.g., "all-minilm:l6-v2"
	Dimensions      int       `json:"dimensions"`        // 384 for all-minilm
	CreatedAt       time.Time `json:"created_at"`        // When index was built
	RecordCount     int       `json:"record_count"`      // Number of records indexed
	SkippedCount    int       `json:"skipped_count"`     // Records skipped (blank text)
	BuildDurationMs int64     `json:"build_duration_ms"` // Time to build in milliseconds

	// Embeddings map record IDs to their vector embeddings
	Embeddings map[string][]float32 `json:"-"` // Not included in JSON output

	// TextHashes map record IDs to the hash of the text that was embedded
	TextHashes map[string]string `json:"-"`
}

// SearchResult represents a record found by semantic search.
type SearchResult struct {
	RecordID   string  `json:"id"`
	Similarity float32 `json:"similarity"`
}

// BuildStats contains statistics from index building.
type BuildStats struct {
	RecordsIndexed  int           `json:"records_indexed"`
	RecordsEmbedded int           `json:"records_embedded"`
	RecordsReused   int           `json:"records_reused"`
	RecordsSkipped  int           `json:"records_skipped"`
	Duration        time.Duration `json:"duration"`
	IndexSizeBytes  int64         `json:"index_size_bytes"`
}

// StaleReport describes how an index differs from the current records.
type StaleReport struct {
	Missing  []string `json:"missing,omitempty"`  // records with no embedding
	Changed  []string `json:"changed,omitempty"`  // records whose text changed since indexing
	Orphaned []string `json:"orphaned,omitempty"` // embeddings whose record is gone
}

// IsStale reports whether the index needs rebuilding.
func (r StaleReport) IsStale() bool {
	return len(r.Missing) > 0 || len(r.Changed) > 0 || len(r.Orphaned) > 0
}
