package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/matsen/diario/internal/record"
	"github.com/matsen/diario/internal/semantic"
	"github.com/matsen/diario/internal/storage"
)

// Constants for output formatting.
// Names indicate the context where each constant is used.
const (
	DefaultSearchLimit = 50 // Default limit for keyword search

	// Text truncation lengths by context
	SearchTextMaxLen = 70 // Used in search result summaries
	ListTextMaxLen   = 60 // Used in list command output

	// Text wrapping widths
	DetailTextWrapWidth = 68 // Wrap for detail views

	// HumanTimeLayout is how timestamps are shown in human output.
	HumanTimeLayout = "2006-01-02 15:04"
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputJSONCompact writes a value as compact JSON to stdout.
func outputJSONCompact(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	closeLog()
	os.Exit(code)
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RecordSearchResult is a record in semantic search and similar-record results.
type RecordSearchResult struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Similarity float32   `json:"similarity"`
	L2Score    *float32  `json:"l2_score,omitempty"`
}

// buildSearchResults converts semantic search results to RecordSearchResult slice.
// When query is non-nil the L2 score of every result against it is included.
//
// Records that exist in the semantic index but are not found in the database
// (e.g., dropped by a later collapse) are silently skipped.
func buildSearchResults(results []semantic.SearchResult, db *storage.DB, idx *semantic.SemanticIndex, query []float32) []RecordSearchResult {
	out := make([]RecordSearchResult, 0, len(results))
	for _, r := range results {
		rec, err := db.GetByID(r.RecordID)
		if err != nil || rec == nil {
			continue // Skip records deleted from DB after indexing
		}
		result := RecordSearchResult{
			ID:         rec.ID,
			Source:     rec.Source,
			Text:       rec.Text,
			Timestamp:  rec.Timestamp,
			Similarity: r.Similarity,
		}
		if query != nil {
			if vec, ok := idx.Vector(r.RecordID); ok {
				score := semantic.L2Score(query, vec)
				result.L2Score = &score
			}
		}
		out = append(out, result)
	}
	return out
}

// printSearchResultsHuman prints search results in human-readable format.
// This is used by semantic search, similar records and the ask loop.
func printSearchResultsHuman(results []RecordSearchResult) {
	if len(results) == 0 {
		fmt.Println("No matching records")
		return
	}
	for i, r := range results {
		if r.L2Score != nil {
			fmt.Printf("%d. [%.2f | L2 %.3f] %s\n", i+1, r.Similarity, *r.L2Score, r.ID)
		} else {
			fmt.Printf("%d. [%.2f] %s\n", i+1, r.Similarity, r.ID)
		}
		fmt.Printf("   %s\n", truncateString(r.Text, SearchTextMaxLen))
		fmt.Printf("   %s  %s\n\n", r.Timestamp.Format(HumanTimeLayout), r.Source)
	}
}

// printRecordLine prints one record as a single list line.
func printRecordLine(r record.Record) {
	fmt.Printf("  %s  %-7s  %s\n", r.Timestamp.Format(HumanTimeLayout), r.Source, truncateString(r.Text, ListTextMaxLen))
}

// truncateString truncates a string to maxLen characters, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string([]rune(s)[:maxLen])
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}

// wrapText wraps text to the specified width with indentation on subsequent lines.
func wrapText(text string, width int, indent string) string {
	if utf8.RuneCountInString(text) <= width {
		return text
	}

	var lines []string
	words := strings.Fields(text)
	var currentLine strings.Builder
	lineLen := 0

	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)
		if lineLen == 0 {
			currentLine.WriteString(word)
			lineLen = wordLen
		} else if lineLen+1+wordLen <= width {
			currentLine.WriteString(" ")
			currentLine.WriteString(word)
			lineLen += 1 + wordLen
		} else {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
			lineLen = wordLen
		}
	}
	if lineLen > 0 {
		lines = append(lines, currentLine.String())
	}

	return strings.Join(lines, "\n"+indent)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

// formatBytes formats bytes in a human-readable way.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
