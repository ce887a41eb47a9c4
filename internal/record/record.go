// Package record defines the core domain type for history entries.
package record

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source names identify which archive a record was extracted from.
const (
	SourceChrome  = "chrome"  // Google Takeout browser history (History.json)
	SourceGemini  = "gemini"  // Gemini Apps activity (MyActivity.html)
	SourceQueries = "queries" // "timestamp: query" text file
	SourceTitles  = "titles"  // chat title list, one per line
)

// ValidSources lists the supported source names.
var ValidSources = []string{SourceChrome, SourceGemini, SourceQueries, SourceTitles}

// namespace scopes name-based record IDs so they never collide with other UUIDv5 users.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/matsen/diario/record"))

// Errors returned by Validate.
var (
	ErrEmptyText        = errors.New("record text is empty")
	ErrMissingTimestamp = errors.New("record timestamp is missing")
	ErrUnknownSource    = errors.New("unknown record source")
)

// Record is a single history entry: a piece of text and when it happened.
// Records are treated as immutable once created.
type Record struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates a record with a deterministic ID derived from its content.
func New(source, text string, ts time.Time) Record {
	return Record{
		ID:        NewID(source, text, ts),
		Source:    source,
		Text:      text,
		Timestamp: ts,
	}
}

// NewID returns a name-based UUID for the given source, text and timestamp.
// Extracting the same archive twice yields the same IDs.
func NewID(source, text string, ts time.Time) string {
	name := source + "\x00" + ts.UTC().Format(time.RFC3339Nano) + "\x00" + text
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

// IsValidSource reports whether s is one of ValidSources.
func IsValidSource(s string) bool {
	for _, v := range ValidSources {
		if s == v {
			return true
		}
	}
	return false
}

// Validate checks that a record is well formed.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyText
	}
	if !IsValidSource(r.Source) {
		return fmt.Errorf("%w: %q", ErrUnknownSource, r.Source)
	}
	if r.Timestamp.IsZero() {
		return ErrMissingTimestamp
	}
	return nil
}

// SortChronologically stable-sorts records by timestamp, oldest first.
// Records sharing a timestamp keep their relative order.
func SortChronologically(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
}

// FilterBySource returns the records whose Source equals source.
// An empty source returns all records.
func FilterBySource(records []Record, source string) []Record {
	if source == "" {
		return records
	}
	var out []Record
	for _, r := range records {
		if r.Source == source {
			out = append(out, r)
		}
	}
	return out
}
