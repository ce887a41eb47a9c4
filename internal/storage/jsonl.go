// Package storage handles data persistence in JSONL and SQLite formats.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/matsen/diario/internal/record"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
// This constant is shared across all JSONL file readers.
const MaxJSONLLineCapacity = 1024 * 1024

// ReadAll reads all records from a JSONL file.
func ReadAll(path string) ([]record.Record, error) {
	return readJSONL[record.Record](path, "records")
}

// WriteAll writes all records to a JSONL file, replacing existing content.
func WriteAll(path string, records []record.Record) error {
	return writeJSONL(path, "records", records)
}

// MergeResult counts what MergeRecords did.
type MergeResult struct {
	Added     int `json:"added"`
	Unchanged int `json:"unchanged"`
}

// MergeRecords merges incoming records into existing ones by ID. A record
// whose ID is already present replaces the stored copy. The result is
// sorted chronologically.
func MergeRecords(existing, incoming []record.Record) ([]record.Record, MergeResult) {
	var result MergeResult

	merged := make([]record.Record, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, r := range merged {
		index[r.ID] = i
	}

	for _, r := range incoming {
		if i, ok := index[r.ID]; ok {
			merged[i] = r
			result.Unchanged++
			continue
		}
		index[r.ID] = len(merged)
		merged = append(merged, r)
		result.Added++
	}

	record.SortChronologically(merged)
	return merged, result
}

// readJSONL decodes one T per non-empty line. A missing file yields no
// items and no error.
func readJSONL[T any](path, what string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Empty file returns empty slice
		}
		return nil, fmt.Errorf("opening %s file: %w", what, err)
	}
	defer f.Close()

	var items []T
	scanner := bufio.NewScanner(f)

	// Increase buffer size for long lines
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue // Skip empty lines
		}

		var item T
		if err := json.Unmarshal(line, &item); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s file: %w", what, err)
	}

	return items, nil
}

// writeJSONL replaces the file at path with one JSON line per item.
func writeJSONL[T any](path, what string, items []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s file: %w", what, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encoding %s %d: %w", what, i, err)
		}

		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing %s %d: %w", what, i, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing %s file: %w", what, err)
	}
	return f.Close()
}
