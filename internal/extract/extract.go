// Package extract parses history archives into records.
//
// Each parser returns the records it could read together with the
// per-entry problems it skipped over; only unreadable input is fatal.
package extract

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/matsen/diario/internal/record"
)

// Format names an archive layout. Formats share names with record sources.
type Format string

const (
	FormatChrome  Format = record.SourceChrome
	FormatGemini  Format = record.SourceGemini
	FormatQueries Format = record.SourceQueries
	FormatTitles  Format = record.SourceTitles
)

// Formats lists the supported formats.
var Formats = []Format{FormatChrome, FormatGemini, FormatQueries, FormatTitles}

// Options tunes parsing.
type Options struct {
	// MaxPromptLength drops Gemini prompts of this many characters or more.
	// Zero or negative disables the limit.
	MaxPromptLength int
	// TitleTime is the timestamp given to every chat title. When zero,
	// ParseFile uses the file's modification time.
	TitleTime time.Time
}

// queryLinePattern recognises the leading timestamp of a query line.
var queryLinePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(\.\d+)?: `)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if Format(strings.ToLower(s)) == f {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (valid: chrome, gemini, queries, titles)", s)
}

// Detect guesses the format of the archive at path from its extension and,
// for plain text, its first non-empty line.
func Detect(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatChrome, nil
	case ".html", ".htm":
		return FormatGemini, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return detectText(data), nil
}

func detectText(data []byte) Format {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if queryLinePattern.MatchString(line) {
			return FormatQueries
		}
		return FormatTitles
	}
	return FormatTitles
}

// Parse dispatches data to the parser for format.
func Parse(data []byte, format Format, opts Options) ([]record.Record, []error) {
	switch format {
	case FormatChrome:
		return ParseChrome(data)
	case FormatGemini:
		return ParseGemini(data, opts.MaxPromptLength)
	case FormatQueries:
		return ParseQueries(data)
	case FormatTitles:
		return ParseTitles(data, opts.TitleTime)
	default:
		return nil, []error{fmt.Errorf("unknown format %q", format)}
	}
}

// ParseFile reads and parses the archive at path. An empty format is
// detected from the file. The returned error is non-nil only when the file
// cannot be read at all.
func ParseFile(path string, format Format, opts Options) ([]record.Record, []error, error) {
	if format == "" {
		detected, err := Detect(path)
		if err != nil {
			return nil, nil, err
		}
		format = detected
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if format == FormatTitles && opts.TitleTime.IsZero() {
		opts.TitleTime = info.ModTime().UTC()
	}

	recs, errs := Parse(data, format, opts)
	return recs, errs, nil
}
