package extract

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/matsen/diario/internal/record"
)

// queryTimeLayout is the timestamp prefix of a query line. Fractional
// seconds are accepted when present.
const queryTimeLayout = "2006-01-02 15:04:05"

// ParseQueries parses lines of the form "YYYY-MM-DD HH:MM:SS.ffffff: text".
// Timestamps carry no zone and are read as UTC.
func ParseQueries(data []byte) ([]record.Record, []error) {
	var recs []record.Record
	var errs []error

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		stamp, text, ok := strings.Cut(line, ": ")
		if !ok {
			errs = append(errs, fmt.Errorf("line %d: missing \": \" separator", lineNum))
			continue
		}

		ts, err := time.Parse(queryTimeLayout, strings.TrimSpace(stamp))
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: invalid timestamp %q", lineNum, stamp))
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			errs = append(errs, fmt.Errorf("line %d: empty query", lineNum))
			continue
		}

		recs = append(recs, record.New(record.SourceQueries, text, ts))
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Errorf("reading queries: %w", err))
	}

	return recs, errs
}
