package extract

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/matsen/diario/internal/record"
)

// sidebarLabels are UI strings captured along with chat titles when the
// sidebar is scraped.
var sidebarLabels = map[string]bool{
	"Recent":          true,
	"Activity":        true,
	"Settings & help": true,
	"Upgrade":         true,
	"New chat":        true,
}

// ParseTitles parses a chat title list, one title per line. Titles have no
// timestamp of their own, so all of them get ts.
func ParseTitles(data []byte, ts time.Time) ([]record.Record, []error) {
	if ts.IsZero() {
		return nil, []error{fmt.Errorf("parsing titles: no timestamp available")}
	}

	var recs []record.Record
	var errs []error

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		title := strings.TrimSpace(scanner.Text())
		if title == "" || sidebarLabels[title] {
			continue
		}
		recs = append(recs, record.New(record.SourceTitles, title, ts))
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Errorf("reading titles: %w", err))
	}

	return recs, errs
}
