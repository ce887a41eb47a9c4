package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/matsen/diario/internal/record"
)

// ParseChrome parses a Google Takeout History.json export. Each entry of
// the "Browser History" array contributes its title and time_usec.
// Records come back in archive order.
func ParseChrome(data []byte) ([]record.Record, []error) {
	if !gjson.ValidBytes(data) {
		return nil, []error{fmt.Errorf("parsing Chrome history: invalid JSON")}
	}

	history := gjson.GetBytes(data, "Browser History")
	if !history.Exists() || !history.IsArray() {
		return nil, []error{fmt.Errorf("parsing Chrome history: missing \"Browser History\" array")}
	}

	var recs []record.Record
	var errs []error

	i := 0
	history.ForEach(func(_, entry gjson.Result) bool {
		i++
		title := strings.TrimSpace(entry.Get("title").String())
		if title == "" {
			errs = append(errs, fmt.Errorf("entry %d: missing title", i))
			return true
		}

		usec := entry.Get("time_usec")
		if !usec.Exists() || usec.Int() <= 0 {
			errs = append(errs, fmt.Errorf("entry %d (%s): missing time_usec", i, title))
			return true
		}

		recs = append(recs, record.New(record.SourceChrome, title, time.UnixMicro(usec.Int()).UTC()))
		return true
	})

	return recs, errs
}
