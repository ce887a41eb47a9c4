package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/matsen/diario/internal/record"
)

// promptPattern splits a flattened activity cell into the prompt and the
// date that follows it.
var promptPattern = regexp.MustCompile(`(?s)^Gemini AppsPrompted(.*?)([A-Z][a-z]{2}\s+\d{1,2},\s+\d{4})`)

// clockPattern picks up the time of day that Takeout prints after the date.
var clockPattern = regexp.MustCompile(`^,?\s*(\d{1,2}:\d{2}:\d{2})\s*([AP]M)`)

const (
	geminiDateLayout     = "Jan 2, 2006"
	geminiDateTimeLayout = "Jan 2, 2006 3:04:05 PM"
)

// spaceReplacer folds the non-breaking spaces Takeout puts around times.
var spaceReplacer = strings.NewReplacer("\u00a0", " ", "\u202f", " ")

// ParseGemini parses a Gemini Apps MyActivity.html export. Cells that are
// not prompts are ignored, as are prompts of maxPromptLength characters or
// more when maxPromptLength is positive.
func ParseGemini(data []byte, maxPromptLength int) ([]record.Record, []error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, []error{fmt.Errorf("parsing Gemini activity: %w", err)}
	}

	var recs []record.Record
	var errs []error

	cell := 0
	for _, n := range findOuterCells(doc) {
		cell++
		text := spaceReplacer.Replace(strippedText(n))

		m := promptPattern.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}
		prompt := strings.TrimSpace(text[m[2]:m[3]])
		date := text[m[4]:m[5]]

		if prompt == "" {
			continue
		}
		if maxPromptLength > 0 && utf8.RuneCountInString(prompt) >= maxPromptLength {
			continue
		}

		ts, err := parseGeminiTime(date, text[m[1]:])
		if err != nil {
			errs = append(errs, fmt.Errorf("cell %d: %w", cell, err))
			continue
		}

		recs = append(recs, record.New(record.SourceGemini, prompt, ts))
	}

	return recs, errs
}

// parseGeminiTime parses "Jan 2, 2006" plus the clock time at the start of
// rest, if any. Zone abbreviations are ignored and the result is UTC.
func parseGeminiTime(date, rest string) (time.Time, error) {
	date = strings.Join(strings.Fields(date), " ")

	if c := clockPattern.FindStringSubmatch(rest); c != nil {
		if ts, err := time.Parse(geminiDateTimeLayout, date+" "+c[1]+" "+c[2]); err == nil {
			return ts, nil
		}
	}

	ts, err := time.Parse(geminiDateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", date)
	}
	return ts, nil
}

// findOuterCells returns every div whose class list contains "outer-cell",
// in document order.
func findOuterCells(root *html.Node) []*html.Node {
	var cells []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Div && hasClass(n, "outer-cell") {
			cells = append(cells, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return cells
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

// strippedText concatenates the trimmed, non-empty text nodes under n.
// Script and style contents are skipped.
func strippedText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				b.WriteString(s)
			}
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
