package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/diario/internal/collapse"
	"github.com/matsen/diario/internal/record"
	"github.com/matsen/diario/internal/storage"
	"github.com/matsen/diario/internal/topic"
)

func at(minute int) time.Time {
	return time.Date(2025, 1, 15, 10, minute, 0, 0, time.UTC)
}

func TestCollapseBySource(t *testing.T) {
	records := []record.Record{
		record.New(record.SourceQueries, "golang channels", at(2)),
		record.New(record.SourceGemini, "explain channels", at(1)),
		record.New(record.SourceQueries, "golang channel", at(1)),
		record.New(record.SourceGemini, "explain channels in go", at(3)),
		record.New(record.SourceQueries, "sourdough", at(4)),
	}

	got, stats := collapseBySource(records, 3, nil)

	var texts []string
	for _, r := range got {
		texts = append(texts, r.Text)
	}
	want := []string{"explain channels", "golang channels", "explain channels in go", "sourdough"}
	if strings.Join(texts, "|") != strings.Join(want, "|") {
		t.Errorf("collapseBySource() texts = %v, want %v", texts, want)
	}

	if s := stats[record.SourceQueries]; s.Input != 3 || s.Kept != 2 || s.Merged != 1 {
		t.Errorf("queries stats = %+v", s)
	}
	if s := stats[record.SourceGemini]; s.Input != 2 || s.Kept != 2 {
		t.Errorf("gemini stats = %+v", s)
	}
	if _, ok := stats[record.SourceChrome]; ok {
		t.Error("sources without records should have no stats")
	}
}

func TestCollapseBySource_NegativeDistanceKeepsAll(t *testing.T) {
	records := []record.Record{
		record.New(record.SourceTitles, "same", at(1)),
		record.New(record.SourceTitles, "same", at(2)),
	}
	got, _ := collapseBySource(records, -1, nil)
	if len(got) != 2 {
		t.Errorf("got %d records, want 2", len(got))
	}
}

// adjacentNearDuplicates returns the first pair of consecutive same-source
// records within maxDistance, if any.
func adjacentNearDuplicates(records []record.Record, maxDistance int) (string, bool) {
	for _, source := range record.ValidSources {
		group := record.FilterBySource(records, source)
		for i := 1; i < len(group); i++ {
			if collapse.Distance(group[i-1].Text, group[i].Text) <= maxDistance {
				return group[i-1].Text + " / " + group[i].Text, true
			}
		}
	}
	return "", false
}

func TestMergeExtracted_CumulativeArchive(t *testing.T) {
	first := []record.Record{
		record.New(record.SourceQueries, "kubernetes ingress", at(1)),
		record.New(record.SourceQueries, "golang maps", at(2)),
	}
	stored := mergeExtracted(nil, first, 3)
	if stored.Added != 2 || stored.Superseded != 0 {
		t.Fatalf("first extract = %+v", stored)
	}

	// A later export repeats everything and ends with a corrected query.
	second := append(append([]record.Record{}, first...),
		record.New(record.SourceQueries, "golang map", at(3)))
	got := mergeExtracted(stored.Records, second, 3)

	if pair, found := adjacentNearDuplicates(got.Records, 3); found {
		t.Errorf("adjacent near-duplicates stored: %s", pair)
	}
	var texts []string
	for _, r := range got.Records {
		texts = append(texts, r.Text)
	}
	if strings.Join(texts, "|") != "kubernetes ingress|golang map" {
		t.Errorf("records = %v", texts)
	}
	if got.Added != 1 || got.Superseded != 1 || got.Unchanged != 1 {
		t.Errorf("merge = added %d, superseded %d, unchanged %d; want 1, 1, 1", got.Added, got.Superseded, got.Unchanged)
	}

	again := mergeExtracted(got.Records, second, 3)
	if again.Added != 0 || again.Superseded != 0 || len(again.Records) != 2 {
		t.Errorf("re-extracting = %+v, want no change", again)
	}
}

func TestMergeExtracted_StoredRunsStay(t *testing.T) {
	// Stored with collapsing off.
	existing := []record.Record{
		record.New(record.SourceQueries, "golang maps", at(1)),
		record.New(record.SourceQueries, "golang mapz", at(2)),
	}
	incoming := []record.Record{
		record.New(record.SourceQueries, "sourdough starter", at(3)),
		record.New(record.SourceGemini, "golang mapx", at(4)),
	}

	got := mergeExtracted(existing, incoming, 3)
	if len(got.Records) != 4 || got.Added != 2 || got.Superseded != 0 {
		t.Errorf("merge = %+v", got)
	}
}

func TestMergeExtracted_NoCollapse(t *testing.T) {
	existing := []record.Record{record.New(record.SourceQueries, "golang maps", at(1))}
	incoming := []record.Record{
		record.New(record.SourceQueries, "golang map", at(3)),
		record.New(record.SourceQueries, "golang mapz", at(2)),
	}

	got := mergeExtracted(existing, incoming, -1)
	if len(got.Records) != 3 || got.Added != 2 || got.Collapse != nil {
		t.Errorf("merge = %+v", got)
	}
	if got.Records[1].Text != "golang mapz" {
		t.Errorf("records not chronological: %v", got.Records)
	}
}

func TestKeepAssignments(t *testing.T) {
	records := []record.Record{{ID: "a"}, {ID: "c"}}
	assignments := []topic.Assignment{
		{RecordID: "a", TopicID: 0},
		{RecordID: "b", TopicID: 0},
		{RecordID: "c", TopicID: topic.OutlierID},
	}

	kept, dropped := keepAssignments(assignments, records)
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if len(kept) != 2 || kept[0].RecordID != "a" || kept[1].RecordID != "c" {
		t.Errorf("kept = %+v", kept)
	}
}

type countingCloser struct{ closed int }

func (c *countingCloser) Close() error {
	c.closed++
	return nil
}

func TestCloseLog(t *testing.T) {
	c := &countingCloser{}
	logCloser = c
	t.Cleanup(func() { logCloser = nil })

	closeLog()
	closeLog()

	if c.closed != 1 {
		t.Errorf("Close called %d times, want 1", c.closed)
	}
	if logCloser != nil {
		t.Error("logCloser should be cleared after closing")
	}
}

func TestAskLoop(t *testing.T) {
	in := strings.NewReader("golang\n\n   \nsourdough starter\nEXIT\nnever asked\n")
	var prompts bytes.Buffer
	var asked []string

	err := askLoop(in, &prompts, func(q string) error {
		asked = append(asked, q)
		return nil
	})
	if err != nil {
		t.Fatalf("askLoop() error = %v", err)
	}

	if strings.Join(asked, "|") != "golang|sourdough starter" {
		t.Errorf("asked = %v", asked)
	}
	if n := strings.Count(prompts.String(), "Query > "); n != 5 {
		t.Errorf("prompt shown %d times, want 5", n)
	}
}

func TestAskLoop_EOF(t *testing.T) {
	var asked int
	err := askLoop(strings.NewReader("one"), &bytes.Buffer{}, func(string) error {
		asked++
		return nil
	})
	if err != nil || asked != 1 {
		t.Errorf("askLoop() = %v after %d queries, want nil after 1", err, asked)
	}
}

func TestAskLoop_AnswerError(t *testing.T) {
	boom := errors.New("ollama down")
	err := askLoop(strings.NewReader("q\n"), &bytes.Buffer{}, func(string) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("askLoop() error = %v, want %v", err, boom)
	}
}

func TestWriteRecordsCSV(t *testing.T) {
	records := []record.Record{
		{ID: "a", Source: record.SourceQueries, Text: "plain", Timestamp: at(1)},
		{ID: "b", Source: record.SourceGemini, Text: "has, comma and \"quotes\"", Timestamp: at(2)},
	}

	var buf bytes.Buffer
	n, err := writeRecordsCSV(&buf, records)
	if err != nil {
		t.Fatalf("writeRecordsCSV() error = %v", err)
	}
	if n != 2 {
		t.Errorf("rows = %d, want 2", n)
	}

	want := "text,timestamp\n" +
		"plain,2025-01-15 10:01:00\n" +
		"\"has, comma and \"\"quotes\"\"\",2025-01-15 10:02:00\n"
	if buf.String() != want {
		t.Errorf("CSV =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteAssignmentsCSV(t *testing.T) {
	records := []record.Record{
		{ID: "a", Text: "golang", Timestamp: at(1)},
		{ID: "b", Text: "unassigned", Timestamp: at(2)},
		{ID: "c", Text: "misc", Timestamp: at(3)},
	}
	assignments := []topic.Assignment{
		{RecordID: "c", TopicID: topic.OutlierID, TopicName: "-1_misc", Probability: 0},
		{RecordID: "a", TopicID: 0, TopicName: "0_golang", Probability: 0.875},
	}

	var buf bytes.Buffer
	n, err := writeAssignmentsCSV(&buf, records, assignments)
	if err != nil {
		t.Fatalf("writeAssignmentsCSV() error = %v", err)
	}
	if n != 2 {
		t.Errorf("rows = %d, want 2", n)
	}

	want := "text,timestamp,Topic_ID,Topic_Name,Probability\n" +
		"golang,2025-01-15 10:01:00,0,0_golang,0.875\n" +
		"misc,2025-01-15 10:03:00,-1,-1_misc,0\n"
	if buf.String() != want {
		t.Errorf("CSV =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestToTrendCounts(t *testing.T) {
	rows := []storage.MonthlyTopicCount{
		{Month: "2024-02-29", TopicName: "0_golang", Count: 3},
		{Month: "2024-03-31", TopicName: "-1_misc", Count: 1},
	}
	counts, err := toTrendCounts(rows)
	if err != nil {
		t.Fatalf("toTrendCounts() error = %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("got %d counts, want 2", len(counts))
	}
	if !counts[0].Month.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) || counts[0].Topic != "0_golang" || counts[0].Count != 3 {
		t.Errorf("counts[0] = %+v", counts[0])
	}

	if _, err := toTrendCounts([]storage.MonthlyTopicCount{{Month: "bad"}}); err == nil {
		t.Error("toTrendCounts() should reject malformed months")
	}
}

func TestDocumentsFor(t *testing.T) {
	records := []record.Record{
		{ID: "a", Text: "indexed"},
		{ID: "b", Text: "   "},
		{ID: "c", Text: "also indexed"},
	}
	vectors := map[string][]float32{
		"a": {1, 0},
		"c": {0, 1},
	}
	lookup := func(id string) ([]float32, bool) {
		v, ok := vectors[id]
		return v, ok
	}

	docs, skipped := documentsFor(records, lookup)
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if len(docs) != 2 || docs[0].ID != "a" || docs[1].ID != "c" || docs[1].Text != "also indexed" {
		t.Errorf("docs = %+v", docs)
	}
}

func TestConfigBackedFlagsHaveNoBuiltinDefault(t *testing.T) {
	tests := []struct {
		name string
		cmd  *cobra.Command
		flag string
	}{
		{"extract", extractCmd, "max-distance"},
		{"collapse", collapseCmd, "max-distance"},
		{"topics fit", topicsFitCmd, "min-topic-size"},
		{"semantic", semanticCmd, "limit"},
		{"ask", askCmd, "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.cmd.Flags().Lookup(tt.flag)
			if f == nil {
				t.Fatalf("--%s not registered", tt.flag)
			}
			// cobra omits "(default 0)", leaving only the config hint.
			if f.DefValue != "0" {
				t.Errorf("--%s default = %q, want 0", tt.flag, f.DefValue)
			}
			if !strings.Contains(f.Usage, "from config") && !strings.Contains(f.Usage, "default: ") {
				t.Errorf("--%s usage %q does not say where the default comes from", tt.flag, f.Usage)
			}
		})
	}
}
