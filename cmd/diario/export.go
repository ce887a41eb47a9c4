package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matsen/diario/internal/config"
	"github.com/matsen/diario/internal/record"
	"github.com/matsen/diario/internal/storage"
	"github.com/matsen/diario/internal/topic"
)

// CSVTimeLayout is how timestamps are written to CSV exports.
const CSVTimeLayout = "2006-01-02 15:04:05"

var exportTopics bool

func init() {
	exportCmd.Flags().BoolVar(&exportTopics, "topics", false, "Export topic assignments instead of plain records")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <out.csv>",
	Short: "Export records to CSV",
	Long: `Export records to CSV, oldest first. Use "-" to write to stdout.

Columns:
  default   text,timestamp
  --topics  text,timestamp,Topic_ID,Topic_Name,Probability

Examples:
  diario export records.csv
  diario export --topics - > topics.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

// ExportResult is the response when exporting to a file.
type ExportResult struct {
	Output string `json:"output"`
	Rows   int    `json:"rows"`
}

func runExport(cmd *cobra.Command, args []string) error {
	out := args[0]

	root := mustFindWorkspace()
	db := mustOpenDatabase(root)
	defer db.Close()

	records, err := db.ListAll(0)
	if err != nil {
		exitWithError(ExitError, "listing records: %v", err)
	}

	var assignments []topic.Assignment
	if exportTopics {
		assignments, err = storage.ReadAllAssignments(config.AssignmentsPath(root))
		if err != nil {
			exitWithError(ExitDataError, "reading assignments: %v", err)
		}
		if len(assignments) == 0 {
			exitWithError(ExitNoRecords, "no topic assignments\n\nRun 'diario topics fit' first.")
		}
	}

	var w io.Writer = os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			exitWithError(ExitError, "creating %s: %v", out, err)
		}
		defer f.Close()
		w = f
	}

	var rows int
	if exportTopics {
		rows, err = writeAssignmentsCSV(w, records, assignments)
	} else {
		rows, err = writeRecordsCSV(w, records)
	}
	if err != nil {
		exitWithError(ExitError, "writing CSV: %v", err)
	}

	// CSV on stdout is the output itself
	if out == "-" {
		return nil
	}
	if humanOutput {
		fmt.Printf("Exported %d rows to %s\n", rows, out)
	} else {
		outputJSON(ExportResult{Output: out, Rows: rows})
	}
	return nil
}

// writeRecordsCSV writes one text,timestamp row per record.
func writeRecordsCSV(w io.Writer, records []record.Record) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"text", "timestamp"}); err != nil {
		return 0, err
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Text, r.Timestamp.UTC().Format(CSVTimeLayout)}); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(records), cw.Error()
}

// writeAssignmentsCSV writes one row per record that has a topic assignment,
// in record order.
func writeAssignmentsCSV(w io.Writer, records []record.Record, assignments []topic.Assignment) (int, error) {
	byRecord := make(map[string]topic.Assignment, len(assignments))
	for _, a := range assignments {
		byRecord[a.RecordID] = a
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"text", "timestamp", "Topic_ID", "Topic_Name", "Probability"}); err != nil {
		return 0, err
	}
	rows := 0
	for _, r := range records {
		a, ok := byRecord[r.ID]
		if !ok {
			continue
		}
		row := []string{
			r.Text,
			r.Timestamp.UTC().Format(CSVTimeLayout),
			strconv.Itoa(a.TopicID),
			a.TopicName,
			strconv.FormatFloat(a.Probability, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return 0, err
		}
		rows++
	}
	cw.Flush()
	return rows, cw.Error()
}
