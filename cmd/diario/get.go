package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/diario/internal/record"
	"github.com/matsen/diario/internal/topic"
)

func init() {
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a single record by ID",
	Long: `Get a single record by its ID, with its topic when topics have been fitted.

Example:
  diario get 3f2a9c1e-5b7d-5e8f-9a0b-1c2d3e4f5a6b`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

// GetResult is the response for the get command.
type GetResult struct {
	record.Record
	Topic *topic.Assignment `json:"topic,omitempty"`
}

func runGet(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	db := mustOpenDatabase(root)
	defer db.Close()

	id := args[0]
	rec, err := db.GetByID(id)
	if err != nil {
		exitWithError(ExitError, "getting record: %v", err)
	}
	if rec == nil {
		exitWithError(ExitError, "record not found: %s", id)
	}

	assignment, err := db.GetAssignment(id)
	if err != nil {
		exitWithError(ExitError, "getting topic assignment: %v", err)
	}

	if humanOutput {
		printRecordDetail(*rec, assignment)
	} else {
		outputJSON(GetResult{Record: *rec, Topic: assignment})
	}

	return nil
}

func printRecordDetail(r record.Record, a *topic.Assignment) {
	fmt.Println(r.ID)
	fmt.Println(strings.Repeat("═", 70))
	fmt.Println()

	fmt.Printf("Source:   %s\n", r.Source)
	fmt.Printf("Time:     %s\n", r.Timestamp.Format("2006-01-02 15:04:05 MST"))
	if a != nil {
		fmt.Printf("Topic:    %s (p=%.2f)\n", a.TopicName, a.Probability)
	}

	fmt.Println()
	fmt.Println("Text:")
	fmt.Printf("  %s\n", wrapText(r.Text, DetailTextWrapWidth, "  "))
}
