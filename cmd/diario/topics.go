package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/matsen/diario/internal/config"
	"github.com/matsen/diario/internal/record"
	"github.com/matsen/diario/internal/storage"
	"github.com/matsen/diario/internal/topic"
)

var (
	topicsMinSize   int
	topicsShowLimit int
)

func init() {
	rootCmd.AddCommand(topicsCmd)
	topicsCmd.AddCommand(topicsFitCmd)
	topicsCmd.AddCommand(topicsListCmd)
	topicsCmd.AddCommand(topicsShowCmd)

	topicsFitCmd.Flags().IntVar(&topicsMinSize, "min-topic-size", 0, "Smallest cluster kept as a topic (default: topics.min_topic_size from config)")
	topicsShowCmd.Flags().IntVarP(&topicsShowLimit, "limit", "l", 20, "Maximum records to show (0 = all)")
}

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Cluster records into topics",
	Long:  `Commands for fitting, listing and inspecting topics.`,
}

var topicsFitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Cluster indexed records into topics",
	Long: `Cluster the embeddings of indexed records into topics.

Clusters smaller than --min-topic-size become the outlier topic -1. Topics
are numbered by size and named after their most distinctive words, e.g.
"0_python_pandas_dataframe_groupby". Assignments are written to
.diario/topics.jsonl and loaded into the query database.

Requires the semantic index to be built first with 'diario index build'.`,
	Args: cobra.NoArgs,
	RunE: runTopicsFit,
}

// TopicsFitResult is the response for the topics fit command.
type TopicsFitResult struct {
	Status       string        `json:"status"`
	Topics       []topic.Topic `json:"topics"`
	Assigned     int           `json:"assigned"`
	Outliers     int           `json:"outliers"`
	Skipped      int           `json:"skipped"`
	MinTopicSize int           `json:"min_topic_size"`
}

func runTopicsFit(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)

	opts := topic.Options{
		MinTopicSize: cfg.Topics.MinTopicSize,
		Similarity:   cfg.Topics.Similarity,
		Iterations:   cfg.Topics.Iterations,
		TopWords:     cfg.Topics.TopWords,
	}
	if cmd.Flags().Changed("min-topic-size") {
		opts.MinTopicSize = topicsMinSize
	}

	idx := mustLoadSemanticIndex(root)
	db := mustOpenDatabase(root)
	defer db.Close()

	records, err := db.ListAll(0)
	if err != nil {
		exitWithError(ExitError, "listing records: %v", err)
	}

	docs, skipped := documentsFor(records, idx.Vector)
	if len(docs) == 0 {
		exitWithError(ExitNoRecords, "no indexed records to cluster\n\nRun 'diario index build' first.")
	}

	start := time.Now()
	model, err := topic.Fit(docs, opts)
	if err != nil {
		if errors.Is(err, topic.ErrInvalidOptions) {
			exitWithError(ExitConfigError, "%v", err)
		}
		exitWithError(ExitError, "fitting topics: %v", err)
	}
	log.WithFields(log.Fields{
		"documents": len(docs),
		"topics":    len(model.Topics),
		"elapsed":   time.Since(start).String(),
	}).Debug("fitted topics")

	if err := storage.WriteAllAssignments(config.AssignmentsPath(root), model.Assignments); err != nil {
		exitWithError(ExitError, "writing assignments: %v", err)
	}
	if _, err := db.RebuildAssignmentsFromJSONL(config.AssignmentsPath(root)); err != nil {
		exitWithError(ExitError, "loading assignments: %v", err)
	}

	outliers := 0
	for _, a := range model.Assignments {
		if a.IsOutlier() {
			outliers++
		}
	}

	result := TopicsFitResult{
		Status:       "fitted",
		Topics:       model.Info(),
		Assigned:     len(model.Assignments),
		Outliers:     outliers,
		Skipped:      skipped,
		MinTopicSize: opts.MinTopicSize,
	}

	if humanOutput {
		fmt.Printf("Fitted %d topics over %d records (%d outliers, %d not indexed)\n\n",
			len(result.Topics)-boolToInt(outliers > 0), result.Assigned, outliers, skipped)
		printTopicTable(result.Topics)
	} else {
		outputJSON(result)
	}
	return nil
}

// mustPruneAssignments drops the assignments of records no longer stored
// and reloads the assignment table. It returns how many were dropped.
func mustPruneAssignments(root string, records []record.Record) int {
	path := config.AssignmentsPath(root)
	assignments, err := storage.ReadAllAssignments(path)
	if err != nil {
		exitWithError(ExitDataError, "reading assignments: %v", err)
	}

	kept, dropped := keepAssignments(assignments, records)
	if dropped == 0 {
		return 0
	}
	if err := storage.WriteAllAssignments(path, kept); err != nil {
		exitWithError(ExitError, "writing assignments: %v", err)
	}

	db := mustOpenDatabase(root)
	defer db.Close()
	if _, err := db.RebuildAssignmentsFromJSONL(path); err != nil {
		exitWithError(ExitError, "loading assignments: %v", err)
	}

	log.WithField("dropped", dropped).Info("removed topic assignments of deleted records; run 'diario index build' and 'diario topics fit' to refresh")
	return dropped
}

// keepAssignments returns the assignments whose record is in records, in
// their original order, and the number dropped.
func keepAssignments(assignments []topic.Assignment, records []record.Record) ([]topic.Assignment, int) {
	ids := make(map[string]bool, len(records))
	for _, r := range records {
		ids[r.ID] = true
	}
	kept := make([]topic.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if ids[a.RecordID] {
			kept = append(kept, a)
		}
	}
	return kept, len(assignments) - len(kept)
}

// documentsFor pairs records with their embeddings. Records without an
// embedding are counted as skipped.
func documentsFor(records []record.Record, vector func(id string) ([]float32, bool)) ([]topic.Document, int) {
	docs := make([]topic.Document, 0, len(records))
	skipped := 0
	for _, r := range records {
		v, ok := vector(r.ID)
		if !ok {
			skipped++
			continue
		}
		docs = append(docs, topic.Document{ID: r.ID, Text: r.Text, Vector: v})
	}
	return docs, skipped
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List fitted topics",
	Long:  `List fitted topics with their record counts, outlier topic first.`,
	Args:  cobra.NoArgs,
	RunE:  runTopicsList,
}

func runTopicsList(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()

	assignments, err := storage.ReadAllAssignments(config.AssignmentsPath(root))
	if err != nil {
		exitWithError(ExitDataError, "reading assignments: %v", err)
	}
	topics := topic.Summarize(assignments)

	if humanOutput {
		if len(topics) == 0 {
			fmt.Println("No topics fitted yet\n\nRun 'diario topics fit' to cluster records.")
			return nil
		}
		printTopicTable(topics)
		return nil
	}

	outputJSON(topics)
	return nil
}

var topicsShowCmd = &cobra.Command{
	Use:   "show <topic-id>",
	Short: "Show the records of a topic",
	Long: `Show the records assigned to a topic, most representative first.

Example:
  diario topics show 0
  diario topics show -- -1 --limit 50`,
	Args: cobra.ExactArgs(1),
	RunE: runTopicsShow,
}

// TopicShowResponse is the response for the topics show command.
type TopicShowResponse struct {
	TopicID int             `json:"topic_id"`
	Records []record.Record `json:"records"`
	Total   int             `json:"total"`
}

func runTopicsShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		exitWithError(ExitError, "invalid topic id %q", args[0])
	}

	root := mustFindWorkspace()
	db := mustOpenDatabase(root)
	defer db.Close()

	records, err := db.ListRecordsByTopic(id, topicsShowLimit)
	if err != nil {
		exitWithError(ExitError, "listing topic records: %v", err)
	}
	if records == nil {
		records = []record.Record{}
	}

	if humanOutput {
		if len(records) == 0 {
			fmt.Printf("No records in topic %d\n", id)
			return nil
		}
		fmt.Printf("Topic %d: %d records\n\n", id, len(records))
		for _, r := range records {
			printRecordLine(r)
		}
		return nil
	}

	outputJSON(TopicShowResponse{
		TopicID: id,
		Records: records,
		Total:   len(records),
	})
	return nil
}

func printTopicTable(topics []topic.Topic) {
	fmt.Printf("%6s  %7s  %s\n", "Topic", "Count", "Name")
	for _, t := range topics {
		fmt.Printf("%6d  %7d  %s\n", t.ID, t.Count, t.Name)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
