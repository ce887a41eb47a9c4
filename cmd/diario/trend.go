package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/matsen/diario/internal/storage"
	"github.com/matsen/diario/internal/trend"
)

var (
	trendHTML   string
	trendTopics []string
	trendTitle  string
)

func init() {
	trendCmd.Flags().StringVar(&trendHTML, "html", "", "Write an interactive chart to this file")
	trendCmd.Flags().StringArrayVar(&trendTopics, "topic", nil, "Only include this topic name (repeatable)")
	trendCmd.Flags().StringVar(&trendTitle, "title", trend.DefaultTitle, "Chart title")
	rootCmd.AddCommand(trendCmd)
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Monthly topic counts over time",
	Long: `Count records per topic per month, keyed by the last day of the month.

With --html, writes a self-contained line chart (plotly.js from CDN). Every
topic starts hidden; click legend entries to toggle them.

Requires topics to be fitted first with 'diario topics fit'.

Examples:
  diario trend --human
  diario trend --html trend.html
  diario trend --topic 0_python_pandas_dataframe_groupby --html python.html`,
	Args: cobra.NoArgs,
	RunE: runTrend,
}

// TrendHTMLResult is the response when a chart file is written.
type TrendHTMLResult struct {
	Output string `json:"output"`
	Series int    `json:"series"`
}

func runTrend(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	db := mustOpenDatabase(root)
	defer db.Close()

	if n, err := db.CountAssignments(); err == nil && n == 0 {
		log.Warn("no topic assignments; run 'diario topics fit' first")
	}

	rows, err := db.MonthlyTopicCounts(trendTopics)
	if err != nil {
		exitWithError(ExitError, "counting topics: %v", err)
	}
	counts, err := toTrendCounts(rows)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	series := trend.BuildSeries(counts, trendTopics)

	if trendHTML != "" {
		html, err := trend.GenerateHTML(series, trend.HTMLOptions{Title: trendTitle})
		if err != nil {
			exitWithError(ExitError, "generating HTML: %v", err)
		}
		if err := os.WriteFile(trendHTML, []byte(html), 0644); err != nil {
			exitWithError(ExitError, "writing output file: %v", err)
		}
		if humanOutput {
			fmt.Printf("Chart of %d topics written to %s\n", len(series), trendHTML)
		} else {
			outputJSON(TrendHTMLResult{Output: trendHTML, Series: len(series)})
		}
		return nil
	}

	if humanOutput {
		if len(series) == 0 {
			fmt.Println("No topic assignments\n\nRun 'diario topics fit' to cluster records.")
			return nil
		}
		for _, s := range series {
			fmt.Printf("%s (%d)\n", s.Topic, s.Total())
			for _, p := range s.Points {
				fmt.Printf("  %s  %5d\n", p.Month.Format("Jan 2006"), p.Count)
			}
			fmt.Println()
		}
		return nil
	}

	if series == nil {
		series = []trend.Series{}
	}
	outputJSON(series)
	return nil
}

// toTrendCounts converts month-end rows from the database into trend counts.
func toTrendCounts(rows []storage.MonthlyTopicCount) ([]trend.Count, error) {
	counts := make([]trend.Count, 0, len(rows))
	for _, r := range rows {
		month, err := trend.ParseMonth(r.Month)
		if err != nil {
			return nil, err
		}
		counts = append(counts, trend.Count{Month: month, Topic: r.TopicName, Count: r.Count})
	}
	return counts, nil
}
