package trend

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MonthLayout is how months are written in counts and chart data.
const MonthLayout = "2006-01-02"

// MonthEnd returns the last day of t's month at midnight UTC.
func MonthEnd(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// ParseMonth parses a month-end date written with MonthLayout.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing month %q: %w", s, err)
	}
	return t, nil
}

// BuildSeries groups counts into one series per topic. When topics is not
// empty only those topics are kept. Series are ordered by topic ID, the
// numeric prefix of "<id>_<words>" names, so the outlier topic comes first.
// Counts for the same topic and month are summed.
func BuildSeries(counts []Count, topics []string) []Series {
	keep := make(map[string]bool, len(topics))
	for _, t := range topics {
		keep[t] = true
	}

	byTopic := make(map[string]map[time.Time]int)
	for _, c := range counts {
		if len(keep) > 0 && !keep[c.Topic] {
			continue
		}
		months, ok := byTopic[c.Topic]
		if !ok {
			months = make(map[time.Time]int)
			byTopic[c.Topic] = months
		}
		months[MonthEnd(c.Month)] += c.Count
	}

	series := make([]Series, 0, len(byTopic))
	for topic, months := range byTopic {
		s := Series{Topic: topic, Points: make([]Point, 0, len(months))}
		for m, n := range months {
			s.Points = append(s.Points, Point{Month: m, Count: n})
		}
		sort.Slice(s.Points, func(i, j int) bool { return s.Points[i].Month.Before(s.Points[j].Month) })
		series = append(series, s)
	}

	sort.Slice(series, func(i, j int) bool {
		a, aok := topicID(series[i].Topic)
		b, bok := topicID(series[j].Topic)
		if aok && bok && a != b {
			return a < b
		}
		if aok != bok {
			return aok
		}
		return series[i].Topic < series[j].Topic
	})

	return series
}

// topicID reads the numeric prefix of a topic name.
func topicID(name string) (int, bool) {
	prefix, _, _ := strings.Cut(name, "_")
	id, err := strconv.Atoi(prefix)
	return id, err == nil
}
