// Package trend turns monthly topic counts into per-topic series and renders
// them as an interactive line chart.
package trend

import "time"

// Count is the number of records of one topic in one month. Month is the
// last day of the month at midnight UTC.
type Count struct {
	Month time.Time `json:"month"`
	Topic string    `json:"topic"`
	Count int       `json:"count"`
}

// Point is one month of a series.
type Point struct {
	Month time.Time `json:"month"`
	Count int       `json:"count"`
}

// Series holds the monthly counts of one topic, sorted by month.
type Series struct {
	Topic  string  `json:"topic"`
	Points []Point `json:"points"`
}

// Total returns the sum of all counts in the series.
func (s Series) Total() int {
	n := 0
	for _, p := range s.Points {
		n += p.Count
	}
	return n
}
