package trend

import (
	"encoding/json"
	"fmt"
)

// Axis and legend labels of the chart.
const (
	MonthLabel  = "Month Ending Date"
	CountLabel  = "Count of Queries (Monthly)"
	TopicLabel  = "Topic"
	LegendTitle = "Click to Toggle Topic Visibility"
)

// plotlyTrace is one line of a plotly.js scatter chart.
type plotlyTrace struct {
	Type          string   `json:"type"`
	Mode          string   `json:"mode"`
	Name          string   `json:"name"`
	X             []string `json:"x"`
	Y             []int    `json:"y"`
	Visible       string   `json:"visible"`
	HoverTemplate string   `json:"hovertemplate"`
}

type plotlyText struct {
	Text string `json:"text"`
}

type plotlyAxis struct {
	Title       plotlyText       `json:"title"`
	DTick       string           `json:"dtick,omitempty"`
	TickFormat  string           `json:"tickformat,omitempty"`
	RangeSlider *plotlyVisibleOn `json:"rangeslider,omitempty"`
}

type plotlyVisibleOn struct {
	Visible bool `json:"visible"`
}

type plotlyFont struct {
	Family string `json:"family"`
	Size   int    `json:"size"`
}

type plotlyLegend struct {
	Title plotlyText `json:"title"`
}

type plotlyLayout struct {
	Title     plotlyText   `json:"title"`
	XAxis     plotlyAxis   `json:"xaxis"`
	YAxis     plotlyAxis   `json:"yaxis"`
	Legend    plotlyLegend `json:"legend"`
	HoverMode string       `json:"hovermode"`
	Font      plotlyFont   `json:"font"`
}

// toPlotlyJSON converts series to plotly.js traces and layout JSON. Every
// trace starts hidden so topics are toggled on from the legend.
func toPlotlyJSON(series []Series, title string) (traces string, layout string, err error) {
	data := make([]plotlyTrace, 0, len(series))
	for _, s := range series {
		tr := plotlyTrace{
			Type:    "scatter",
			Mode:    "lines",
			Name:    s.Topic,
			X:       make([]string, len(s.Points)),
			Y:       make([]int, len(s.Points)),
			Visible: "legendonly",
			HoverTemplate: fmt.Sprintf("%s=%%{fullData.name}<br>%s=%%{y}<extra></extra>",
				TopicLabel, CountLabel),
		}
		for i, p := range s.Points {
			tr.X[i] = p.Month.Format(MonthLayout)
			tr.Y[i] = p.Count
		}
		data = append(data, tr)
	}

	l := plotlyLayout{
		Title: plotlyText{Text: title},
		XAxis: plotlyAxis{
			Title:       plotlyText{Text: MonthLabel},
			DTick:       "M1",
			TickFormat:  "%b %Y",
			RangeSlider: &plotlyVisibleOn{Visible: true},
		},
		YAxis:     plotlyAxis{Title: plotlyText{Text: CountLabel}},
		Legend:    plotlyLegend{Title: plotlyText{Text: LegendTitle}},
		HoverMode: "x unified",
		Font:      plotlyFont{Family: "Inter, sans-serif", Size: 12},
	}

	tracesJSON, err := json.Marshal(data)
	if err != nil {
		return "", "", fmt.Errorf("marshaling plotly traces to JSON: %w", err)
	}
	layoutJSON, err := json.Marshal(l)
	if err != nil {
		return "", "", fmt.Errorf("marshaling plotly layout to JSON: %w", err)
	}
	return string(tracesJSON), string(layoutJSON), nil
}
