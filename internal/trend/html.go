package trend

import (
	"bytes"
	"html/template"
)

// compiledTemplate is parsed at init time to fail fast on template errors.
var compiledTemplate *template.Template

func init() {
	compiledTemplate = template.Must(template.New("trend").Parse(htmlTemplate))
}

// DefaultTitle is the chart title used when none is given.
const DefaultTitle = "Monthly Trend of Topic Queries Over Time"

// PlotlyCDN is where the chart page loads plotly.js from.
const PlotlyCDN = "https://cdn.plot.ly/plotly-2.35.2.min.js"

// HTMLOptions configures HTML generation.
type HTMLOptions struct {
	Title string
}

// DefaultOptions returns default HTML generation options.
func DefaultOptions() HTMLOptions {
	return HTMLOptions{Title: DefaultTitle}
}

// templateData holds data for the HTML template.
type templateData struct {
	Title      string
	ScriptURL  string
	TracesJSON template.JS
	LayoutJSON template.JS
}

// GenerateHTML generates a self-contained HTML page charting the series.
func GenerateHTML(series []Series, opts HTMLOptions) (string, error) {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}

	if len(series) == 0 {
		return generateEmptyHTML(), nil
	}

	traces, layout, err := toPlotlyJSON(series, opts.Title)
	if err != nil {
		return "", err
	}

	data := templateData{
		Title:      opts.Title,
		ScriptURL:  PlotlyCDN,
		TracesJSON: template.JS(traces),
		LayoutJSON: template.JS(layout),
	}

	var buf bytes.Buffer
	if err := compiledTemplate.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// generateEmptyHTML returns HTML for the no-topics state.
func generateEmptyHTML() string {
	return `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Topic Trends - Empty</title>
  <style>
    body {
      font-family: Inter, sans-serif;
      display: flex;
      justify-content: center;
      align-items: center;
      height: 100vh;
      margin: 0;
      background: #f5f5f5;
    }
    .empty-state {
      text-align: center;
      color: #666;
    }
    .empty-state h2 {
      margin-bottom: 0.5em;
      color: #333;
    }
    .empty-state code {
      background: #e0e0e0;
      padding: 2px 6px;
      border-radius: 3px;
    }
  </style>
</head>
<body>
  <div class="empty-state">
    <h2>No topic data</h2>
    <p>No records have topic assignments yet.</p>
    <p>Build the index with <code>diario index build</code></p>
    <p>Then fit topics with <code>diario topics fit</code></p>
  </div>
</body>
</html>`
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <script src="{{.ScriptURL}}"></script>
  <style>
    body {
      font-family: Inter, sans-serif;
      margin: 0;
      padding: 0;
      background: white;
    }
    #chart {
      width: 100%;
      height: 100vh;
    }
  </style>
</head>
<body>
  <div id="chart"></div>
  <script>
    (function() {
      const traces = {{.TracesJSON}};
      const layout = {{.LayoutJSON}};
      Plotly.newPlot('chart', traces, layout, {responsive: true});
    })();
  </script>
</body>
</html>`
