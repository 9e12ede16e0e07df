package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// RenderHTML writes an HTML page with two charts: positions coloured by
// log-likelihood with the track polyline and sites overlaid, and the
// per-window log-likelihood over time.
func RenderHTML(w io.Writer, r Run) error {
	title := r.Title
	if title == "" {
		title = "Track"
	}

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(positionChart(title, r), likelihoodChart(r))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart page: %w", err)
	}
	return nil
}

// WriteHTML renders the chart page to path.
func WriteHTML(path string, r Run) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create html report: %w", err)
	}
	if err := RenderHTML(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func positionChart(title string, r Run) *charts.Scatter {
	minX, maxX, minY, maxY := r.bounds()

	points := make([]opts.ScatterData, 0, len(r.Positions))
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, e := range r.Positions {
		points = append(points, opts.ScatterData{
			Name:  strconv.FormatFloat(e.Time, 'f', 0, 64),
			Value: []interface{}{e.Position.X, e.Position.Y, e.LogLikelihood},
		})
		lo, hi = math.Min(lo, e.LogLikelihood), math.Max(hi, e.LogLikelihood)
	}
	if len(points) == 0 {
		lo, hi = 0, 1
	}

	sites := make([]opts.ScatterData, 0, len(r.Sites))
	for _, s := range r.Sites {
		sites = append(sites, opts.ScatterData{
			Name:       string(s.ID),
			Value:      []interface{}{s.Position.X, s.Position.Y},
			Symbol:     "triangle",
			SymbolSize: 14,
		})
	}

	subtitle := fmt.Sprintf("positions=%d sites=%d", len(points), len(sites))
	if r.Track != nil {
		subtitle += fmt.Sprintf(" track=%d score=%.2f", len(r.Track.Points), r.Track.Score)
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: minX, Max: maxX, Name: "Easting (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: minY, Max: maxY, Name: "Northing (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("positions", points, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	scatter.AddSeries("sites", sites)

	if r.Track != nil && len(r.Track.Points) > 0 {
		path := make([]opts.LineData, 0, len(r.Track.Points))
		for _, tp := range r.Track.Points {
			path = append(path, opts.LineData{Value: []interface{}{tp.Position.X, tp.Position.Y}})
		}
		line := charts.NewLine()
		line.AddSeries("track", path)
		scatter.Overlap(line)
	}
	return scatter
}

func likelihoodChart(r Run) *charts.Line {
	labels := make([]string, 0, len(r.Positions))
	values := make([]opts.LineData, 0, len(r.Positions))
	for _, e := range r.Positions {
		labels = append(labels, strconv.FormatFloat(e.Time, 'f', 0, 64))
		values = append(values, opts.LineData{Value: e.LogLikelihood})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Window log-likelihood"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ln L", NameLocation: "middle", NameGap: 30}),
	)
	line.SetXAxis(labels).AddSeries("log-likelihood", values)
	return line
}
