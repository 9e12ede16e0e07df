package report

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ErrNothingToPlot is returned when a plot would have no data.
var ErrNothingToPlot = errors.New("nothing to plot")

var (
	siteColor     = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	positionColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	trackColor    = color.RGBA{R: 220, G: 60, B: 40, A: 255}
)

// TrackPlot draws sites, windowed positions and the reconstructed track on
// a square easting/northing plot.
func TrackPlot(r Run) (*plot.Plot, error) {
	if len(r.Sites) == 0 && len(r.Positions) == 0 {
		return nil, ErrNothingToPlot
	}

	p := plot.New()
	p.Title.Text = r.Title
	if p.Title.Text == "" {
		p.Title.Text = "Track"
	}
	p.X.Label.Text = "Easting (m)"
	p.Y.Label.Text = "Northing (m)"
	p.X.Min, p.X.Max, p.Y.Min, p.Y.Max = r.bounds()
	p.Add(plotter.NewGrid())

	if len(r.Sites) > 0 {
		pts := make(plotter.XYs, len(r.Sites))
		labels := make([]string, len(r.Sites))
		for i, s := range r.Sites {
			pts[i] = plotter.XY{X: s.Position.X, Y: s.Position.Y}
			labels[i] = string(s.ID)
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("site scatter: %w", err)
		}
		sc.GlyphStyle.Shape = draw.TriangleGlyph{}
		sc.GlyphStyle.Color = siteColor
		sc.GlyphStyle.Radius = vg.Points(5)
		lb, err := plotter.NewLabels(plotter.XYLabels{XYs: pts, Labels: labels})
		if err != nil {
			return nil, fmt.Errorf("site labels: %w", err)
		}
		lb.Offset = vg.Point{X: vg.Points(6), Y: vg.Points(6)}
		p.Add(sc, lb)
		p.Legend.Add("sites", sc)
	}

	if len(r.Positions) > 0 {
		pts := make(plotter.XYs, len(r.Positions))
		for i, e := range r.Positions {
			pts[i] = plotter.XY{X: e.Position.X, Y: e.Position.Y}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("position scatter: %w", err)
		}
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Color = positionColor
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add("positions", sc)
	}

	if r.Track != nil && len(r.Track.Points) > 0 {
		pts := make(plotter.XYs, len(r.Track.Points))
		for i, tp := range r.Track.Points {
			pts[i] = plotter.XY{X: tp.Position.X, Y: tp.Position.Y}
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, fmt.Errorf("track line: %w", err)
		}
		line.Color = trackColor
		line.Width = vg.Points(1.5)
		points.Color = trackColor
		points.Shape = draw.CircleGlyph{}
		points.Radius = vg.Points(1.5)
		p.Add(line, points)
		p.Legend.Add("track", line, points)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// LikelihoodPlot draws one bearing likelihood curve per entry over 0-359°.
func LikelihoodPlot(title string, curves []Curve) (*plot.Plot, error) {
	if len(curves) == 0 {
		return nil, ErrNothingToPlot
	}

	p := plot.New()
	p.Title.Text = title
	if p.Title.Text == "" {
		p.Title.Text = "Bearing likelihood"
	}
	p.X.Label.Text = "Bearing (deg)"
	p.Y.Label.Text = "Likelihood"
	p.X.Min, p.X.Max = 0, 359

	colors := generateColors(len(curves))
	for i, c := range curves {
		if c.Likelihood == nil {
			continue
		}
		pts := make(plotter.XYs, len(c.Likelihood))
		for deg, v := range c.Likelihood {
			pts[deg] = plotter.XY{X: float64(deg), Y: v}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("likelihood line %s: %w", c.Label, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(c.Label, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WritePlots saves the track plot and, when curves are given, the bearing
// likelihood plot as PNG files under dir. It returns the written paths.
func WritePlots(dir string, r Run, curves []Curve) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}

	var written []string
	tp, err := TrackPlot(r)
	if err != nil {
		return nil, err
	}
	trackFile := filepath.Join(dir, "track.png")
	if err := tp.Save(8*vg.Inch, 8*vg.Inch, trackFile); err != nil {
		return nil, fmt.Errorf("save track plot: %w", err)
	}
	written = append(written, trackFile)

	if len(curves) > 0 {
		lp, err := LikelihoodPlot("Bearing likelihood", curves)
		if err != nil {
			return written, err
		}
		likFile := filepath.Join(dir, "bearing_likelihood.png")
		if err := lp.Save(14*vg.Inch, 6*vg.Inch, likFile); err != nil {
			return written, fmt.Errorf("save likelihood plot: %w", err)
		}
		written = append(written, likFile)
	}
	return written, nil
}
