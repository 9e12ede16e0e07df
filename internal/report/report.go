// Package report renders pipeline output as PNG plots and an HTML chart
// page for inspection after a run.
package report

import (
	"image/color"

	"github.com/banshee-data/radiotrack/internal/locate"
	"github.com/banshee-data/radiotrack/internal/locate/bearing"
)

// Run is the data rendered for one pipeline run.
type Run struct {
	Title     string
	Sites     []locate.Site
	Positions []locate.PositionEstimate
	Track     *locate.Track // optional
}

// Curve is one bearing likelihood distribution to plot.
type Curve struct {
	Label      string
	Likelihood *bearing.Likelihood
}

// bounds returns a square extent around every site and position with a
// 10% margin, so the X and Y axes share a scale.
func (r Run) bounds() (minX, maxX, minY, maxY float64) {
	first := true
	add := func(p locate.Point) {
		if first {
			minX, maxX, minY, maxY = p.X, p.X, p.Y, p.Y
			first = false
			return
		}
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	for _, s := range r.Sites {
		add(s.Position)
	}
	for _, p := range r.Positions {
		add(p.Position)
	}
	if first {
		return -1, 1, -1, 1
	}

	side := max(maxX-minX, maxY-minY, 1)
	pad := side * 0.1
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	half := side/2 + pad
	return cx - half, cx + half, cy - half, cy + half
}

// generateColors creates a palette of distinct colors for per-site lines
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
