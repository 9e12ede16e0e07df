package locate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoint_BearingTo(t *testing.T) {
	origin := Point{}
	tests := []struct {
		name string
		to   Point
		want float64
	}{
		{"north", Point{X: 0, Y: 10}, 0},
		{"east", Point{X: 10, Y: 0}, 90},
		{"south", Point{X: 0, Y: -10}, 180},
		{"west", Point{X: -10, Y: 0}, 270},
		{"north-east", Point{X: 10, Y: 10}, 45},
		{"sixty degrees", Point{X: 50, Y: 50 / math.Sqrt(3)}, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, origin.BearingTo(tt.to), 1e-9)
		})
	}
}

func TestPoint_DistanceTo(t *testing.T) {
	assert.InDelta(t, 5.0, Point{X: 1, Y: 1}.DistanceTo(Point{X: 4, Y: 5}), 1e-12)
}

func TestCentroid(t *testing.T) {
	sites := []Site{
		{ID: "a", Position: Point{X: 0, Y: 0}},
		{ID: "b", Position: Point{X: 100, Y: 0}},
		{ID: "c", Position: Point{X: 50, Y: 86.6}},
	}
	c := Centroid(sites)
	assert.InDelta(t, 50.0, c.X, 1e-9)
	assert.InDelta(t, 86.6/3, c.Y, 1e-9)
	assert.Equal(t, Point{}, Centroid(nil))
}

func TestParseBearingSource(t *testing.T) {
	src, ok := ParseBearingSource("")
	assert.True(t, ok)
	assert.Equal(t, BearingSourceLikelihood, src)

	src, ok = ParseBearingSource("manual")
	assert.True(t, ok)
	assert.Equal(t, BearingSourceManual, src)
	assert.Equal(t, "manual", src.String())

	_, ok = ParseBearingSource("suffix")
	assert.False(t, ok)
}
