package synth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/cmplxs"

	"github.com/banshee-data/radiotrack/internal/locate"
)

func TestSteeringIsUnit(t *testing.T) {
	t.Parallel()
	for _, deg := range []float64{0, 37.5, 90, 359} {
		assert.InDelta(t, 1.0, cmplxs.Norm(Steering(DefaultChannels, deg), 2), 1e-12)
	}
}

func TestSteeringSetCoversCircle(t *testing.T) {
	t.Parallel()
	set := SteeringSet("a", "cal", 6)
	require.Len(t, set.Bearings, 360)
	require.Len(t, set.Vectors, 360)
	assert.Equal(t, 0, set.Bearings[0])
	assert.Equal(t, 359, set.Bearings[359])
	for _, v := range set.Vectors {
		assert.Len(t, v, 6)
	}
}

func TestPositionAt(t *testing.T) {
	t.Parallel()
	s := Scenario{Path: []Waypoint{
		{Time: 0, Position: locate.Point{X: 0, Y: 0}},
		{Time: 10, Position: locate.Point{X: 100, Y: 0}},
		{Time: 20, Position: locate.Point{X: 100, Y: 50}},
	}}
	assert.Equal(t, locate.Point{X: 0, Y: 0}, s.PositionAt(-5))
	assert.Equal(t, locate.Point{X: 50, Y: 0}, s.PositionAt(5))
	assert.Equal(t, locate.Point{X: 100, Y: 25}, s.PositionAt(15))
	assert.Equal(t, locate.Point{X: 100, Y: 50}, s.PositionAt(99))
}

func TestRecords(t *testing.T) {
	t.Parallel()
	s := Scenario{
		Sites: TriangleSites(),
		Path: []Waypoint{
			{Time: 100, Position: locate.Point{X: 50, Y: 30}},
			{Time: 110, Position: locate.Point{X: 60, Y: 30}},
		},
		PulseInterval: 5,
	}
	recs := s.Records()
	require.Len(t, recs, 9) // 3 pulses x 3 sites

	for i, r := range recs {
		assert.Equal(t, int64(i+1), r.ID)
		assert.Len(t, r.Signal, DefaultChannels)
	}
	assert.Equal(t, 100.0, recs[0].Timestamp)
	assert.Equal(t, 110.0, recs[8].Timestamp)
}

func TestRecordsNoiseIsSeeded(t *testing.T) {
	t.Parallel()
	s := Scenario{
		Sites:         TriangleSites()[:1],
		Path:          []Waypoint{{Time: 0, Position: locate.Point{X: 10, Y: 10}}},
		PulseInterval: 1,
		NoiseStdDev:   0.1,
		Seed:          42,
	}
	a, b := s.Records(), s.Records()
	require.Len(t, a, 1)
	assert.Equal(t, a[0].Signal, b[0].Signal)

	clean := Signal(DefaultChannels, s.Sites[0].Position, locate.Point{X: 10, Y: 10}, 1, 0)
	assert.NotEqual(t, clean, a[0].Signal)
	assert.False(t, math.IsNaN(real(a[0].Signal[0])))
}
