package track

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/radiotrack/internal/locate"
	"github.com/banshee-data/radiotrack/internal/units"
)

// Summarize derives distance and speed statistics from consecutive track
// points. Segments with no elapsed time contribute distance but no speed.
func Summarize(points []locate.TrackPoint) locate.TrackSummary {
	s := locate.TrackSummary{PointCount: len(points)}
	if len(points) < 2 {
		return s
	}
	s.Duration = points[len(points)-1].Time - points[0].Time

	speeds := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		d := points[i-1].Position.DistanceTo(points[i].Position)
		s.PathLength += d
		if dt := points[i].Time - points[i-1].Time; dt > 0 {
			speeds = append(speeds, d/dt)
		}
	}
	switch len(speeds) {
	case 0:
	case 1:
		s.MeanSpeed = speeds[0]
		s.MaxSpeed = speeds[0]
	default:
		s.MeanSpeed, s.StdDevSpeed = stat.MeanStdDev(speeds, nil)
		s.MaxSpeed = floats.Max(speeds)
	}
	return s
}

// SummaryIn returns s with its speeds converted from metres per second to
// the given unit.
func SummaryIn(s locate.TrackSummary, unit string) locate.TrackSummary {
	s.MeanSpeed = units.ConvertSpeed(s.MeanSpeed, unit)
	s.StdDevSpeed = units.ConvertSpeed(s.StdDevSpeed, unit)
	s.MaxSpeed = units.ConvertSpeed(s.MaxSpeed, unit)
	return s
}
