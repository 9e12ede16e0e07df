// Package synth generates synthetic calibration tables and signal records for
// a uniform circular antenna array. It backs the package tests and the
// gen-synthetic tool.
package synth

import (
	"math"
	"math/cmplx"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/radiotrack/internal/locate"
)

// DefaultChannels is the element count of the modelled array.
const DefaultChannels = 4

// waveRadius is k·r for an array of radius a quarter wavelength.
const waveRadius = math.Pi / 2

// Steering returns the unit array response of an N-element uniform circular
// array to a plane wave arriving from bearingDeg. Element n sits at compass
// angle n·360/N.
func Steering(channels int, bearingDeg float64) []complex128 {
	v := make([]complex128, channels)
	theta := bearingDeg * math.Pi / 180
	scale := 1 / math.Sqrt(float64(channels))
	for n := range v {
		phi := 2 * math.Pi * float64(n) / float64(channels)
		v[n] = complex(scale, 0) * cmplx.Exp(complex(0, waveRadius*math.Cos(theta-phi)))
	}
	return v
}

// SteeringSet returns a full 0–359° calibration table for one site.
func SteeringSet(siteID locate.SiteID, calibrationID string, channels int) *locate.SteeringVectorSet {
	set := &locate.SteeringVectorSet{
		SiteID:        siteID,
		CalibrationID: calibrationID,
		Channels:      channels,
		Bearings:      make([]int, 360),
		Vectors:       make([][]complex128, 360),
	}
	for deg := 0; deg < 360; deg++ {
		set.Bearings[deg] = deg
		set.Vectors[deg] = Steering(channels, float64(deg))
	}
	return set
}

// Signal returns the noiseless signal seen at site from a transmitter at
// target, with the given amplitude and carrier phase.
func Signal(channels int, site, target locate.Point, amplitude, phase float64) []complex128 {
	v := Steering(channels, site.BearingTo(target))
	rot := complex(amplitude, 0) * cmplx.Exp(complex(0, phase))
	for i := range v {
		v[i] *= rot
	}
	return v
}

// Waypoint is a scripted target position at a time.
type Waypoint struct {
	Time     float64
	Position locate.Point
}

// Scenario describes a transmitter moving along a scripted path past a set
// of receiver sites.
type Scenario struct {
	Sites         []locate.Site
	Path          []Waypoint // ascending by Time
	PulseInterval float64    // seconds between pulses
	Channels      int
	Amplitude     float64
	NoiseStdDev   float64 // per-component complex Gaussian noise
	Seed          uint64
	FirstID       int64
}

// PositionAt interpolates the scripted path linearly. Times outside the path
// clamp to its ends.
func (s Scenario) PositionAt(t float64) locate.Point {
	if len(s.Path) == 0 {
		return locate.Point{}
	}
	if t <= s.Path[0].Time {
		return s.Path[0].Position
	}
	for i := 1; i < len(s.Path); i++ {
		a, b := s.Path[i-1], s.Path[i]
		if t <= b.Time {
			f := (t - a.Time) / (b.Time - a.Time)
			return locate.Point{
				X: a.Position.X + f*(b.Position.X-a.Position.X),
				Y: a.Position.Y + f*(b.Position.Y-a.Position.Y),
			}
		}
	}
	return s.Path[len(s.Path)-1].Position
}

// Records emits one record per site per pulse over the path's time span,
// with record IDs ascending from FirstID (or 1).
func (s Scenario) Records() []locate.SignalRecord {
	if len(s.Path) == 0 || s.PulseInterval <= 0 {
		return nil
	}
	channels := s.Channels
	if channels == 0 {
		channels = DefaultChannels
	}
	amp := s.Amplitude
	if amp == 0 {
		amp = 1
	}
	id := s.FirstID
	if id == 0 {
		id = 1
	}

	var noise *distuv.Normal
	if s.NoiseStdDev > 0 {
		noise = &distuv.Normal{Mu: 0, Sigma: s.NoiseStdDev, Src: rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15)}
	}

	start, end := s.Path[0].Time, s.Path[len(s.Path)-1].Time
	var out []locate.SignalRecord
	for k := 0; ; k++ {
		t := start + float64(k)*s.PulseInterval
		if t > end {
			break
		}
		target := s.PositionAt(t)
		for _, site := range s.Sites {
			sig := Signal(channels, site.Position, target, amp, 0)
			if noise != nil {
				for i := range sig {
					sig[i] += complex(noise.Rand(), noise.Rand())
				}
			}
			out = append(out, locate.SignalRecord{
				ID:        id,
				SiteID:    site.ID,
				Timestamp: t,
				Signal:    sig,
			})
			id++
		}
	}
	return out
}

// TriangleSites returns the three-site layout used throughout the tests:
// a roughly equilateral triangle with 100-unit sides.
func TriangleSites() []locate.Site {
	return []locate.Site{
		{ID: "a", Position: locate.Point{X: 0, Y: 0}},
		{ID: "b", Position: locate.Point{X: 100, Y: 0}},
		{ID: "c", Position: locate.Point{X: 50, Y: 86.6}},
	}
}
