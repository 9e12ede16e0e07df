package locate

import (
	"math"
)

// SiteID identifies a fixed receiver site, e.g. "ridge-north".
type SiteID string

// Point is a planar position in the site projection.
// X is easting and Y is northing, both in projection units (metres).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the Euclidean distance between two points.
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// BearingTo returns the compass bearing from p to q in degrees [0, 360),
// measured clockwise from grid north.
func (p Point) BearingTo(q Point) float64 {
	deg := math.Atan2(q.X-p.X, q.Y-p.Y) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg -= 360
	}
	return deg
}

// Site is a surveyed receiver location.
type Site struct {
	ID       SiteID `json:"site_id"`
	Position Point  `json:"position"`
}

// Centroid returns the mean position of the given sites.
// An empty slice yields the origin.
func Centroid(sites []Site) Point {
	if len(sites) == 0 {
		return Point{}
	}
	var c Point
	for _, s := range sites {
		c.X += s.Position.X
		c.Y += s.Position.Y
	}
	n := float64(len(sites))
	return Point{X: c.X / n, Y: c.Y / n}
}

// SignalRecord is one detected pulse as seen by the antenna array of a site.
// Records are immutable once ingested.
type SignalRecord struct {
	ID        int64
	SiteID    SiteID
	Timestamp float64      // unix seconds
	Signal    []complex128 // one complex amplitude per antenna element

	// ManualBearing is an operator-entered bearing in degrees, used only
	// when the pipeline runs with BearingSourceManual.
	ManualBearing *float64
}

// SteeringVectorSet is the calibrated array response of one site for one
// calibration run. Bearings are ascending integer degrees in [0, 359] and
// Vectors[i] is the unit steering vector for Bearings[i].
type SteeringVectorSet struct {
	SiteID        SiteID
	CalibrationID string
	Channels      int
	Bearings      []int
	Vectors       [][]complex128
}

// BearingSource selects how per-record bearing likelihoods are produced.
type BearingSource int

const (
	// BearingSourceLikelihood projects the signal vector onto the site's
	// steering vectors (Bartlett beamformer).
	BearingSourceLikelihood BearingSource = iota
	// BearingSourceManual builds the distribution around the record's
	// operator-entered bearing.
	BearingSourceManual
)

// String returns the configuration name of the source.
func (s BearingSource) String() string {
	switch s {
	case BearingSourceLikelihood:
		return "likelihood"
	case BearingSourceManual:
		return "manual"
	default:
		return "unknown"
	}
}

// ParseBearingSource maps a configuration name to a BearingSource.
// The empty string selects the likelihood source.
func ParseBearingSource(name string) (BearingSource, bool) {
	switch name {
	case "", "likelihood":
		return BearingSourceLikelihood, true
	case "manual":
		return BearingSourceManual, true
	default:
		return BearingSourceLikelihood, false
	}
}

// Deployment is a time-bounded association between a transmitter and the
// animal carrying it.
type Deployment struct {
	ID            int64   `json:"deployment_id"`
	TransmitterID string  `json:"transmitter_id"`
	Start         float64 `json:"start_unix"`
	End           float64 `json:"end_unix"`
}

// PositionEstimate is the maximum-likelihood position for one time window.
type PositionEstimate struct {
	Time          float64  `json:"time"` // window midpoint, unix seconds
	Position      Point    `json:"position"`
	Likelihood    float64  `json:"likelihood"` // aggregate likelihood at Position
	LogLikelihood float64  `json:"log_likelihood"`
	Sites         []SiteID `json:"sites"`
	RecordIDs     []int64  `json:"record_ids"`
}

// TrackPoint is one position on a reconstructed track.
type TrackPoint struct {
	Time          float64 `json:"time"`
	Position      Point   `json:"position"`
	LogLikelihood float64 `json:"log_likelihood"`
}

// TrackSummary holds derived statistics of a reconstructed track.
// Speeds are in projection units per second.
type TrackSummary struct {
	PointCount  int     `json:"point_count"`
	Duration    float64 `json:"duration_s"`
	PathLength  float64 `json:"path_length"`
	MeanSpeed   float64 `json:"mean_speed"`
	StdDevSpeed float64 `json:"stddev_speed"`
	MaxSpeed    float64 `json:"max_speed"`
}

// Track is the most plausible trajectory of one deployment over a time range.
type Track struct {
	ID           string       `json:"track_id"`
	DeploymentID int64        `json:"deployment_id"`
	Points       []TrackPoint `json:"points"`
	Score        float64      `json:"score"` // cumulative critical-path score
	Summary      TrackSummary `json:"summary"`
}
