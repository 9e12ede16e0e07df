// Package position fuses per-site bearing likelihoods into a single
// maximum-likelihood position by coarse-to-fine grid search.
package position

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/radiotrack/internal/locate"
	"github.com/banshee-data/radiotrack/internal/locate/bearing"
)

// Config controls the grid search.
type Config struct {
	InitialScale float64       // grid spacing of the first round
	Span         int           // half-width of the grid in cells
	Shrink       float64       // spacing divisor between rounds
	Rounds       int           // maximum refinement rounds
	Floor        float64       // stop once spacing drops below this
	MinSites     int           // fewer contributing sites is ErrInsufficientData
	Center       *locate.Point // starting centre; nil uses the site centroid
}

// DefaultConfig returns the standard search parameters.
func DefaultConfig() Config {
	return Config{
		InitialScale: 100,
		Span:         15,
		Shrink:       10,
		Rounds:       3,
		Floor:        1,
		MinSites:     2,
	}
}

// Observation is one record's bearing likelihood as seen from its site.
type Observation struct {
	RecordID   int64
	SiteID     locate.SiteID
	Site       locate.Point
	Likelihood *bearing.Likelihood
}

// Estimator runs the grid search. It holds no mutable state and may be
// shared between goroutines.
type Estimator struct {
	cfg    Config
	center locate.Point
}

// NewEstimator validates cfg. sites supplies the default starting centre.
func NewEstimator(cfg Config, sites []locate.Site) (*Estimator, error) {
	switch {
	case !(cfg.InitialScale > 0):
		return nil, fmt.Errorf("initial scale %v must be positive", cfg.InitialScale)
	case cfg.Span < 1:
		return nil, fmt.Errorf("span %d must be at least 1", cfg.Span)
	case !(cfg.Shrink > 1):
		return nil, fmt.Errorf("shrink factor %v must exceed 1", cfg.Shrink)
	case cfg.Rounds < 1:
		return nil, fmt.Errorf("rounds %d must be at least 1", cfg.Rounds)
	case !(cfg.Floor > 0):
		return nil, fmt.Errorf("resolution floor %v must be positive", cfg.Floor)
	case cfg.MinSites < 1:
		return nil, fmt.Errorf("minimum sites %d must be at least 1", cfg.MinSites)
	}

	e := &Estimator{cfg: cfg}
	if cfg.Center != nil {
		e.center = *cfg.Center
	} else {
		e.center = locate.Centroid(sites)
	}
	return e, nil
}

// Center returns the grid start point.
func (e *Estimator) Center() locate.Point { return e.center }

// Estimate returns the position maximising the summed likelihood of obs.
// t is stamped on the result as the window midpoint. Too few distinct sites,
// or a zero likelihood at the chosen point, fail with
// locate.ErrInsufficientData. ctx is checked between refinement rounds.
func (e *Estimator) Estimate(ctx context.Context, t float64, obs []Observation) (locate.PositionEstimate, error) {
	sites := distinctSites(obs)
	if len(sites) < e.cfg.MinSites {
		return locate.PositionEstimate{}, fmt.Errorf("%d of %d required sites: %w", len(sites), e.cfg.MinSites, locate.ErrInsufficientData)
	}

	center := e.center
	scale := e.cfg.InitialScale
	span := e.cfg.Span
	for round := 0; round < e.cfg.Rounds && scale >= e.cfg.Floor; round++ {
		if err := ctx.Err(); err != nil {
			return locate.PositionEstimate{}, err
		}

		best := math.Inf(-1)
		next := center
		// Row-major: northing offsets outer, easting inner, both ascending.
		// Only a strictly greater value replaces the incumbent.
		for dy := -span; dy <= span; dy++ {
			for dx := -span; dx <= span; dx++ {
				p := locate.Point{
					X: center.X + float64(dx)*scale,
					Y: center.Y + float64(dy)*scale,
				}
				if v := aggregate(obs, p); v > best {
					best, next = v, p
				}
			}
		}
		center = next
		scale /= e.cfg.Shrink
	}

	total := aggregate(obs, center)
	if !(total > 0) || math.IsInf(total, 0) {
		return locate.PositionEstimate{}, fmt.Errorf("aggregate likelihood %v at best point: %w", total, locate.ErrInsufficientData)
	}

	est := locate.PositionEstimate{
		Time:          t,
		Position:      center,
		Likelihood:    total,
		LogLikelihood: math.Log(total),
		Sites:         sites,
		RecordIDs:     make([]int64, len(obs)),
	}
	for i, o := range obs {
		est.RecordIDs[i] = o.RecordID
	}
	return est, nil
}

// aggregate sums, over every observation, the likelihood at the compass
// bearing from its site to p.
func aggregate(obs []Observation, p locate.Point) float64 {
	var sum float64
	for _, o := range obs {
		sum += o.Likelihood.At(o.Site.BearingTo(p))
	}
	return sum
}

func distinctSites(obs []Observation) []locate.SiteID {
	seen := make(map[locate.SiteID]struct{}, len(obs))
	var out []locate.SiteID
	for _, o := range obs {
		if _, ok := seen[o.SiteID]; ok {
			continue
		}
		seen[o.SiteID] = struct{}{}
		out = append(out, o.SiteID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
