// Package calibration serves site locations and per-site steering vector
// tables from a CalibrationRepository, caching them by (site, calibration).
package calibration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/cmplxs"

	"github.com/banshee-data/radiotrack/internal/locate"
	"github.com/banshee-data/radiotrack/internal/monitoring"
)

// unitTolerance is how far a stored vector's L2 norm may drift from 1
// before it is rescaled on load.
const unitTolerance = 1e-9

type cacheKey struct {
	site  locate.SiteID
	calID string
}

// Model is a read-through cache over a CalibrationRepository for a single
// calibration identifier. It is safe for concurrent use and is the only
// state shared between pipeline runs.
type Model struct {
	repo          locate.CalibrationRepository
	calibrationID string

	mu      sync.RWMutex
	vectors map[cacheKey]*locate.SteeringVectorSet
	missing map[cacheKey]error
	sites   []locate.Site
}

// NewModel returns a Model reading calibrationID from repo.
func NewModel(repo locate.CalibrationRepository, calibrationID string) *Model {
	return &Model{
		repo:          repo,
		calibrationID: calibrationID,
		vectors:       make(map[cacheKey]*locate.SteeringVectorSet),
		missing:       make(map[cacheKey]error),
	}
}

// CalibrationID returns the calibration identifier this model serves.
func (m *Model) CalibrationID() string { return m.calibrationID }

// Sites returns the surveyed site locations, sorted by ID.
func (m *Model) Sites(ctx context.Context) ([]locate.Site, error) {
	m.mu.RLock()
	cached := m.sites
	m.mu.RUnlock()
	if cached != nil {
		return append([]locate.Site(nil), cached...), nil
	}

	sites, err := m.repo.Sites(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sites: %w", err)
	}
	sorted := append([]locate.Site(nil), sites...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	m.mu.Lock()
	m.sites = sorted
	m.mu.Unlock()
	return append([]locate.Site(nil), sorted...), nil
}

// SteeringVectors returns the validated, unit-normalised table of one site.
// The error wraps locate.ErrCalibrationMissing when the site has no usable
// table; callers exclude such a site rather than abort.
func (m *Model) SteeringVectors(ctx context.Context, siteID locate.SiteID) (*locate.SteeringVectorSet, error) {
	key := cacheKey{site: siteID, calID: m.calibrationID}

	m.mu.RLock()
	set, ok := m.vectors[key]
	missErr := m.missing[key]
	m.mu.RUnlock()
	if ok {
		return set, nil
	}
	if missErr != nil {
		return nil, missErr
	}

	raw, err := m.repo.SteeringVectors(ctx, siteID, m.calibrationID)
	if err == nil {
		set, err = prepare(raw, siteID, m.calibrationID)
	}
	if err != nil {
		if !errors.Is(err, locate.ErrCalibrationMissing) {
			// Transient repository failures are not cached.
			return nil, fmt.Errorf("load steering vectors for %s: %w", siteID, err)
		}
		m.mu.Lock()
		m.missing[key] = err
		m.mu.Unlock()
		return nil, err
	}

	m.mu.Lock()
	m.vectors[key] = set
	m.mu.Unlock()
	return set, nil
}

// Prefetch loads the tables for every listed site in one pass. Each
// distinct site is resolved and logged once. Sites without calibration are
// returned in missing; any other failure aborts.
func (m *Model) Prefetch(ctx context.Context, siteIDs []locate.SiteID) (sets map[locate.SiteID]*locate.SteeringVectorSet, missing []locate.SiteID, err error) {
	sets = make(map[locate.SiteID]*locate.SteeringVectorSet, len(siteIDs))
	seen := make(map[locate.SiteID]struct{}, len(siteIDs))
	for _, id := range siteIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		set, err := m.SteeringVectors(ctx, id)
		switch {
		case errors.Is(err, locate.ErrCalibrationMissing):
			monitoring.Logf("calibration: site %s excluded: %v", id, err)
			missing = append(missing, id)
		case err != nil:
			return nil, nil, err
		default:
			sets[id] = set
		}
	}
	return sets, missing, nil
}

// Invalidate drops every cached entry, e.g. after a new calibration import.
func (m *Model) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors = make(map[cacheKey]*locate.SteeringVectorSet)
	m.missing = make(map[cacheKey]error)
	m.sites = nil
}

// prepare validates raw and returns a copy with every vector scaled to unit
// length. The repository's slices are never modified.
func prepare(raw *locate.SteeringVectorSet, siteID locate.SiteID, calID string) (*locate.SteeringVectorSet, error) {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("site %s calibration %q: %s: %w", siteID, calID, fmt.Sprintf(format, args...), locate.ErrCalibrationMissing)
	}
	if raw == nil || len(raw.Vectors) == 0 {
		return nil, invalid("empty table")
	}
	if raw.Channels <= 0 {
		return nil, invalid("channel count %d", raw.Channels)
	}
	if len(raw.Bearings) != len(raw.Vectors) {
		return nil, invalid("%d bearings for %d vectors", len(raw.Bearings), len(raw.Vectors))
	}

	out := &locate.SteeringVectorSet{
		SiteID:        siteID,
		CalibrationID: calID,
		Channels:      raw.Channels,
		Bearings:      append([]int(nil), raw.Bearings...),
		Vectors:       make([][]complex128, len(raw.Vectors)),
	}
	prev := -1
	for i, deg := range raw.Bearings {
		if deg < 0 || deg > 359 || deg <= prev {
			return nil, invalid("bearing %d out of range or order", deg)
		}
		prev = deg

		v := raw.Vectors[i]
		if len(v) != raw.Channels {
			return nil, invalid("bearing %d has %d channels, want %d", deg, len(v), raw.Channels)
		}
		norm := cmplxs.Norm(v, 2)
		if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
			return nil, invalid("bearing %d has degenerate vector", deg)
		}
		cp := append([]complex128(nil), v...)
		if math.Abs(norm-1) > unitTolerance {
			cmplxs.Scale(complex(1/norm, 0), cp)
		}
		out.Vectors[i] = cp
	}
	return out, nil
}
