// Package memstore is an in-memory implementation of the locate repository
// interfaces, used by tests and by dry runs of the pipeline.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/banshee-data/radiotrack/internal/locate"
)

type vectorKey struct {
	site  locate.SiteID
	calID string
}

// Store holds every repository's data behind one mutex.
type Store struct {
	mu          sync.RWMutex
	sites       map[locate.SiteID]locate.Site
	deployments map[int64]locate.Deployment
	records     map[int64][]locate.SignalRecord
	vectors     map[vectorKey]*locate.SteeringVectorSet
	vectorLoads int

	runs      map[string]locate.Run
	positions map[string][]locate.PositionEstimate
	tracks    map[string][]locate.Track
	snapshots map[string][]byte

	// FailSave, when set, is returned by every Save* call.
	FailSave error
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		sites:       make(map[locate.SiteID]locate.Site),
		deployments: make(map[int64]locate.Deployment),
		records:     make(map[int64][]locate.SignalRecord),
		vectors:     make(map[vectorKey]*locate.SteeringVectorSet),
		runs:        make(map[string]locate.Run),
		positions:   make(map[string][]locate.PositionEstimate),
		tracks:      make(map[string][]locate.Track),
		snapshots:   make(map[string][]byte),
	}
}

// AddSite registers a receiver site.
func (s *Store) AddSite(site locate.Site) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[site.ID] = site
}

// AddDeployment registers a deployment.
func (s *Store) AddDeployment(d locate.Deployment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deployments[d.ID] = d
}

// AddRecords appends signal records to a deployment.
func (s *Store) AddRecords(deploymentID int64, recs ...locate.SignalRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[deploymentID] = append(s.records[deploymentID], recs...)
}

// SetSteeringVectors stores a calibration table, replacing any previous one
// for the same site and calibration.
func (s *Store) SetSteeringVectors(set *locate.SteeringVectorSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[vectorKey{set.SiteID, set.CalibrationID}] = set
}

// VectorLoads reports how many times SteeringVectors has been called.
func (s *Store) VectorLoads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vectorLoads
}

// Deployment implements locate.SignalRecordRepository.
func (s *Store) Deployment(ctx context.Context, deploymentID int64) (*locate.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deployments[deploymentID]
	if !ok {
		return nil, fmt.Errorf("deployment %d not found", deploymentID)
	}
	return &d, nil
}

// SignalRecords implements locate.SignalRecordRepository.
func (s *Store) SignalRecords(ctx context.Context, deploymentID int64, start, end float64) ([]locate.SignalRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []locate.SignalRecord
	for _, r := range s.records[deploymentID] {
		if r.Timestamp >= start && r.Timestamp <= end {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Sites implements locate.CalibrationRepository.
func (s *Store) Sites(ctx context.Context) ([]locate.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]locate.Site, 0, len(s.sites))
	for _, site := range s.sites {
		out = append(out, site)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SteeringVectors implements locate.CalibrationRepository.
func (s *Store) SteeringVectors(ctx context.Context, siteID locate.SiteID, calibrationID string) (*locate.SteeringVectorSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectorLoads++
	set, ok := s.vectors[vectorKey{siteID, calibrationID}]
	if !ok {
		return nil, fmt.Errorf("site %s calibration %q: %w", siteID, calibrationID, locate.ErrCalibrationMissing)
	}
	return set, nil
}

// SaveRun implements locate.PositionRepository.
func (s *Store) SaveRun(ctx context.Context, run *locate.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return s.FailSave
	}
	s.runs[run.RunID] = *run
	return nil
}

// SavePositions implements locate.PositionRepository. A second call for the
// same run replaces the earlier estimates.
func (s *Store) SavePositions(ctx context.Context, runID string, deploymentID int64, estimates []locate.PositionEstimate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return s.FailSave
	}
	s.positions[runID] = append([]locate.PositionEstimate(nil), estimates...)
	return nil
}

// SaveTrack implements locate.PositionRepository.
func (s *Store) SaveTrack(ctx context.Context, runID string, track *locate.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return s.FailSave
	}
	s.tracks[runID] = append(s.tracks[runID], *track)
	return nil
}

// SaveGraphSnapshot implements locate.PositionRepository.
func (s *Store) SaveGraphSnapshot(ctx context.Context, runID string, snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return s.FailSave
	}
	s.snapshots[runID] = append([]byte(nil), snapshot...)
	return nil
}

// Run returns a stored run.
func (s *Store) Run(runID string) (locate.Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[runID]
	return r, ok
}

// Runs returns every stored run ordered by deployment then start.
func (s *Store) Runs() []locate.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]locate.Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DeploymentID != out[j].DeploymentID {
			return out[i].DeploymentID < out[j].DeploymentID
		}
		return out[i].Start < out[j].Start
	})
	return out
}

// Positions returns the estimates stored for a run.
func (s *Store) Positions(runID string) []locate.PositionEstimate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.positions[runID]
}

// Tracks returns the tracks stored for a run.
func (s *Store) Tracks(runID string) []locate.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracks[runID]
}

// Snapshot returns the graph snapshot stored for a run.
func (s *Store) Snapshot(runID string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.snapshots[runID]
	return b, ok
}

var (
	_ locate.SignalRecordRepository = (*Store)(nil)
	_ locate.CalibrationRepository  = (*Store)(nil)
	_ locate.PositionRepository     = (*Store)(nil)
)
