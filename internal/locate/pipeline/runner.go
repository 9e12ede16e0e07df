// Package pipeline runs the full estimation for one deployment and time
// range: read records, score bearings, estimate windowed positions, link
// and reconstruct the track, then persist everything in one batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/radiotrack/internal/config"
	"github.com/banshee-data/radiotrack/internal/locate"
	"github.com/banshee-data/radiotrack/internal/locate/bearing"
	"github.com/banshee-data/radiotrack/internal/locate/calibration"
	"github.com/banshee-data/radiotrack/internal/locate/position"
	"github.com/banshee-data/radiotrack/internal/locate/track"
	"github.com/banshee-data/radiotrack/internal/locate/window"
	"github.com/banshee-data/radiotrack/internal/monitoring"
	"github.com/banshee-data/radiotrack/internal/timeutil"
)

// Job selects one deployment and time range. A zero range (End <= Start)
// covers the whole deployment.
type Job struct {
	DeploymentID int64
	Start        float64
	End          float64
}

// Gap is a window that produced no position.
type Gap struct {
	Window int
	Center float64
	Reason string
}

// Result is everything a run produced. On cancellation it holds the
// windows completed before the context ended.
type Result struct {
	Job       Job
	Run       locate.Run
	Positions []locate.PositionEstimate
	Gaps      []Gap
	Track     *locate.Track
	Graph     *track.Graph
	Err       error
}

// Runner executes jobs. All fields are read-only once constructed, so one
// Runner may execute many jobs concurrently; only the calibration cache and
// bearing engine are shared between them.
type Runner struct {
	Signals     locate.SignalRecordRepository
	Calibration *calibration.Model
	Positions   locate.PositionRepository
	Config      *config.EstimationConfig
	Clock       timeutil.Clock
	Engine      *bearing.Engine
	NewID       func() string

	source   locate.BearingSource
	maxSpeed track.MaxSpeedFunc
}

// NewRunner validates cfg and wires the pipeline stages.
func NewRunner(signals locate.SignalRecordRepository, cal locate.CalibrationRepository, positions locate.PositionRepository, cfg *config.EstimationConfig) (*Runner, error) {
	if cfg == nil {
		cfg = config.EmptyEstimationConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	src, ok := locate.ParseBearingSource(cfg.GetBearingSource())
	if !ok {
		return nil, fmt.Errorf("unknown bearing source %q", cfg.GetBearingSource())
	}
	maxSpeed, err := track.NewMaxSpeed(cfg.GetMaxSpeedModel(), cfg.GetMaxSpeed(), cfg.GetSustainedSpeed(), cfg.GetSpeedDecaySeconds())
	if err != nil {
		return nil, err
	}
	return &Runner{
		Signals:     signals,
		Calibration: calibration.NewModel(cal, cfg.GetCalibrationID()),
		Positions:   positions,
		Config:      cfg,
		Clock:       timeutil.RealClock{},
		Engine:      bearing.NewEngine(),
		NewID:       func() string { return uuid.NewString() },
		source:      src,
		maxSpeed:    maxSpeed,
	}, nil
}

func (r *Runner) positionConfig() position.Config {
	pc := position.Config{
		InitialScale: r.Config.GetGridInitialScale(),
		Span:         r.Config.GetGridSpan(),
		Shrink:       r.Config.GetGridShrinkFactor(),
		Rounds:       r.Config.GetGridRounds(),
		Floor:        r.Config.GetGridResolutionFloor(),
		MinSites:     r.Config.GetMinSites(),
	}
	if x, y, ok := r.Config.GetInitialCenter(); ok {
		pc.Center = &locate.Point{X: x, Y: y}
	}
	return pc
}

// scored is a record that produced a usable bearing likelihood.
type scored struct {
	rec  *locate.SignalRecord
	site locate.Point
	l    bearing.Likelihood
}

// Run executes one job. Per-record and per-window failures become skips and
// gaps. A missing calibration for every site, a cyclic track graph or a
// repository failure fail the run. A cancelled context stops work between
// windows or track batches; completed windows are persisted, the run is
// marked cancelled and the context error is returned with the result.
func (r *Runner) Run(ctx context.Context, job Job) (*Result, error) {
	res := &Result{Job: job}
	res.Run = locate.Run{
		RunID:        r.NewID(),
		DeploymentID: job.DeploymentID,
		Start:        job.Start,
		End:          job.End,
		Status:       locate.RunRunning,
		ConfigJSON:   r.Config.JSON(),
		StartedAt:    r.Clock.Now(),
	}

	err := r.execute(ctx, res)
	r.finish(ctx, res, err)
	res.Err = err
	return res, err
}

func (r *Runner) execute(ctx context.Context, res *Result) error {
	dep, err := r.Signals.Deployment(ctx, res.Job.DeploymentID)
	if err != nil {
		return fmt.Errorf("load deployment %d: %w", res.Job.DeploymentID, err)
	}
	if res.Run.End <= res.Run.Start {
		res.Run.Start, res.Run.End = dep.Start, dep.End
	}
	if err := r.Positions.SaveRun(ctx, &res.Run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	records, err := r.Signals.SignalRecords(ctx, dep.ID, res.Run.Start, res.Run.End)
	if err != nil {
		return fmt.Errorf("load signal records: %w", err)
	}
	res.Run.RecordsRead = len(records)

	usable, err := r.score(ctx, records)
	if err != nil {
		return err
	}
	res.Run.RecordsSkipped = len(records) - len(usable)

	if err := r.estimate(ctx, res, usable); err != nil {
		return err
	}
	return r.reconstruct(ctx, res, dep.ID)
}

// score loads sites and calibration in one pass and computes each record's
// bearing likelihood, dropping records that cannot be scored.
func (r *Runner) score(ctx context.Context, records []locate.SignalRecord) ([]scored, error) {
	sites, err := r.Calibration.Sites(ctx)
	if err != nil {
		return nil, err
	}
	positions := make(map[locate.SiteID]locate.Point, len(sites))
	for _, s := range sites {
		positions[s.ID] = s.Position
	}

	var sets map[locate.SiteID]*locate.SteeringVectorSet
	if r.source == locate.BearingSourceLikelihood && len(records) > 0 {
		var ids []locate.SiteID
		for i := range records {
			ids = append(ids, records[i].SiteID)
		}
		sets, _, err = r.Calibration.Prefetch(ctx, ids)
		if err != nil {
			return nil, err
		}
		if len(sets) == 0 {
			return nil, locate.ErrNoCalibration
		}
	}

	usable := make([]scored, 0, len(records))
	sigma := r.Config.GetManualBearingSigmaDeg()
	for i := range records {
		rec := &records[i]
		pos, ok := positions[rec.SiteID]
		if !ok {
			monitoring.Logf("pipeline: record %d from unsurveyed site %s skipped", rec.ID, rec.SiteID)
			continue
		}
		var set *locate.SteeringVectorSet
		if r.source == locate.BearingSourceLikelihood {
			if set = sets[rec.SiteID]; set == nil {
				continue // site excluded, logged by Prefetch
			}
		}
		l, err := r.Engine.Record(rec, set, r.source, sigma)
		if err != nil {
			monitoring.Logf("pipeline: %v; skipped", err)
			continue
		}
		usable = append(usable, scored{rec: rec, site: pos, l: l})
	}
	return usable, nil
}

func (r *Runner) estimate(ctx context.Context, res *Result, usable []scored) error {
	ts := make([]float64, len(usable))
	ids := make([]locate.SiteID, len(usable))
	for i := range usable {
		ts[i] = usable[i].rec.Timestamp
		ids[i] = usable[i].rec.SiteID
	}
	sched, err := window.New(ts, ids, r.Config.GetWindowSizeSeconds(), r.Config.GetStepSizeSeconds(),
		window.WithMinSites(r.Config.GetMinSites()))
	if err != nil {
		return err
	}
	sites, err := r.Calibration.Sites(ctx)
	if err != nil {
		return err
	}
	est, err := position.NewEstimator(r.positionConfig(), sites)
	if err != nil {
		return err
	}

	res.Run.WindowsTotal = sched.Count()
	for w := range sched.Windows() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if w.Insufficient {
			res.Gaps = append(res.Gaps, Gap{Window: w.Index, Center: w.Center, Reason: fmt.Sprintf("%d sites", len(w.Sites))})
			continue
		}

		obs := make([]position.Observation, len(w.Records))
		for i, idx := range w.Records {
			u := &usable[idx]
			obs[i] = position.Observation{RecordID: u.rec.ID, SiteID: u.rec.SiteID, Site: u.site, Likelihood: &u.l}
		}
		pe, err := est.Estimate(ctx, w.Center, obs)
		switch {
		case errors.Is(err, locate.ErrInsufficientData):
			res.Gaps = append(res.Gaps, Gap{Window: w.Index, Center: w.Center, Reason: err.Error()})
		case err != nil:
			return err
		default:
			res.Positions = append(res.Positions, pe)
		}
	}
	res.Run.WindowsEstimated = len(res.Positions)
	return nil
}

func (r *Runner) reconstruct(ctx context.Context, res *Result, deploymentID int64) error {
	g, err := track.Build(ctx, res.Positions, r.maxSpeed)
	res.Graph = g
	if err != nil {
		return err
	}
	t, err := track.Reconstruct(g, r.Config.GetHopCost())
	if err != nil {
		return fmt.Errorf("reconstruct deployment %d: %w", deploymentID, err)
	}
	t.ID = r.NewID()
	t.DeploymentID = deploymentID
	res.Track = &t
	return nil
}

// finish writes whatever the run produced and its final status. Writes use
// a context detached from cancellation so partial results survive.
func (r *Runner) finish(ctx context.Context, res *Result, runErr error) {
	wctx := context.WithoutCancel(ctx)
	cancelled := runErr != nil && (errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded))
	res.Run.WindowsEstimated = len(res.Positions)

	var saveErr error
	if runErr == nil || cancelled {
		saveErr = r.save(wctx, res)
	}

	now := r.Clock.Now()
	res.Run.FinishedAt = &now
	switch {
	case saveErr != nil:
		res.Run.Status = locate.RunFailed
		res.Run.Error = saveErr.Error()
	case cancelled:
		res.Run.Status = locate.RunCancelled
		res.Run.Error = runErr.Error()
	case runErr != nil:
		res.Run.Status = locate.RunFailed
		res.Run.Error = runErr.Error()
	default:
		res.Run.Status = locate.RunCompleted
	}
	if err := r.Positions.SaveRun(wctx, &res.Run); err != nil {
		monitoring.Logf("pipeline: run %s: failed to save status %s: %v", res.Run.RunID, res.Run.Status, err)
	}

	monitoring.Logf("pipeline: run %s deployment %d [%.0f, %.0f] %s: %d records (%d skipped), %d/%d windows, %s",
		res.Run.RunID, res.Run.DeploymentID, res.Run.Start, res.Run.End, res.Run.Status,
		res.Run.RecordsRead, res.Run.RecordsSkipped, res.Run.WindowsEstimated, res.Run.WindowsTotal,
		r.Clock.Since(res.Run.StartedAt).Round(time.Millisecond))
}

func (r *Runner) save(ctx context.Context, res *Result) error {
	if err := r.Positions.SavePositions(ctx, res.Run.RunID, res.Run.DeploymentID, res.Positions); err != nil {
		return fmt.Errorf("save positions: %w", err)
	}
	if res.Track != nil {
		if err := r.Positions.SaveTrack(ctx, res.Run.RunID, res.Track); err != nil {
			return fmt.Errorf("save track: %w", err)
		}
	}
	if res.Graph != nil && r.Config.GetSaveGraphSnapshot() {
		b, err := res.Graph.MarshalSnapshot()
		if err != nil {
			return err
		}
		if err := r.Positions.SaveGraphSnapshot(ctx, res.Run.RunID, b); err != nil {
			return fmt.Errorf("save graph snapshot: %w", err)
		}
	}
	return nil
}
