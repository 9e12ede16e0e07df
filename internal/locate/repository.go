package locate

import (
	"context"
	"time"
)

// SignalRecordRepository supplies detected pulses for a deployment.
type SignalRecordRepository interface {
	// Deployment returns the deployment with the given ID.
	Deployment(ctx context.Context, deploymentID int64) (*Deployment, error)
	// SignalRecords returns the deployment's records with timestamps in
	// [start, end], ordered by timestamp then record ID.
	SignalRecords(ctx context.Context, deploymentID int64, start, end float64) ([]SignalRecord, error)
}

// CalibrationRepository supplies static site and calibration data.
type CalibrationRepository interface {
	// Sites returns every surveyed receiver site.
	Sites(ctx context.Context) ([]Site, error)
	// SteeringVectors returns the calibration table of one site. It returns
	// an error wrapping ErrCalibrationMissing when no vectors exist.
	SteeringVectors(ctx context.Context, siteID SiteID, calibrationID string) (*SteeringVectorSet, error)
}

// RunStatus is the lifecycle state of an estimation run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled" // partial results persisted
	RunFailed    RunStatus = "failed"
)

// Run describes one invocation of the pipeline over a deployment and range.
type Run struct {
	RunID            string
	DeploymentID     int64
	Start            float64
	End              float64
	Status           RunStatus
	RecordsRead      int
	RecordsSkipped   int
	WindowsTotal     int
	WindowsEstimated int
	ConfigJSON       string
	StartedAt        time.Time
	FinishedAt       *time.Time
	Error            string
}

// PositionRepository persists pipeline output.
type PositionRepository interface {
	// SaveRun inserts or updates the run record.
	SaveRun(ctx context.Context, run *Run) error
	// SavePositions stores the position estimates of a run.
	SavePositions(ctx context.Context, runID string, deploymentID int64, estimates []PositionEstimate) error
	// SaveTrack stores a reconstructed track for a run.
	SaveTrack(ctx context.Context, runID string, track *Track) error
	// SaveGraphSnapshot stores the encoded track graph of a run.
	SaveGraphSnapshot(ctx context.Context, runID string, snapshot []byte) error
}
