package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/radiotrack/internal/locate"
)

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// SaveRun inserts the run or updates its status and counters.
func (s *Store) SaveRun(ctx context.Context, run *locate.Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	var finished sql.NullFloat64
	if run.FinishedAt != nil {
		finished = sql.NullFloat64{Float64: unixSeconds(*run.FinishedAt), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO estimation_runs (
			run_id, deployment_id, start_unix, end_unix, status,
			records_read, records_skipped, windows_total, windows_estimated,
			config_json, started_at, finished_at, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET
			start_unix = excluded.start_unix,
			end_unix = excluded.end_unix,
			status = excluded.status,
			records_read = excluded.records_read,
			records_skipped = excluded.records_skipped,
			windows_total = excluded.windows_total,
			windows_estimated = excluded.windows_estimated,
			finished_at = excluded.finished_at,
			error = excluded.error`,
		run.RunID, run.DeploymentID, run.Start, run.End, string(run.Status),
		run.RecordsRead, run.RecordsSkipped, run.WindowsTotal, run.WindowsEstimated,
		nullString(run.ConfigJSON), unixSeconds(run.StartedAt), finished, nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.RunID, err)
	}
	return nil
}

// Run returns a stored run.
func (s *Store) Run(ctx context.Context, runID string) (*locate.Run, error) {
	runs, err := s.queryRuns(ctx, `WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return runs[0], nil
}

// Runs lists the runs of a deployment, oldest first.
func (s *Store) Runs(ctx context.Context, deploymentID int64) ([]*locate.Run, error) {
	return s.queryRuns(ctx, `WHERE deployment_id = ? ORDER BY started_at, run_id`, deploymentID)
}

func (s *Store) queryRuns(ctx context.Context, where string, args ...any) ([]*locate.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, deployment_id, start_unix, end_unix, status,
		       records_read, records_skipped, windows_total, windows_estimated,
		       config_json, started_at, finished_at, error
		FROM estimation_runs `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*locate.Run
	for rows.Next() {
		var (
			r          locate.Run
			status     string
			configJSON sql.NullString
			started    float64
			finished   sql.NullFloat64
			errText    sql.NullString
		)
		if err := rows.Scan(
			&r.RunID, &r.DeploymentID, &r.Start, &r.End, &status,
			&r.RecordsRead, &r.RecordsSkipped, &r.WindowsTotal, &r.WindowsEstimated,
			&configJSON, &started, &finished, &errText,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Status = locate.RunStatus(status)
		r.ConfigJSON = configJSON.String
		r.StartedAt = fromUnixSeconds(started)
		if finished.Valid {
			t := fromUnixSeconds(finished.Float64)
			r.FinishedAt = &t
		}
		r.Error = errText.String
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// SavePositions replaces the position estimates of a run.
func (s *Store) SavePositions(ctx context.Context, runID string, deploymentID int64, estimates []locate.PositionEstimate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM position_estimates WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete positions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO position_estimates (
			run_id, deployment_id, timestamp, easting, northing,
			likelihood, log_likelihood, site_ids, site_count, record_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range estimates {
		sites, err := json.Marshal(e.Sites)
		if err != nil {
			return fmt.Errorf("marshal sites: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			runID, deploymentID, e.Time, e.Position.X, e.Position.Y,
			e.Likelihood, e.LogLikelihood, string(sites), len(e.Sites), len(e.RecordIDs),
		); err != nil {
			return fmt.Errorf("insert position at %.3f: %w", e.Time, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Positions returns the estimates of a run in time order. Record IDs are
// not stored, only their count.
func (s *Store) Positions(ctx context.Context, runID string) ([]locate.PositionEstimate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, easting, northing, likelihood, log_likelihood, site_ids
		FROM position_estimates
		WHERE run_id = ?
		ORDER BY timestamp`, runID)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var out []locate.PositionEstimate
	for rows.Next() {
		var (
			e     locate.PositionEstimate
			sites string
		)
		if err := rows.Scan(&e.Time, &e.Position.X, &e.Position.Y, &e.Likelihood, &e.LogLikelihood, &sites); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		if err := json.Unmarshal([]byte(sites), &e.Sites); err != nil {
			return nil, fmt.Errorf("unmarshal sites: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveTrack stores a track and its points. A new UUID is assigned when
// track.ID is empty.
func (s *Store) SaveTrack(ctx context.Context, runID string, track *locate.Track) error {
	if track.ID == "" {
		track.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	sum := track.Summary
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tracks (
			track_id, run_id, deployment_id, score, point_count,
			duration_s, path_length, mean_speed, stddev_speed, max_speed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		track.ID, runID, track.DeploymentID, track.Score, sum.PointCount,
		sum.Duration, sum.PathLength, sum.MeanSpeed, sum.StdDevSpeed, sum.MaxSpeed,
	); err != nil {
		return fmt.Errorf("insert track %s: %w", track.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO track_points (track_id, seq, timestamp, easting, northing, log_likelihood)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range track.Points {
		if _, err := stmt.ExecContext(ctx, track.ID, i, p.Time, p.Position.X, p.Position.Y, p.LogLikelihood); err != nil {
			return fmt.Errorf("insert track point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Tracks returns the tracks stored for a run with their points.
func (s *Store) Tracks(ctx context.Context, runID string) ([]locate.Track, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT track_id, deployment_id, score, point_count,
		       duration_s, path_length, mean_speed, stddev_speed, max_speed
		FROM tracks
		WHERE run_id = ?
		ORDER BY track_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}

	var tracks []locate.Track
	for rows.Next() {
		var t locate.Track
		sum := &t.Summary
		if err := rows.Scan(&t.ID, &t.DeploymentID, &t.Score, &sum.PointCount,
			&sum.Duration, &sum.PathLength, &sum.MeanSpeed, &sum.StdDevSpeed, &sum.MaxSpeed,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan track: %w", err)
		}
		tracks = append(tracks, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The store holds one connection, so points are read after the track
	// cursor is closed.
	for i := range tracks {
		pts, err := s.trackPoints(ctx, tracks[i].ID)
		if err != nil {
			return nil, err
		}
		tracks[i].Points = pts
	}
	return tracks, nil
}

func (s *Store) trackPoints(ctx context.Context, trackID string) ([]locate.TrackPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, easting, northing, log_likelihood
		FROM track_points
		WHERE track_id = ?
		ORDER BY seq`, trackID)
	if err != nil {
		return nil, fmt.Errorf("query track points: %w", err)
	}
	defer rows.Close()

	var pts []locate.TrackPoint
	for rows.Next() {
		var p locate.TrackPoint
		if err := rows.Scan(&p.Time, &p.Position.X, &p.Position.Y, &p.LogLikelihood); err != nil {
			return nil, fmt.Errorf("scan track point: %w", err)
		}
		pts = append(pts, p)
	}
	return pts, rows.Err()
}

// SaveGraphSnapshot stores or replaces the encoded track graph of a run.
func (s *Store) SaveGraphSnapshot(ctx context.Context, runID string, snapshot []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO track_graph_snapshots (run_id, graph_blob, created_at)
		VALUES (?, ?, ?)`,
		runID, snapshot, unixSeconds(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save graph snapshot %s: %w", runID, err)
	}
	return nil
}

// GraphSnapshot returns the encoded track graph of a run.
func (s *Store) GraphSnapshot(ctx context.Context, runID string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT graph_blob FROM track_graph_snapshots WHERE run_id = ?`, runID,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no snapshot for %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("query graph snapshot: %w", err)
	}
	return blob, nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnixSeconds(s float64) time.Time {
	return time.Unix(0, int64(s*1e9)).UTC()
}
