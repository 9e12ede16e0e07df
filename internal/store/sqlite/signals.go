package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/banshee-data/radiotrack/internal/locate"
)

// ErrDeploymentNotFound is returned for an unknown deployment ID.
var ErrDeploymentNotFound = errors.New("deployment not found")

// InsertDeployment stores a deployment or updates its time bounds.
func (s *Store) InsertDeployment(ctx context.Context, d locate.Deployment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deployments (deployment_id, transmitter_id, start_unix, end_unix)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (deployment_id) DO UPDATE SET
			transmitter_id = excluded.transmitter_id,
			start_unix = excluded.start_unix,
			end_unix = excluded.end_unix`,
		d.ID, d.TransmitterID, d.Start, d.End,
	)
	if err != nil {
		return fmt.Errorf("insert deployment %d: %w", d.ID, err)
	}
	return nil
}

// Deployment returns the deployment with the given ID.
func (s *Store) Deployment(ctx context.Context, deploymentID int64) (*locate.Deployment, error) {
	d := &locate.Deployment{}
	err := s.db.QueryRowContext(ctx, `
		SELECT deployment_id, transmitter_id, start_unix, end_unix
		FROM deployments
		WHERE deployment_id = ?`, deploymentID,
	).Scan(&d.ID, &d.TransmitterID, &d.Start, &d.End)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrDeploymentNotFound, deploymentID)
	}
	if err != nil {
		return nil, fmt.Errorf("query deployment %d: %w", deploymentID, err)
	}
	return d, nil
}

// InsertSignalRecords stores records heard from the given transmitter in a
// single transaction. Records with ID 0 are assigned the next free ID.
func (s *Store) InsertSignalRecords(ctx context.Context, transmitterID string, recs []locate.SignalRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signal_records (record_id, transmitter_id, site_id, timestamp, manual_bearing, signal_blob)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		blob, err := encodeComplex(rec.Signal)
		if err != nil {
			return fmt.Errorf("record %d: %w", rec.ID, err)
		}
		var id any
		if rec.ID != 0 {
			id = rec.ID
		}
		if _, err := stmt.ExecContext(ctx,
			id, transmitterID, string(rec.SiteID), rec.Timestamp, nullFloat64(rec.ManualBearing), blob,
		); err != nil {
			return fmt.Errorf("insert record %d: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SignalRecords returns the records of the deployment's transmitter with
// timestamps in [start, end], ordered by timestamp then record ID.
func (s *Store) SignalRecords(ctx context.Context, deploymentID int64, start, end float64) ([]locate.SignalRecord, error) {
	d, err := s.Deployment(ctx, deploymentID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id, site_id, timestamp, manual_bearing, signal_blob
		FROM signal_records
		WHERE transmitter_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp, record_id`,
		d.TransmitterID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("query signal records: %w", err)
	}
	defer rows.Close()

	var recs []locate.SignalRecord
	for rows.Next() {
		var (
			rec    locate.SignalRecord
			siteID string
			manual sql.NullFloat64
			blob   []byte
		)
		if err := rows.Scan(&rec.ID, &siteID, &rec.Timestamp, &manual, &blob); err != nil {
			return nil, fmt.Errorf("scan signal record: %w", err)
		}
		rec.SiteID = locate.SiteID(siteID)
		if manual.Valid {
			v := manual.Float64
			rec.ManualBearing = &v
		}
		if rec.Signal, err = decodeComplex(blob); err != nil {
			return nil, fmt.Errorf("record %d: %w", rec.ID, err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
