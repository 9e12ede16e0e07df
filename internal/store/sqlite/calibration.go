package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/banshee-data/radiotrack/internal/locate"
)

// InsertSite stores a receiver site or updates its surveyed position.
func (s *Store) InsertSite(ctx context.Context, site locate.Site, description string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sites (site_id, easting, northing, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (site_id) DO UPDATE SET
			easting = excluded.easting,
			northing = excluded.northing,
			description = excluded.description`,
		string(site.ID), site.Position.X, site.Position.Y, nullString(description),
	)
	if err != nil {
		return fmt.Errorf("insert site %s: %w", site.ID, err)
	}
	return nil
}

// Sites returns every surveyed site ordered by ID.
func (s *Store) Sites(ctx context.Context) ([]locate.Site, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT site_id, easting, northing FROM sites ORDER BY site_id`)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer rows.Close()

	var sites []locate.Site
	for rows.Next() {
		var (
			site locate.Site
			id   string
		)
		if err := rows.Scan(&id, &site.Position.X, &site.Position.Y); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		site.ID = locate.SiteID(id)
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// InsertSteeringVectors replaces the calibration table of one site and
// calibration ID.
func (s *Store) InsertSteeringVectors(ctx context.Context, set *locate.SteeringVectorSet) error {
	if len(set.Bearings) != len(set.Vectors) {
		return fmt.Errorf("steering vectors for %s: %d bearings but %d vectors",
			set.SiteID, len(set.Bearings), len(set.Vectors))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM steering_vectors WHERE site_id = ? AND calibration_id = ?`,
		string(set.SiteID), set.CalibrationID,
	); err != nil {
		return fmt.Errorf("delete steering vectors: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO steering_vectors (site_id, calibration_id, bearing_deg, vector_blob)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, deg := range set.Bearings {
		blob, err := encodeComplex(set.Vectors[i])
		if err != nil {
			return fmt.Errorf("bearing %d: %w", deg, err)
		}
		if _, err := stmt.ExecContext(ctx, string(set.SiteID), set.CalibrationID, deg, blob); err != nil {
			return fmt.Errorf("insert steering vector %s/%d: %w", set.SiteID, deg, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SteeringVectors loads the calibration table of one site. The error wraps
// locate.ErrCalibrationMissing when the site has no vectors for calibrationID.
func (s *Store) SteeringVectors(ctx context.Context, siteID locate.SiteID, calibrationID string) (*locate.SteeringVectorSet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bearing_deg, vector_blob
		FROM steering_vectors
		WHERE site_id = ? AND calibration_id = ?
		ORDER BY bearing_deg`,
		string(siteID), calibrationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query steering vectors: %w", err)
	}
	defer rows.Close()

	set := &locate.SteeringVectorSet{SiteID: siteID, CalibrationID: calibrationID}
	for rows.Next() {
		var (
			deg  int
			blob []byte
		)
		if err := rows.Scan(&deg, &blob); err != nil {
			return nil, fmt.Errorf("scan steering vector: %w", err)
		}
		v, err := decodeComplex(blob)
		if err != nil {
			return nil, fmt.Errorf("site %s bearing %d: %w", siteID, deg, err)
		}
		set.Bearings = append(set.Bearings, deg)
		set.Vectors = append(set.Vectors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(set.Bearings) == 0 {
		return nil, fmt.Errorf("site %s calibration %q: %w", siteID, calibrationID, locate.ErrCalibrationMissing)
	}
	set.Channels = len(set.Vectors[0])
	return set, nil
}

// CalibrationIDs lists the calibration runs stored for a site.
func (s *Store) CalibrationIDs(ctx context.Context, siteID locate.SiteID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT calibration_id FROM steering_vectors
		WHERE site_id = ? ORDER BY calibration_id`, string(siteID))
	if err != nil {
		return nil, fmt.Errorf("query calibration ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id sql.NullString
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan calibration id: %w", err)
		}
		ids = append(ids, id.String)
	}
	return ids, rows.Err()
}
