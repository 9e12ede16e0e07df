package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/radiotrack/internal/locate"
	"github.com/banshee-data/radiotrack/internal/locate/synth"
	"github.com/banshee-data/radiotrack/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "radiotrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedTriangle stores the triangle sites with calibration and a deployment
// whose transmitter moves from (40,30) to (60,40) over 300 s.
func seedTriangle(t *testing.T, s *Store) synth.Scenario {
	t.Helper()
	ctx := context.Background()
	sc := synth.Scenario{
		Sites: synth.TriangleSites(),
		Path: []synth.Waypoint{
			{Time: 0, Position: locate.Point{X: 40, Y: 30}},
			{Time: 300, Position: locate.Point{X: 60, Y: 40}},
		},
		PulseInterval: 10,
	}
	for _, site := range sc.Sites {
		require.NoError(t, s.InsertSite(ctx, site, ""))
		require.NoError(t, s.InsertSteeringVectors(ctx, synth.SteeringSet(site.ID, "default", synth.DefaultChannels)))
	}
	require.NoError(t, s.InsertDeployment(ctx, locate.Deployment{ID: 1, TransmitterID: "tx-1", Start: 0, End: 300}))
	require.NoError(t, s.InsertSignalRecords(ctx, "tx-1", sc.Records()))
	return sc
}

func TestOpenAppliesPragmasAndMigrations(t *testing.T) {
	s := openTestStore(t)

	var mode string
	require.NoError(t, s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	for _, table := range []string{
		"sites", "deployments", "signal_records", "steering_vectors",
		"estimation_runs", "position_estimates", "tracks", "track_points",
		"track_graph_snapshots",
	} {
		var name string
		err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.MigrateUp())

	// Reopening an existing database is a no-op migration.
	path := filepath.Join(t.TempDir(), "reopen.db")
	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())
	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	version, _, err := second.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestMigrateDown(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.MigrateDown())

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'sites'`).Scan(&n))
	assert.Equal(t, 0, n)

	require.NoError(t, s.MigrateUp())
	version, _, err = s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestOpenInvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "radiotrack.db"))
	assert.Error(t, err)
}
