package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/radiotrack/internal/locate"
	"github.com/banshee-data/radiotrack/internal/locate/synth"
	"github.com/banshee-data/radiotrack/internal/store/sqlite"
)

// seedDB writes the triangle sites and one 300 s deployment to a temporary
// database and returns its path.
func seedDB(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "radiotrack.db")
	store, err := sqlite.Open(path)
	require.NoError(t, err)
	defer store.Close()

	sc := synth.Scenario{
		Sites: synth.TriangleSites(),
		Path: []synth.Waypoint{
			{Time: 0, Position: locate.Point{X: 40, Y: 30}},
			{Time: 300, Position: locate.Point{X: 60, Y: 40}},
		},
		PulseInterval: 10,
	}
	for _, site := range sc.Sites {
		require.NoError(t, store.InsertSite(ctx, site, ""))
		require.NoError(t, store.InsertSteeringVectors(ctx, synth.SteeringSet(site.ID, "default", synth.DefaultChannels)))
	}
	require.NoError(t, store.InsertDeployment(ctx, locate.Deployment{ID: 1, TransmitterID: "tx-1", End: 300}))
	require.NoError(t, store.InsertSignalRecords(ctx, "tx-1", sc.Records()))
	return path
}

func TestParseDeployments(t *testing.T) {
	ids, err := parseDeployments("1, 2,3")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	_, err = parseDeployments("")
	assert.Error(t, err)
	_, err = parseDeployments("1,x")
	assert.ErrorContains(t, err, `invalid deployment "x"`)
}

func TestParseFlagsDefaults(t *testing.T) {
	o, err := parseFlags([]string{"-deployment", "4"})
	require.NoError(t, err)
	assert.Equal(t, "radiotrack.db", o.dbPath)
	assert.Equal(t, []int64{4}, o.deployments)
	assert.Zero(t, o.start)
	assert.Zero(t, o.end)
	assert.False(t, o.debug)
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, &out))
	assert.Contains(t, out.String(), "locate dev")
}

func TestRunWritesReports(t *testing.T) {
	dbPath := seedDB(t)
	plots := filepath.Join(t.TempDir(), "plots")
	html := filepath.Join(t.TempDir(), "html")

	var out bytes.Buffer
	err := run(context.Background(), []string{"-db", dbPath, "-deployment", "1", "-plots", plots, "-html", html}, &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "deployment 1 run")
	assert.Contains(t, text, "completed")
	assert.Contains(t, text, "records 93 (skipped 0)")
	assert.Contains(t, text, "m/s")

	for _, f := range []string{
		filepath.Join(plots, "deployment_1", "track.png"),
		filepath.Join(plots, "deployment_1", "bearing_likelihood.png"),
		filepath.Join(html, "deployment_1.html"),
	} {
		_, err := os.Stat(f)
		assert.NoError(t, err, f)
	}
}

func TestRunReportsFailedJobs(t *testing.T) {
	dbPath := seedDB(t)
	var out bytes.Buffer
	err := run(context.Background(), []string{"-db", dbPath, "-deployment", "1,99"}, &out)
	assert.ErrorContains(t, err, "1 of 2 jobs failed")
	assert.Contains(t, out.String(), "deployment 99")
	assert.Contains(t, out.String(), "failed")
}

func TestRunBadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(cfg, []byte(`{"min_sites": 1}`), 0644))
	err := run(context.Background(), []string{"-db", filepath.Join(dir, "x.db"), "-deployment", "1", "-config", cfg}, &bytes.Buffer{})
	assert.Error(t, err)
}
