package position

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/radiotrack/internal/locate"
	"github.com/banshee-data/radiotrack/internal/locate/bearing"
	"github.com/banshee-data/radiotrack/internal/locate/synth"
	"github.com/banshee-data/radiotrack/internal/testutil"
)

// observe builds exact, noiseless observations of target from every site.
func observe(t *testing.T, sites []locate.Site, target locate.Point) []Observation {
	t.Helper()
	e := bearing.NewEngine()
	var obs []Observation
	for i, s := range sites {
		set := synth.SteeringSet(s.ID, "cal", synth.DefaultChannels)
		l, err := e.Likelihood(synth.Signal(synth.DefaultChannels, s.Position, target, 1, 0), set)
		require.NoError(t, err)
		obs = append(obs, Observation{RecordID: int64(i + 1), SiteID: s.ID, Site: s.Position, Likelihood: &l})
	}
	return obs
}

func newEstimator(t *testing.T, cfg Config, sites []locate.Site) *Estimator {
	t.Helper()
	e, err := NewEstimator(cfg, sites)
	require.NoError(t, err)
	return e
}

func TestEstimateConvergesAtCentroid(t *testing.T) {
	t.Parallel()
	sites := synth.TriangleSites()
	target := locate.Point{X: 50, Y: 28.87}

	e := newEstimator(t, DefaultConfig(), sites)
	est, err := e.Estimate(context.Background(), 42, observe(t, sites, target))
	require.NoError(t, err)

	testutil.AssertPointNear(t, est.Position, target, 1)
	assert.Equal(t, 42.0, est.Time)
	assert.InDelta(t, 3.0, est.Likelihood, 1e-3)
	assert.InDelta(t, 1.0986, est.LogLikelihood, 1e-3)
	assert.Equal(t, []locate.SiteID{"a", "b", "c"}, est.Sites)
	assert.Equal(t, []int64{1, 2, 3}, est.RecordIDs)
}

func TestEstimateConvergesOffCentre(t *testing.T) {
	t.Parallel()
	sites := synth.TriangleSites()
	e := newEstimator(t, DefaultConfig(), sites)

	for _, target := range []locate.Point{{X: 30, Y: 40}, {X: 70, Y: 10}, {X: 150, Y: 60}} {
		est, err := e.Estimate(context.Background(), 0, observe(t, sites, target))
		require.NoError(t, err)
		testutil.AssertPointNear(t, est.Position, target, 1)
	}
}

func TestSingleSiteIsInsufficient(t *testing.T) {
	t.Parallel()
	sites := synth.TriangleSites()
	obs := observe(t, sites, locate.Point{X: 50, Y: 30})[:1]
	// A second record from the same site still counts once.
	obs = append(obs, Observation{RecordID: 9, SiteID: obs[0].SiteID, Site: obs[0].Site, Likelihood: obs[0].Likelihood})

	_, err := newEstimator(t, DefaultConfig(), sites).Estimate(context.Background(), 0, obs)
	testutil.AssertErrorIs(t, err, locate.ErrInsufficientData)
}

func TestZeroLikelihoodIsInsufficient(t *testing.T) {
	t.Parallel()
	var zero bearing.Likelihood
	obs := []Observation{
		{RecordID: 1, SiteID: "a", Likelihood: &zero},
		{RecordID: 2, SiteID: "b", Site: locate.Point{X: 100}, Likelihood: &zero},
	}
	_, err := newEstimator(t, DefaultConfig(), synth.TriangleSites()).Estimate(context.Background(), 0, obs)
	testutil.AssertErrorIs(t, err, locate.ErrInsufficientData)
}

func TestEstimateIsDeterministic(t *testing.T) {
	t.Parallel()
	sites := synth.TriangleSites()
	obs := observe(t, sites, locate.Point{X: 20, Y: 60})
	e := newEstimator(t, DefaultConfig(), sites)

	first, err := e.Estimate(context.Background(), 0, obs)
	require.NoError(t, err)
	second, err := e.Estimate(context.Background(), 0, obs)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTieBreakIsRowMajorFirst(t *testing.T) {
	t.Parallel()
	var flat bearing.Likelihood
	for i := range flat {
		flat[i] = 1
	}
	obs := []Observation{
		{RecordID: 1, SiteID: "a", Likelihood: &flat},
		{RecordID: 2, SiteID: "b", Site: locate.Point{X: 100}, Likelihood: &flat},
	}
	start := locate.Point{X: 1000, Y: 2000}
	cfg := DefaultConfig()
	cfg.Center = &start

	est, err := newEstimator(t, cfg, nil).Estimate(context.Background(), 0, obs)
	require.NoError(t, err)
	// Every round keeps the south-west corner: 15 cells of 100, 10 and 1.
	assert.InDelta(t, 1000-1665, est.Position.X, 1e-9)
	assert.InDelta(t, 2000-1665, est.Position.Y, 1e-9)
}

func TestFloorStopsRefinement(t *testing.T) {
	t.Parallel()
	var flat bearing.Likelihood
	for i := range flat {
		flat[i] = 1
	}
	obs := []Observation{
		{RecordID: 1, SiteID: "a", Likelihood: &flat},
		{RecordID: 2, SiteID: "b", Likelihood: &flat},
	}
	cfg := DefaultConfig()
	cfg.Floor = 5 // rounds at 100 and 10 only
	cfg.Center = &locate.Point{}

	est, err := newEstimator(t, cfg, nil).Estimate(context.Background(), 0, obs)
	require.NoError(t, err)
	assert.InDelta(t, -1650, est.Position.X, 1e-9)
}

func TestDefaultCenterIsSiteCentroid(t *testing.T) {
	t.Parallel()
	e := newEstimator(t, DefaultConfig(), synth.TriangleSites())
	testutil.AssertPointNear(t, e.Center(), locate.Point{X: 50, Y: 28.8667}, 1e-3)
}

func TestEstimateHonoursCancellation(t *testing.T) {
	t.Parallel()
	sites := synth.TriangleSites()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newEstimator(t, DefaultConfig(), sites).Estimate(ctx, 0, observe(t, sites, locate.Point{X: 50, Y: 30}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEstimatorValidates(t *testing.T) {
	t.Parallel()
	mutate := []func(*Config){
		func(c *Config) { c.InitialScale = 0 },
		func(c *Config) { c.Span = 0 },
		func(c *Config) { c.Shrink = 1 },
		func(c *Config) { c.Rounds = 0 },
		func(c *Config) { c.Floor = -1 },
		func(c *Config) { c.MinSites = 0 },
	}
	for i, m := range mutate {
		cfg := DefaultConfig()
		m(&cfg)
		_, err := NewEstimator(cfg, nil)
		assert.Error(t, err, "case %d", i)
	}
}
