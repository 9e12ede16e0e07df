package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/radiotrack/internal/locate"
)

func TestRunManyIsolatesFailures(t *testing.T) {
	t.Parallel()
	store := newStore()
	seed(store, 3, scenario())
	cfg := testConfig()
	cfg.Workers = ptr(2)
	r := newRunner(t, store, cfg)

	jobs := []Job{{DeploymentID: 1}, {DeploymentID: 2}, {DeploymentID: 3}}
	results := r.RunMany(context.Background(), jobs)
	require.Len(t, results, 3)

	for i, res := range results {
		assert.Equal(t, jobs[i], res.Job)
	}
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)

	assert.Equal(t, locate.RunCompleted, results[0].Run.Status)
	assert.Equal(t, locate.RunFailed, results[1].Run.Status)
	assert.Equal(t, locate.RunCompleted, results[2].Run.Status)
	assert.Len(t, results[2].Positions, 11)
	assert.NotEqual(t, results[0].Run.RunID, results[2].Run.RunID)
	assert.Len(t, store.Runs(), 3)
}

func TestRunManyEmpty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, newRunner(t, newStore(), testConfig()).RunMany(context.Background(), nil))
}
