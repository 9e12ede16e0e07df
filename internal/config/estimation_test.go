package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	t.Parallel()
	c := EmptyEstimationConfig()

	assert.Equal(t, "default", c.GetCalibrationID())
	assert.Equal(t, "likelihood", c.GetBearingSource())
	assert.Equal(t, 2, c.GetMinSites())
	assert.Equal(t, 100.0, c.GetGridInitialScale())
	assert.Equal(t, 15, c.GetGridSpan())
	assert.Equal(t, 10.0, c.GetGridShrinkFactor())
	assert.Equal(t, 3, c.GetGridRounds())
	assert.Equal(t, 1.0, c.GetGridResolutionFloor())
	assert.Equal(t, SpeedModelExponential, c.GetMaxSpeedModel())
	assert.Equal(t, 0.0, c.GetHopCost())
	assert.Equal(t, "mps", c.GetSpeedUnits())
	assert.False(t, c.GetSaveGraphSnapshot())

	_, _, ok := c.GetInitialCenter()
	assert.False(t, ok)
	require.NoError(t, c.Validate())
}

func TestDefaultConfigMatchesGetters(t *testing.T) {
	t.Parallel()
	d := DefaultEstimationConfig()
	require.NoError(t, d.Validate())

	e := EmptyEstimationConfig()
	assert.Equal(t, e.GetWindowSizeSeconds(), *d.WindowSizeSeconds)
	assert.Equal(t, e.GetStepSizeSeconds(), *d.StepSizeSeconds)
	assert.Equal(t, e.GetMaxSpeed(), *d.MaxSpeed)
	assert.Equal(t, e.GetWorkers(), *d.Workers)
}

func TestDefaultsFileMatchesBuiltins(t *testing.T) {
	t.Parallel()
	cfg, err := LoadEstimationConfig(filepath.Join("..", "..", DefaultConfigPath))
	require.NoError(t, err)
	assert.Equal(t, DefaultEstimationConfig(), cfg)
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "run.json", `{"window_size_seconds": 20, "hop_cost": -0.5, "max_speed_model": "linear"}`)

	cfg, err := LoadEstimationConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 20.0, cfg.GetWindowSizeSeconds())
	assert.Equal(t, -0.5, cfg.GetHopCost())
	assert.Equal(t, SpeedModelLinear, cfg.GetMaxSpeedModel())
	// Unset fields fall back.
	assert.Equal(t, 30.0, cfg.GetStepSizeSeconds())
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	body := strings.Join([]string{
		"calibration_id: field-2024",
		"bearing_source: manual",
		"manual_bearing_sigma_deg: 8",
		"initial_easting: 500",
		"initial_northing: 250",
		"workers: 2",
	}, "\n")

	for _, name := range []string{"run.yaml", "run.yml"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg, err := LoadEstimationConfig(writeConfig(t, name, body))
			require.NoError(t, err)
			assert.Equal(t, "field-2024", cfg.GetCalibrationID())
			assert.Equal(t, "manual", cfg.GetBearingSource())
			assert.Equal(t, 8.0, cfg.GetManualBearingSigmaDeg())
			x, y, ok := cfg.GetInitialCenter()
			require.True(t, ok)
			assert.Equal(t, 500.0, x)
			assert.Equal(t, 250.0, y)
			assert.Equal(t, 2, cfg.GetWorkers())
		})
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"bad extension", "run.toml", `x = 1`, "extension"},
		{"bad json", "run.json", `{`, "parse config JSON"},
		{"bad yaml", "run.yaml", "window_size_seconds: [", "parse config YAML"},
		{"unknown bearing source", "run.json", `{"bearing_source": "magic"}`, "invalid configuration"},
		{"negative window", "run.json", `{"window_size_seconds": -1}`, "invalid configuration"},
		{"min sites one", "run.json", `{"min_sites": 1}`, "invalid configuration"},
		{"shrink not above one", "run.json", `{"grid_shrink_factor": 1}`, "invalid configuration"},
		{"half initial centre", "run.json", `{"initial_easting": 10}`, "invalid configuration"},
		{"sustained above max", "run.json", `{"max_speed": 3, "sustained_speed": 5}`, "sustained_speed"},
		{"unknown speed units", "run.json", `{"speed_units": "knots"}`, "valid units: mps, mph, kmph, kph"},
		{"floor above scale", "run.json", `{"grid_initial_scale": 5, "grid_resolution_floor": 10}`, "grid_resolution_floor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadEstimationConfig(writeConfig(t, tt.file, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	_, err := LoadEstimationConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stat")
}

func TestLoadRejectsLargeFile(t *testing.T) {
	t.Parallel()
	big := `{"calibration_id": "` + strings.Repeat("a", 2*1024*1024) + `"}`
	_, err := LoadEstimationConfig(writeConfig(t, "big.json", big))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestJSONRoundTripsThroughLoader(t *testing.T) {
	t.Parallel()
	cfg := DefaultEstimationConfig()
	path := writeConfig(t, "stored.json", cfg.JSON())

	loaded, err := LoadEstimationConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
