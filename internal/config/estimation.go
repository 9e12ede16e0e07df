package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/radiotrack/internal/units"
)

// DefaultConfigPath is the path to the canonical estimation defaults file.
const DefaultConfigPath = "config/estimation.defaults.json"

// Speed model names accepted by max_speed_model.
const (
	SpeedModelConstant    = "constant"
	SpeedModelLinear      = "linear"
	SpeedModelExponential = "exponential"
)

// EstimationConfig represents the root configuration of a pipeline run.
// Every field is optional; the Get* methods supply defaults, so partial
// files are safe. The same schema is stored with each run as config_json.
type EstimationConfig struct {
	// Calibration / bearing params
	CalibrationID         *string  `json:"calibration_id,omitempty" yaml:"calibration_id,omitempty" validate:"omitempty,min=1"`
	BearingSource         *string  `json:"bearing_source,omitempty" yaml:"bearing_source,omitempty" validate:"omitempty,oneof=likelihood manual"`
	ManualBearingSigmaDeg *float64 `json:"manual_bearing_sigma_deg,omitempty" yaml:"manual_bearing_sigma_deg,omitempty" validate:"omitempty,gt=0,lte=90"`

	// Window params (seconds)
	WindowSizeSeconds *float64 `json:"window_size_seconds,omitempty" yaml:"window_size_seconds,omitempty" validate:"omitempty,gt=0"`
	StepSizeSeconds   *float64 `json:"step_size_seconds,omitempty" yaml:"step_size_seconds,omitempty" validate:"omitempty,gt=0"`
	MinSites          *int     `json:"min_sites,omitempty" yaml:"min_sites,omitempty" validate:"omitempty,gte=2"`

	// Grid search params
	GridInitialScale    *float64 `json:"grid_initial_scale,omitempty" yaml:"grid_initial_scale,omitempty" validate:"omitempty,gt=0"`
	GridSpan            *int     `json:"grid_span,omitempty" yaml:"grid_span,omitempty" validate:"omitempty,gte=1,lte=500"`
	GridShrinkFactor    *float64 `json:"grid_shrink_factor,omitempty" yaml:"grid_shrink_factor,omitempty" validate:"omitempty,gt=1"`
	GridRounds          *int     `json:"grid_rounds,omitempty" yaml:"grid_rounds,omitempty" validate:"omitempty,gte=1,lte=20"`
	GridResolutionFloor *float64 `json:"grid_resolution_floor,omitempty" yaml:"grid_resolution_floor,omitempty" validate:"omitempty,gt=0"`
	InitialEasting      *float64 `json:"initial_easting,omitempty" yaml:"initial_easting,omitempty" validate:"required_with=InitialNorthing"`
	InitialNorthing     *float64 `json:"initial_northing,omitempty" yaml:"initial_northing,omitempty" validate:"required_with=InitialEasting"`

	// Track params
	MaxSpeedModel     *string  `json:"max_speed_model,omitempty" yaml:"max_speed_model,omitempty" validate:"omitempty,oneof=constant linear exponential"`
	MaxSpeed          *float64 `json:"max_speed,omitempty" yaml:"max_speed,omitempty" validate:"omitempty,gt=0"`
	SustainedSpeed    *float64 `json:"sustained_speed,omitempty" yaml:"sustained_speed,omitempty" validate:"omitempty,gt=0"`
	SpeedDecaySeconds *float64 `json:"speed_decay_seconds,omitempty" yaml:"speed_decay_seconds,omitempty" validate:"omitempty,gt=0"`
	HopCost           *float64 `json:"hop_cost,omitempty" yaml:"hop_cost,omitempty"`

	// Output / execution params
	SpeedUnits        *string `json:"speed_units,omitempty" yaml:"speed_units,omitempty"`
	Workers           *int    `json:"workers,omitempty" yaml:"workers,omitempty" validate:"omitempty,gte=1,lte=64"`
	SaveGraphSnapshot *bool   `json:"save_graph_snapshot,omitempty" yaml:"save_graph_snapshot,omitempty"`
}

var validate = validator.New()

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyEstimationConfig returns a config with all fields unset.
func EmptyEstimationConfig() *EstimationConfig {
	return &EstimationConfig{}
}

// DefaultEstimationConfig returns a config with every field populated from
// the built-in defaults.
func DefaultEstimationConfig() *EstimationConfig {
	c := EmptyEstimationConfig()
	return &EstimationConfig{
		CalibrationID:         ptrString(c.GetCalibrationID()),
		BearingSource:         ptrString(c.GetBearingSource()),
		ManualBearingSigmaDeg: ptrFloat64(c.GetManualBearingSigmaDeg()),
		WindowSizeSeconds:     ptrFloat64(c.GetWindowSizeSeconds()),
		StepSizeSeconds:       ptrFloat64(c.GetStepSizeSeconds()),
		MinSites:              ptrInt(c.GetMinSites()),
		GridInitialScale:      ptrFloat64(c.GetGridInitialScale()),
		GridSpan:              ptrInt(c.GetGridSpan()),
		GridShrinkFactor:      ptrFloat64(c.GetGridShrinkFactor()),
		GridRounds:            ptrInt(c.GetGridRounds()),
		GridResolutionFloor:   ptrFloat64(c.GetGridResolutionFloor()),
		MaxSpeedModel:         ptrString(c.GetMaxSpeedModel()),
		MaxSpeed:              ptrFloat64(c.GetMaxSpeed()),
		SustainedSpeed:        ptrFloat64(c.GetSustainedSpeed()),
		SpeedDecaySeconds:     ptrFloat64(c.GetSpeedDecaySeconds()),
		HopCost:               ptrFloat64(c.GetHopCost()),
		SpeedUnits:            ptrString(c.GetSpeedUnits()),
		Workers:               ptrInt(c.GetWorkers()),
		SaveGraphSnapshot:     ptrBool(c.GetSaveGraphSnapshot()),
	}
}

// LoadEstimationConfig loads an EstimationConfig from a .json, .yaml or .yml file.
// The file is checked for extension and size before parsing, then validated.
func LoadEstimationConfig(path string) (*EstimationConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyEstimationConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks field ranges via struct tags, then cross-field rules.
func (c *EstimationConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if !units.IsValid(c.GetSpeedUnits()) {
		return fmt.Errorf("speed_units %q is invalid; valid units: %s", c.GetSpeedUnits(), units.GetValidUnitsString())
	}
	if c.GetSustainedSpeed() > c.GetMaxSpeed() {
		return fmt.Errorf("sustained_speed (%g) must not exceed max_speed (%g)", c.GetSustainedSpeed(), c.GetMaxSpeed())
	}
	if c.GetGridResolutionFloor() > c.GetGridInitialScale() {
		return fmt.Errorf("grid_resolution_floor (%g) must not exceed grid_initial_scale (%g)", c.GetGridResolutionFloor(), c.GetGridInitialScale())
	}
	return nil
}

// JSON returns the config encoded as it is stored alongside a run.
func (c *EstimationConfig) JSON() string {
	data, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// GetCalibrationID returns the calibration_id value or the default.
func (c *EstimationConfig) GetCalibrationID() string {
	if c.CalibrationID == nil {
		return "default"
	}
	return *c.CalibrationID
}

// GetBearingSource returns the bearing_source value or the default.
func (c *EstimationConfig) GetBearingSource() string {
	if c.BearingSource == nil {
		return "likelihood"
	}
	return *c.BearingSource
}

// GetManualBearingSigmaDeg returns the manual_bearing_sigma_deg value or the default.
func (c *EstimationConfig) GetManualBearingSigmaDeg() float64 {
	if c.ManualBearingSigmaDeg == nil {
		return 15.0
	}
	return *c.ManualBearingSigmaDeg
}

// GetWindowSizeSeconds returns the window_size_seconds value or the default.
func (c *EstimationConfig) GetWindowSizeSeconds() float64 {
	if c.WindowSizeSeconds == nil {
		return 60.0
	}
	return *c.WindowSizeSeconds
}

// GetStepSizeSeconds returns the step_size_seconds value or the default.
func (c *EstimationConfig) GetStepSizeSeconds() float64 {
	if c.StepSizeSeconds == nil {
		return 30.0
	}
	return *c.StepSizeSeconds
}

// GetMinSites returns the min_sites value or the default.
func (c *EstimationConfig) GetMinSites() int {
	if c.MinSites == nil {
		return 2
	}
	return *c.MinSites
}

// GetGridInitialScale returns the grid_initial_scale value or the default.
func (c *EstimationConfig) GetGridInitialScale() float64 {
	if c.GridInitialScale == nil {
		return 100.0
	}
	return *c.GridInitialScale
}

// GetGridSpan returns the grid_span value or the default.
func (c *EstimationConfig) GetGridSpan() int {
	if c.GridSpan == nil {
		return 15
	}
	return *c.GridSpan
}

// GetGridShrinkFactor returns the grid_shrink_factor value or the default.
func (c *EstimationConfig) GetGridShrinkFactor() float64 {
	if c.GridShrinkFactor == nil {
		return 10.0
	}
	return *c.GridShrinkFactor
}

// GetGridRounds returns the grid_rounds value or the default.
func (c *EstimationConfig) GetGridRounds() int {
	if c.GridRounds == nil {
		return 3
	}
	return *c.GridRounds
}

// GetGridResolutionFloor returns the grid_resolution_floor value or the default.
func (c *EstimationConfig) GetGridResolutionFloor() float64 {
	if c.GridResolutionFloor == nil {
		return 1.0
	}
	return *c.GridResolutionFloor
}

// GetInitialCenter returns the configured grid start point. The boolean is
// false when the centroid of all sites should be used instead.
func (c *EstimationConfig) GetInitialCenter() (easting, northing float64, ok bool) {
	if c.InitialEasting == nil || c.InitialNorthing == nil {
		return 0, 0, false
	}
	return *c.InitialEasting, *c.InitialNorthing, true
}

// GetMaxSpeedModel returns the max_speed_model value or the default.
func (c *EstimationConfig) GetMaxSpeedModel() string {
	if c.MaxSpeedModel == nil {
		return SpeedModelExponential
	}
	return *c.MaxSpeedModel
}

// GetMaxSpeed returns the max_speed value (short-interval bound) or the default.
func (c *EstimationConfig) GetMaxSpeed() float64 {
	if c.MaxSpeed == nil {
		return 15.0
	}
	return *c.MaxSpeed
}

// GetSustainedSpeed returns the sustained_speed value (long-interval cap) or the default.
func (c *EstimationConfig) GetSustainedSpeed() float64 {
	if c.SustainedSpeed == nil {
		return 2.0
	}
	return *c.SustainedSpeed
}

// GetSpeedDecaySeconds returns the speed_decay_seconds value or the default.
func (c *EstimationConfig) GetSpeedDecaySeconds() float64 {
	if c.SpeedDecaySeconds == nil {
		return 120.0
	}
	return *c.SpeedDecaySeconds
}

// GetHopCost returns the hop_cost value or the default.
func (c *EstimationConfig) GetHopCost() float64 {
	if c.HopCost == nil {
		return 0
	}
	return *c.HopCost
}

// GetSpeedUnits returns the speed_units value or the default.
func (c *EstimationConfig) GetSpeedUnits() string {
	if c.SpeedUnits == nil {
		return "mps"
	}
	return *c.SpeedUnits
}

// GetWorkers returns the workers value or the default.
func (c *EstimationConfig) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}

// GetSaveGraphSnapshot returns the save_graph_snapshot value or the default.
func (c *EstimationConfig) GetSaveGraphSnapshot() bool {
	if c.SaveGraphSnapshot == nil {
		return false
	}
	return *c.SaveGraphSnapshot
}
