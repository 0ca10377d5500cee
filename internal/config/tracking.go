package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tracking defaults file.
const DefaultConfigPath = "config/tracking.defaults.json"

// Location priorities accepted by location_priority.
const (
	PriorityHighAccuracy = "high_accuracy"
	PriorityBalanced     = "balanced"
	PriorityLowPower     = "low_power"
	PriorityPassive      = "passive"
)

// TrackingConfig holds the tunable constants of the tracking engine. Every
// field is optional; the Get* accessors fall back to built-in defaults so a
// partial file is safe.
type TrackingConfig struct {
	// Step detection
	AccelThresholdMps2 *float64 `json:"accel_threshold_mps2,omitempty"`
	MinStepInterval    *string  `json:"min_step_interval,omitempty"` // duration string, "0s" disables debounce
	StrideLengthM      *float64 `json:"stride_length_m,omitempty"`

	// Distance filter
	MinIncrementM *float64 `json:"min_increment_m,omitempty"`
	MaxIncrementM *float64 `json:"max_increment_m,omitempty"`

	// Controller
	TickInterval *string `json:"tick_interval,omitempty"`

	// Location request
	LocationInterval     *string  `json:"location_interval,omitempty"`
	LocationMinInterval  *string  `json:"location_min_interval,omitempty"`
	LocationMinDistanceM *float64 `json:"location_min_distance_m,omitempty"`
	LocationPriority     *string  `json:"location_priority,omitempty"`

	// Statistics
	DailyStepGoal *int `json:"daily_step_goal,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTrackingConfig returns a TrackingConfig with all fields unset.
func EmptyTrackingConfig() *TrackingConfig {
	return &TrackingConfig{}
}

// DefaultTrackingConfig returns a config with every field populated with the
// built-in default.
func DefaultTrackingConfig() *TrackingConfig {
	return &TrackingConfig{
		AccelThresholdMps2:   ptrFloat64(12.0),
		MinStepInterval:      ptrString("0s"),
		StrideLengthM:        ptrFloat64(0.75),
		MinIncrementM:        ptrFloat64(2.0),
		MaxIncrementM:        ptrFloat64(100.0),
		TickInterval:         ptrString("1s"),
		LocationInterval:     ptrString("5s"),
		LocationMinInterval:  ptrString("3s"),
		LocationMinDistanceM: ptrFloat64(5.0),
		LocationPriority:     ptrString(PriorityHighAccuracy),
		DailyStepGoal:        ptrInt(6000),
	}
}

// LoadTrackingConfig loads a TrackingConfig from a JSON file.
func LoadTrackingConfig(path string) (*TrackingConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTrackingConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching from the current
// directory up towards the repository root. Panics if the file cannot be
// loaded, intended for test setup.
func MustLoadDefaultConfig() *TrackingConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTrackingConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TrackingConfig) Validate() error {
	if c.AccelThresholdMps2 != nil && *c.AccelThresholdMps2 <= 0 {
		return fmt.Errorf("accel_threshold_mps2 must be positive, got %f", *c.AccelThresholdMps2)
	}
	if c.StrideLengthM != nil && *c.StrideLengthM <= 0 {
		return fmt.Errorf("stride_length_m must be positive, got %f", *c.StrideLengthM)
	}
	if c.MinIncrementM != nil && *c.MinIncrementM < 0 {
		return fmt.Errorf("min_increment_m must be non-negative, got %f", *c.MinIncrementM)
	}
	if c.MaxIncrementM != nil && *c.MaxIncrementM <= 0 {
		return fmt.Errorf("max_increment_m must be positive, got %f", *c.MaxIncrementM)
	}
	if c.GetMinIncrementM() >= c.GetMaxIncrementM() {
		return fmt.Errorf("min_increment_m (%f) must be below max_increment_m (%f)",
			c.GetMinIncrementM(), c.GetMaxIncrementM())
	}
	if c.LocationMinDistanceM != nil && *c.LocationMinDistanceM < 0 {
		return fmt.Errorf("location_min_distance_m must be non-negative, got %f", *c.LocationMinDistanceM)
	}
	if c.DailyStepGoal != nil && *c.DailyStepGoal <= 0 {
		return fmt.Errorf("daily_step_goal must be positive, got %d", *c.DailyStepGoal)
	}

	durations := []struct {
		name     string
		value    *string
		positive bool
	}{
		{"min_step_interval", c.MinStepInterval, false},
		{"tick_interval", c.TickInterval, true},
		{"location_interval", c.LocationInterval, true},
		{"location_min_interval", c.LocationMinInterval, false},
	}
	for _, d := range durations {
		if d.value == nil || *d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(*d.value)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.value, err)
		}
		if parsed < 0 || (d.positive && parsed == 0) {
			return fmt.Errorf("%s out of range: %s", d.name, *d.value)
		}
	}

	if c.LocationPriority != nil {
		switch *c.LocationPriority {
		case PriorityHighAccuracy, PriorityBalanced, PriorityLowPower, PriorityPassive:
		default:
			return fmt.Errorf("unknown location_priority %q", *c.LocationPriority)
		}
	}

	return nil
}

func parseDurationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def
	}
	return d
}

// GetAccelThresholdMps2 returns the accelerometer step threshold in m/s².
func (c *TrackingConfig) GetAccelThresholdMps2() float64 {
	if c.AccelThresholdMps2 == nil {
		return 12.0
	}
	return *c.AccelThresholdMps2
}

// GetMinStepInterval returns the accelerometer debounce window. Zero means
// every sample above the threshold counts as a step.
func (c *TrackingConfig) GetMinStepInterval() time.Duration {
	return parseDurationOr(c.MinStepInterval, 0)
}

// GetStrideLengthM returns the stride used for step-based distance.
func (c *TrackingConfig) GetStrideLengthM() float64 {
	if c.StrideLengthM == nil {
		return 0.75
	}
	return *c.StrideLengthM
}

// GetMinIncrementM returns the exclusive lower bound of an accepted GPS increment.
func (c *TrackingConfig) GetMinIncrementM() float64 {
	if c.MinIncrementM == nil {
		return 2.0
	}
	return *c.MinIncrementM
}

// GetMaxIncrementM returns the exclusive upper bound of an accepted GPS increment.
func (c *TrackingConfig) GetMaxIncrementM() float64 {
	if c.MaxIncrementM == nil {
		return 100.0
	}
	return *c.MaxIncrementM
}

// GetTickInterval returns the controller refresh period.
func (c *TrackingConfig) GetTickInterval() time.Duration {
	return parseDurationOr(c.TickInterval, time.Second)
}

// GetLocationInterval returns the requested location update interval.
func (c *TrackingConfig) GetLocationInterval() time.Duration {
	return parseDurationOr(c.LocationInterval, 5*time.Second)
}

// GetLocationMinInterval returns the fastest accepted location update interval.
func (c *TrackingConfig) GetLocationMinInterval() time.Duration {
	return parseDurationOr(c.LocationMinInterval, 3*time.Second)
}

// GetLocationMinDistanceM returns the minimum displacement between updates.
func (c *TrackingConfig) GetLocationMinDistanceM() float64 {
	if c.LocationMinDistanceM == nil {
		return 5.0
	}
	return *c.LocationMinDistanceM
}

// GetLocationPriority returns the location accuracy priority.
func (c *TrackingConfig) GetLocationPriority() string {
	if c.LocationPriority == nil || *c.LocationPriority == "" {
		return PriorityHighAccuracy
	}
	return *c.LocationPriority
}

// GetDailyStepGoal returns the step goal used by activity statistics.
func (c *TrackingConfig) GetDailyStepGoal() int {
	if c.DailyStepGoal == nil {
		return 6000
	}
	return *c.DailyStepGoal
}
