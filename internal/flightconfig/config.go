// Package flightconfig holds the fully-enumerated tuning record for the
// detection engine (global clipping/inflection parameters plus one group
// per event type) and its JSON overlay loader.
package flightconfig

import (
	"encoding/json"
	"fmt"
	"os"
)

// GlobalConfig holds the parameters shared across every detector.
type GlobalConfig struct {
	AccelerationClip        float64 `json:"accelerationClip"`
	InflectionMinSpeedDelta float64 `json:"inflectionMinSpeedDelta"`
}

// TakeoffConfig is the "takeoff" group.
type TakeoffConfig struct {
	SpeedThreshold       float64 `json:"speedThreshold"`
	ClimbRate            float64 `json:"climbRate"`
	MaxAltitude          float64 `json:"maxAltitude"`
	SmoothingWindowSize  int     `json:"smoothingWindowSize"`
	BacktrackWindowSize  int     `json:"backtrackWindowSize"`
	ValidationWindowSize int     `json:"validationWindowSize"`
}

// FreefallConfig is the "freefall" group.
type FreefallConfig struct {
	VerticalSpeedThreshold  float64 `json:"verticalSpeedThreshold"`
	AccelerationThreshold   float64 `json:"accelerationThreshold"`
	AccelerationMinVelocity float64 `json:"accelerationMinVelocity"`
	MinAltitudeAbove        float64 `json:"minAltitudeAbove"`
	MinAltitudeAbsolute     float64 `json:"minAltitudeAbsolute"`
	SmoothingWindowSize     int     `json:"smoothingWindowSize"`
	BacktrackWindowSize     int     `json:"backtrackWindowSize"`
	ValidationWindowSize    int     `json:"validationWindowSize"`
}

// CanopyConfig is the "canopy" group.
type CanopyConfig struct {
	VerticalSpeedMax     float64 `json:"verticalSpeedMax"`
	SmoothingWindowSize  int     `json:"smoothingWindowSize"`
	BacktrackWindowSize  int     `json:"backtrackWindowSize"`
	ValidationWindowSize int     `json:"validationWindowSize"`
}

// LandingConfig is the "landing" group.
type LandingConfig struct {
	SpeedMax             float64 `json:"speedMax"`
	StabilityThreshold   float64 `json:"stabilityThreshold"`
	MeanVerticalSpeedMax float64 `json:"meanVerticalSpeedMax"`
	AltitudeTolerance    float64 `json:"altitudeTolerance"` // reserved; see DESIGN.md
	StabilityWindowSize  int     `json:"stabilityWindowSize"`
	SmoothingWindowSize  int     `json:"smoothingWindowSize"`
	BacktrackWindowSize  int     `json:"backtrackWindowSize"`
	ValidationWindowSize int     `json:"validationWindowSize"`
}

// Config is the full, fully-enumerated tuning record. There are no hidden
// defaults outside of DefaultConfig: every field a detector reads has an
// entry here.
type Config struct {
	Global   GlobalConfig   `json:"global"`
	Takeoff  TakeoffConfig  `json:"takeoff"`
	Freefall FreefallConfig `json:"freefall"`
	Canopy   CanopyConfig   `json:"canopy"`
	Landing  LandingConfig  `json:"landing"`
}

// DefaultConfig returns the literal defaults.
func DefaultConfig() Config {
	return Config{
		Global: GlobalConfig{
			AccelerationClip:        20.0,
			InflectionMinSpeedDelta: 1.0,
		},
		Takeoff: TakeoffConfig{
			SpeedThreshold:       25.0,
			ClimbRate:            -1.0,
			MaxAltitude:          600,
			SmoothingWindowSize:  5,
			BacktrackWindowSize:  10,
			ValidationWindowSize: 40,
		},
		Freefall: FreefallConfig{
			VerticalSpeedThreshold:  25.0,
			AccelerationThreshold:   3.0,
			AccelerationMinVelocity: 10.0,
			MinAltitudeAbove:        600,
			MinAltitudeAbsolute:     600,
			SmoothingWindowSize:     5,
			BacktrackWindowSize:     10,
			ValidationWindowSize:    40,
		},
		Canopy: CanopyConfig{
			VerticalSpeedMax:     12.0,
			SmoothingWindowSize:  5,
			BacktrackWindowSize:  10,
			ValidationWindowSize: 40,
		},
		Landing: LandingConfig{
			SpeedMax:             5.0,
			StabilityThreshold:   0.5,
			MeanVerticalSpeedMax: 1.0,
			AltitudeTolerance:    500,
			StabilityWindowSize:  10,
			SmoothingWindowSize:  5,
			BacktrackWindowSize:  10,
			ValidationWindowSize: 40,
		},
	}
}

// Validate rejects a configuration that would make the engine's window
// arithmetic or physical constants nonsensical.
func (c Config) Validate() error {
	if c.Global.AccelerationClip <= 0 {
		return fmt.Errorf("flightconfig: global.accelerationClip must be positive, got %v", c.Global.AccelerationClip)
	}
	if c.Global.InflectionMinSpeedDelta < 0 {
		return fmt.Errorf("flightconfig: global.inflectionMinSpeedDelta must be non-negative, got %v", c.Global.InflectionMinSpeedDelta)
	}
	if c.Takeoff.ClimbRate >= 0 {
		return fmt.Errorf("flightconfig: takeoff.climbRate must be negative, got %v", c.Takeoff.ClimbRate)
	}
	groups := []struct {
		name                              string
		smoothing, backtrack, validation int
	}{
		{"takeoff", c.Takeoff.SmoothingWindowSize, c.Takeoff.BacktrackWindowSize, c.Takeoff.ValidationWindowSize},
		{"freefall", c.Freefall.SmoothingWindowSize, c.Freefall.BacktrackWindowSize, c.Freefall.ValidationWindowSize},
		{"canopy", c.Canopy.SmoothingWindowSize, c.Canopy.BacktrackWindowSize, c.Canopy.ValidationWindowSize},
		{"landing", c.Landing.SmoothingWindowSize, c.Landing.BacktrackWindowSize, c.Landing.ValidationWindowSize},
	}
	for _, g := range groups {
		if g.smoothing < 1 || g.backtrack < 1 || g.validation < 1 {
			return fmt.Errorf("flightconfig: %s window sizes must all be >= 1", g.name)
		}
	}
	if c.Landing.StabilityWindowSize < 1 {
		return fmt.Errorf("flightconfig: landing.stabilityWindowSize must be >= 1, got %v", c.Landing.StabilityWindowSize)
	}
	return nil
}

// Overlay is a partial configuration read from JSON: every field is a
// pointer, so a file that mentions only a handful of options leaves the
// rest of DefaultConfig() untouched.
type Overlay struct {
	Global   *globalOverlay   `json:"global,omitempty"`
	Takeoff  *takeoffOverlay  `json:"takeoff,omitempty"`
	Freefall *freefallOverlay `json:"freefall,omitempty"`
	Canopy   *canopyOverlay   `json:"canopy,omitempty"`
	Landing  *landingOverlay  `json:"landing,omitempty"`
}

type globalOverlay struct {
	AccelerationClip        *float64 `json:"accelerationClip,omitempty"`
	InflectionMinSpeedDelta *float64 `json:"inflectionMinSpeedDelta,omitempty"`
}

type takeoffOverlay struct {
	SpeedThreshold       *float64 `json:"speedThreshold,omitempty"`
	ClimbRate            *float64 `json:"climbRate,omitempty"`
	MaxAltitude          *float64 `json:"maxAltitude,omitempty"`
	SmoothingWindowSize  *int     `json:"smoothingWindowSize,omitempty"`
	BacktrackWindowSize  *int     `json:"backtrackWindowSize,omitempty"`
	ValidationWindowSize *int     `json:"validationWindowSize,omitempty"`
}

type freefallOverlay struct {
	VerticalSpeedThreshold  *float64 `json:"verticalSpeedThreshold,omitempty"`
	AccelerationThreshold   *float64 `json:"accelerationThreshold,omitempty"`
	AccelerationMinVelocity *float64 `json:"accelerationMinVelocity,omitempty"`
	MinAltitudeAbove        *float64 `json:"minAltitudeAbove,omitempty"`
	MinAltitudeAbsolute     *float64 `json:"minAltitudeAbsolute,omitempty"`
	SmoothingWindowSize     *int     `json:"smoothingWindowSize,omitempty"`
	BacktrackWindowSize     *int     `json:"backtrackWindowSize,omitempty"`
	ValidationWindowSize    *int     `json:"validationWindowSize,omitempty"`
}

type canopyOverlay struct {
	VerticalSpeedMax     *float64 `json:"verticalSpeedMax,omitempty"`
	SmoothingWindowSize  *int     `json:"smoothingWindowSize,omitempty"`
	BacktrackWindowSize  *int     `json:"backtrackWindowSize,omitempty"`
	ValidationWindowSize *int     `json:"validationWindowSize,omitempty"`
}

type landingOverlay struct {
	SpeedMax             *float64 `json:"speedMax,omitempty"`
	StabilityThreshold   *float64 `json:"stabilityThreshold,omitempty"`
	MeanVerticalSpeedMax *float64 `json:"meanVerticalSpeedMax,omitempty"`
	AltitudeTolerance    *float64 `json:"altitudeTolerance,omitempty"`
	StabilityWindowSize  *int     `json:"stabilityWindowSize,omitempty"`
	SmoothingWindowSize  *int     `json:"smoothingWindowSize,omitempty"`
	BacktrackWindowSize  *int     `json:"backtrackWindowSize,omitempty"`
	ValidationWindowSize *int     `json:"validationWindowSize,omitempty"`
}

// maxOverlayFileSize guards against accidentally pointing LoadConfig at a
// huge or non-JSON file.
const maxOverlayFileSize = 1 << 20 // 1 MiB

// LoadConfig reads a JSON overlay file at path and applies it on top of
// DefaultConfig(), validating the merged result before returning it.
func LoadConfig(path string) (Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("flightconfig: stat %s: %w", path, err)
	}
	if info.Size() > maxOverlayFileSize {
		return Config{}, fmt.Errorf("flightconfig: %s is %d bytes, exceeds %d byte limit", path, info.Size(), maxOverlayFileSize)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("flightconfig: read %s: %w", path, err)
	}

	var overlay Overlay
	if err := json.Unmarshal(raw, &overlay); err != nil {
		return Config{}, fmt.Errorf("flightconfig: parse %s: %w", path, err)
	}

	cfg := ApplyOverlay(DefaultConfig(), overlay)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyOverlay merges a partial Overlay on top of base, returning a new
// Config. base is never mutated.
func ApplyOverlay(base Config, o Overlay) Config {
	cfg := base

	if o.Global != nil {
		setFloat(&cfg.Global.AccelerationClip, o.Global.AccelerationClip)
		setFloat(&cfg.Global.InflectionMinSpeedDelta, o.Global.InflectionMinSpeedDelta)
	}
	if o.Takeoff != nil {
		setFloat(&cfg.Takeoff.SpeedThreshold, o.Takeoff.SpeedThreshold)
		setFloat(&cfg.Takeoff.ClimbRate, o.Takeoff.ClimbRate)
		setFloat(&cfg.Takeoff.MaxAltitude, o.Takeoff.MaxAltitude)
		setInt(&cfg.Takeoff.SmoothingWindowSize, o.Takeoff.SmoothingWindowSize)
		setInt(&cfg.Takeoff.BacktrackWindowSize, o.Takeoff.BacktrackWindowSize)
		setInt(&cfg.Takeoff.ValidationWindowSize, o.Takeoff.ValidationWindowSize)
	}
	if o.Freefall != nil {
		setFloat(&cfg.Freefall.VerticalSpeedThreshold, o.Freefall.VerticalSpeedThreshold)
		setFloat(&cfg.Freefall.AccelerationThreshold, o.Freefall.AccelerationThreshold)
		setFloat(&cfg.Freefall.AccelerationMinVelocity, o.Freefall.AccelerationMinVelocity)
		setFloat(&cfg.Freefall.MinAltitudeAbove, o.Freefall.MinAltitudeAbove)
		setFloat(&cfg.Freefall.MinAltitudeAbsolute, o.Freefall.MinAltitudeAbsolute)
		setInt(&cfg.Freefall.SmoothingWindowSize, o.Freefall.SmoothingWindowSize)
		setInt(&cfg.Freefall.BacktrackWindowSize, o.Freefall.BacktrackWindowSize)
		setInt(&cfg.Freefall.ValidationWindowSize, o.Freefall.ValidationWindowSize)
	}
	if o.Canopy != nil {
		setFloat(&cfg.Canopy.VerticalSpeedMax, o.Canopy.VerticalSpeedMax)
		setInt(&cfg.Canopy.SmoothingWindowSize, o.Canopy.SmoothingWindowSize)
		setInt(&cfg.Canopy.BacktrackWindowSize, o.Canopy.BacktrackWindowSize)
		setInt(&cfg.Canopy.ValidationWindowSize, o.Canopy.ValidationWindowSize)
	}
	if o.Landing != nil {
		setFloat(&cfg.Landing.SpeedMax, o.Landing.SpeedMax)
		setFloat(&cfg.Landing.StabilityThreshold, o.Landing.StabilityThreshold)
		setFloat(&cfg.Landing.MeanVerticalSpeedMax, o.Landing.MeanVerticalSpeedMax)
		setFloat(&cfg.Landing.AltitudeTolerance, o.Landing.AltitudeTolerance)
		setInt(&cfg.Landing.StabilityWindowSize, o.Landing.StabilityWindowSize)
		setInt(&cfg.Landing.SmoothingWindowSize, o.Landing.SmoothingWindowSize)
		setInt(&cfg.Landing.BacktrackWindowSize, o.Landing.BacktrackWindowSize)
		setInt(&cfg.Landing.ValidationWindowSize, o.Landing.ValidationWindowSize)
	}

	return cfg
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
