package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// ErrInvalidConfig marks a configuration that must not be used to build a
// session. Constructors across the module wrap it.
var ErrInvalidConfig = errors.New("invalid configuration")

// Defaults for a single fixed camera at 2 evaluated frames per second.
const (
	DefaultMaxTime              = "60s"
	DefaultMinMovement          = 300.0
	DefaultFPSTracking          = 2.0
	DefaultMaxTrackedIdentities = 1000
	DefaultConfidenceThreshold  = 0.5
	DefaultObjectClass          = 0 // COCO "person"
	DefaultFrameSkip            = 1
	DefaultCountingHistory      = 5

	// MinHistoryLength is the shortest history that still holds the two
	// points crossing and distance tests need.
	MinHistoryLength = 2
)

// Point is an [x, y] pixel coordinate.
type Point [2]int

// Line is a pair of endpoints.
type Line [2]Point

var (
	defaultEntryLine     = Line{{337, 586}, {734, 498}}
	defaultExitLine      = Line{{295, 655}, {332, 717}}
	defaultInsideAnchor  = Point{100, 200}
	defaultOutsideAnchor = Point{500, 600}
)

// TuningConfig is the root configuration for both behaviour modes. Fields
// omitted from JSON stay nil and the Get* accessors return defaults, so
// partial configs are safe.
type TuningConfig struct {
	// Loitering
	MaxTime     *string  `json:"max_time,omitempty"` // duration string like "60s"
	MinMovement *float64 `json:"min_movement,omitempty"`

	// Tracking
	FPSTracking          *float64 `json:"fps_tracking,omitempty"`
	MaxHistoryLength     *int     `json:"max_history_length,omitempty"`
	MaxTrackedIdentities *int     `json:"max_tracked_identities,omitempty"`
	FrameSkip            *int     `json:"frame_skip,omitempty"`

	// Detector output filtering
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	ObjectClass         *int     `json:"object_class,omitempty"`

	// Counting
	EntryLine     *Line  `json:"entry_line,omitempty"`
	ExitLine      *Line  `json:"exit_line,omitempty"`
	InsideAnchor  *Point `json:"inside_anchor,omitempty"`
	OutsideAnchor *Point `json:"outside_anchor,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the package defaults. MaxHistoryLength stays nil because its default
// depends on the mode.
func DefaultTuningConfig() *TuningConfig {
	entry, exit := defaultEntryLine, defaultExitLine
	inside, outside := defaultInsideAnchor, defaultOutsideAnchor
	return &TuningConfig{
		MaxTime:              ptrString(DefaultMaxTime),
		MinMovement:          ptrFloat64(DefaultMinMovement),
		FPSTracking:          ptrFloat64(DefaultFPSTracking),
		MaxTrackedIdentities: ptrInt(DefaultMaxTrackedIdentities),
		FrameSkip:            ptrInt(DefaultFrameSkip),
		ConfidenceThreshold:  ptrFloat64(DefaultConfidenceThreshold),
		ObjectClass:          ptrInt(DefaultObjectClass),
		EntryLine:            &entry,
		ExitLine:             &exit,
		InsideAnchor:         &inside,
		OutsideAnchor:        &outside,
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
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

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values that are set. Every failure wraps
// ErrInvalidConfig.
func (c *TuningConfig) Validate() error {
	if c.MaxTime != nil {
		d, err := time.ParseDuration(*c.MaxTime)
		if err != nil {
			return fmt.Errorf("%w: max_time %q: %v", ErrInvalidConfig, *c.MaxTime, err)
		}
		if d <= 0 {
			return fmt.Errorf("%w: max_time must be positive, got %s", ErrInvalidConfig, d)
		}
	}

	if c.MinMovement != nil && !(*c.MinMovement > 0) {
		return fmt.Errorf("%w: min_movement must be positive, got %v", ErrInvalidConfig, *c.MinMovement)
	}

	if c.FPSTracking != nil && (!(*c.FPSTracking > 0) || math.IsInf(*c.FPSTracking, 0)) {
		return fmt.Errorf("%w: fps_tracking must be positive, got %v", ErrInvalidConfig, *c.FPSTracking)
	}

	if c.MaxHistoryLength != nil && *c.MaxHistoryLength < MinHistoryLength {
		return fmt.Errorf("%w: max_history_length must be at least %d, got %d",
			ErrInvalidConfig, MinHistoryLength, *c.MaxHistoryLength)
	}

	if c.MaxTrackedIdentities != nil && *c.MaxTrackedIdentities < 1 {
		return fmt.Errorf("%w: max_tracked_identities must be positive, got %d", ErrInvalidConfig, *c.MaxTrackedIdentities)
	}

	if c.FrameSkip != nil && *c.FrameSkip < 1 {
		return fmt.Errorf("%w: frame_skip must be at least 1, got %d", ErrInvalidConfig, *c.FrameSkip)
	}

	if c.ConfidenceThreshold != nil {
		if v := *c.ConfidenceThreshold; math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: confidence_threshold must be between 0 and 1, got %v", ErrInvalidConfig, v)
		}
	}

	for name, l := range map[string]*Line{"entry_line": c.EntryLine, "exit_line": c.ExitLine} {
		if l != nil && l[0] == l[1] {
			return fmt.Errorf("%w: %s has zero length at %v", ErrInvalidConfig, name, l[0])
		}
	}

	return nil
}

// GetMaxTime parses and returns MaxTime as a time.Duration.
func (c *TuningConfig) GetMaxTime() time.Duration {
	fallback, _ := time.ParseDuration(DefaultMaxTime)
	if c.MaxTime == nil || *c.MaxTime == "" {
		return fallback
	}
	d, err := time.ParseDuration(*c.MaxTime)
	if err != nil {
		return fallback
	}
	return d
}

// GetMinMovement returns the min_movement value or the default.
func (c *TuningConfig) GetMinMovement() float64 {
	if c.MinMovement == nil {
		return DefaultMinMovement
	}
	return *c.MinMovement
}

// GetFPSTracking returns the fps_tracking value or the default.
func (c *TuningConfig) GetFPSTracking() float64 {
	if c.FPSTracking == nil {
		return DefaultFPSTracking
	}
	return *c.FPSTracking
}

// GetLoiteringHistoryLength returns max_history_length if set, otherwise
// enough samples to cover max_time at fps_tracking.
func (c *TuningConfig) GetLoiteringHistoryLength() int {
	if c.MaxHistoryLength != nil {
		return *c.MaxHistoryLength
	}
	n := int(math.Ceil(c.GetFPSTracking() * c.GetMaxTime().Seconds()))
	if n < MinHistoryLength {
		return MinHistoryLength
	}
	return n
}

// GetCountingHistoryLength returns max_history_length if set, otherwise the
// short counting default. Crossing tests only look at the last two points.
func (c *TuningConfig) GetCountingHistoryLength() int {
	if c.MaxHistoryLength != nil {
		return *c.MaxHistoryLength
	}
	return DefaultCountingHistory
}

// GetMaxTrackedIdentities returns the max_tracked_identities value or the default.
func (c *TuningConfig) GetMaxTrackedIdentities() int {
	if c.MaxTrackedIdentities == nil {
		return DefaultMaxTrackedIdentities
	}
	return *c.MaxTrackedIdentities
}

// GetFrameSkip returns the frame_skip value or the default.
func (c *TuningConfig) GetFrameSkip() int {
	if c.FrameSkip == nil {
		return DefaultFrameSkip
	}
	return *c.FrameSkip
}

// GetConfidenceThreshold returns the confidence_threshold value or the default.
func (c *TuningConfig) GetConfidenceThreshold() float64 {
	if c.ConfidenceThreshold == nil {
		return DefaultConfidenceThreshold
	}
	return *c.ConfidenceThreshold
}

// GetObjectClass returns the object_class value or the default.
func (c *TuningConfig) GetObjectClass() int {
	if c.ObjectClass == nil {
		return DefaultObjectClass
	}
	return *c.ObjectClass
}

// GetEntryLine returns the entry_line value or the default.
func (c *TuningConfig) GetEntryLine() Line {
	if c.EntryLine == nil {
		return defaultEntryLine
	}
	return *c.EntryLine
}

// GetExitLine returns the exit_line value or the default.
func (c *TuningConfig) GetExitLine() Line {
	if c.ExitLine == nil {
		return defaultExitLine
	}
	return *c.ExitLine
}

// GetInsideAnchor returns the inside_anchor value or the default.
func (c *TuningConfig) GetInsideAnchor() Point {
	if c.InsideAnchor == nil {
		return defaultInsideAnchor
	}
	return *c.InsideAnchor
}

// GetOutsideAnchor returns the outside_anchor value or the default.
func (c *TuningConfig) GetOutsideAnchor() Point {
	if c.OutsideAnchor == nil {
		return defaultOutsideAnchor
	}
	return *c.OutsideAnchor
}
