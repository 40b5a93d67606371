// Package config provides configuration for errtrail.
//
// Each component reads its own section. Sections carry koanf tags so the
// whole tree can be loaded from YAML and ERRTRAIL_* environment variables
// (see LoadWithFile). All validation happens here, at construction time;
// nothing downstream re-checks ranges mid-run.
package config

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSampleRate indicates a sampling rate outside [0, 1].
	ErrInvalidSampleRate = errors.New("sample rate must be between 0.0 and 1.0")

	// ErrInvalidDepth indicates a negative depth bound.
	ErrInvalidDepth = errors.New("depth bound must be >= 0")

	// ErrInvalidConfidence indicates a confidence constant outside [0, 1].
	ErrInvalidConfidence = errors.New("confidence must be between 0.0 and 1.0")
)

// Config holds the complete errtrail configuration.
type Config struct {
	Tracker    TrackerConfig    `koanf:"tracker"`
	Snapshot   SnapshotConfig   `koanf:"snapshot"`
	Classifier ClassifierConfig `koanf:"classifier"`
	History    HistoryConfig    `koanf:"history"`
	Report     ReportConfig     `koanf:"report"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Log        LogConfig        `koanf:"log"`
}

// TrackerConfig controls execution context tracking.
type TrackerConfig struct {
	// SampleRate is the fraction of units of work that get a context (0.0-1.0).
	SampleRate float64 `koanf:"sample_rate"`
	// MaxDepth bounds the breadcrumbs kept per context; excess is dropped.
	MaxDepth int `koanf:"max_depth"`
}

// SnapshotConfig controls state snapshots taken at failure time.
type SnapshotConfig struct {
	MaxDepth       int  `koanf:"max_depth"`
	ProcessMetrics bool `koanf:"process_metrics"`
}

// ClassifierConfig holds the classification engine tuning values.
type ClassifierConfig struct {
	UnknownConfidence float64 `koanf:"unknown_confidence"`
	MaxFixes          int     `koanf:"max_fixes"`
}

// HistoryConfig holds the history index tuning values.
type HistoryConfig struct {
	Capacity            int     `koanf:"capacity"`
	SimilarityThreshold float64 `koanf:"similarity_threshold"`
	PerSimilarBoost     float64 `koanf:"per_similar_boost"`
	MaxSimilarBoost     float64 `koanf:"max_similar_boost"`
	KnowledgeBoost      float64 `koanf:"knowledge_boost"`
}

// ReportConfig controls how failure reports are admitted.
type ReportConfig struct {
	// RateLimit is the sustained number of reports per second; 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`
}

// NewDefaultConfig returns the default configuration.
func NewDefaultConfig() *Config {
	return &Config{
		Tracker:    DefaultTrackerConfig(),
		Snapshot:   DefaultSnapshotConfig(),
		Classifier: DefaultClassifierConfig(),
		History:    DefaultHistoryConfig(),
		Report: ReportConfig{
			RateLimit: 0,
			Burst:     10,
		},
		Telemetry: DefaultTelemetryConfig(),
		Log:       DefaultLogConfig(),
	}
}

// DefaultTrackerConfig samples every flow and keeps 50 breadcrumbs.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{SampleRate: 1.0, MaxDepth: 50}
}

// DefaultSnapshotConfig returns snapshot defaults.
func DefaultSnapshotConfig() SnapshotConfig {
	return SnapshotConfig{MaxDepth: 5, ProcessMetrics: true}
}

// DefaultClassifierConfig returns classifier defaults.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{UnknownConfidence: 0.3, MaxFixes: 5}
}

// DefaultHistoryConfig returns history defaults.
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Capacity:            100,
		SimilarityThreshold: 0.7,
		PerSimilarBoost:     0.05,
		MaxSimilarBoost:     0.15,
		KnowledgeBoost:      0.10,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Tracker.Validate(); err != nil {
		return fmt.Errorf("tracker: %w", err)
	}
	if err := c.Snapshot.Validate(); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := c.Classifier.Validate(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if err := c.Report.Validate(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// Validate checks the tracker section.
func (c TrackerConfig) Validate() error {
	if !inUnitInterval(c.SampleRate) {
		return fmt.Errorf("%w: got %v", ErrInvalidSampleRate, c.SampleRate)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth: %w: got %d", ErrInvalidDepth, c.MaxDepth)
	}
	return nil
}

// Validate checks the snapshot section.
func (c SnapshotConfig) Validate() error {
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth: %w: got %d", ErrInvalidDepth, c.MaxDepth)
	}
	return nil
}

// Validate checks the classifier section.
func (c ClassifierConfig) Validate() error {
	if !inUnitInterval(c.UnknownConfidence) {
		return fmt.Errorf("unknown_confidence: %w", ErrInvalidConfidence)
	}
	if c.MaxFixes < 1 {
		return fmt.Errorf("max_fixes must be >= 1, got %d", c.MaxFixes)
	}
	return nil
}

// Validate checks the history section.
func (c HistoryConfig) Validate() error {
	if c.Capacity < 1 {
		return fmt.Errorf("capacity must be >= 1, got %d", c.Capacity)
	}
	for name, v := range map[string]float64{
		"similarity_threshold": c.SimilarityThreshold,
		"per_similar_boost":    c.PerSimilarBoost,
		"max_similar_boost":    c.MaxSimilarBoost,
		"knowledge_boost":      c.KnowledgeBoost,
	} {
		if !inUnitInterval(v) {
			return fmt.Errorf("%s: %w", name, ErrInvalidConfidence)
		}
	}
	return nil
}

// Validate checks the report section.
func (c ReportConfig) Validate() error {
	if !(c.RateLimit >= 0) {
		return fmt.Errorf("rate_limit must be >= 0, got %v", c.RateLimit)
	}
	if c.RateLimit > 0 && c.Burst < 1 {
		return fmt.Errorf("burst must be >= 1 when rate limiting, got %d", c.Burst)
	}
	return nil
}

// inUnitInterval reports whether v is in [0, 1]. NaN is not.
func inUnitInterval(v float64) bool {
	return v >= 0 && v <= 1
}
