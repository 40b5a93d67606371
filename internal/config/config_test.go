package config

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 1.0, cfg.Tracker.SampleRate)
	assert.Equal(t, 50, cfg.Tracker.MaxDepth)
	assert.Equal(t, 5, cfg.Snapshot.MaxDepth)
	assert.Equal(t, 0.3, cfg.Classifier.UnknownConfidence)
	assert.Equal(t, 5, cfg.Classifier.MaxFixes)
	assert.Equal(t, 100, cfg.History.Capacity)
	assert.Equal(t, 0.7, cfg.History.SimilarityThreshold)
	assert.Equal(t, 0.05, cfg.History.PerSimilarBoost)
	assert.Equal(t, 0.15, cfg.History.MaxSimilarBoost)
	assert.Equal(t, 0.10, cfg.History.KnowledgeBoost)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"defaults", func(*Config) {}, nil},
		{"zero sample rate allowed", func(c *Config) { c.Tracker.SampleRate = 0 }, nil},
		{"sample rate above one", func(c *Config) { c.Tracker.SampleRate = 1.5 }, ErrInvalidSampleRate},
		{"negative sample rate", func(c *Config) { c.Tracker.SampleRate = -0.1 }, ErrInvalidSampleRate},
		{"NaN sample rate", func(c *Config) { c.Tracker.SampleRate = math.NaN() }, ErrInvalidSampleRate},
		{"NaN unknown confidence", func(c *Config) { c.Classifier.UnknownConfidence = math.NaN() }, ErrInvalidConfidence},
		{"NaN similarity threshold", func(c *Config) { c.History.SimilarityThreshold = math.NaN() }, ErrInvalidConfidence},
		{"NaN telemetry sample rate", func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.SampleRate = math.NaN() }, ErrInvalidSampleRate},
		{"negative tracker depth", func(c *Config) { c.Tracker.MaxDepth = -1 }, ErrInvalidDepth},
		{"zero tracker depth allowed", func(c *Config) { c.Tracker.MaxDepth = 0 }, nil},
		{"negative snapshot depth", func(c *Config) { c.Snapshot.MaxDepth = -3 }, ErrInvalidDepth},
		{"unknown confidence too high", func(c *Config) { c.Classifier.UnknownConfidence = 2 }, ErrInvalidConfidence},
		{"knowledge boost negative", func(c *Config) { c.History.KnowledgeBoost = -0.1 }, ErrInvalidConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfig_ValidateNonSentinel(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max fixes", func(c *Config) { c.Classifier.MaxFixes = 0 }},
		{"zero history capacity", func(c *Config) { c.History.Capacity = 0 }},
		{"negative rate limit", func(c *Config) { c.Report.RateLimit = -1 }},
		{"NaN rate limit", func(c *Config) { c.Report.RateLimit = math.NaN() }},
		{"rate limit without burst", func(c *Config) { c.Report.RateLimit = 5; c.Report.Burst = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "tracker.sample_rate", envKey("ERRTRAIL_TRACKER_SAMPLE_RATE"))
	assert.Equal(t, "history.capacity", envKey("ERRTRAIL_HISTORY_CAPACITY"))
	assert.Equal(t, "report", envKey("ERRTRAIL_REPORT"))
}
