package snapshot

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/errtrail/internal/config"
)

// Snapshot is the captured state at failure time.
type Snapshot struct {
	Values     map[string]any  `json:"values,omitempty"`
	Process    *ProcessMetrics `json:"process,omitempty"`
	CapturedAt time.Time       `json:"captured_at"`
}

// Capturer produces snapshots.
type Capturer struct {
	cfg     config.SnapshotConfig
	masker  Masker
	now     func() time.Time
	process func() ProcessMetrics
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithMasker sets the masker applied to every snapshot's values.
func WithMasker(m Masker) Option {
	return func(c *Capturer) { c.masker = m }
}

// WithClock sets the time source for CapturedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Capturer) { c.now = now }
}

// WithProcessSampler replaces the process metrics source.
func WithProcessSampler(fn func() ProcessMetrics) Option {
	return func(c *Capturer) { c.process = fn }
}

// NewCapturer creates a capturer.
func NewCapturer(cfg config.SnapshotConfig, opts ...Option) (*Capturer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot config: %w", err)
	}
	c := &Capturer{
		cfg:     cfg,
		now:     time.Now,
		process: ReadProcessMetrics,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Capture deep-copies each watched value and reads process metrics.
func (c *Capturer) Capture(watched map[string]any) Snapshot {
	s := Snapshot{CapturedAt: c.now()}

	if len(watched) > 0 {
		values := make(map[string]any, len(watched))
		for key, v := range watched {
			values[key] = c.copyValue(v)
		}
		s.Values = c.mask(values)
	}

	if c.cfg.ProcessMetrics && c.process != nil {
		pm := c.process()
		s.Process = &pm
	}
	return s
}

func (c *Capturer) copyValue(v any) (out any) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("[Capture Error: %v]", r)
		}
	}()
	return newWalker(c.cfg.MaxDepth).copy(v)
}

// mask applies the masker. If it panics no value is returned unmasked.
func (c *Capturer) mask(values map[string]any) (out map[string]any) {
	if c.masker == nil {
		return values
	}
	defer func() {
		if r := recover(); r != nil {
			out = make(map[string]any, len(values))
			for k := range values {
				out[k] = fmt.Sprintf("[Capture Error: mask failed: %v]", r)
			}
		}
	}()
	return c.masker.Mask(values)
}
