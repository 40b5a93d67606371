package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration is a non-negative time.Duration read from text such as "1500ms",
// as found in YAML and ERRTRAIL_* variables.
type Duration time.Duration

// Duration converts back to time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return d.Duration().String() }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("duration %q: %w", text, err)
	}
	if v < 0 {
		return fmt.Errorf("duration %q is negative", text)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler, so JSON output reads
// "15s" rather than nanoseconds.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
