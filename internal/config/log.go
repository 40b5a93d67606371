package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// MaxRedactPatternLen caps a single redaction regexp.
const MaxRedactPatternLen = 200

// ErrInvalidLogConfig wraps every log section validation failure.
var ErrInvalidLogConfig = errors.New("invalid log config")

// LogConfig controls errtrail's own diagnostic log output.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// Console writes lines to stderr. OTEL forwards them to the global
	// OpenTelemetry log provider.
	Console  bool              `koanf:"console"`
	OTEL     bool              `koanf:"otel"`
	Caller   bool              `koanf:"caller"`
	Sampling LogSamplingConfig `koanf:"sampling"`
	Fields   map[string]string `koanf:"fields"`
	Redact   RedactConfig      `koanf:"redact"`
}

// LogSamplingConfig throttles repeated lines below error level.
type LogSamplingConfig struct {
	Enabled    bool     `koanf:"enabled"`
	Tick       Duration `koanf:"tick"`
	Initial    int      `koanf:"initial"`
	Thereafter int      `koanf:"thereafter"`
}

// RedactConfig names the keys and value patterns that must not appear in
// clear text, whether in a log line, a breadcrumb arg or a snapshot.
type RedactConfig struct {
	Keys     []string `koanf:"keys"`
	Patterns []string `koanf:"patterns"`
}

// DefaultLogConfig logs JSON at info to stderr.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:   "info",
		Format:  "json",
		Console: true,
		Caller:  true,
		Sampling: LogSamplingConfig{
			Enabled:    true,
			Tick:       Duration(time.Second),
			Initial:    100,
			Thereafter: 10,
		},
		Fields: map[string]string{"service": "errtrail"},
		Redact: RedactConfig{
			Keys: []string{
				"password", "secret", "token", "api_key",
				"authorization", "cookie", "credential", "private_key",
			},
			Patterns: []string{
				`(?i)bearer\s+\S+`,
				`(?i)api[_-]?key[=:]\s*\S+`,
			},
		},
	}
}

// Validate rejects settings the logger cannot be built from.
func (c LogConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown level %q", ErrInvalidLogConfig, c.Level)
	}
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("%w: format must be json or console, got %q", ErrInvalidLogConfig, c.Format)
	}
	if !c.Console && !c.OTEL {
		return fmt.Errorf("%w: console or otel output required", ErrInvalidLogConfig)
	}
	if s := c.Sampling; s.Enabled {
		if s.Tick.Duration() <= 0 {
			return fmt.Errorf("%w: sampling tick must be > 0", ErrInvalidLogConfig)
		}
		if s.Initial < 1 || s.Thereafter < 0 {
			return fmt.Errorf("%w: sampling needs initial >= 1 and thereafter >= 0", ErrInvalidLogConfig)
		}
	}
	for _, p := range c.Redact.Patterns {
		if len(p) > MaxRedactPatternLen {
			return fmt.Errorf("%w: redact pattern longer than %d chars", ErrInvalidLogConfig, MaxRedactPatternLen)
		}
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("%w: redact pattern %q: %v", ErrInvalidLogConfig, p, err)
		}
	}
	for k, v := range c.Fields {
		if k == "" || v == "" {
			return fmt.Errorf("%w: static field %q needs a key and a value", ErrInvalidLogConfig, k)
		}
	}
	return nil
}
