package logging

import (
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/errtrail/internal/config"
)

// settings is config.LogConfig after validation and parsing.
type settings struct {
	level    zapcore.Level
	json     bool
	console  bool
	otel     bool
	caller   bool
	sampling config.LogSamplingConfig
	fields   []zap.Field
	redact   *redactor
}

func resolve(cfg config.LogConfig) (*settings, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, err := LevelFromString(cfg.Level)
	if err != nil {
		return nil, err
	}
	r, err := newRedactor(cfg.Redact)
	if err != nil {
		return nil, err
	}

	// Sorted so every line carries static fields in the same order.
	keys := make([]string, 0, len(cfg.Fields))
	for k := range cfg.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, zap.String(k, cfg.Fields[k]))
	}

	return &settings{
		level:    level,
		json:     cfg.Format == "json",
		console:  cfg.Console,
		otel:     cfg.OTEL,
		caller:   cfg.Caller,
		sampling: cfg.Sampling,
		fields:   fields,
		redact:   r,
	}, nil
}
