package logging

import (
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/errtrail/internal/config"
)

// newSampledCore throttles repeated lines below error level. Errors always
// pass, so a burst of reports never hides a failing pipeline.
func newSampledCore(core zapcore.Core, cfg config.LogSamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}
	quiet := zapcore.NewSamplerWithOptions(
		&levelWindow{Core: core, lo: TraceLevel, hi: zapcore.WarnLevel},
		cfg.Tick.Duration(),
		cfg.Initial,
		cfg.Thereafter,
	)
	loud := &levelWindow{Core: core, lo: zapcore.ErrorLevel, hi: zapcore.FatalLevel}
	return zapcore.NewTee(loud, quiet)
}

// levelWindow passes entries with lo <= level <= hi.
type levelWindow struct {
	zapcore.Core
	lo, hi zapcore.Level
}

func (w *levelWindow) Enabled(lvl zapcore.Level) bool {
	return lvl >= w.lo && lvl <= w.hi && w.Core.Enabled(lvl)
}

func (w *levelWindow) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !w.Enabled(e.Level) {
		return ce
	}
	return w.Core.Check(e, ce)
}

func (w *levelWindow) With(fields []zapcore.Field) zapcore.Core {
	return &levelWindow{Core: w.Core.With(fields), lo: w.lo, hi: w.hi}
}
