package logging

import (
	"errors"
	"io"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// consoleOut receives console lines. Stdout belongs to the host, so errtrail
// writes to stderr.
var consoleOut io.Writer = os.Stderr

// buildCore tees the console and OTEL sinks and applies sampling on top.
func buildCore(s *settings, provider log.LoggerProvider) (zapcore.Core, error) {
	var sinks []zapcore.Core

	if s.console {
		enc := newMaskingEncoder(consoleEncoder(s.json), s.redact)
		sinks = append(sinks, zapcore.NewCore(enc, zapcore.AddSync(consoleOut), s.level))
	}
	if s.otel && provider != nil {
		sinks = append(sinks, otelzap.NewCore("github.com/fyrsmithlabs/errtrail",
			otelzap.WithLoggerProvider(provider)))
	}

	switch len(sinks) {
	case 0:
		return nil, errors.New("no log sink available")
	case 1:
		return newSampledCore(sinks[0], s.sampling), nil
	default:
		return newSampledCore(zapcore.NewTee(sinks...), s.sampling), nil
	}
}

func consoleEncoder(json bool) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = func(l zapcore.Level, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(LevelName(l))
	}
	if json {
		return zapcore.NewJSONEncoder(ec)
	}
	return zapcore.NewConsoleEncoder(ec)
}
