package logging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/errtrail/internal/config"
)

func TestNewSampledCore_Disabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	assert.Equal(t, core, newSampledCore(core, config.LogSamplingConfig{}))
}

func TestNewSampledCore_ErrorsNeverSampled(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	sampled := newSampledCore(core, config.LogSamplingConfig{
		Enabled:    true,
		Tick:       config.Duration(time.Minute),
		Initial:    1,
		Thereafter: 0,
	})
	logger := &Logger{zap: zap.New(sampled)}

	for i := 0; i < 50; i++ {
		logger.Error(context.Background(), "classification failed")
		logger.Info(context.Background(), "classified")
	}

	assert.Equal(t, 50, observed.FilterMessage("classification failed").Len())
	assert.Equal(t, 1, observed.FilterMessage("classified").Len())
}

func TestLevelWindow(t *testing.T) {
	core, _ := observer.New(TraceLevel)
	below := &levelWindow{Core: core, lo: TraceLevel, hi: zapcore.WarnLevel}
	above := &levelWindow{Core: core, lo: zapcore.ErrorLevel, hi: zapcore.FatalLevel}

	assert.True(t, below.Enabled(TraceLevel))
	assert.True(t, below.Enabled(zapcore.InfoLevel))
	assert.False(t, below.Enabled(zapcore.ErrorLevel))
	assert.False(t, above.Enabled(zapcore.InfoLevel))
	assert.True(t, above.Enabled(zapcore.ErrorLevel))

	child := below.With(nil).(*levelWindow)
	assert.Equal(t, zapcore.WarnLevel, child.hi)
}
