package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger records every line, down to TraceLevel, for assertions.
type TestLogger struct {
	*Logger
	logs *observer.ObservedLogs
}

// NewTestLogger returns a recording logger.
func NewTestLogger() *TestLogger {
	core, logs := observer.New(TraceLevel)
	return &TestLogger{Logger: &Logger{zap: zap.New(core)}, logs: logs}
}

// All returns the recorded lines.
func (t *TestLogger) All() []observer.LoggedEntry {
	return t.logs.All()
}

// FilterMessage returns lines whose message contains snippet.
func (t *TestLogger) FilterMessage(snippet string) *observer.ObservedLogs {
	return t.logs.FilterMessageSnippet(snippet)
}

// Reset drops the recorded lines.
func (t *TestLogger) Reset() {
	t.logs.TakeAll()
}

func (t *TestLogger) find(level zapcore.Level, snippet string) (observer.LoggedEntry, bool) {
	for _, e := range t.logs.All() {
		if e.Level == level && strings.Contains(e.Message, snippet) {
			return e, true
		}
	}
	return observer.LoggedEntry{}, false
}

// AssertLogged fails tb unless a line at level contains snippet.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, snippet string) {
	tb.Helper()
	if _, ok := t.find(level, snippet); !ok {
		tb.Errorf("no %s line containing %q in %d lines", LevelName(level), snippet, t.logs.Len())
	}
}

// AssertNotLogged fails tb if a line at level contains snippet.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, snippet string) {
	tb.Helper()
	if e, ok := t.find(level, snippet); ok {
		tb.Errorf("unexpected %s line %q", LevelName(level), e.Message)
	}
}

// AssertField fails tb unless some line containing snippet has key=want.
func (t *TestLogger) AssertField(tb testing.TB, snippet, key string, want interface{}) {
	tb.Helper()
	for _, e := range t.logs.FilterMessageSnippet(snippet).All() {
		if got, ok := e.ContextMap()[key]; ok && got == want {
			return
		}
	}
	tb.Errorf("no line containing %q has %s=%v", snippet, key, want)
}

// AssertFlowCorrelation fails tb unless lines containing snippet carry a
// flow.id.
func (t *TestLogger) AssertFlowCorrelation(tb testing.TB, snippet string) {
	tb.Helper()
	for _, e := range t.logs.FilterMessageSnippet(snippet).All() {
		if _, ok := e.ContextMap()["flow.id"]; ok {
			return
		}
	}
	tb.Errorf("no line containing %q carries flow.id", snippet)
}
