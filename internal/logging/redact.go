package logging

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/errtrail/internal/config"
)

const (
	maskedKey   = "[REDACTED]"
	maskedValue = "[REDACTED:pattern]"
)

// redactor decides which keys and values are hidden. A nil redactor hides
// nothing.
type redactor struct {
	keys     map[string]struct{}
	patterns []*regexp.Regexp
}

func newRedactor(cfg config.RedactConfig) (*redactor, error) {
	if len(cfg.Keys) == 0 && len(cfg.Patterns) == 0 {
		return nil, nil
	}
	r := &redactor{keys: make(map[string]struct{}, len(cfg.Keys))}
	for _, k := range cfg.Keys {
		r.keys[strings.ToLower(k)] = struct{}{}
	}
	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}
	return r, nil
}

func (r *redactor) hidesKey(key string) bool {
	if r == nil {
		return false
	}
	_, ok := r.keys[strings.ToLower(key)]
	return ok
}

func (r *redactor) hidesValue(val string) bool {
	if r == nil {
		return false
	}
	for _, re := range r.patterns {
		if re.MatchString(val) {
			return true
		}
	}
	return false
}

// maskingEncoder applies a redactor to the fields a failure report tends to
// carry: messages, breadcrumb args and request headers.
type maskingEncoder struct {
	zapcore.Encoder
	r *redactor
}

func newMaskingEncoder(base zapcore.Encoder, r *redactor) zapcore.Encoder {
	if r == nil {
		return base
	}
	return &maskingEncoder{Encoder: base, r: r}
}

// EncodeEntry masks per-line fields. Fields bound with With reach the Add
// methods below instead.
func (e *maskingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	masked := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		switch {
		case e.r.hidesKey(f.Key):
			masked[i] = zap.String(f.Key, maskedKey)
		case f.Type == zapcore.StringType && e.r.hidesValue(f.String):
			masked[i] = zap.String(f.Key, maskedValue)
		default:
			masked[i] = f
		}
	}
	return e.Encoder.EncodeEntry(ent, masked)
}

func (e *maskingEncoder) AddString(key, val string) {
	switch {
	case e.r.hidesKey(key):
		val = maskedKey
	case e.r.hidesValue(val):
		val = maskedValue
	}
	e.Encoder.AddString(key, val)
}

func (e *maskingEncoder) AddByteString(key string, val []byte) {
	if e.r.hidesKey(key) {
		e.Encoder.AddString(key, maskedKey)
		return
	}
	e.Encoder.AddByteString(key, val)
}

func (e *maskingEncoder) AddReflected(key string, val interface{}) error {
	if e.r.hidesKey(key) {
		e.Encoder.AddString(key, maskedKey)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

func (e *maskingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.r.hidesKey(key) {
		e.Encoder.AddString(key, maskedKey)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

func (e *maskingEncoder) Clone() zapcore.Encoder {
	return &maskingEncoder{Encoder: e.Encoder.Clone(), r: e.r}
}
