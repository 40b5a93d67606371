// Package assembler builds the ErrorBundle for a failure from the active
// execution context, a snapshot of watched values and the parsed stack.
package assembler

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/errtrail/internal/diag"
	"github.com/fyrsmithlabs/errtrail/internal/snapshot"
	"github.com/fyrsmithlabs/errtrail/internal/tracking"
)

var (
	// ErrNilTracker is returned by New without a tracker.
	ErrNilTracker = errors.New("tracker is required for assembler")

	// ErrNilCapturer is returned by New without a capturer.
	ErrNilCapturer = errors.New("capturer is required for assembler")
)

// Assembler reads from the tracker; it never writes to it.
type Assembler struct {
	tracker  *tracking.Tracker
	capturer *snapshot.Capturer
	now      func() time.Time
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithClock sets the bundle timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// New creates an assembler.
func New(tracker *tracking.Tracker, capturer *snapshot.Capturer, opts ...Option) (*Assembler, error) {
	if tracker == nil {
		return nil, ErrNilTracker
	}
	if capturer == nil {
		return nil, ErrNilCapturer
	}
	a := &Assembler{tracker: tracker, capturer: capturer, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Assemble builds the bundle for failure as seen from ctx. The breadcrumbs
// are a copy: records made after Assemble returns do not change the bundle.
func (a *Assembler) Assemble(ctx context.Context, failure diag.Failure, watched map[string]any) *diag.ErrorBundle {
	if ctx == nil {
		ctx = context.Background()
	}
	if failure.Kind == "" {
		failure.Kind = diag.KindManual
	}

	b := &diag.ErrorBundle{
		Failure:     failure,
		Breadcrumbs: []tracking.Breadcrumb{},
		Frames:      ParseStack(failure.Stack),
		Timestamp:   a.now(),
		ContextID:   diag.NoContext,
	}

	if ec, ok := a.tracker.Current(ctx); ok {
		b.ContextID = ec.ID()
		b.Breadcrumbs = ec.Breadcrumbs()
		b.Metadata = ec.Metadata()
	}

	b.Snapshot = a.capturer.Capture(watched)

	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		b.TraceID = sc.TraceID().String()
	}
	return b
}
