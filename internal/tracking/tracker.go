package tracking

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/errtrail/internal/config"
	"github.com/fyrsmithlabs/errtrail/internal/logging"
	"github.com/fyrsmithlabs/errtrail/internal/snapshot"
)

type activeKey struct{}

// unsampled marks a flow whose Begin lost the sampling draw.
const unsampled = ""

// Tracker creates execution contexts and records breadcrumbs into them.
type Tracker struct {
	cfg    config.TrackerConfig
	store  *Store
	logger *zap.Logger
	random func() float64
	ids    IDGenerator
	masker snapshot.Masker
	now    func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithRandom sets the sampling source. It must return values in [0, 1).
func WithRandom(fn func() float64) Option {
	return func(t *Tracker) { t.random = fn }
}

// WithIDGenerator sets the context id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(t *Tracker) { t.ids = g }
}

// WithMasker sets the masker applied to breadcrumb args.
func WithMasker(m snapshot.Masker) Option {
	return func(t *Tracker) { t.masker = m }
}

// WithStore sets the backing store.
func WithStore(s *Store) Option {
	return func(t *Tracker) { t.store = s }
}

// WithClock sets the time source for timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a tracker. A nil logger disables logging.
func NewTracker(cfg config.TrackerConfig, logger *zap.Logger, opts ...Option) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tracker config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &Tracker{
		cfg:    cfg,
		store:  NewStore(),
		logger: logger,
		random: rand.Float64,
		ids:    UUIDv7Generator{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Store returns the backing store.
func (t *Tracker) Store() *Store { return t.store }

// Begin starts a context nested under the one active in ctx and returns a ctx
// in which the new context is active.
//
// When the sampling draw is not below the rate, no context is created and the
// returned ExecutionContext is nil. The returned ctx still shadows the parent,
// so work under it is untracked.
func (t *Tracker) Begin(ctx context.Context, metadata map[string]any) (context.Context, *ExecutionContext) {
	if ctx == nil {
		ctx = context.Background()
	}

	if t.random() >= t.cfg.SampleRate {
		ContextsStarted.WithLabelValues("unsampled").Inc()
		if ce := t.logger.Check(logging.TraceLevel, "flow not sampled"); ce != nil {
			ce.Write(zap.Float64("sample_rate", t.cfg.SampleRate))
		}
		return context.WithValue(ctx, activeKey{}, unsampled), nil
	}

	parentID, _ := ctx.Value(activeKey{}).(string)
	ec := newExecutionContext(t.ids.Generate(), parentID, t.now(), metadata, t.cfg.MaxDepth)
	t.store.Put(ec)

	ContextsStarted.WithLabelValues("sampled").Inc()
	ContextsActive.Inc()

	ctx = context.WithValue(ctx, activeKey{}, ec.id)
	ctx = logging.WithFlowID(ctx, ec.id)

	if ce := t.logger.Check(logging.TraceLevel, "execution context started"); ce != nil {
		ce.Write(zap.String("context_id", ec.id), zap.String("parent_id", parentID))
	}
	return ctx, ec
}

// Current returns the context active in ctx, if it is still live.
func (t *Tracker) Current(ctx context.Context) (*ExecutionContext, bool) {
	if ctx == nil {
		return nil, false
	}
	id, _ := ctx.Value(activeKey{}).(string)
	if id == unsampled {
		return nil, false
	}
	return t.store.Get(id)
}

// Parent returns ec's parent while it is still live.
func (t *Tracker) Parent(ec *ExecutionContext) (*ExecutionContext, bool) {
	if ec == nil || ec.parentID == "" {
		return nil, false
	}
	return t.store.Get(ec.parentID)
}

// End removes ec from the store. Ending nil or an ended context is a no-op.
func (t *Tracker) End(ec *ExecutionContext) {
	if ec == nil {
		return
	}
	if t.store.Delete(ec.id) {
		ContextsActive.Dec()
		if ce := t.logger.Check(logging.TraceLevel, "execution context ended"); ce != nil {
			ce.Write(zap.String("context_id", ec.id), zap.Int("breadcrumbs", ec.Len()))
		}
	}
}

// Record appends a breadcrumb to the context active in ctx.
func (t *Tracker) Record(ctx context.Context, name string, category Category, args map[string]any) {
	t.record(ctx, name, category, args, 0)
}

// RecordTimed is Record for an operation that took d.
func (t *Tracker) RecordTimed(ctx context.Context, name string, category Category, args map[string]any, d time.Duration) {
	t.record(ctx, name, category, args, d)
}

func (t *Tracker) record(ctx context.Context, name string, category Category, args map[string]any, d time.Duration) {
	ec, ok := t.Current(ctx)
	if !ok {
		return
	}
	if !category.Valid() {
		category = CategoryCall
	}

	args = t.maskArgs(name, copyMap(args))

	b := Breadcrumb{
		Name:      name,
		Category:  category,
		Args:      args,
		Timestamp: t.now(),
		Duration:  d,
	}
	if !ec.append(b) {
		BreadcrumbsDropped.Inc()
		if ce := t.logger.Check(logging.TraceLevel, "breadcrumb dropped at depth bound"); ce != nil {
			ce.Write(
				zap.String("context_id", ec.id),
				zap.String("name", name),
				zap.Int("max_depth", ec.maxDepth),
			)
		}
	}
}

// maskArgs applies the masker. If it panics every arg is replaced with a
// marker and the breadcrumb is still recorded.
func (t *Tracker) maskArgs(name string, args map[string]any) (out map[string]any) {
	if t.masker == nil || args == nil {
		return args
	}
	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("breadcrumb masker panicked",
				zap.String("name", name),
				zap.Any("panic", r),
			)
			out = make(map[string]any, len(args))
			for k := range args {
				out[k] = fmt.Sprintf("[Capture Error: mask failed: %v]", r)
			}
		}
	}()
	return t.masker.Mask(args)
}

// Run begins a context, calls fn under it, and ends the context on every exit
// path. A panic in fn is re-raised after the context ends.
func (t *Tracker) Run(ctx context.Context, metadata map[string]any, fn func(context.Context) error) error {
	ctx, ec := t.Begin(ctx, metadata)
	defer t.End(ec)
	return fn(ctx)
}

// Go records a fanout breadcrumb and runs fn on a new goroutine that inherits
// the context active in ctx.
func (t *Tracker) Go(ctx context.Context, name string, fn func(context.Context)) {
	t.Record(ctx, name, CategoryFanout, nil)
	go fn(ctx)
}

// Settle runs fn and records a settlement breadcrumb with its duration and
// outcome. The error from fn is returned unchanged. A panic in fn is recorded
// with outcome "panicked" and re-raised.
func (t *Tracker) Settle(ctx context.Context, name string, fn func() error) error {
	start := t.now()
	args := map[string]any{"outcome": "panicked"}
	defer func() {
		t.RecordTimed(ctx, name, CategorySettlement, args, t.now().Sub(start))
	}()

	err := fn()
	if err != nil {
		args["outcome"] = "rejected"
		args["error"] = err.Error()
	} else {
		args["outcome"] = "fulfilled"
	}
	return err
}

// AfterFunc waits for d and then records a timer breadcrumb and calls fn with
// ctx. The returned timer can stop it.
func (t *Tracker) AfterFunc(ctx context.Context, d time.Duration, name string, fn func(context.Context)) *time.Timer {
	return time.AfterFunc(d, func() {
		t.Record(ctx, name, CategoryTimer, map[string]any{"delay": d.String()})
		fn(ctx)
	})
}
