package errtrail

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/errtrail/internal/assembler"
	"github.com/fyrsmithlabs/errtrail/internal/classify"
	"github.com/fyrsmithlabs/errtrail/internal/config"
	"github.com/fyrsmithlabs/errtrail/internal/diag"
	"github.com/fyrsmithlabs/errtrail/internal/history"
	"github.com/fyrsmithlabs/errtrail/internal/hooks"
	"github.com/fyrsmithlabs/errtrail/internal/logging"
	"github.com/fyrsmithlabs/errtrail/internal/patterns"
	"github.com/fyrsmithlabs/errtrail/internal/snapshot"
	"github.com/fyrsmithlabs/errtrail/internal/tracking"
)

const instrumentationName = "github.com/fyrsmithlabs/errtrail/pkg/errtrail"

// ErrAlreadyEnabled is returned by Enable while another handle is live.
var ErrAlreadyEnabled = errors.New("errtrail is already enabled")

// enabled guards the one-live-handle rule.
var enabled atomic.Bool

// Report is the outcome of diagnosing one failure.
type Report struct {
	Bundle   *diag.ErrorBundle `json:"bundle"`
	Analysis diag.Analysis     `json:"analysis"`
}

// Diagnoser is the handle returned by Enable.
type Diagnoser struct {
	cfg       *config.Config
	logger    *logging.Logger
	tracer    trace.Tracer
	tracker   *tracking.Tracker
	assembler *assembler.Assembler
	engine    *classify.Engine
	history   *history.Index
	hooks     *hooks.HookManager
	limiter   *rate.Limiter

	disabled atomic.Bool

	watchMu sync.RWMutex
	watched map[string]any
}

type options struct {
	logger       *logging.Logger
	library      *patterns.Library
	kb           *history.KnowledgeBase
	masker       snapshot.Masker
	now          func() time.Time
	trackerOpts  []tracking.Option
	snapshotOpts []snapshot.Option
}

// Option configures Enable.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLibrary replaces the built-in pattern library.
func WithLibrary(lib *patterns.Library) Option {
	return func(o *options) { o.library = lib }
}

// WithKnowledgeBase replaces the built-in knowledge base.
func WithKnowledgeBase(kb *history.KnowledgeBase) Option {
	return func(o *options) { o.kb = kb }
}

// WithMasker sets the masker applied to breadcrumb args and snapshots. The
// default masks the keys listed under log.redact.keys.
func WithMasker(m snapshot.Masker) Option {
	return func(o *options) { o.masker = m }
}

// WithClock sets the time source for every component.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithTrackerOptions passes options through to the tracker.
func WithTrackerOptions(opts ...tracking.Option) Option {
	return func(o *options) { o.trackerOpts = append(o.trackerOpts, opts...) }
}

// WithSnapshotOptions passes options through to the capturer.
func WithSnapshotOptions(opts ...snapshot.Option) Option {
	return func(o *options) { o.snapshotOpts = append(o.snapshotOpts, opts...) }
}

// Enable validates cfg, builds the pipeline and returns the live handle. A
// nil cfg uses config.NewDefaultConfig.
func Enable(cfg *config.Config, opts ...Option) (*Diagnoser, error) {
	if !enabled.CompareAndSwap(false, true) {
		return nil, ErrAlreadyEnabled
	}
	d, err := newDiagnoser(cfg, opts...)
	if err != nil {
		enabled.Store(false)
		return nil, err
	}
	return d, nil
}

func newDiagnoser(cfg *config.Config, opts ...Option) (*Diagnoser, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := options{
		logger: logging.NewNop(),
		kb:     history.DefaultKnowledgeBase(),
		masker: snapshot.NewKeyMasker(cfg.Log.Redact.Keys...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	zl := o.logger.Underlying()

	trackerOpts := append([]tracking.Option{
		tracking.WithMasker(o.masker),
		tracking.WithClock(o.now),
	}, o.trackerOpts...)
	tracker, err := tracking.NewTracker(cfg.Tracker, zl.Named("tracker"), trackerOpts...)
	if err != nil {
		return nil, err
	}

	snapshotOpts := append([]snapshot.Option{
		snapshot.WithMasker(o.masker),
		snapshot.WithClock(o.now),
	}, o.snapshotOpts...)
	capturer, err := snapshot.NewCapturer(cfg.Snapshot, snapshotOpts...)
	if err != nil {
		return nil, err
	}

	asm, err := assembler.New(tracker, capturer, assembler.WithClock(o.now))
	if err != nil {
		return nil, err
	}

	engine, err := classify.New(o.library, cfg.Classifier, zl.Named("classify"))
	if err != nil {
		return nil, err
	}

	idx, err := history.New(cfg.History, o.kb, zl.Named("history"), history.WithClock(o.now))
	if err != nil {
		return nil, err
	}

	d := &Diagnoser{
		cfg:       cfg,
		logger:    o.logger,
		tracer:    otel.Tracer(instrumentationName),
		tracker:   tracker,
		assembler: asm,
		engine:    engine,
		history:   idx,
		hooks:     hooks.NewHookManager(zl.Named("hooks")),
		watched:   make(map[string]any),
	}
	if cfg.Report.RateLimit > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.Report.RateLimit), cfg.Report.Burst)
	}
	return d, nil
}

// Disable invalidates the handle and allows a new Enable. It is idempotent.
func (d *Diagnoser) Disable() {
	if d.disabled.CompareAndSwap(false, true) {
		enabled.Store(false)
	}
}

// Enabled reports whether the handle is still live.
func (d *Diagnoser) Enabled() bool { return !d.disabled.Load() }

// RegisterHook adds a lifecycle handler.
func (d *Diagnoser) RegisterHook(hookType hooks.HookType, handler hooks.HookHandler) {
	d.hooks.RegisterHandler(hookType, handler)
}

// Tracker exposes the underlying tracker.
func (d *Diagnoser) Tracker() *tracking.Tracker { return d.tracker }

// History exposes the failure history.
func (d *Diagnoser) History() *history.Index { return d.history }

// Begin starts an execution context. A disabled handle returns ctx unchanged.
func (d *Diagnoser) Begin(ctx context.Context, metadata map[string]any) (context.Context, *tracking.ExecutionContext) {
	if d.disabled.Load() {
		return ctx, nil
	}
	ctx, ec := d.tracker.Begin(ctx, metadata)
	if ec != nil && d.hooks.Has(hooks.HookContextBegin) {
		d.hooks.Execute(ctx, hooks.HookContextBegin, &hooks.Event{ContextID: ec.ID()})
	}
	return ctx, ec
}

// End ends an execution context. It works on a disabled handle so contexts
// begun before Disable are still released.
func (d *Diagnoser) End(ec *tracking.ExecutionContext) {
	if ec == nil {
		return
	}
	d.tracker.End(ec)
	if d.hooks.Has(hooks.HookContextEnd) {
		d.hooks.Execute(context.Background(), hooks.HookContextEnd, &hooks.Event{ContextID: ec.ID()})
	}
}

// Current returns the active execution context.
func (d *Diagnoser) Current(ctx context.Context) (*tracking.ExecutionContext, bool) {
	return d.tracker.Current(ctx)
}

// Record appends a breadcrumb to the active context.
func (d *Diagnoser) Record(ctx context.Context, name string, category tracking.Category, args map[string]any) {
	if d.disabled.Load() {
		return
	}
	d.tracker.Record(ctx, name, category, args)
}

// Run calls fn inside a new execution context that ends on every exit path.
func (d *Diagnoser) Run(ctx context.Context, metadata map[string]any, fn func(context.Context) error) error {
	ctx, ec := d.Begin(ctx, metadata)
	defer d.End(ec)
	return fn(ctx)
}

// Go runs fn on a new goroutine that inherits the active context.
func (d *Diagnoser) Go(ctx context.Context, name string, fn func(context.Context)) {
	if d.disabled.Load() {
		go fn(ctx)
		return
	}
	d.tracker.Go(ctx, name, fn)
}

// Settle runs fn and records its outcome as a settlement breadcrumb.
func (d *Diagnoser) Settle(ctx context.Context, name string, fn func() error) error {
	if d.disabled.Load() {
		return fn()
	}
	return d.tracker.Settle(ctx, name, fn)
}

// AfterFunc calls fn after delay with a timer breadcrumb.
func (d *Diagnoser) AfterFunc(ctx context.Context, delay time.Duration, name string, fn func(context.Context)) *time.Timer {
	if d.disabled.Load() {
		return time.AfterFunc(delay, func() { fn(ctx) })
	}
	return d.tracker.AfterFunc(ctx, delay, name, fn)
}

// Watch adds or replaces a named value captured in every report snapshot.
func (d *Diagnoser) Watch(name string, value any) {
	d.watchMu.Lock()
	defer d.watchMu.Unlock()
	d.watched[name] = value
}

// Unwatch removes a named value.
func (d *Diagnoser) Unwatch(name string) {
	d.watchMu.Lock()
	defer d.watchMu.Unlock()
	delete(d.watched, name)
}

func (d *Diagnoser) watchList() map[string]any {
	d.watchMu.RLock()
	defer d.watchMu.RUnlock()
	if len(d.watched) == 0 {
		return nil
	}
	out := make(map[string]any, len(d.watched))
	for k, v := range d.watched {
		out[k] = v
	}
	return out
}

// Report diagnoses failure as seen from ctx.
//
// The pipeline:
//  1. Assemble the bundle from the active context, watch list and stack
//  2. Run before_classify hooks
//  3. Classify against the pattern library
//  4. Enhance with history and the knowledge base
//  5. Run after_report hooks
func (d *Diagnoser) Report(ctx context.Context, failure diag.Failure) (report *Report, ok bool) {
	if d.disabled.Load() {
		return nil, false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if d.limiter != nil && !d.limiter.Allow() {
		d.logger.Debug(ctx, "report rate limited", zap.String("failure", failure.Name))
		return nil, false
	}

	ctx, span := d.tracer.Start(ctx, "Diagnoser.Report")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("diagnostic pipeline panicked: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "pipeline panicked")
			d.logger.Error(ctx, "report failed", zap.Error(err))
			report, ok = nil, false
		}
	}()

	// 1. Assemble
	bundle := d.assembler.Assemble(ctx, failure, d.watchList())

	// 2. Pre-classification hooks
	d.hooks.Execute(ctx, hooks.HookBeforeClassify, &hooks.Event{ContextID: bundle.ContextID, Bundle: bundle})

	// 3. Classify
	analysis := d.engine.Classify(ctx, bundle)

	// 4. Enhance
	analysis = d.history.Enhance(ctx, bundle, analysis)

	report = &Report{Bundle: bundle, Analysis: analysis}

	// 5. Post-report hooks
	d.hooks.Execute(ctx, hooks.HookAfterReport, &hooks.Event{
		ContextID: bundle.ContextID,
		Bundle:    bundle,
		Analysis:  &report.Analysis,
	})

	span.SetAttributes(
		attribute.String("errtrail.failure.name", failure.Name),
		attribute.String("errtrail.failure.kind", string(bundle.Failure.Kind)),
		attribute.String("errtrail.context_id", bundle.ContextID),
		attribute.String("errtrail.pattern", analysis.Pattern),
		attribute.Float64("errtrail.confidence", analysis.Confidence),
		attribute.Int("errtrail.similar_count", analysis.SimilarCount),
	)

	d.logger.Info(ctx, "failure diagnosed",
		zap.String("failure", failure.Name),
		zap.String("kind", string(bundle.Failure.Kind)),
		zap.String("pattern", analysis.Pattern),
		zap.Float64("confidence", analysis.Confidence),
		zap.Int("breadcrumbs", len(bundle.Breadcrumbs)),
	)

	return report, true
}
