// Package classify turns an ErrorBundle into ranked causes, ranked fixes and
// a base confidence using a pattern library.
//
// The algorithm:
//  1. Evaluate every rule's matcher against the bundle
//  2. Sort matches by descending priority, keeping declaration order on ties
//  3. Union causes in that order; with no match, use a single unknown cause
//  4. Union fixes in rule order, sort by descending confidence, keep the top N
//  5. Base confidence is the mean cause confidence
//  6. The top match names the pattern
//
// Causes and fixes are de-duplicated by description; the first occurrence
// wins.
package classify

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/errtrail/internal/config"
	"github.com/fyrsmithlabs/errtrail/internal/diag"
	"github.com/fyrsmithlabs/errtrail/internal/patterns"
)

const instrumentationName = "github.com/fyrsmithlabs/errtrail/internal/classify"

// UnknownCause describes the fallback cause used when no rule matches.
const UnknownCause = "Unknown error cause"

// Engine classifies error bundles.
type Engine struct {
	lib     *patterns.Library
	cfg     config.ClassifierConfig
	logger  *zap.Logger
	tracer  trace.Tracer
	matches metric.Int64Counter
}

// New creates an engine. A nil library uses patterns.Default.
func New(lib *patterns.Library, cfg config.ClassifierConfig, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid classifier config: %w", err)
	}
	if lib == nil {
		lib = patterns.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		lib:    lib,
		cfg:    cfg,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
	}

	var err error
	e.matches, err = otel.Meter(instrumentationName).Int64Counter(
		"errtrail.classify.matches_total",
		metric.WithDescription("Pattern rule matches, labeled by pattern name. Unmatched failures count under pattern=\"unknown\"."),
		metric.WithUnit("{match}"),
	)
	if err != nil {
		logger.Warn("failed to create match counter", zap.Error(err))
	}
	return e, nil
}

// Library returns the engine's pattern library.
func (e *Engine) Library() *patterns.Library { return e.lib }

// Classify analyzes a bundle. It always returns at least one cause.
func (e *Engine) Classify(ctx context.Context, bundle *diag.ErrorBundle) diag.Analysis {
	ctx, span := e.tracer.Start(ctx, "Engine.Classify")
	defer span.End()

	if bundle == nil {
		bundle = &diag.ErrorBundle{}
	}

	// 1. Evaluate matchers
	var matched []patterns.Rule
	for _, rule := range e.lib.Rules() {
		if e.match(rule, bundle) {
			matched = append(matched, rule)
		}
	}

	// 2. Priority order, declaration order on ties
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority > matched[j].Priority
	})

	// 3. Causes
	causes := make([]diag.Cause, 0)
	seenCauses := make(map[string]struct{})
	for _, rule := range matched {
		for _, c := range rule.Causes {
			if _, dup := seenCauses[c.Description]; dup {
				continue
			}
			seenCauses[c.Description] = struct{}{}
			causes = append(causes, c)
		}
	}
	if len(causes) == 0 {
		causes = append(causes, diag.Cause{Description: UnknownCause, Confidence: e.cfg.UnknownConfidence})
	}

	// 4. Fixes
	fixes := make([]diag.Fix, 0)
	seenFixes := make(map[string]struct{})
	for _, rule := range matched {
		for _, f := range rule.Fixes {
			if _, dup := seenFixes[f.Description]; dup {
				continue
			}
			seenFixes[f.Description] = struct{}{}
			fixes = append(fixes, f)
		}
	}
	sort.SliceStable(fixes, func(i, j int) bool {
		return fixes[i].Confidence > fixes[j].Confidence
	})
	if len(fixes) > e.cfg.MaxFixes {
		fixes = fixes[:e.cfg.MaxFixes]
	}

	// 5. Base confidence
	var total float64
	for _, c := range causes {
		total += c.Confidence
	}

	analysis := diag.Analysis{
		Causes:     causes,
		Fixes:      fixes,
		Confidence: total / float64(len(causes)),
	}

	// 6. Pattern
	if len(matched) > 0 {
		analysis.Pattern = matched[0].Name
		analysis.MatchedPatterns = make([]string, len(matched))
		for i, rule := range matched {
			analysis.MatchedPatterns[i] = rule.Name
		}
	}

	e.record(ctx, analysis)

	span.SetAttributes(
		attribute.String("errtrail.pattern", analysis.Pattern),
		attribute.Int("errtrail.matched", len(matched)),
		attribute.Float64("errtrail.confidence", analysis.Confidence),
	)
	e.logger.Debug("failure classified",
		zap.String("failure", bundle.Failure.Name),
		zap.String("pattern", analysis.Pattern),
		zap.Int("matched", len(matched)),
		zap.Float64("confidence", analysis.Confidence),
	)

	return analysis
}

// match runs a rule's matcher. A panicking matcher counts as no match.
func (e *Engine) match(rule patterns.Rule, bundle *diag.ErrorBundle) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("pattern matcher panicked",
				zap.String("pattern", rule.Name),
				zap.Any("panic", r),
			)
			ok = false
		}
	}()
	return rule.Match(bundle)
}

func (e *Engine) record(ctx context.Context, analysis diag.Analysis) {
	if e.matches == nil {
		return
	}
	if len(analysis.MatchedPatterns) == 0 {
		e.matches.Add(ctx, 1, metric.WithAttributes(attribute.String("pattern", "unknown")))
		return
	}
	for _, name := range analysis.MatchedPatterns {
		e.matches.Add(ctx, 1, metric.WithAttributes(attribute.String("pattern", name)))
	}
}
