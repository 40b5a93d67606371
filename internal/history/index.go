package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/errtrail/internal/config"
	"github.com/fyrsmithlabs/errtrail/internal/diag"
)

const instrumentationName = "github.com/fyrsmithlabs/errtrail/internal/history"

// Entry is one remembered failure.
type Entry struct {
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Kind      diag.Kind `json:"kind"`
}

// Index is the bounded failure history. It is safe for concurrent use.
type Index struct {
	cfg    config.HistoryConfig
	kb     *KnowledgeBase
	logger *zap.Logger
	now    func() time.Time

	mu sync.Mutex
	// ring holds up to cfg.Capacity entries; head is the oldest once full.
	ring []Entry
	head int

	size   metric.Int64UpDownCounter
	kbHits metric.Int64Counter
}

// Option configures an Index.
type Option func(*Index)

// WithClock sets the time used for entries whose bundle has no timestamp.
func WithClock(now func() time.Time) Option {
	return func(i *Index) { i.now = now }
}

// New creates an index. A nil knowledge base disables knowledge lookups.
func New(cfg config.HistoryConfig, kb *KnowledgeBase, logger *zap.Logger, opts ...Option) (*Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid history config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	i := &Index{
		cfg:    cfg,
		kb:     kb,
		logger: logger,
		now:    time.Now,
		ring:   make([]Entry, 0, cfg.Capacity),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.initMetrics()
	return i, nil
}

func (i *Index) initMetrics() {
	meter := otel.Meter(instrumentationName)
	var err error

	i.size, err = meter.Int64UpDownCounter(
		"errtrail.history.entries",
		metric.WithDescription("Number of failures currently retained in the history"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		i.logger.Warn("failed to create history size gauge", zap.Error(err))
	}

	i.kbHits, err = meter.Int64Counter(
		"errtrail.history.knowledge_hits_total",
		metric.WithDescription("Knowledge base matches, labeled by category"),
		metric.WithUnit("{match}"),
	)
	if err != nil {
		i.logger.Warn("failed to create knowledge hit counter", zap.Error(err))
	}
}

// Enhance records the bundle's failure and returns analysis with an
// explanation, prevention tips, a similar-count and a revised confidence.
//
// Similarity is measured against failures recorded before this call, so a
// failure never counts itself.
func (i *Index) Enhance(ctx context.Context, bundle *diag.ErrorBundle, analysis diag.Analysis) diag.Analysis {
	if bundle == nil {
		bundle = &diag.ErrorBundle{}
	}
	f := bundle.Failure
	ts := bundle.Timestamp
	if ts.IsZero() {
		ts = i.now()
	}

	similar := i.observe(ctx, Entry{Name: f.Name, Message: f.Message, Timestamp: ts, Kind: f.Kind})

	known, ok := i.kb.Lookup(f.Message)
	var kb *KnowledgeEntry
	if ok {
		kb = &known
		if i.kbHits != nil {
			i.kbHits.Add(ctx, 1, metric.WithAttributes(attribute.String("category", known.Category)))
		}
	}

	out := analysis
	out.SimilarCount = similar
	out.Explanation = explain(f.Message, analysis, kb, similar)

	var solutions []string
	if kb != nil {
		solutions = kb.Solutions
	}
	out.PreventionTips = mergeTips(analysis.PreventionTips, kindTips[f.Kind], solutions)

	boost := min(i.cfg.PerSimilarBoost*float64(similar), i.cfg.MaxSimilarBoost)
	if kb != nil {
		boost += i.cfg.KnowledgeBoost
	}
	out.Confidence = max(analysis.Confidence, min(1, analysis.Confidence+boost))

	i.logger.Debug("analysis enhanced",
		zap.String("failure", f.Name),
		zap.Int("similar", similar),
		zap.Bool("knowledge_match", kb != nil),
		zap.Float64("confidence", out.Confidence),
	)
	return out
}

// observe counts similar prior entries and then appends e.
func (i *Index) observe(ctx context.Context, e Entry) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	var similar int
	for _, prior := range i.ring {
		if prior.Name == e.Name && Similarity(prior.Message, e.Message) > i.cfg.SimilarityThreshold {
			similar++
		}
	}

	if len(i.ring) < i.cfg.Capacity {
		i.ring = append(i.ring, e)
		if i.size != nil {
			i.size.Add(ctx, 1)
		}
	} else {
		i.ring[i.head] = e
		i.head = (i.head + 1) % i.cfg.Capacity
	}
	return similar
}

// Entries returns the retained failures, oldest first.
func (i *Index) Entries() []Entry {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]Entry, 0, len(i.ring))
	out = append(out, i.ring[i.head:]...)
	out = append(out, i.ring[:i.head]...)
	return out
}

// Len returns the number of retained failures.
func (i *Index) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.ring)
}

// Reset forgets every retained failure.
func (i *Index) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.size != nil && len(i.ring) > 0 {
		i.size.Add(context.Background(), -int64(len(i.ring)))
	}
	i.ring = i.ring[:0]
	i.head = 0
}
