package tracking

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/errtrail/internal/config"
	"github.com/fyrsmithlabs/errtrail/internal/logging"
	"github.com/fyrsmithlabs/errtrail/internal/snapshot"
)

func newTestTracker(t *testing.T, cfg config.TrackerConfig, opts ...Option) *Tracker {
	t.Helper()
	tr, err := NewTracker(cfg, nil, opts...)
	require.NoError(t, err)
	return tr
}

func fixedRandom(v float64) Option {
	return WithRandom(func() float64 { return v })
}

func TestNewTracker_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.TrackerConfig
		wantErr error
	}{
		{"rate above one", config.TrackerConfig{SampleRate: 1.1, MaxDepth: 10}, config.ErrInvalidSampleRate},
		{"negative rate", config.TrackerConfig{SampleRate: -0.5, MaxDepth: 10}, config.ErrInvalidSampleRate},
		{"NaN rate", config.TrackerConfig{SampleRate: math.NaN(), MaxDepth: 50}, config.ErrInvalidSampleRate},
		{"negative depth", config.TrackerConfig{SampleRate: 1, MaxDepth: -1}, config.ErrInvalidDepth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTracker(tt.cfg, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTracker_BeginMakesContextCurrent(t *testing.T) {
	tr := newTestTracker(t, config.DefaultTrackerConfig(), WithIDGenerator(NewFixedGenerator("ctx-1")))

	ctx, ec := tr.Begin(context.Background(), map[string]any{"route": "/users"})
	require.NotNil(t, ec)
	defer tr.End(ec)

	cur, ok := tr.Current(ctx)
	require.True(t, ok)
	assert.Same(t, ec, cur)
	assert.Equal(t, "ctx-1", cur.ID())
	assert.Equal(t, "", cur.ParentID())
	assert.Equal(t, map[string]any{"route": "/users"}, cur.Metadata())
	assert.Equal(t, "ctx-1", logging.FlowIDFromContext(ctx))
}

func TestTracker_CurrentWithoutContext(t *testing.T) {
	tr := newTestTracker(t, config.DefaultTrackerConfig())

	_, ok := tr.Current(context.Background())
	assert.False(t, ok)

	//nolint:staticcheck // nil ctx is tolerated
	_, ok = tr.Current(nil)
	assert.False(t, ok)
}

func TestTracker_NestedBeginDoesNotLeakToParent(t *testing.T) {
	tr := newTestTracker(t, config.DefaultTrackerConfig(), WithIDGenerator(NewFixedGenerator("parent", "child")))

	parentCtx, parent := tr.Begin(context.Background(), nil)
	childCtx, child := tr.Begin(parentCtx, nil)

	assert.Equal(t, "parent", child.ParentID())

	cur, ok := tr.Current(parentCtx)
	require.True(t, ok)
	assert.Equal(t, "parent", cur.ID())

	cur, ok = tr.Current(childCtx)
	require.True(t, ok)
	assert.Equal(t, "child", cur.ID())

	p, ok := tr.Parent(child)
	require.True(t, ok)
	assert.Same(t, parent, p)

	tr.End(parent)
	_, ok = tr.Parent(child)
	assert.False(t, ok, "parent lookup is weak")

	tr.End(child)
	assert.Equal(t, 0, tr.Store().Len())
}

func TestTracker_Sampling(t *testing.T) {
	tests := []struct {
		name        string
		rate        float64
		draw        float64
		wantTracked bool
	}{
		{"full rate always tracks", 1.0, 0.999, true},
		{"draw below rate tracks", 0.5, 0.49, true},
		{"draw equal to rate skips", 0.5, 0.5, false},
		{"zero rate never tracks", 0.0, 0.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTracker(t, config.TrackerConfig{SampleRate: tt.rate, MaxDepth: 10}, fixedRandom(tt.draw))

			ctx, ec := tr.Begin(context.Background(), nil)
			defer tr.End(ec)

			_, ok := tr.Current(ctx)
			assert.Equal(t, tt.wantTracked, ok)
			assert.Equal(t, tt.wantTracked, ec != nil)

			tr.Record(ctx, "op", CategoryCall, nil)
			if ec != nil {
				assert.Equal(t, 1, ec.Len())
			}
		})
	}
}

func TestTracker_UnsampledBeginShadowsParent(t *testing.T) {
	draws := []float64{0.1, 0.9}
	var i int
	tr := newTestTracker(t, config.TrackerConfig{SampleRate: 0.5, MaxDepth: 10},
		WithRandom(func() float64 { v := draws[i]; i++; return v }))

	parentCtx, parent := tr.Begin(context.Background(), nil)
	require.NotNil(t, parent)
	defer tr.End(parent)

	childCtx, child := tr.Begin(parentCtx, nil)
	assert.Nil(t, child)

	_, ok := tr.Current(childCtx)
	assert.False(t, ok)

	tr.Record(childCtx, "untracked", CategoryCall, nil)
	assert.Equal(t, 0, parent.Len())
}

func TestTracker_RecordBuildsCausalChain(t *testing.T) {
	tr := newTestTracker(t, config.DefaultTrackerConfig(), WithIDGenerator(NewFixedGenerator("c")))
	ctx, ec := tr.Begin(context.Background(), nil)
	defer tr.End(ec)

	tr.Record(ctx, "load", CategoryCall, map[string]any{"id": 1})
	tr.RecordTimed(ctx, "query", CategorySettlement, nil, 5*time.Millisecond)
	tr.Record(ctx, "weird", Category("bogus"), nil)

	crumbs := ec.Breadcrumbs()
	require.Len(t, crumbs, 3)

	assert.Equal(t, "c/1", crumbs[0].ID)
	assert.Equal(t, "", crumbs[0].ParentID)
	assert.Equal(t, map[string]any{"id": 1}, crumbs[0].Args)

	assert.Equal(t, "c/2", crumbs[1].ID)
	assert.Equal(t, "c/1", crumbs[1].ParentID)
	assert.Equal(t, 5*time.Millisecond, crumbs[1].Duration)

	assert.Equal(t, CategoryCall, crumbs[2].Category, "unknown categories fall back to call")
}

func TestTracker_RecordWithoutContextIsNoop(t *testing.T) {
	tr := newTestTracker(t, config.DefaultTrackerConfig())
	assert.NotPanics(t, func() {
		tr.Record(context.Background(), "orphan", CategoryCall, nil)
	})
}

func TestTracker_RecordAfterEndIsNoop(t *testing.T) {
	tr := newTestTracker(t, config.DefaultTrackerConfig())
	ctx, ec := tr.Begin(context.Background(), nil)
	tr.End(ec)

	tr.Record(ctx, "late", CategoryCall, nil)
	assert.Equal(t, 0, ec.Len())
}

func TestTracker_DepthBoundDropsExcess(t *testing.T) {
	tl := logging.NewTestLogger()
	tr, err := NewTracker(config.TrackerConfig{SampleRate: 1, MaxDepth: 3}, tl.Underlying())
	require.NoError(t, err)

	ctx, ec := tr.Begin(context.Background(), nil)
	defer tr.End(ec)

	before := testutil.ToFloat64(BreadcrumbsDropped)
	for i := 0; i < 10; i++ {
		tr.Record(ctx, "step", CategoryCall, map[string]any{"i": i})
	}

	crumbs := ec.Breadcrumbs()
	require.Len(t, crumbs, 3)
	assert.Equal(t, 2, crumbs[2].Args["i"], "the earliest breadcrumbs are kept")
	assert.Equal(t, 7.0, testutil.ToFloat64(BreadcrumbsDropped)-before)
	tl.AssertLogged(t, logging.TraceLevel, "breadcrumb dropped")
}

func TestTracker_ZeroDepthKeepsNothing(t *testing.T) {
	tr := newTestTracker(t, config.TrackerConfig{SampleRate: 1, MaxDepth: 0})
	ctx, ec := tr.Begin(context.Background(), nil)
	defer tr.End(ec)

	tr.Record(ctx, "op", CategoryCall, nil)
	assert.Equal(t, 0, ec.Len())
}

func TestTracker_BreadcrumbCopyIsStable(t *testing.T) {
	tr := newTestTracker(t, config.DefaultTrackerConfig())
	ctx, ec := tr.Begin(context.Background(), nil)
	defer tr.End(ec)

	tr.Record(ctx, "first", CategoryCall, nil)
	taken := ec.Breadcrumbs()
	tr.Record(ctx, "second", CategoryCall, nil)

	assert.Len(t, taken, 1)
	assert.Equal(t, 2, ec.Len())
}

func TestTracker_ArgsAreMasked(t *testing.T) {
	tr := newTestTracker(t, config.DefaultTrackerConfig(), WithMasker(snapshot.NewKeyMasker("token")))
	ctx, ec := tr.Begin(context.Background(), nil)
	defer tr.End(ec)

	args := map[string]any{"user": "ana", "api_token": "s3cr3t"}
	tr.Record(ctx, "login", CategoryCall, args)

	got := ec.Breadcrumbs()[0].Args
	assert.Equal(t, "ana", got["user"])
	assert.Equal(t, snapshot.Redacted, got["api_token"])
	assert.Equal(t, "s3cr3t", args["api_token"], "caller's map is untouched")
}

func TestTracker_PanickingMaskerDoesNotEscape(t *testing.T) {
	tl := logging.NewTestLogger()
	bad := snapshot.MaskerFunc(func(map[string]any) map[string]any { panic("bad masker") })
	tr, err := NewTracker(config.DefaultTrackerConfig(), tl.Underlying(), WithMasker(bad))
	require.NoError(t, err)
	ctx, ec := tr.Begin(context.Background(), nil)
	defer tr.End(ec)

	assert.NotPanics(t, func() {
		tr.Record(ctx, "login", CategoryCall, map[string]any{"api_token": "s3cr3t"})
		_ = tr.Settle(ctx, "save", func() error { return nil })
	})

	crumbs := ec.Breadcrumbs()
	require.Len(t, crumbs, 2)
	assert.NotEqual(t, "s3cr3t", crumbs[0].Args["api_token"])
	assert.Contains(t, crumbs[0].Args["api_token"], "mask failed")
	assert.Contains(t, crumbs[1].Args["outcome"], "mask failed")
	tl.AssertLogged(t, zapcore.WarnLevel, "breadcrumb masker panicked")
}

func TestTracker_EndIsIdempotent(t *testing.T) {
	tr := newTestTracker(t, config.DefaultTrackerConfig())
	_, ec := tr.Begin(context.Background(), nil)

	active := testutil.ToFloat64(ContextsActive)
	tr.End(ec)
	tr.End(ec)
	tr.End(nil)

	assert.Equal(t, active-1, testutil.ToFloat64(ContextsActive))
}

func TestTracker_RunEndsContext(t *testing.T) {
	tr := newTestTracker(t, config.DefaultTrackerConfig())
	errBoom := errors.New("boom")

	var seen *ExecutionContext
	err := tr.Run(context.Background(), nil, func(ctx context.Context) error {
		ec, ok := tr.Current(ctx)
		require.True(t, ok)
		seen = ec
		return errBoom
	})

	assert.ErrorIs(t, err, errBoom)
	require.NotNil(t, seen)
	_, live := tr.Store().Get(seen.ID())
	assert.False(t, live)
}

func TestTracker_RunEndsContextOnPanic(t *testing.T) {
	tr := newTestTracker(t, config.DefaultTrackerConfig())

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = tr.Run(context.Background(), nil, func(context.Context) error {
			panic("kaboom")
		})
	})
	assert.Equal(t, 0, tr.Store().Len())
}

func TestTracker_GoInheritsContext(t *testing.T) {
	tr := newTestTracker(t, config.DefaultTrackerConfig())
	ctx, ec := tr.Begin(context.Background(), nil)
	defer tr.End(ec)

	done := make(chan string, 1)
	tr.Go(ctx, "worker", func(ctx context.Context) {
		cur, ok := tr.Current(ctx)
		if !ok {
			done <- ""
			return
		}
		tr.Record(ctx, "inside", CategoryCall, nil)
		done <- cur.ID()
	})

	select {
	case id := <-done:
		assert.Equal(t, ec.ID(), id)
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}

	crumbs := ec.Breadcrumbs()
	require.Len(t, crumbs, 2)
	assert.Equal(t, CategoryFanout, crumbs[0].Category)
	assert.Equal(t, "worker", crumbs[0].Name)
	assert.Equal(t, "inside", crumbs[1].Name)
}

func TestTracker_ConcurrentRecords(t *testing.T) {
	tr := newTestTracker(t, config.TrackerConfig{SampleRate: 1, MaxDepth: 1000})
	ctx, ec := tr.Begin(context.Background(), nil)
	defer tr.End(ec)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				tr.Record(ctx, "op", CategoryCall, nil)
			}
		}()
	}
	wg.Wait()

	crumbs := ec.Breadcrumbs()
	require.Len(t, crumbs, 400)
	for i := 1; i < len(crumbs); i++ {
		assert.Equal(t, crumbs[i-1].ID, crumbs[i].ParentID)
	}
}

func TestTracker_ConcurrentContexts(t *testing.T) {
	tr := newTestTracker(t, config.DefaultTrackerConfig())

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tr.Run(context.Background(), nil, func(ctx context.Context) error {
				tr.Record(ctx, "op", CategoryCall, nil)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, tr.Store().Len())
}

func TestTracker_Settle(t *testing.T) {
	tr := newTestTracker(t, config.DefaultTrackerConfig())
	ctx, ec := tr.Begin(context.Background(), nil)
	defer tr.End(ec)

	require.NoError(t, tr.Settle(ctx, "fetch", func() error { return nil }))
	err := tr.Settle(ctx, "save", func() error { return errors.New("conflict") })
	require.EqualError(t, err, "conflict")
	assert.Panics(t, func() {
		_ = tr.Settle(ctx, "explode", func() error { panic("bad") })
	})

	crumbs := ec.Breadcrumbs()
	require.Len(t, crumbs, 3)
	for _, c := range crumbs {
		assert.Equal(t, CategorySettlement, c.Category)
	}
	assert.Equal(t, "fulfilled", crumbs[0].Args["outcome"])
	assert.Equal(t, "rejected", crumbs[1].Args["outcome"])
	assert.Equal(t, "conflict", crumbs[1].Args["error"])
	assert.Equal(t, "panicked", crumbs[2].Args["outcome"])
}

func TestTracker_AfterFunc(t *testing.T) {
	tr := newTestTracker(t, config.DefaultTrackerConfig())
	ctx, ec := tr.Begin(context.Background(), nil)
	defer tr.End(ec)

	fired := make(chan struct{})
	tr.AfterFunc(ctx, time.Millisecond, "retry", func(ctx context.Context) {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	crumbs := ec.Breadcrumbs()
	require.Len(t, crumbs, 1)
	assert.Equal(t, CategoryTimer, crumbs[0].Category)
	assert.Equal(t, "1ms", crumbs[0].Args["delay"])
}

func TestTracker_BeginNilContext(t *testing.T) {
	tr := newTestTracker(t, config.DefaultTrackerConfig())

	//nolint:staticcheck // nil ctx is tolerated
	ctx, ec := tr.Begin(nil, nil)
	defer tr.End(ec)

	require.NotNil(t, ctx)
	_, ok := tr.Current(ctx)
	assert.True(t, ok)
}
