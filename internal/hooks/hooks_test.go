package hooks

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/errtrail/internal/diag"
	"github.com/fyrsmithlabs/errtrail/internal/logging"
)

func TestExecute_NoHandler(t *testing.T) {
	hm := NewHookManager(nil)
	assert.Equal(t, 0, hm.Execute(context.Background(), HookContextBegin, nil))
	assert.False(t, hm.Has(HookContextBegin))
}

func TestExecute_RunsInRegistrationOrder(t *testing.T) {
	hm := NewHookManager(nil)
	var order []int
	hm.RegisterHandler(HookAfterReport, func(context.Context, *Event) error { order = append(order, 1); return nil })
	hm.RegisterHandler(HookAfterReport, func(context.Context, *Event) error { order = append(order, 2); return nil })
	hm.RegisterHandler(HookAfterReport, nil)

	failed := hm.Execute(context.Background(), HookAfterReport, &Event{})
	assert.Equal(t, 0, failed)
	assert.Equal(t, []int{1, 2}, order)
	assert.True(t, hm.Has(HookAfterReport))
}

func TestExecute_PassesEvent(t *testing.T) {
	hm := NewHookManager(nil)
	bundle := &diag.ErrorBundle{ContextID: "ctx-1"}

	var got *Event
	hm.RegisterHandler(HookBeforeClassify, func(_ context.Context, e *Event) error {
		got = e
		e.Bundle.Metadata = map[string]any{"tenant": "acme"}
		return nil
	})

	hm.Execute(context.Background(), HookBeforeClassify, &Event{ContextID: "ctx-1", Bundle: bundle})

	require.NotNil(t, got)
	assert.Equal(t, HookBeforeClassify, got.Type)
	assert.Equal(t, "ctx-1", got.ContextID)
	assert.Equal(t, "acme", bundle.Metadata["tenant"], "handlers may annotate the bundle")
}

func TestExecute_ErrorsAndPanicsAreSwallowed(t *testing.T) {
	tl := logging.NewTestLogger()
	hm := NewHookManager(tl.Underlying())

	var lastRan bool
	hm.RegisterHandler(HookContextEnd, func(context.Context, *Event) error { return errors.New("handler failed") })
	hm.RegisterHandler(HookContextEnd, func(context.Context, *Event) error { panic("handler exploded") })
	hm.RegisterHandler(HookContextEnd, func(context.Context, *Event) error { lastRan = true; return nil })

	var failed int
	assert.NotPanics(t, func() {
		failed = hm.Execute(context.Background(), HookContextEnd, nil)
	})

	assert.Equal(t, 2, failed)
	assert.True(t, lastRan)
	tl.AssertLogged(t, zapcore.WarnLevel, "hook handler failed")
	assert.Equal(t, 2, tl.FilterMessage("hook handler failed").Len())
}

func TestRegisterWhileExecuting(t *testing.T) {
	hm := NewHookManager(nil)
	hm.RegisterHandler(HookContextBegin, func(context.Context, *Event) error { return nil })

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			hm.Execute(context.Background(), HookContextBegin, nil)
		}()
		go func() {
			defer wg.Done()
			hm.RegisterHandler(HookContextBegin, func(context.Context, *Event) error { return nil })
		}()
	}
	wg.Wait()
}
