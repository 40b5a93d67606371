package hooks

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/errtrail/internal/diag"
)

// HookType represents different lifecycle hooks
type HookType string

const (
	// HookContextBegin is called after an execution context starts
	HookContextBegin HookType = "context_begin"

	// HookContextEnd is called after an execution context ends
	HookContextEnd HookType = "context_end"

	// HookBeforeClassify is called with the assembled bundle before
	// classification. Handlers may add bundle metadata.
	HookBeforeClassify HookType = "before_classify"

	// HookAfterReport is called with the finished bundle and analysis
	HookAfterReport HookType = "after_report"
)

// Event is the payload passed to handlers. Fields not relevant to the hook
// type are zero.
type Event struct {
	Type      HookType
	ContextID string
	Bundle    *diag.ErrorBundle
	Analysis  *diag.Analysis
}

// HookHandler is a function that handles a hook event
type HookHandler func(ctx context.Context, event *Event) error

// HookManager manages lifecycle hooks
type HookManager struct {
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[HookType][]HookHandler
}

// NewHookManager creates a new hook manager
func NewHookManager(logger *zap.Logger) *HookManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HookManager{
		logger:   logger,
		handlers: make(map[HookType][]HookHandler),
	}
}

// RegisterHandler registers a handler for a hook type
func (h *HookManager) RegisterHandler(hookType HookType, handler HookHandler) {
	if handler == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[hookType] = append(h.handlers[hookType], handler)
}

// Has reports whether any handler is registered for hookType.
func (h *HookManager) Has(hookType HookType) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers[hookType]) > 0
}

// Execute runs every handler for hookType in registration order and returns
// how many failed.
func (h *HookManager) Execute(ctx context.Context, hookType HookType, event *Event) int {
	h.mu.RLock()
	handlers := h.handlers[hookType]
	h.mu.RUnlock()

	if len(handlers) == 0 {
		// No handlers registered - not an error
		return 0
	}
	if event == nil {
		event = &Event{}
	}
	event.Type = hookType

	var failed int
	for i, handler := range handlers {
		if err := h.run(ctx, handler, event); err != nil {
			failed++
			h.logger.Warn("hook handler failed",
				zap.String("hook", string(hookType)),
				zap.Int("handler", i),
				zap.Error(err),
			)
		}
	}
	return failed
}

func (h *HookManager) run(ctx context.Context, handler HookHandler, event *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(ctx, event)
}
