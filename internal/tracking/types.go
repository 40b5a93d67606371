package tracking

import (
	"strconv"
	"sync"
	"time"
)

// Category classifies a breadcrumb.
type Category string

const (
	// CategoryCall is a plain function call.
	CategoryCall Category = "call"
	// CategoryMiddleware is a step in a request middleware chain.
	CategoryMiddleware Category = "middleware"
	// CategorySettlement is a deferred value settling (fulfilled or rejected).
	CategorySettlement Category = "settlement"
	// CategoryFanout is work forked onto another goroutine.
	CategoryFanout Category = "fanout"
	// CategoryTimer is a timer callback firing.
	CategoryTimer Category = "timer"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryCall, CategoryMiddleware, CategorySettlement, CategoryFanout, CategoryTimer:
		return true
	}
	return false
}

// Breadcrumb is one observed operation.
type Breadcrumb struct {
	ID       string         `json:"id"`
	ParentID string         `json:"parent_id,omitempty"`
	Name     string         `json:"name"`
	Category Category       `json:"category"`
	Args     map[string]any `json:"args,omitempty"`
	// Timestamp is when the breadcrumb was recorded.
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// ExecutionContext is one logical flow of control.
//
// The parent is held by id only. Parent lookups go through the Store, so a
// child never keeps an ended parent alive.
type ExecutionContext struct {
	id        string
	parentID  string
	createdAt time.Time
	metadata  map[string]any
	maxDepth  int

	// Goroutines forked with the same ctx may record in parallel.
	mu          sync.Mutex
	breadcrumbs []Breadcrumb
	seq         int
}

func newExecutionContext(id, parentID string, createdAt time.Time, metadata map[string]any, maxDepth int) *ExecutionContext {
	return &ExecutionContext{
		id:        id,
		parentID:  parentID,
		createdAt: createdAt,
		metadata:  copyMap(metadata),
		maxDepth:  maxDepth,
	}
}

// ID returns the context id.
func (ec *ExecutionContext) ID() string { return ec.id }

// ParentID returns the id of the context this one was nested under, or "".
func (ec *ExecutionContext) ParentID() string { return ec.parentID }

// CreatedAt returns the creation time.
func (ec *ExecutionContext) CreatedAt() time.Time { return ec.createdAt }

// Metadata returns a copy of the metadata given to Begin.
func (ec *ExecutionContext) Metadata() map[string]any { return copyMap(ec.metadata) }

// Breadcrumbs returns a copy of the trail in causal order.
func (ec *ExecutionContext) Breadcrumbs() []Breadcrumb {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	out := make([]Breadcrumb, len(ec.breadcrumbs))
	copy(out, ec.breadcrumbs)
	return out
}

// Len returns the number of breadcrumbs recorded.
func (ec *ExecutionContext) Len() int {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return len(ec.breadcrumbs)
}

// append stamps ID and ParentID and appends b. It returns false, without
// side effects, once the depth bound is reached.
func (ec *ExecutionContext) append(b Breadcrumb) bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	if len(ec.breadcrumbs) >= ec.maxDepth {
		return false
	}
	ec.seq++
	b.ID = ec.id + "/" + strconv.Itoa(ec.seq)
	if n := len(ec.breadcrumbs); n > 0 {
		b.ParentID = ec.breadcrumbs[n-1].ID
	}
	ec.breadcrumbs = append(ec.breadcrumbs, b)
	return true
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
