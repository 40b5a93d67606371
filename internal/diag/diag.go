// Package diag defines the data shared by the diagnostic pipeline: the
// failure signal, the bundle assembled around it, and the analysis produced
// from the bundle.
package diag

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/errtrail/internal/snapshot"
	"github.com/fyrsmithlabs/errtrail/internal/tracking"
)

// NoContext is the ContextID of a bundle assembled outside any execution
// context.
const NoContext = "no-context"

// ErrConfidenceOutOfRange indicates a confidence outside [0, 1].
var ErrConfidenceOutOfRange = errors.New("confidence must be between 0.0 and 1.0")

// Kind describes how a failure surfaced.
type Kind string

const (
	// KindUncaught is a top-level failure nobody observed (a recovered panic).
	KindUncaught Kind = "uncaught"
	// KindUnhandled is a deferred computation whose failure nobody observed.
	KindUnhandled Kind = "unhandled"
	// KindManual is a failure reported explicitly by the host.
	KindManual Kind = "manual"
)

// ParseKind maps a name to a Kind. Unknown names report false.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindUncaught, KindUnhandled, KindManual:
		return k, true
	}
	return "", false
}

// Failure is the raw failure signal.
type Failure struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
	Kind    Kind   `json:"kind"`
}

// StackFrame is one parsed stack line.
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	// Native marks a frame that could not be parsed from the raw stack.
	Native bool `json:"native,omitempty"`
}

// String formats the frame as function (file:line).
func (f StackFrame) String() string {
	if f.Line == 0 {
		return fmt.Sprintf("%s (%s)", f.Function, f.File)
	}
	return fmt.Sprintf("%s (%s:%d)", f.Function, f.File, f.Line)
}

// ErrorBundle is the classification input: a failure with everything known
// about the flow it happened in.
type ErrorBundle struct {
	Failure     Failure               `json:"failure"`
	Breadcrumbs []tracking.Breadcrumb `json:"breadcrumbs"`
	Snapshot    snapshot.Snapshot     `json:"snapshot"`
	Frames      []StackFrame          `json:"frames"`
	Timestamp   time.Time             `json:"timestamp"`
	ContextID   string                `json:"context_id"`
	Metadata    map[string]any        `json:"metadata,omitempty"`
	TraceID     string                `json:"trace_id,omitempty"`
}

// LastBreadcrumb returns the most recent breadcrumb, if any.
func (b *ErrorBundle) LastBreadcrumb() (tracking.Breadcrumb, bool) {
	if len(b.Breadcrumbs) == 0 {
		return tracking.Breadcrumb{}, false
	}
	return b.Breadcrumbs[len(b.Breadcrumbs)-1], true
}

// HasCategory reports whether any breadcrumb has category c.
func (b *ErrorBundle) HasCategory(c tracking.Category) bool {
	for _, crumb := range b.Breadcrumbs {
		if crumb.Category == c {
			return true
		}
	}
	return false
}

// FixCategory groups fixes by the kind of change they ask for.
type FixCategory string

const (
	FixAddGuard          FixCategory = "add-guard"
	FixAddAwait          FixCategory = "add-await"
	FixTypeCheck         FixCategory = "type-check"
	FixRefactor          FixCategory = "refactor"
	FixInstallDependency FixCategory = "install-dependency"
	FixVerify            FixCategory = "verify"
	FixOther             FixCategory = "other"
)

// Cause is a candidate root cause.
type Cause struct {
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
	Location    string  `json:"location,omitempty"`
}

// Validate checks the confidence range.
func (c Cause) Validate() error {
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("cause %q: %w", c.Description, ErrConfidenceOutOfRange)
	}
	return nil
}

// Fix is a candidate remediation.
type Fix struct {
	Description string      `json:"description"`
	Confidence  float64     `json:"confidence"`
	Category    FixCategory `json:"category"`
	// Code is illustrative code or a command.
	Code string `json:"code,omitempty"`
}

// Validate checks the confidence range.
func (f Fix) Validate() error {
	if f.Confidence < 0 || f.Confidence > 1 {
		return fmt.Errorf("fix %q: %w", f.Description, ErrConfidenceOutOfRange)
	}
	return nil
}

// Analysis is the classification result. History enrichment only appends
// to it: Explanation, PreventionTips, SimilarCount and a raised Confidence.
type Analysis struct {
	Causes          []Cause  `json:"causes"`
	Fixes           []Fix    `json:"fixes"`
	Confidence      float64  `json:"confidence"`
	Pattern         string   `json:"pattern,omitempty"`
	MatchedPatterns []string `json:"matched_patterns,omitempty"`
	Explanation     string   `json:"explanation,omitempty"`
	PreventionTips  []string `json:"prevention_tips,omitempty"`
	SimilarCount    int      `json:"similar_count,omitempty"`
}
