package errtrail

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"runtime/debug"

	"github.com/fyrsmithlabs/errtrail/internal/diag"
)

// ErrPanicked wraps the value recovered by Guard.
var ErrPanicked = errors.New("panic recovered")

// FailureFromError converts err into a failure signal. The name is the type
// of the innermost error in the Unwrap chain, and the stack is the calling
// goroutine's.
func FailureFromError(err error, kind diag.Kind) diag.Failure {
	if err == nil {
		return diag.Failure{Kind: kind}
	}
	return diag.Failure{
		Name:    errorName(err),
		Message: err.Error(),
		Stack:   string(debug.Stack()),
		Kind:    kind,
	}
}

// FailureFromPanic converts a recovered value into an uncaught failure.
func FailureFromPanic(r any, stack []byte) diag.Failure {
	f := diag.Failure{
		Name:    "panic",
		Message: fmt.Sprint(r),
		Stack:   string(stack),
		Kind:    diag.KindUncaught,
	}
	if err, ok := r.(error); ok {
		f.Name = errorName(err)
		f.Message = err.Error()
	}
	return f
}

// errorName names the root of err's Unwrap chain.
func errorName(err error) string {
	root := err
	for {
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}
	if n, ok := root.(interface{ Name() string }); ok {
		return n.Name()
	}
	if _, ok := root.(runtime.Error); ok {
		return "RuntimeError"
	}
	t := reflect.TypeOf(root)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	// errors.New and fmt.Errorf without %w produce unexported types.
	if name == "" || name == "errorString" || name == "wrapError" {
		return "Error"
	}
	return name
}

// ReportError reports err as a failure of the given kind. A nil err reports
// nothing.
func (d *Diagnoser) ReportError(ctx context.Context, err error, kind diag.Kind) (*Report, bool) {
	if err == nil {
		return nil, false
	}
	return d.Report(ctx, FailureFromError(err, kind))
}

// Guard calls fn and reports a panic as an uncaught failure. The panic does
// not propagate; Guard returns it wrapped in ErrPanicked. Errors returned by
// fn are the caller's to observe and are passed through unreported.
func (d *Diagnoser) Guard(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.Report(ctx, FailureFromPanic(r, debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrPanicked, r)
		}
	}()
	return fn(ctx)
}

// GoUnobserved runs fn on a new goroutine that nobody waits for. A returned
// error is reported as unhandled and a panic as uncaught.
func (d *Diagnoser) GoUnobserved(ctx context.Context, name string, fn func(context.Context) error) {
	d.tracker.Go(ctx, name, func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				d.Report(ctx, FailureFromPanic(r, debug.Stack()))
			}
		}()
		if err := fn(ctx); err != nil {
			d.ReportError(ctx, err, diag.KindUnhandled)
		}
	})
}
