// Package hooks runs host callbacks at points in the diagnostic lifecycle.
//
// Supports context_begin, context_end, before_classify and after_report
// events. A handler that returns an error or panics is logged and skipped;
// the remaining handlers still run and the host never sees the failure.
package hooks
