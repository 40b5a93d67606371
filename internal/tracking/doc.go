// Package tracking maintains execution contexts and their breadcrumb trails.
//
// An execution context is one logical flow of work: a request, a job, a
// top-level callback. The id of the context that is active for a flow rides in
// a context.Context, so anything started with a derived ctx (a goroutine, a
// timer, a deferred settlement) inherits the context active at fork time.
// Begin returns a new ctx for the nested context; the parent's ctx is never
// changed, so a child's context cannot leak back to its parent.
//
// The Store is the single owner of live contexts. Readers take copies of a
// context's breadcrumbs; a copy taken for an error report is not affected by
// later records.
//
// # Sampling
//
// Begin draws one uniform value per call. When the draw is not below the
// configured rate the work still runs, but no context is created: Current
// reports none for that flow and Record is a no-op. An unsampled Begin
// shadows any parent context so the whole unit of work stays untracked.
//
// # Failure semantics
//
// Nothing in this package returns an error past NewTracker. A missing context
// is the normal "untracked" state, not a fault.
package tracking
