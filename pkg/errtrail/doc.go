// Package errtrail is the host-facing entry point to the diagnostic engine.
//
// Enable returns a Diagnoser handle. Only one handle may be live per process;
// Disable releases it. The handle tracks execution contexts, keeps a watch
// list of named values, and turns failures into reports:
//
//	d, err := errtrail.Enable(config.NewDefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Disable()
//
//	err = d.Run(ctx, map[string]any{"job": "sync"}, func(ctx context.Context) error {
//	    d.Record(ctx, "fetch", tracking.CategoryCall, nil)
//	    return fetch(ctx)
//	})
//	if err != nil {
//	    if report, ok := d.ReportError(ctx, err, diag.KindManual); ok {
//	        fmt.Println(report.Analysis.Explanation)
//	    }
//	}
//
// # Signal sources
//
// Guard reports a panic in fn as an uncaught failure. GoUnobserved runs fn on
// a new goroutine and reports its error as unhandled, since nobody waits for
// it. EchoMiddleware gives every request its own execution context and
// reports handler panics before re-raising them.
//
// # Failure semantics
//
// Past Enable, nothing here returns an error or panics because of the
// diagnostic machinery. Report answers false when the handle is disabled,
// the report was rate limited, or the pipeline failed internally.
package errtrail
