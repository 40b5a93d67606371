// Package telemetry exports errtrail's spans and metrics over OTLP.
//
// The diagnostic packages instrument themselves against the global otel
// providers (Diagnoser.Report and Engine.Classify spans, match and history
// counters). Without this package those go to the no-op providers. New
// installs SDK providers backed by OTLP exporters:
//
//	tel, err := telemetry.New(ctx, cfg.Telemetry)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
// Exporter failures never stop the host. The instance reports itself
// degraded and the affected provider stays no-op.
//
// # Testing
//
// NewTestTelemetry records spans in memory and collects metrics on demand:
//
//	tt := telemetry.NewTestTelemetry(t)
//	d, _ := errtrail.Enable(nil)
//	d.Report(ctx, failure)
//	tt.AssertSpanExists(t, "Diagnoser.Report")
package telemetry
