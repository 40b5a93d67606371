// Package logging is errtrail's structured logger, built on Zap.
//
// Every method takes the context of the flow it is logging about and adds
// the correlation fields found there: the active span, the execution context
// id (flow.id) and the host's request id. A line logged while handling a
// failure can therefore be joined to its breadcrumb trail afterwards.
//
// Output is configured by the log section of config.Config:
//
//	logger, err := logging.NewLogger(cfg.Log, global.GetLoggerProvider())
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	logger.Info(ctx, "failure classified", zap.String("pattern", a.Pattern))
//
// Console lines go to stderr. Keys and value patterns listed under
// log.redact are masked before they are written. Repeated lines below error
// level are sampled; errors never are. TraceLevel sits below Debug and is
// used for per-breadcrumb detail.
//
// Components below the facade take a plain *zap.Logger from Underlying.
// Tests use NewTestLogger and its Assert helpers.
package logging
