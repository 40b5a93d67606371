package errtrail

import (
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/errtrail/internal/logging"
	"github.com/fyrsmithlabs/errtrail/internal/tracking"
)

// EchoMiddleware gives every request its own execution context. A handler
// panic is reported as uncaught and then re-raised so the server's recover
// middleware still answers the request.
func (d *Diagnoser) EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = req.Header.Get(echo.HeaderXRequestID)
			}

			ctx, ec := d.Begin(req.Context(), map[string]any{
				"method":     req.Method,
				"path":       c.Path(),
				"request_id": requestID,
			})
			defer d.End(ec)
			if requestID != "" {
				ctx = logging.WithRequestID(ctx, requestID)
			}
			c.SetRequest(req.WithContext(ctx))

			d.Record(ctx, req.Method+" "+c.Path(), tracking.CategoryMiddleware, map[string]any{
				"remote_ip": c.RealIP(),
			})

			defer func() {
				if r := recover(); r != nil {
					d.Report(ctx, FailureFromPanic(r, debug.Stack()))
					panic(r)
				}
			}()
			return next(c)
		}
	}
}
