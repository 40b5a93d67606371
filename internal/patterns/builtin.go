package patterns

import (
	"regexp"

	"github.com/fyrsmithlabs/errtrail/internal/diag"
	"github.com/fyrsmithlabs/errtrail/internal/tracking"
)

var (
	nullAccessRe = regexp.MustCompile(`(?i)cannot (read|set) propert(y|ies) of (undefined|null)|(undefined|null) is not an object|nil pointer dereference`)
	stackRe      = regexp.MustCompile(`(?i)maximum call stack size exceeded|stack overflow|goroutine stack exceeds`)
)

// builtinRules returns the default rules in declaration order.
func builtinRules() []Rule {
	return []Rule{
		{
			Name:        "null-undefined-access",
			Priority:    10,
			Description: "Property access on a null, undefined or nil value",
			Match:       MessageMatches(nullAccessRe),
			Causes: []diag.Cause{
				{Description: "Attempting to access property on null or undefined object", Confidence: 0.95},
			},
			Fixes: []diag.Fix{
				{Description: "Use optional chaining", Confidence: 0.95, Category: diag.FixAddGuard, Code: "const value = obj?.property;"},
				{Description: "Add a null check before access", Confidence: 0.90, Category: diag.FixAddGuard, Code: "if obj == nil {\n\treturn ErrNotFound\n}"},
				{Description: "Provide a default value", Confidence: 0.80, Category: diag.FixAddGuard, Code: "const value = obj?.property ?? defaultValue;"},
			},
		},
		{
			Name:        "unhandled-rejection",
			Priority:    9,
			Description: "A deferred computation failed and its error was never observed",
			Match: All(
				KindIs(diag.KindUnhandled),
				Any(HasBreadcrumb(tracking.CategorySettlement), HasAsyncTerm()),
			),
			Causes: []diag.Cause{
				{Description: "Deferred computation failed without an error handler", Confidence: 0.85},
				{Description: "Result of an asynchronous call was never awaited", Confidence: 0.75},
			},
			Fixes: []diag.Fix{
				{Description: "Await the deferred result and handle its error", Confidence: 0.90, Category: diag.FixAddAwait, Code: "if err := g.Wait(); err != nil {\n\treturn err\n}"},
				{Description: "Attach an error handler to the deferred computation", Confidence: 0.85, Category: diag.FixAddGuard},
			},
		},
		{
			Name:        "module-not-found",
			Priority:    9,
			Description: "A required module or package could not be resolved",
			Match:       MessageContains("cannot find module", "module_not_found", "cannot find package", "no required module provides package"),
			Causes: []diag.Cause{
				{Description: "Required dependency is not installed", Confidence: 0.90},
				{Description: "Import path is misspelled or points to the wrong location", Confidence: 0.60},
			},
			Fixes: []diag.Fix{
				{Description: "Install the missing dependency", Confidence: 0.90, Category: diag.FixInstallDependency, Code: "go get <module>"},
				{Description: "Check the import path for typos", Confidence: 0.70, Category: diag.FixVerify},
			},
		},
		{
			Name:        "stack-overflow",
			Priority:    8,
			Description: "The call stack grew past its limit",
			Match:       MessageMatches(stackRe),
			Causes: []diag.Cause{
				{Description: "Unbounded recursion", Confidence: 0.90},
				{Description: "Two functions call each other without a terminating condition", Confidence: 0.60},
			},
			Fixes: []diag.Fix{
				{Description: "Add a base case to the recursive function", Confidence: 0.90, Category: diag.FixRefactor},
				{Description: "Convert the recursion to an iterative loop", Confidence: 0.70, Category: diag.FixRefactor},
			},
		},
		{
			Name:        "not-a-function",
			Priority:    8,
			Description: "A value that is not callable was called",
			Match:       MessageContains("is not a function"),
			Causes: []diag.Cause{
				{Description: "Calling a value that is not a function", Confidence: 0.90},
				{Description: "Method name is misspelled or missing on the receiver", Confidence: 0.65},
			},
			Fixes: []diag.Fix{
				{Description: "Check the value's type before calling it", Confidence: 0.85, Category: diag.FixTypeCheck, Code: "if (typeof fn === 'function') fn();"},
				{Description: "Verify the method exists on the object it is called on", Confidence: 0.75, Category: diag.FixVerify},
			},
		},
		{
			Name:        "async-fanout-failure",
			Priority:    7,
			Description: "A fanned-out task failed after the caller stopped waiting for it",
			Match: All(
				KindIs(diag.KindUnhandled),
				HasBreadcrumb(tracking.CategoryFanout),
				HasAsyncTerm(),
			),
			Causes: []diag.Cause{
				{Description: "A fanned-out task failed and nothing collected its error", Confidence: 0.80},
			},
			Fixes: []diag.Fix{
				{Description: "Collect fanned-out results and propagate their errors", Confidence: 0.85, Category: diag.FixRefactor, Code: "g, ctx := errgroup.WithContext(ctx)"},
				{Description: "Report failures from inside each spawned task", Confidence: 0.70, Category: diag.FixAddGuard},
			},
		},
		{
			Name:        "reference-error",
			Priority:    7,
			Description: "An identifier was used before it was declared",
			Match:       Any(NameIs("ReferenceError"), MessageContains("is not defined")),
			Causes: []diag.Cause{
				{Description: "Using a variable that has not been declared", Confidence: 0.90},
			},
			Fixes: []diag.Fix{
				{Description: "Declare the variable before use", Confidence: 0.85, Category: diag.FixRefactor},
				{Description: "Check the identifier for typos", Confidence: 0.80, Category: diag.FixVerify},
			},
		},
		{
			Name:        "syntax-error",
			Priority:    7,
			Description: "Source or input could not be parsed",
			Match:       Any(NameIs("SyntaxError"), MessageContains("unexpected token", "syntax error")),
			Causes: []diag.Cause{
				{Description: "Malformed source code or input data", Confidence: 0.90},
			},
			Fixes: []diag.Fix{
				{Description: "Validate input before parsing it", Confidence: 0.80, Category: diag.FixAddGuard},
				{Description: "Check for a missing bracket or quote near the reported position", Confidence: 0.75, Category: diag.FixVerify},
			},
		},
		{
			Name:        "timeout",
			Priority:    6,
			Description: "An operation did not finish in time",
			Match: Any(
				MessageContains("timeout", "timed out", "etimedout", "deadline exceeded"),
				All(LastBreadcrumbIs(tracking.CategoryTimer), HasAsyncTerm()),
			),
			Causes: []diag.Cause{
				{Description: "Operation did not complete within its deadline", Confidence: 0.85},
				{Description: "Downstream dependency is slow or unreachable", Confidence: 0.70},
			},
			Fixes: []diag.Fix{
				{Description: "Retry with exponential backoff", Confidence: 0.75, Category: diag.FixRefactor},
				{Description: "Check the health of the downstream service", Confidence: 0.70, Category: diag.FixVerify},
				{Description: "Increase the timeout or deadline", Confidence: 0.60, Category: diag.FixOther, Code: "ctx, cancel := context.WithTimeout(ctx, 30*time.Second)"},
			},
		},
		{
			Name:        "connection-refused",
			Priority:    6,
			Description: "The remote end refused the connection",
			Match:       MessageContains("econnrefused", "connection refused"),
			Causes: []diag.Cause{
				{Description: "Target service is not listening on the address", Confidence: 0.90},
			},
			Fixes: []diag.Fix{
				{Description: "Verify the service is running and the host and port are correct", Confidence: 0.90, Category: diag.FixVerify},
				{Description: "Retry the connection with backoff", Confidence: 0.70, Category: diag.FixRefactor},
			},
		},
		{
			Name:        "middleware-failure",
			Priority:    5,
			Description: "A request failed inside the middleware chain",
			Match:       All(LastBreadcrumbIs(tracking.CategoryMiddleware), KindIs(diag.KindUncaught)),
			Causes: []diag.Cause{
				{Description: "A middleware handler failed while processing the request", Confidence: 0.75},
			},
			Fixes: []diag.Fix{
				{Description: "Add error-handling middleware that recovers and reports", Confidence: 0.80, Category: diag.FixAddGuard},
				{Description: "Check the order of the middleware chain", Confidence: 0.60, Category: diag.FixVerify},
			},
		},
	}
}
