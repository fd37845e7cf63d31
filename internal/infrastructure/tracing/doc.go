/*
Package tracing gives every broker request a trace and span id.

Spans are created by the gin middleware, finished after the handler returns
and logged by a buffered background collector. Trace context travels in the
X-Trace-ID and X-Span-ID headers, both inbound and on outbound webhook calls.

# Usage

	tracer := tracing.New("carfocus", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	// Outbound
	req.Header = make(http.Header)
	tracing.Inject(ctx, req.Header)

Ids are prefixed ULIDs from the shared id package (trace_*, span_*).
*/
package tracing
