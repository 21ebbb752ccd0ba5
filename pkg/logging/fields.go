// Package logging is the message-template front end of the log pipeline.
//
// A Logger turns calls such as
//
//	log.Information("Order {OrderId} shipped to {City}", id, city)
//
// into immutable logevent.Events, runs them through the configured enrichers
// and hands them to every registered Sink. Loggers are cheap to derive:
// ForContext, ForSource and WithContext return new loggers that share sinks
// and enrichers with their parent.
//
// The package also builds the zerolog logger used for process self-logging
// (NewZerolog), in the same way for every binary.
//
// Example usage:
//
//	log := logging.New(
//	    logging.WithSink(console),
//	    logging.WithEnricher(enrich.LegacyTable()),
//	    logging.WithMinimumLevel(logevent.Information),
//	)
//	defer log.Close(context.Background())
//	log.Information("User {UserId} logged in", 42)
package logging

// Property names attached by the logger itself and by the HTTP middleware.
const (
	// SourceContext names the component that produced the event.
	SourceContext = "SourceContext"

	// RequestID is the HTTP request id.
	RequestID = "RequestId"

	// TraceID is the W3C trace id of the active span.
	TraceID = "TraceId"

	// SpanID is the id of the active span.
	SpanID = "SpanId"

	RequestMethod = "RequestMethod"
	RequestPath   = "RequestPath"
	StatusCode    = "StatusCode"

	// Elapsed is the request duration in milliseconds.
	Elapsed = "Elapsed"
)

// Field names for zerolog self-logging.
const (
	FieldComponent = "component"
	FieldService   = "service_name"
	FieldSink      = "sink"
	FieldCount     = "count"
)

// requestIDHeader carries the request id in and out of HTTP handlers.
const requestIDHeader = "X-Request-ID"
