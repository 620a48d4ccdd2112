// Package tracing provides execution trace support for actions
//
// Traces are recorded with the OpenTelemetry SDK. A Tracer owns the tracer
// provider, opens root spans with NewTrace, and can be flushed so that
// exported spans are durable before a response completes. StoreExporter
// persists finished spans as trace records in a store, where the reflection
// API can read them back by trace ID
package tracing
