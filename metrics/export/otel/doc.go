// Package otel publishes goAuthFlow metrics through OpenTelemetry observable
// instruments.
//
// [New] registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per latency bucket. A single callback reads the
// source snapshot on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
