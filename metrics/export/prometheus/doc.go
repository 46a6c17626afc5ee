// Package prometheus renders goAuthFlow metrics in the Prometheus text
// exposition format.
//
// [New] accepts one or more sources ([goAuthFlow.Engine], authserver.Service)
// and [Exporter.Handler] serves their summed counters and the
// goauthflow_remote_latency_seconds histogram.
//
// # What this package must NOT do
//
//   - Register metrics in a global registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
