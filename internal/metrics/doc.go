// Package metrics collects pipeline counters in a Prometheus registry.
//
// The CLI is short-lived, so nothing is served over HTTP. Instead the
// registry is written once per run in the text exposition format, ready
// for the node exporter textfile collector.
package metrics
