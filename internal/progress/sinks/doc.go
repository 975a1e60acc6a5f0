// Package sinks implements concrete progress consumers: structured logging,
// Prometheus collectors, and a publisher that announces finished runs. Each
// sink satisfies progress.Sink.
package sinks
