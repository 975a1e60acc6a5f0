// Package progress carries pipeline lifecycle events from the orchestrator to
// pluggable sinks. A Hub buffers events on a background goroutine and fans
// batches out to sinks such as structured logs, Prometheus collectors, or a
// message publisher. Close drains everything still buffered.
package progress
