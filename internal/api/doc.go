// Package api hosts the read-only HTTP interface over the job store. Routes:
//   - GET /v1/jobs for the filtered, paginated listing.
//   - GET /v1/runs and /v1/runs/{run_id} for pipeline run history.
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
package api
