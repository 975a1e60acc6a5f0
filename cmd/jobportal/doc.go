// Package main hosts the jobportal entrypoint.
//
// Architecture overview:
//   - Stages: `scrape --source S` writes data/raw/<S>.csv, `clean --source S` maps and deduplicates it into
//     data/cleaned/<S>_cleaned.csv, and `load` inserts unseen records into the job store (memory, SQLite or Postgres).
//   - Orchestration: `pipeline` re-executes this binary for every task, each in its own process group with a stage
//     timeout. Scrape failures are tolerated, the run aborts when every clean task fails, and the exit status is 0 only
//     when the load stage succeeded. `schedule` runs the same pipeline on a cron spec, skipping overlapping runs.
//   - Progress: stage transitions and task results flow through a batching hub to zap, Prometheus, the run history
//     table and, when configured, a Pub/Sub topic. Canonical files can be archived to a local directory or GCS.
//   - Read side: `serve` exposes /v1/jobs and /v1/runs over chi with an optional Redis listing cache; `list` prints the
//     same query as a table and `export` writes an xlsx workbook.
//
// Quick checklist:
//   - Configure via a YAML file (--config) or JOBPORTAL_* env vars, e.g. JOBPORTAL_STORAGE_DRIVER=postgres. DB_USER,
//     DB_PASSWORD, DB_HOST, DB_PORT and DB_NAME (optionally from .env) build the Postgres DSN when none is set.
//   - Run once: go run ./cmd/jobportal pipeline --scrape-timeout 120
//   - Serve: go run ./cmd/jobportal serve, then GET http://localhost:8000/v1/jobs?search=go
package main
