// Package main hosts the laaws service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, AU metadata, metadata update jobs, and poll status.
//     Every /v1 route passes optional API key auth and per-client rate limiting before reaching a handler.
//   - Paging: AU metadata is served in cursor pages whose continuation token pins the item the next page resumes
//     after plus a fingerprint of the items already served. A page request that finds the served prefix changed
//     fails with 409 rather than skipping or repeating items. Jobs are cursor paged too; poll listings, tally URLs,
//     repair queues and peer URL lists are offset paged by page number and size.
//   - Jobs: POST /v1/mdupdates records a job and pushes it onto a bounded in-memory queue drained by a fixed worker
//     pool sized by config.Jobs.Workers. Workers run the metadata extractor and publish lifecycle events to Pub/Sub
//     when a topic is configured.
//   - Persistence: AU metadata lives in Postgres when database.dsn is set, otherwise in memory. Jobs and polls are
//     kept in memory.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging; Prometheus
//     metrics are exported via the metrics middleware and /metrics handler; otelhttp propagates trace context into
//     published job events.
//
// Quick checklist:
//   - Configure env vars: LAAWS_SERVER_PORT, LAAWS_PAGING_DEFAULT_LIMIT, LAAWS_PAGING_MAX_LIMIT,
//     LAAWS_DATABASE_DSN, LAAWS_PUBSUB_PROJECT_ID and LAAWS_PUBSUB_TOPIC_NAME.
//   - Run locally: go run . serve --config config.yaml (or rely solely on env overrides).
package main
