// Package api hosts the HTTP server, middleware, and REST handlers of the
// metadata, job and poll services. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/metadata/aus/{auid} and /v1/mdupdates page with continuation
//     tokens; a 409 tells the client to restart without a token.
//   - GET /v1/polls/as-poller, /as-voter and the per-poll tally, repair and
//     peer listings page by page number.
//
// Errors are mapped in one place: invalid parameters are 400, pagination
// conflicts 409, unknown resources 404, refusals 403 and anything else 500.
package api
