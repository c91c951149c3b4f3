// Package httpapi exposes pipeline inspection and execution over HTTP.
//
// Routes:
//
//	GET  /healthz
//	GET  /version
//	GET  /v1/operators
//	GET  /v1/pipelines
//	POST /v1/pipelines/inspect
//	POST /v1/pipelines/run
//	POST /v1/pipelines/stream
//
// Pipelines are given inline as a definition or by name, in which case they
// are loaded from the configured definition directories. Failures are
// reported with the errors package's JSON envelope and HTTP status. The
// stream route sends each notification as a server-sent event named next,
// error or completed. Runs and streams share an optional concurrency limit.
package httpapi
