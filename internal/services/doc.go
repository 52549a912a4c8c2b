// Package services implements the business logic between the HTTP
// handlers (or the CLI) and the ingestion and query engines.
//
// # Services
//
//	- DatasetService: ingests documents from the data directory or an
//	  upload, swaps the active dataset in the session, answers filtered
//	  queries with summaries and renders exports.
//	- HealthService: liveness, readiness, version and runtime statistics.
//
// # Error Handling
//
// Services return sentinel errors declared in errors.go, or
// *errors.AppError values produced by the engines. Handlers translate both
// into RFC 7807 problems:
//
//	ds, err := svc.Current(ctx)
//	if errors.Is(err, services.ErrNoDataset) {
//	    // 404
//	}
//
// # Telemetry
//
// Ingestion and query runs open a span and record business metrics. The
// engine packages themselves stay free of telemetry.
package services
