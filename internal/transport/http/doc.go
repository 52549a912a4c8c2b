// Package http implements the HTTP handlers of the MarketLens API.
//
// Handlers are a thin layer over the services package: they decode and
// validate requests, call one service method and render the result with
// go-chi/render. Service errors are translated into RFC 7807 problem
// responses by errors.ErrorHandler.
//
// # Routes
//
//	GET  /api/dataset                            active dataset summary
//	POST /api/dataset                            ingest uploaded documents
//	POST /api/dataset/reload                     ingest the data directory
//	GET  /api/dataset/dimensions                 filter metadata
//	GET  /api/dataset/dimensions/{segmentType}   one segment catalogue
//	POST /api/query                              filter and summarise
//	POST /api/query/export?format=csv|xlsx       filtered records as a file
//
// # Error Mapping
//
//	services.ErrNoDataset          404 NO_DATASET
//	services.ErrUnknownSegmentType 404 UNKNOWN_SEGMENT_TYPE
//	services.ErrMetricUnavailable  400 METRIC_UNAVAILABLE
//	services.ErrUnsupportedFormat  400 UNSUPPORTED_FORMAT
//	validation.ErrFileTooLarge     413 PAYLOAD_TOO_LARGE (uploads)
//	*errors.AppError               status of its type; ingestion is 422 INGESTION_FAILED
//
// Request bodies of POST /api/dataset and POST /api/query must be
// application/json; anything else is rejected with 415.
//
// Services are consumed through the interfaces in service_interfaces.go so
// handlers can be tested with testify mocks.
package http
