package services

import "errors"

// Dataset service errors
var (
	// Session errors
	ErrNoDataset = errors.New("no dataset loaded")

	// Query errors
	ErrUnknownSegmentType = errors.New("unknown segment type")
	ErrMetricUnavailable  = errors.New("metric not available in the active dataset")
	ErrUnsupportedFormat  = errors.New("unsupported export format")

	// Ingestion errors
	ErrEmptyUpload = errors.New("upload carries no value document")
)
