// Package api contains API contract definitions for the MarketLens HTTP API.
// Version v1 represents the current stable API version.
package api

import (
	"encoding/json"

	"marketlens/pkg/contracts/domain"
)

// Query API Requests

// QueryRequest filters the active dataset and summarises the result
type QueryRequest struct {
	Filter domain.FilterSpec `json:"filter" validate:"required"`
	Metric domain.Metric     `json:"metric,omitempty" validate:"omitempty,oneof=value volume"`
	Year   int               `json:"year,omitempty" validate:"omitempty,min=1000,max=9999"`
}

// ExportRequest is a query whose result is written as a file
type ExportRequest struct {
	QueryRequest
	Format   string `json:"format,omitempty" query:"format" validate:"omitempty,oneof=csv xlsx"`
	FileName string `json:"file_name,omitempty" validate:"omitempty,filename"`
}

// Dataset API Requests

// UploadRequest carries documents to ingest. Value is required; the volume
// and structure companions are optional.
type UploadRequest struct {
	Value     json.RawMessage `json:"value" validate:"required"`
	Volume    json.RawMessage `json:"volume,omitempty"`
	Structure json.RawMessage `json:"structure,omitempty"`
	Lenient   *bool           `json:"lenient,omitempty"`
}

// ReloadRequest re-reads the configured documents from the data directory
type ReloadRequest struct {
	Lenient *bool `json:"lenient,omitempty"`
}

// Health API Requests

// HealthCheckRequest represents a health check request
type HealthCheckRequest struct {
	Verbose bool `json:"verbose" query:"verbose"`
}
