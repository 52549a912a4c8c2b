package http

import (
	"context"
	"io"

	"marketlens/internal/exporter"
	"marketlens/internal/services"
	v1 "marketlens/pkg/contracts/api/v1"
	"marketlens/pkg/contracts/domain"
)

// DatasetServiceInterface defines the dataset lifecycle operations
type DatasetServiceInterface interface {
	Current(ctx context.Context) (*domain.Dataset, error)
	IngestUpload(ctx context.Context, req v1.UploadRequest) (*domain.Dataset, error)
	IngestDirectory(ctx context.Context, opts services.IngestOptions) (*domain.Dataset, error)
	Dimensions(ctx context.Context) (*v1.DimensionsResponse, error)
	SegmentDimension(ctx context.Context, segmentType string) (*domain.SegmentDimension, error)
}

// QueryServiceInterface defines the query and export operations
type QueryServiceInterface interface {
	Query(ctx context.Context, req v1.QueryRequest) (*services.QueryResult, error)
	Export(ctx context.Context, req v1.ExportRequest, out io.Writer) (exporter.Format, error)
}
