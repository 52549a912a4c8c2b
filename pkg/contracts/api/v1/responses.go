package api

import (
	"time"

	"marketlens/pkg/contracts/domain"
)

// DatasetResponse summarises the active dataset without its records
type DatasetResponse struct {
	ID            string              `json:"id"`
	CreatedAt     time.Time           `json:"created_at"`
	Duration      string              `json:"duration"`
	YearAxis      domain.YearAxis     `json:"year_axis"`
	ValueRecords  int                 `json:"value_records"`
	VolumeRecords int                 `json:"volume_records"`
	HasVolume     bool                `json:"has_volume"`
	Geographies   []string            `json:"geographies"`
	SegmentTypes  []string            `json:"segment_types"`
	Report        domain.IngestReport `json:"report"`
}

// NewDatasetResponse builds the summary of ds
func NewDatasetResponse(ds *domain.Dataset) DatasetResponse {
	return DatasetResponse{
		ID:            ds.ID,
		CreatedAt:     ds.CreatedAt,
		Duration:      ds.Duration.String(),
		YearAxis:      ds.YearAxis,
		ValueRecords:  ds.Value.Len(),
		VolumeRecords: ds.Volume.Len(),
		HasVolume:     ds.Volume != nil,
		Geographies:   ds.Dimensions.Geographies,
		SegmentTypes:  ds.Dimensions.SegmentTypes,
		Report:        ds.Report,
	}
}

// DimensionsResponse lists everything a query can filter by
type DimensionsResponse struct {
	DatasetID  string            `json:"dataset_id"`
	YearAxis   domain.YearAxis   `json:"year_axis"`
	Dimensions domain.Dimensions `json:"dimensions"`
}
